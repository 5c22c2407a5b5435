package app

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/shrimpsizemoose/semla/internal/notify"
	"github.com/shrimpsizemoose/semla/internal/scoring"
)

const (
	envDatabaseDSN = "SEMLA_DATABASE_DSN"
	envJWTSecret   = "SEMLA_JWT_SECRET"
	envRedisURL    = "SEMLA_REDIS_URL"
)

type Config struct {
	Server struct {
		Port            string   `toml:"port"`
		EnableAuth      bool     `toml:"enable_auth"`
		CORSOrigins     []string `toml:"cors_origins"`
		FrontendBaseURL string   `toml:"frontend_base_url"`
	} `toml:"server"`

	Auth struct {
		JWTSecret         string `toml:"jwt_secret"`
		ProfessorIDHeader string `toml:"professor_id_header"`
	} `toml:"auth"`

	Database struct {
		DSN           string `toml:"dsn"`
		MigrationsDir string `toml:"migrations_dir"`
	} `toml:"database"`

	Redis struct {
		URL                  string `toml:"url"`
		SubmitLockTTLSeconds int    `toml:"submit_lock_ttl_seconds"`
	} `toml:"redis"`

	Notify struct {
		Transport           string   `toml:"transport"`
		NATSURL             string   `toml:"nats_url"`
		NATSSubject         string   `toml:"nats_subject"`
		KafkaBrokers        []string `toml:"kafka_brokers"`
		KafkaTopic          string   `toml:"kafka_topic"`
		TimeoutSeconds      int      `toml:"timeout_seconds"`
		BatchTimeoutSeconds int      `toml:"batch_timeout_seconds"`
	} `toml:"notify"`

	Grading scoring.Grader `toml:"grading"`
}

// LoadConfig reads .env (if present), the TOML file at path and then the
// SEMLA_* environment overrides.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Debug.Printf("Skipping .env: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}
	return ParseConfig(path, data)
}

func ParseConfig(path string, data []byte) (*Config, error) {
	config := defaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf(
			"error reading config file %s\n> Error: %w\n> Content:\n%s",
			path,
			err,
			string(data),
		)
	}

	if v := os.Getenv(envDatabaseDSN); v != "" {
		config.Database.DSN = v
	}
	if v := os.Getenv(envJWTSecret); v != "" {
		config.Auth.JWTSecret = v
	}
	if v := os.Getenv(envRedisURL); v != "" {
		config.Redis.URL = v
	}

	if config.Server.Port == "" {
		return nil, fmt.Errorf("Server port is not specified in config, use a value like :9999")
	}
	if config.Server.EnableAuth && config.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("auth is enabled but no jwt_secret is set, use %s or [auth].jwt_secret", envJWTSecret)
	}
	if config.Database.DSN == "" {
		return nil, fmt.Errorf("database dsn is not specified in config")
	}

	logger.Debug.Printf("Loaded grading config: %+v", config.Grading)

	return config, nil
}

func defaultConfig() *Config {
	c := &Config{}
	c.Server.FrontendBaseURL = "http://localhost:3000"
	c.Auth.ProfessorIDHeader = "X-Professor-ID"
	c.Redis.SubmitLockTTLSeconds = 30
	c.Notify.Transport = "log"
	c.Notify.NATSSubject = "semla.notifications"
	c.Notify.KafkaTopic = "semla.notifications"
	c.Notify.TimeoutSeconds = 10
	c.Notify.BatchTimeoutSeconds = 120
	c.Grading = *scoring.DefaultGrader()
	return c
}

func (c *Config) NotifyConfig() notify.Config {
	return notify.Config{
		Transport:    c.Notify.Transport,
		NATSURL:      c.Notify.NATSURL,
		NATSSubject:  c.Notify.NATSSubject,
		KafkaBrokers: c.Notify.KafkaBrokers,
		KafkaTopic:   c.Notify.KafkaTopic,
		Timeout:      seconds(c.Notify.TimeoutSeconds),
	}
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
