package app

import (
	"context"
	"fmt"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/shrimpsizemoose/semla/internal/evaluation"
	"github.com/shrimpsizemoose/semla/internal/notify"
	"github.com/shrimpsizemoose/semla/internal/report"
	"github.com/shrimpsizemoose/semla/internal/roster"
	"github.com/shrimpsizemoose/semla/internal/store"
)

type Service struct {
	Config      *Config
	Store       store.Store
	Auth        *Auth
	Roster      *roster.Service
	Evaluations *evaluation.Service
	Reports     *report.Assembler

	notifier notify.Notifier
	lock     *SubmitLock
}

func NewService(configPath string) (*Service, error) {
	config, err := LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return NewServiceFromConfig(context.Background(), config)
}

func NewServiceFromConfig(ctx context.Context, config *Config) (*Service, error) {
	reportDefaults := report.DefaultOptions(&config.Grading)
	if err := reportDefaults.Validate(); err != nil {
		return nil, fmt.Errorf("invalid grading config: %w", err)
	}

	st, err := NewStore(config.Database.DSN, config.Database.MigrationsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to init store: %w", err)
	}

	notifier, err := notify.New(config.NotifyConfig())
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to init notifier: %w", err)
	}

	s := &Service{
		Config:   config,
		Store:    st,
		Auth:     NewAuth(config),
		Roster:   roster.NewService(st),
		Reports:  report.NewAssembler(st, reportDefaults),
		notifier: notifier,
	}

	var locker evaluation.Locker
	if config.Redis.URL != "" {
		client, err := ConnectRedis(ctx, config.Redis.URL)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.lock = NewSubmitLock(client, seconds(config.Redis.SubmitLockTTLSeconds))
		locker = s.lock
	} else {
		logger.Info.Printf("No redis configured, submissions rely on the database unique index only")
	}

	dispatcher := &notify.Dispatcher{
		Notifier:     notifier,
		CallTimeout:  seconds(config.Notify.TimeoutSeconds),
		BatchTimeout: seconds(config.Notify.BatchTimeoutSeconds),
	}
	s.Evaluations = evaluation.NewService(st, dispatcher, locker, config.Server.FrontendBaseURL)

	return s, nil
}

func (s *Service) Close() error {
	var errs []error

	if s.notifier != nil {
		if err := s.notifier.Close(); err != nil {
			errs = append(errs, fmt.Errorf("notifier: %w", err))
		}
	}
	if s.lock != nil {
		if err := s.lock.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis: %w", err))
		}
	}
	if err := s.Store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("store: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors while closing: %v", errs)
	}
	return nil
}
