package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/shrimpsizemoose/semla/internal/app"
)

func main() {
	var (
		configPath = flag.String("config", "config.toml", "Path to config file")
		professor  = flag.String("professor", "", "Professor id owning the course")
		course     = flag.String("course", "", "Course id")
		deadline   = flag.String("deadline", "", "Deadline shown in the reminder, RFC3339")
	)
	flag.Parse()

	if *professor == "" || *course == "" {
		flag.Usage()
		os.Exit(2)
	}

	var due *time.Time
	if *deadline != "" {
		t, err := time.Parse(time.RFC3339, *deadline)
		if err != nil {
			logger.Error.Fatalf("Invalid deadline %q: %v", *deadline, err)
		}
		due = &t
	}

	service, err := app.NewService(*configPath)
	if err != nil {
		logger.Error.Fatalf("Failed to load config: %v", err)
	}
	defer service.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result, err := service.Evaluations.Remind(ctx, *professor, *course, due)
	if err != nil {
		logger.Error.Fatalf("Failed to send reminders: %v", err)
	}

	for _, r := range result.Results {
		if !r.Sent {
			logger.Error.Printf("Reminder to %s <%s> failed: %s", r.Name, r.Email, r.Error)
		}
	}
	logger.Info.Printf("Reminders for course %s: sent=%d failed=%d", *course, result.Sent, result.Failed)
}
