package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/shrimpsizemoose/semla/internal/app"
	"github.com/shrimpsizemoose/semla/internal/handlers"
)

func main() {
	var configPath = flag.String("config", "config.toml", "Path to config file")
	flag.Parse()

	service, err := app.NewService(*configPath)
	if err != nil {
		logger.Error.Fatalf("Failed to load config: %v", err)
	}
	defer service.Close()

	server := &http.Server{
		Addr:              service.Config.Server.Port,
		Handler:           handlers.NewRouter(service),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info.Printf("Starting semla server on %s", service.Config.Server.Port)
		logger.Debug.Printf("Auth enabled: %v, notify transport: %s", service.Config.Server.EnableAuth, service.Config.Notify.Transport)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error.Fatalf("Semla server failed: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error.Printf("Shutdown failed: %v", err)
	}
	logger.Info.Println("Semla server stopped")
}
