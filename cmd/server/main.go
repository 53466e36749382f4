package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/lab-report-normalizer/internal/api"
	"github.com/lab-report-normalizer/internal/config"
	"github.com/lab-report-normalizer/internal/logging"
	"github.com/lab-report-normalizer/internal/service"
)

func main() {
	// Load configuration
	configManager, err := config.Load("")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Validate configuration
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	cfg := configManager.GetConfig()
	logger, err := logging.New(cfg.Logging, os.Stdout)
	if err != nil {
		log.Fatalf("Failed to configure logging: %v", err)
	}

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc, err := service.Build(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to build report service")
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.WithError(err).Warn("Failed to close report service")
		}
	}()

	logger.WithFields(logrus.Fields{
		"host":        cfg.Server.Host,
		"port":        cfg.Server.Port,
		"environment": cfg.Environment,
	}).Info("Starting lab report normalizer API")

	server := api.NewServer(configManager, svc, logger)

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	if err := server.Start(ctx); err != nil {
		logger.WithError(err).Error("Server failed")
		cancel()
		return
	}

	logger.Info("Server stopped")
}
