package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/lab-report-normalizer/internal/config"
	"github.com/lab-report-normalizer/internal/logging"
	"github.com/lab-report-normalizer/internal/mcp"
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

	// stdout carries the protocol; logs go to stderr.
	logger, err := logging.New(cfg.Logging, os.Stderr)
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
	defer svc.Close()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down MCP server...")
		cancel()
	}()

	if err := mcp.NewServer(cfg.MCP, svc, logger).Run(ctx); err != nil {
		logger.WithError(err).Error("MCP server failed")
	}
}
