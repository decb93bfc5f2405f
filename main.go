package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ovostore/internal/app"
	"ovostore/internal/config"
	"ovostore/internal/logging"

	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// --- Configuration ---
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// --- Logging ---
	flush, err := logging.Init(cfg.Logger)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer flush()

	// --- Application ---
	a, err := app.New(cfg)
	if err != nil {
		zap.S().Fatalf("Failed to start %s: %v", cfg.App.StoreName, err)
	}

	// Graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := a.Listen(); err != nil {
			zap.S().Fatalf("Server failed to start: %v", err)
		}
	}()

	<-quit
	zap.S().Info("Shutting down server...")

	if err := a.Shutdown(shutdownTimeout); err != nil {
		zap.S().Errorf("Error during shutdown: %v", err)
	}
	zap.S().Info("Server gracefully stopped")
}
