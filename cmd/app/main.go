package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/carlos50barbosa/agendamentos-online-mvp-sub000/internal/billing"
	"github.com/carlos50barbosa/agendamentos-online-mvp-sub000/internal/config"
	"github.com/carlos50barbosa/agendamentos-online-mvp-sub000/internal/db"
	"github.com/carlos50barbosa/agendamentos-online-mvp-sub000/internal/logger"
	"github.com/carlos50barbosa/agendamentos-online-mvp-sub000/internal/messaging"
	"github.com/carlos50barbosa/agendamentos-online-mvp-sub000/internal/server"
)

// @title           Agendamentos Online API
// @version         1.0
// @description     Scheduling SaaS with per-tenant message credits and subscription billing.

// @host      localhost:8080
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	logger.Init()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	if err := db.RunMigrations(database, "migrations"); err != nil {
		logger.Fatalf("Failed to run migrations: %v", err)
	}

	transport := messaging.NewRedisTransport(cfg.RedisAddr, cfg.WhatsAppAPIURL, cfg.WhatsAppToken)
	defer transport.Close()

	workerCtx, cancelWorker := context.WithCancel(context.Background())
	defer cancelWorker()
	go transport.Start(workerCtx)

	var gateway billing.Gateway
	if cfg.MPAccessToken != "" {
		gateway, err = billing.NewMercadoPagoGateway(cfg.MPAccessToken)
		if err != nil {
			logger.Fatalf("Failed to configure payment gateway: %v", err)
		}
	} else {
		logger.Info("MP_ACCESS_TOKEN not set, checkout creation disabled")
		gateway = billing.NewUnconfiguredGateway()
	}

	srv := server.New(database, cfg, transport, gateway)

	serverErrChan := make(chan error, 1)
	go func() {
		logger.Infof("Server starting on port %s", cfg.Port)
		serverErrChan <- srv.Start(cfg.Port)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrChan:
		logger.Fatalf("Server error: %v", err)
	case sig := <-sigChan:
		logger.Infof("Received signal %v, shutting down", sig)
	}

	cancelWorker()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Graceful shutdown failed: %v", err)
	}

	logger.Info("Server stopped")
}
