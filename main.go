package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"weatherbot/internal/app"
	"weatherbot/internal/config"
	"weatherbot/internal/handlers"
	"weatherbot/internal/logging"
	"weatherbot/internal/server"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync() //nolint:errcheck

	if err := cfg.Validate(); err != nil {
		log.Fatal("Invalid configuration", zap.Error(err))
	}

	// Initialize services
	services, err := app.New(cfg, prometheus.DefaultRegisterer, log)
	if err != nil {
		log.Fatal("Failed to build services", zap.Error(err))
	}
	updates, stopUpdates := services.Updates(cfg, log)
	log.Info("Webhook processor ready", zap.String("mode", cfg.WebhookMode))

	// Setup HTTP server
	srv := server.NewServer(cfg, log.Named("http"))
	handler := handlers.NewHandler(services.Weather, updates, cfg.ZoneLabel, log.Named("handlers"))

	// Register routes
	srv.Router().GET("/health", handler.Health)
	srv.Router().POST("/api/weather", handler.WeatherReport)
	srv.Router().POST("/webhook", handler.TelegramWebhook)
	srv.ExposeMetrics(prometheus.DefaultGatherer)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			log.Error("Server error", zap.Error(err))
		}
	}

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	if err := stopUpdates(ctx); err != nil {
		log.Error("Webhook processor shutdown error", zap.Error(err))
	}

	log.Info("Server exited")
}
