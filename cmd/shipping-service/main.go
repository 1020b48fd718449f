package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/orderflow/fulfillment/shipping-service/config"
	"github.com/orderflow/fulfillment/shared/httputil"
	"github.com/orderflow/fulfillment/shared/logging"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.ReadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.NewLogger(logging.Config{Level: cfg.LogLevel, Env: cfg.Env})
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Info(ctx, logger, "starting service",
		zap.String("service", cfg.ServiceName),
		zap.String("env", cfg.Env),
		zap.String("port", cfg.Port),
		zap.String("bus", cfg.Bus.Driver),
	)

	deps, err := config.BuildDependencies(ctx, cfg, logger, nil)
	if err != nil {
		logger.Fatal("failed to build dependencies", zap.Error(err))
	}
	defer func() {
		if err := deps.Close(); err != nil {
			logger.Error("error closing dependencies", zap.Error(err))
		}
	}()

	if err := deps.StartConsuming(ctx); err != nil {
		logger.Fatal("failed to start event subscriber", zap.Error(err))
	}

	router := httputil.NewRouter(deps.Telemetry, logger)
	deps.ShipmentHandlers.RegisterRoutes(router)

	if err := httputil.Serve(ctx, ":"+cfg.Port, router, logger); err != nil {
		logger.Error("server stopped", zap.Error(err))
	}

	logging.Info(context.Background(), logger, "service stopped", zap.String("service", cfg.ServiceName))
}
