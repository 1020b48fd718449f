// Command local-saga runs the order, payment and shipping services in one
// process over a shared in-memory bus and in-memory storage.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	orderconfig "github.com/orderflow/fulfillment/order-service/config"
	paymentconfig "github.com/orderflow/fulfillment/payments-service/config"
	sharedconfig "github.com/orderflow/fulfillment/shared/config"
	"github.com/orderflow/fulfillment/shared/httputil"
	sharedinfra "github.com/orderflow/fulfillment/shared/infrastructure"
	"github.com/orderflow/fulfillment/shared/logging"
	"github.com/orderflow/fulfillment/shared/telemetry"
	shippingconfig "github.com/orderflow/fulfillment/shipping-service/config"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type service struct {
	cfg      *sharedconfig.Config
	tel      *telemetry.Telemetry
	routes   func(chi.Router)
	consume  func(context.Context) error
	shutdown func() error
}

func main() {
	cfg, err := orderconfig.ReadConfig()
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

	bus := sharedinfra.NewMemoryBus(logger)

	services, err := buildServices(ctx, logger, bus)
	if err != nil {
		logger.Fatal("failed to build services", zap.Error(err))
	}
	defer func() {
		for _, svc := range services {
			if err := svc.shutdown(); err != nil {
				logger.Error("error closing dependencies", zap.String("service", svc.cfg.ServiceName), zap.Error(err))
			}
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return bus.Run(gctx) })

	for _, svc := range services {
		svc := svc
		if err := svc.consume(gctx); err != nil {
			logger.Fatal("failed to start event subscriber", zap.String("service", svc.cfg.ServiceName), zap.Error(err))
		}

		router := httputil.NewRouter(svc.tel, logger.With(zap.String("service", svc.cfg.ServiceName)))
		svc.routes(router)

		logging.Info(ctx, logger, "starting service",
			zap.String("service", svc.cfg.ServiceName),
			zap.String("port", svc.cfg.Port),
		)
		g.Go(func() error {
			return httputil.Serve(gctx, ":"+svc.cfg.Port, router, logger)
		})
	}

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		logger.Error("local saga stopped", zap.Error(err))
	}
	logging.Info(context.Background(), logger, "local saga stopped")
}

func buildServices(ctx context.Context, logger *zap.Logger, bus *sharedinfra.MemoryBus) ([]service, error) {
	var services []service

	orderCfg, err := orderconfig.ReadConfig()
	if err != nil {
		return nil, err
	}
	inMemory(orderCfg)
	order, err := orderconfig.BuildDependencies(ctx, orderCfg, logger, bus)
	if err != nil {
		return nil, err
	}
	services = append(services, service{
		cfg: orderCfg, tel: order.Telemetry,
		routes: order.OrderHandlers.RegisterRoutes, consume: order.StartConsuming, shutdown: order.Close,
	})

	paymentCfg, err := paymentconfig.ReadConfig()
	if err != nil {
		return nil, err
	}
	inMemory(paymentCfg)
	// The Prometheus exporter registers on the default registry once per
	// process; the order service owns it.
	paymentCfg.Telemetry.Enabled = false
	payment, err := paymentconfig.BuildDependencies(ctx, paymentCfg, logger, bus)
	if err != nil {
		return nil, err
	}
	services = append(services, service{
		cfg: paymentCfg, tel: payment.Telemetry,
		routes: payment.PaymentHandlers.RegisterRoutes, consume: payment.StartConsuming, shutdown: payment.Close,
	})

	shippingCfg, err := shippingconfig.ReadConfig()
	if err != nil {
		return nil, err
	}
	inMemory(shippingCfg)
	shippingCfg.Telemetry.Enabled = false
	shipping, err := shippingconfig.BuildDependencies(ctx, shippingCfg, logger, bus)
	if err != nil {
		return nil, err
	}
	services = append(services, service{
		cfg: shippingCfg, tel: shipping.Telemetry,
		routes: shipping.ShipmentHandlers.RegisterRoutes, consume: shipping.StartConsuming, shutdown: shipping.Close,
	})

	return services, nil
}

func inMemory(cfg *sharedconfig.Config) {
	cfg.Bus.Driver = sharedconfig.BusMemory
	cfg.Database.Driver = sharedconfig.StorageMemory
	cfg.Redis.Addr = ""
}
