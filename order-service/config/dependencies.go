package config

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/orderflow/fulfillment/order-service/application"
	"github.com/orderflow/fulfillment/order-service/domain"
	"github.com/orderflow/fulfillment/order-service/handlers"
	"github.com/orderflow/fulfillment/order-service/infrastructure"
	sharedconfig "github.com/orderflow/fulfillment/shared/config"
	"github.com/orderflow/fulfillment/shared/events"
	sharedinfra "github.com/orderflow/fulfillment/shared/infrastructure"
	"github.com/orderflow/fulfillment/shared/logging"
	"github.com/orderflow/fulfillment/shared/saga"
	"github.com/orderflow/fulfillment/shared/telemetry"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Dependencies struct {
	// Database
	DB    *sqlx.DB
	Redis *redis.Client

	// Repositories
	OrderRepository domain.OrderRepository
	EventStore      events.EventStore

	// Use Cases
	CreateOrder           *application.CreateOrder
	GetOrder              *application.GetOrder
	ListOrders            *application.ListOrders
	GetOrderEvents        *application.GetOrderEvents
	TransitionOrderStatus *application.TransitionOrderStatus
	PropagateOrderStatus  *application.PropagateOrderStatus

	// HTTP Handlers
	OrderHandlers *handlers.OrderHandlers

	// Event Handlers
	EventRouter *saga.Router

	// Infrastructure
	Bus *sharedinfra.Bus

	// Telemetry
	Telemetry         *telemetry.Telemetry
	TelemetryShutdown func()
}

// BuildDependencies wires the order service. memoryBus is only used by the
// memory bus driver; nil gives the service a private bus.
func BuildDependencies(ctx context.Context, cfg *sharedconfig.Config, logger *zap.Logger, memoryBus *sharedinfra.MemoryBus) (*Dependencies, error) {
	deps := &Dependencies{}

	if cfg.Telemetry.Enabled {
		telConfig := telemetry.OrderServiceConfig.
			WithServiceName(cfg.ServiceName).
			WithOTLPEndpoint(cfg.Telemetry.OTLPEndpoint)
		tel, shutdown, err := telemetry.InitTelemetry(ctx, telConfig)
		if err != nil {
			logging.Warn(ctx, logger, "telemetry disabled", zap.Error(err))
		} else {
			deps.Telemetry = tel
			deps.TelemetryShutdown = shutdown
		}
	}

	// Repositories. With redis configured every use case goes through the
	// cache so status writes invalidate the cached order.
	var store domain.OrderRepository
	switch cfg.Database.Driver {
	case sharedconfig.StorageMemory:
		store = infrastructure.NewMemoryOrderRepository()
		deps.EventStore = sharedinfra.NewMemoryEventStore()
	default:
		db, err := sharedinfra.OpenPostgres(ctx, cfg.GetDatabaseURL())
		if err != nil {
			return nil, err
		}
		deps.DB = db
		store = infrastructure.NewPostgresOrderRepository(db)
		deps.EventStore = sharedinfra.NewPostgresEventStore(db)
	}

	deps.OrderRepository = store
	if cfg.Redis.Addr != "" {
		deps.Redis = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		deps.OrderRepository = infrastructure.NewCachedOrderRepository(store, deps.Redis, cfg.Redis.TTL, logger)
	}

	bus, err := sharedinfra.NewBus(ctx, cfg, logger, memoryBus)
	if err != nil {
		deps.Close()
		return nil, errors.Wrap(err, "failed to create bus")
	}
	deps.Bus = bus

	publisher := events.NewJournalingPublisher(deps.EventStore, bus.Publisher)

	// Use cases
	deps.CreateOrder = application.NewCreateOrder(deps.OrderRepository, publisher)
	deps.GetOrder = application.NewGetOrder(deps.OrderRepository)
	deps.ListOrders = application.NewListOrders(deps.OrderRepository)
	deps.GetOrderEvents = application.NewGetOrderEvents(deps.OrderRepository, deps.EventStore)
	deps.TransitionOrderStatus = application.NewTransitionOrderStatus(deps.OrderRepository)
	deps.PropagateOrderStatus = application.NewPropagateOrderStatus(deps.TransitionOrderStatus, deps.OrderRepository, publisher, logger)

	// Handlers
	deps.OrderHandlers = handlers.NewOrderHandlers(deps.CreateOrder, deps.GetOrder, deps.ListOrders, deps.GetOrderEvents, logger)
	deps.EventRouter = handlers.NewOrderEventHandlers(deps.PropagateOrderStatus, logger).
		Router(saga.WithJournal(deps.EventStore))

	return deps, nil
}

// StartConsuming subscribes the event router to the bus
func (d *Dependencies) StartConsuming(ctx context.Context) error {
	if d.Telemetry != nil {
		ctx = telemetry.WithTelemetry(ctx, d.Telemetry)
	}
	return d.Bus.Subscriber.Subscribe(ctx, d.EventRouter, d.EventRouter.Topics()...)
}

// Close closes all dependencies
func (d *Dependencies) Close() error {
	var errs []error

	if d.Bus != nil {
		if err := d.Bus.Close(); err != nil {
			errs = append(errs, errors.Wrap(err, "failed to close bus"))
		}
	}

	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			errs = append(errs, errors.Wrap(err, "failed to close redis"))
		}
	}

	if d.DB != nil {
		if err := d.DB.Close(); err != nil {
			errs = append(errs, errors.Wrap(err, "failed to close database"))
		}
	}

	if d.TelemetryShutdown != nil {
		d.TelemetryShutdown()
	}

	if len(errs) > 0 {
		return errors.Errorf("errors closing dependencies: %v", errs)
	}

	return nil
}
