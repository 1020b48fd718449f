package config

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/orderflow/fulfillment/shipping-service/application"
	"github.com/orderflow/fulfillment/shipping-service/domain"
	"github.com/orderflow/fulfillment/shipping-service/handlers"
	"github.com/orderflow/fulfillment/shipping-service/infrastructure"
	sharedconfig "github.com/orderflow/fulfillment/shared/config"
	"github.com/orderflow/fulfillment/shared/events"
	sharedinfra "github.com/orderflow/fulfillment/shared/infrastructure"
	"github.com/orderflow/fulfillment/shared/logging"
	"github.com/orderflow/fulfillment/shared/saga"
	"github.com/orderflow/fulfillment/shared/telemetry"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type Dependencies struct {
	// Database
	DB *sqlx.DB

	// Repositories
	ShipmentRepository domain.ShipmentRepository
	EventStore        events.EventStore

	// Use Cases
	MaterializeShipment *application.MaterializeShipment
	ShipOrder           *application.ShipOrder
	GetShipment         *application.GetShipment
	ListShipments       *application.ListShipments

	// HTTP Handlers
	ShipmentHandlers *handlers.ShipmentHandlers

	// Event Handlers
	EventRouter *saga.Router

	// Infrastructure
	Bus *sharedinfra.Bus

	// Telemetry
	Telemetry         *telemetry.Telemetry
	TelemetryShutdown func()
}

// BuildDependencies wires the shipping service. memoryBus is only used by
// the memory bus driver; nil gives the service a private bus.
func BuildDependencies(ctx context.Context, cfg *sharedconfig.Config, logger *zap.Logger, memoryBus *sharedinfra.MemoryBus) (*Dependencies, error) {
	deps := &Dependencies{}

	if cfg.Telemetry.Enabled {
		telConfig := telemetry.ShippingServiceConfig.
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

	switch cfg.Database.Driver {
	case sharedconfig.StorageMemory:
		deps.ShipmentRepository = infrastructure.NewMemoryShipmentRepository()
		deps.EventStore = sharedinfra.NewMemoryEventStore()
	default:
		db, err := sharedinfra.OpenPostgres(ctx, cfg.GetDatabaseURL())
		if err != nil {
			return nil, err
		}
		deps.DB = db
		deps.ShipmentRepository = infrastructure.NewPostgresShipmentRepository(db)
		deps.EventStore = sharedinfra.NewPostgresEventStore(db)
	}

	bus, err := sharedinfra.NewBus(ctx, cfg, logger, memoryBus)
	if err != nil {
		deps.Close()
		return nil, errors.Wrap(err, "failed to create bus")
	}
	deps.Bus = bus

	publisher := events.NewJournalingPublisher(deps.EventStore, bus.Publisher)

	// Use cases
	deps.MaterializeShipment = application.NewMaterializeShipment(deps.ShipmentRepository, logger)
	deps.ShipOrder = application.NewShipOrder(deps.ShipmentRepository, publisher, logger)
	deps.GetShipment = application.NewGetShipment(deps.ShipmentRepository)
	deps.ListShipments = application.NewListShipments(deps.ShipmentRepository)

	// Handlers
	deps.ShipmentHandlers = handlers.NewShipmentHandlers(deps.ShipOrder, deps.GetShipment, deps.ListShipments, logger)
	deps.EventRouter = handlers.NewShipmentEventHandlers(deps.MaterializeShipment, logger).
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
