package config

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/orderflow/fulfillment/payments-service/application"
	"github.com/orderflow/fulfillment/payments-service/domain"
	"github.com/orderflow/fulfillment/payments-service/handlers"
	"github.com/orderflow/fulfillment/payments-service/infrastructure"
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
	PaymentRepository domain.PaymentRepository
	EventStore        events.EventStore

	// Use Cases
	MaterializePayment *application.MaterializePayment
	ProcessPayment     *application.ProcessPayment
	RequestPayment     *application.RequestPayment
	GetPayment         *application.GetPayment
	ListPayments       *application.ListPayments

	// HTTP Handlers
	PaymentHandlers *handlers.PaymentHandlers

	// Event Handlers
	EventRouter *saga.Router

	// Infrastructure
	Bus *sharedinfra.Bus

	// Telemetry
	Telemetry         *telemetry.Telemetry
	TelemetryShutdown func()
}

// BuildDependencies wires the payment service. memoryBus is only used by
// the memory bus driver; nil gives the service a private bus.
func BuildDependencies(ctx context.Context, cfg *sharedconfig.Config, logger *zap.Logger, memoryBus *sharedinfra.MemoryBus) (*Dependencies, error) {
	deps := &Dependencies{}

	if cfg.Telemetry.Enabled {
		telConfig := telemetry.PaymentServiceConfig.
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
		deps.PaymentRepository = infrastructure.NewMemoryPaymentRepository()
		deps.EventStore = sharedinfra.NewMemoryEventStore()
	default:
		db, err := sharedinfra.OpenPostgres(ctx, cfg.GetDatabaseURL())
		if err != nil {
			return nil, err
		}
		deps.DB = db
		deps.PaymentRepository = infrastructure.NewPostgresPaymentRepository(db)
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
	deps.MaterializePayment = application.NewMaterializePayment(deps.PaymentRepository, logger)
	deps.ProcessPayment = application.NewProcessPayment(deps.PaymentRepository, publisher, logger)
	deps.RequestPayment = application.NewRequestPayment(publisher, logger)
	deps.GetPayment = application.NewGetPayment(deps.PaymentRepository)
	deps.ListPayments = application.NewListPayments(deps.PaymentRepository)

	// Handlers
	deps.PaymentHandlers = handlers.NewPaymentHandlers(deps.ProcessPayment, deps.RequestPayment, deps.GetPayment, deps.ListPayments, logger)
	deps.EventRouter = handlers.NewPaymentEventHandlers(deps.MaterializePayment, deps.ProcessPayment, logger).
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
