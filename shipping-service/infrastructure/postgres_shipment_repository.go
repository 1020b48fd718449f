package infrastructure

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/orderflow/fulfillment/shared/models"
	"github.com/orderflow/fulfillment/shipping-service/domain"
	"github.com/pkg/errors"
)

var _ domain.ShipmentRepository = (*PostgresShipmentRepository)(nil)

const uniqueViolation = pq.ErrorCode("23505")

// PostgresShipmentRepository implements ShipmentRepository using PostgreSQL
type PostgresShipmentRepository struct {
	db *sqlx.DB
}

// NewPostgresShipmentRepository creates a new PostgresShipmentRepository
func NewPostgresShipmentRepository(db *sqlx.DB) *PostgresShipmentRepository {
	return &PostgresShipmentRepository{db: db}
}

type postgresShipment struct {
	ID                    string         `db:"id"`
	OrderID               string         `db:"order_id"`
	PaymentID             sql.NullString `db:"payment_id"`
	CustomerName          string         `db:"customer_name"`
	Carrier               string         `db:"carrier"`
	TrackingNumber        string         `db:"tracking_number"`
	EstimatedDeliveryDate time.Time      `db:"estimated_delivery_date"`
	Status                string         `db:"status"`
	CreatedAt             time.Time      `db:"created_at"`
	UpdatedAt             time.Time      `db:"updated_at"`
}

const shipmentColumns = `id, order_id, payment_id, customer_name, carrier, tracking_number,
			   estimated_delivery_date, status, created_at, updated_at`

// Create inserts a new shipment, relying on the unique index on order_id
func (r *PostgresShipmentRepository) Create(ctx context.Context, shipment *domain.Shipment) error {
	query := `
		INSERT INTO shipments (
			id, order_id, payment_id, customer_name, carrier, tracking_number,
			estimated_delivery_date, status, created_at, updated_at
		) VALUES (
			:id, :order_id, :payment_id, :customer_name, :carrier, :tracking_number,
			:estimated_delivery_date, :status, :created_at, :updated_at
		)`

	if _, err := r.db.NamedExecContext(ctx, query, toPostgresShipment(shipment)); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return errors.Wrapf(domain.ErrShipmentAlreadyExists, "order %s", shipment.OrderID)
		}
		return models.Unavailable(err, "failed to insert shipment")
	}
	return nil
}

// UpdateStatus writes status and tracking number guarded by the expected
// current status
func (r *PostgresShipmentRepository) UpdateStatus(ctx context.Context, shipment *domain.Shipment, from domain.ShipmentStatus) (int64, error) {
	query := `
		UPDATE shipments
		SET status = $1, tracking_number = $2, updated_at = $3
		WHERE id = $4 AND status = $5`

	result, err := r.db.ExecContext(ctx, query,
		shipment.Status.String(), shipment.TrackingNumber, shipment.Timestamps.UpdatedAt,
		shipment.ID.String(), from.String(),
	)
	if err != nil {
		return 0, models.Unavailable(err, "failed to update shipment status")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, models.Unavailable(err, "failed to read affected rows")
	}
	return rows, nil
}

// FindByOrderID finds the shipment of an order
func (r *PostgresShipmentRepository) FindByOrderID(ctx context.Context, orderID models.ID) (*domain.Shipment, error) {
	query := `SELECT ` + shipmentColumns + ` FROM shipments WHERE order_id = $1`

	var pgShipment postgresShipment
	if err := r.db.GetContext(ctx, &pgShipment, query, orderID.String()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, models.Unavailable(err, "failed to find shipment")
	}
	return toDomainShipment(&pgShipment)
}

// FindAll returns every shipment, newest first
func (r *PostgresShipmentRepository) FindAll(ctx context.Context) ([]*domain.Shipment, error) {
	query := `SELECT ` + shipmentColumns + ` FROM shipments ORDER BY created_at DESC`

	var pgShipments []postgresShipment
	if err := r.db.SelectContext(ctx, &pgShipments, query); err != nil {
		return nil, models.Unavailable(err, "failed to list shipments")
	}

	shipments := make([]*domain.Shipment, len(pgShipments))
	for i := range pgShipments {
		shipment, err := toDomainShipment(&pgShipments[i])
		if err != nil {
			return nil, err
		}
		shipments[i] = shipment
	}
	return shipments, nil
}

func toPostgresShipment(shipment *domain.Shipment) *postgresShipment {
	return &postgresShipment{
		ID:                    shipment.ID.String(),
		OrderID:               shipment.OrderID.String(),
		PaymentID:             sql.NullString{String: shipment.PaymentID.String(), Valid: !shipment.PaymentID.IsZero()},
		CustomerName:          shipment.CustomerName,
		Carrier:               shipment.Carrier,
		TrackingNumber:        shipment.TrackingNumber,
		EstimatedDeliveryDate: shipment.EstimatedDeliveryDate,
		Status:                shipment.Status.String(),
		CreatedAt:             shipment.Timestamps.CreatedAt,
		UpdatedAt:             shipment.Timestamps.UpdatedAt,
	}
}

func toDomainShipment(pgShipment *postgresShipment) (*domain.Shipment, error) {
	id, err := models.NewID(pgShipment.ID)
	if err != nil {
		return nil, errors.Wrap(err, "invalid shipment ID")
	}

	orderID, err := models.NewID(pgShipment.OrderID)
	if err != nil {
		return nil, errors.Wrap(err, "invalid order ID")
	}

	return &domain.Shipment{
		ID:                    id,
		OrderID:               orderID,
		PaymentID:             models.ID(pgShipment.PaymentID.String),
		CustomerName:          pgShipment.CustomerName,
		Carrier:               pgShipment.Carrier,
		TrackingNumber:        pgShipment.TrackingNumber,
		EstimatedDeliveryDate: pgShipment.EstimatedDeliveryDate,
		Status:                domain.ShipmentStatus(pgShipment.Status),
		Timestamps: models.Timestamps{
			CreatedAt: pgShipment.CreatedAt,
			UpdatedAt: pgShipment.UpdatedAt,
		},
	}, nil
}
