package infrastructure

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/orderflow/fulfillment/shared/models"
	"github.com/orderflow/fulfillment/shipping-service/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	pgOrderID   = models.ID("550e8400-e29b-41d4-a716-446655440000")
	pgPaymentID = models.ID("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
)

func newMockRepository(t *testing.T) (*PostgresShipmentRepository, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return NewPostgresShipmentRepository(sqlx.NewDb(db, "postgres")), mock
}

func newPendingShipment(t *testing.T) *domain.Shipment {
	shipment, err := domain.CreateShipment(pgOrderID, pgPaymentID, "Ada Lovelace")
	require.NoError(t, err)
	return shipment
}

func TestPostgresShipmentRepository_Create(t *testing.T) {
	tests := []struct {
		name         string
		execErr      error
		expectedKind error
	}{
		{name: "inserted"},
		{
			name:         "second shipment for the order",
			execErr:      &pq.Error{Code: "23505"},
			expectedKind: domain.ErrShipmentAlreadyExists,
		},
		{
			name:         "database down",
			execErr:      sql.ErrConnDone,
			expectedKind: models.ErrStoreUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newMockRepository(t)

			exec := mock.ExpectExec("INSERT INTO shipments")
			if tt.execErr != nil {
				exec.WillReturnError(tt.execErr)
			} else {
				exec.WillReturnResult(sqlmock.NewResult(0, 1))
			}

			err := repo.Create(context.Background(), newPendingShipment(t))

			if tt.expectedKind != nil {
				assert.ErrorIs(t, err, tt.expectedKind)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestPostgresShipmentRepository_UpdateStatus(t *testing.T) {
	query := regexp.QuoteMeta(`UPDATE shipments
		SET status = $1, tracking_number = $2, updated_at = $3
		WHERE id = $4 AND status = $5`)

	for _, rowsAffected := range []int64{0, 1} {
		repo, mock := newMockRepository(t)
		shipment := newPendingShipment(t)
		require.NoError(t, shipment.MarkInTransit())

		mock.ExpectExec(query).
			WithArgs("IN_TRANSIT", shipment.TrackingNumber, sqlmock.AnyArg(), shipment.ID.String(), "PENDING").
			WillReturnResult(sqlmock.NewResult(0, rowsAffected))

		rows, err := repo.UpdateStatus(context.Background(), shipment, domain.ShipmentStatusPending)

		require.NoError(t, err)
		assert.Equal(t, rowsAffected, rows)
	}
}

func TestPostgresShipmentRepository_FindByOrderID(t *testing.T) {
	repo, mock := newMockRepository(t)
	now := time.Now().UTC()
	columns := []string{
		"id", "order_id", "payment_id", "customer_name", "carrier", "tracking_number",
		"estimated_delivery_date", "status", "created_at", "updated_at",
	}
	mock.ExpectQuery(regexp.QuoteMeta(`FROM shipments WHERE order_id = $1`)).
		WithArgs(pgOrderID.String()).
		WillReturnRows(sqlmock.NewRows(columns).AddRow(
			"7c9e6679-7425-40de-944b-e07fc1f90ae7", pgOrderID.String(), pgPaymentID.String(), "Ada Lovelace",
			"DHL", "TRK-0123456789AB", now.Add(domain.EstimatedDeliveryOffset), "PENDING", now, now,
		))

	shipment, err := repo.FindByOrderID(context.Background(), pgOrderID)

	require.NoError(t, err)
	require.NotNil(t, shipment)
	assert.Equal(t, pgPaymentID, shipment.PaymentID)
	assert.Equal(t, domain.ShipmentStatusPending, shipment.Status)
	assert.Equal(t, "TRK-0123456789AB", shipment.TrackingNumber)
}

func TestMemoryShipmentRepository_UpdateStatusIsConditional(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryShipmentRepository()
	require.NoError(t, repo.Create(ctx, newPendingShipment(t)))
	assert.ErrorIs(t, repo.Create(ctx, newPendingShipment(t)), domain.ErrShipmentAlreadyExists)

	first, err := repo.FindByOrderID(ctx, pgOrderID)
	require.NoError(t, err)
	second, err := repo.FindByOrderID(ctx, pgOrderID)
	require.NoError(t, err)

	require.NoError(t, first.MarkInTransit())
	require.NoError(t, second.MarkInTransit())

	rows, err := repo.UpdateStatus(ctx, first, domain.ShipmentStatusPending)
	require.NoError(t, err)
	assert.EqualValues(t, 1, rows)

	rows, err = repo.UpdateStatus(ctx, second, domain.ShipmentStatusPending)
	require.NoError(t, err)
	assert.Zero(t, rows)
}
