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
	"github.com/orderflow/fulfillment/payments-service/domain"
	"github.com/orderflow/fulfillment/shared/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pgOrderID = models.ID("550e8400-e29b-41d4-a716-446655440000")

func newMockRepository(t *testing.T) (*PostgresPaymentRepository, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return NewPostgresPaymentRepository(sqlx.NewDb(db, "postgres")), mock
}

func newPendingPayment(t *testing.T) *domain.Payment {
	payment, err := domain.CreatePayment(pgOrderID, "Ada Lovelace", decimal.RequireFromString("100.00"))
	require.NoError(t, err)
	return payment
}

func TestPostgresPaymentRepository_Create(t *testing.T) {
	tests := []struct {
		name         string
		execErr      error
		expectedKind error
	}{
		{name: "inserted"},
		{
			name:         "second payment for the order",
			execErr:      &pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"},
			expectedKind: domain.ErrPaymentAlreadyExists,
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

			exec := mock.ExpectExec("INSERT INTO payments")
			if tt.execErr != nil {
				exec.WillReturnError(tt.execErr)
			} else {
				exec.WillReturnResult(sqlmock.NewResult(0, 1))
			}

			err := repo.Create(context.Background(), newPendingPayment(t))

			if tt.expectedKind != nil {
				assert.ErrorIs(t, err, tt.expectedKind)
				return
			}
			assert.NoError(t, err)
		})
	}
}

var settleSQL = regexp.QuoteMeta(`UPDATE payments
		SET status = $1, payment_method = $2, failure_reason = $3,
			settled_at = $4, updated_at = $5
		WHERE id = $6 AND status = $7`)

func TestPostgresPaymentRepository_Settle(t *testing.T) {
	tests := []struct {
		name         string
		rowsAffected int64
		execErr      error
		expectedKind error
	}{
		{name: "settled", rowsAffected: 1},
		{name: "already settled", rowsAffected: 0, expectedKind: domain.ErrPaymentAlreadyProcessed},
		{name: "database down", execErr: sql.ErrConnDone, expectedKind: models.ErrStoreUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newMockRepository(t)
			payment := newPendingPayment(t)
			require.NoError(t, payment.Complete(domain.PaymentMethodTypeCreditCard))

			exec := mock.ExpectExec(settleSQL).
				WithArgs("COMPLETED", "CREDIT_CARD", nil, sqlmock.AnyArg(), sqlmock.AnyArg(), payment.ID.String(), "PENDING")
			if tt.execErr != nil {
				exec.WillReturnError(tt.execErr)
			} else {
				exec.WillReturnResult(sqlmock.NewResult(0, tt.rowsAffected))
			}

			err := repo.Settle(context.Background(), payment)

			if tt.expectedKind != nil {
				assert.ErrorIs(t, err, tt.expectedKind)
				return
			}
			assert.NoError(t, err)
		})
	}
}

var reopenSQL = regexp.QuoteMeta(`
		UPDATE payments
		SET status = $1, payment_method = NULL, failure_reason = NULL,
			settled_at = NULL, updated_at = $2
		WHERE id = $3 AND status = $4`)

func TestPostgresPaymentRepository_Reopen(t *testing.T) {
	tests := []struct {
		name         string
		rowsAffected int64
		execErr      error
		expectedKind error
	}{
		{name: "reopened", rowsAffected: 1},
		{name: "moved on", rowsAffected: 0, expectedKind: domain.ErrPaymentAlreadyProcessed},
		{name: "database down", execErr: sql.ErrConnDone, expectedKind: models.ErrStoreUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newMockRepository(t)
			payment := newPendingPayment(t)
			require.NoError(t, payment.Complete(domain.PaymentMethodTypeCreditCard))
			settled := payment.Reopen()

			exec := mock.ExpectExec(reopenSQL).
				WithArgs("PENDING", sqlmock.AnyArg(), payment.ID.String(), "COMPLETED")
			if tt.execErr != nil {
				exec.WillReturnError(tt.execErr)
			} else {
				exec.WillReturnResult(sqlmock.NewResult(0, tt.rowsAffected))
			}

			err := repo.Reopen(context.Background(), payment, settled)

			if tt.expectedKind != nil {
				assert.ErrorIs(t, err, tt.expectedKind)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestPostgresPaymentRepository_FindByOrderID(t *testing.T) {
	columns := []string{
		"id", "order_id", "customer_name", "amount", "status", "payment_method",
		"failure_reason", "created_at", "updated_at", "settled_at",
	}
	query := regexp.QuoteMeta(`FROM payments WHERE order_id = $1`)

	t.Run("found", func(t *testing.T) {
		repo, mock := newMockRepository(t)
		now := time.Now().UTC()
		mock.ExpectQuery(query).WithArgs(pgOrderID.String()).WillReturnRows(
			sqlmock.NewRows(columns).AddRow(
				"6ba7b810-9dad-11d1-80b4-00c04fd430c8", pgOrderID.String(), "Ada Lovelace", "80.00",
				"FAILED", "PAYPAL", domain.AmountMismatchReason, now, now, now,
			),
		)

		payment, err := repo.FindByOrderID(context.Background(), pgOrderID)

		require.NoError(t, err)
		require.NotNil(t, payment)
		assert.Equal(t, domain.PaymentStatusFailed, payment.Status)
		assert.Equal(t, domain.PaymentMethodTypePayPal, payment.PaymentMethod)
		assert.Equal(t, domain.AmountMismatchReason, payment.FailureReason)
		assert.True(t, payment.Amount.Equal(decimal.RequireFromString("80")))
		assert.NotNil(t, payment.SettledAt)
	})

	t.Run("absent", func(t *testing.T) {
		repo, mock := newMockRepository(t)
		mock.ExpectQuery(query).WithArgs(pgOrderID.String()).WillReturnRows(sqlmock.NewRows(columns))

		payment, err := repo.FindByOrderID(context.Background(), pgOrderID)

		require.NoError(t, err)
		assert.Nil(t, payment)
	})
}

func TestMemoryPaymentRepository_SettleIsConditional(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryPaymentRepository()
	payment := newPendingPayment(t)
	require.NoError(t, repo.Create(ctx, payment))

	duplicate := newPendingPayment(t)
	assert.ErrorIs(t, repo.Create(ctx, duplicate), domain.ErrPaymentAlreadyExists)

	first, err := repo.FindByOrderID(ctx, pgOrderID)
	require.NoError(t, err)
	second, err := repo.FindByOrderID(ctx, pgOrderID)
	require.NoError(t, err)

	require.NoError(t, first.Complete(domain.PaymentMethodTypeCreditCard))
	require.NoError(t, repo.Settle(ctx, first))

	require.NoError(t, second.Fail(domain.PaymentMethodTypeCreditCard, domain.AmountMismatchReason))
	assert.ErrorIs(t, repo.Settle(ctx, second), domain.ErrPaymentAlreadyProcessed)

	stored, err := repo.FindByOrderID(ctx, pgOrderID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusCompleted, stored.Status)
}
