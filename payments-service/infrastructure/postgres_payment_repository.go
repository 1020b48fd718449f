package infrastructure

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/orderflow/fulfillment/payments-service/domain"
	"github.com/orderflow/fulfillment/shared/models"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

var _ domain.PaymentRepository = (*PostgresPaymentRepository)(nil)

const uniqueViolation = pq.ErrorCode("23505")

// PostgresPaymentRepository implements PaymentRepository using PostgreSQL
type PostgresPaymentRepository struct {
	db *sqlx.DB
}

// NewPostgresPaymentRepository creates a new PostgresPaymentRepository
func NewPostgresPaymentRepository(db *sqlx.DB) *PostgresPaymentRepository {
	return &PostgresPaymentRepository{db: db}
}

// postgresPayment represents payment in database
type postgresPayment struct {
	ID            string          `db:"id"`
	OrderID       string          `db:"order_id"`
	CustomerName  string          `db:"customer_name"`
	Amount        decimal.Decimal `db:"amount"`
	Status        string          `db:"status"`
	PaymentMethod sql.NullString  `db:"payment_method"`
	FailureReason sql.NullString  `db:"failure_reason"`
	CreatedAt     time.Time       `db:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at"`
	SettledAt     *time.Time      `db:"settled_at"`
}

const paymentColumns = `id, order_id, customer_name, amount, status, payment_method,
			   failure_reason, created_at, updated_at, settled_at`

// Create inserts a new PENDING payment. The unique index on order_id turns a
// second payment for the same order into ErrPaymentAlreadyExists.
func (r *PostgresPaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	query := `
		INSERT INTO payments (
			id, order_id, customer_name, amount, status, payment_method,
			failure_reason, created_at, updated_at, settled_at
		) VALUES (
			:id, :order_id, :customer_name, :amount, :status, :payment_method,
			:failure_reason, :created_at, :updated_at, :settled_at
		)`

	if _, err := r.db.NamedExecContext(ctx, query, toPostgresPayment(payment)); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return errors.Wrapf(domain.ErrPaymentAlreadyExists, "order %s", payment.OrderID)
		}
		return models.Unavailable(err, "failed to insert payment")
	}
	return nil
}

// Settle writes the terminal state guarded by status = 'PENDING'
func (r *PostgresPaymentRepository) Settle(ctx context.Context, payment *domain.Payment) error {
	query := `
		UPDATE payments
		SET status = $1, payment_method = $2, failure_reason = $3,
			settled_at = $4, updated_at = $5
		WHERE id = $6 AND status = $7`

	pg := toPostgresPayment(payment)
	result, err := r.db.ExecContext(ctx, query,
		pg.Status, pg.PaymentMethod, pg.FailureReason,
		pg.SettledAt, pg.UpdatedAt, pg.ID, domain.PaymentStatusPending.String(),
	)
	if err != nil {
		return models.Unavailable(err, "failed to settle payment")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return models.Unavailable(err, "failed to read affected rows")
	}
	if rows == 0 {
		return errors.Wrapf(domain.ErrPaymentAlreadyProcessed, "payment %s", payment.ID)
	}
	return nil
}

// Reopen puts a settled payment back to PENDING guarded by status = from
func (r *PostgresPaymentRepository) Reopen(ctx context.Context, payment *domain.Payment, from domain.PaymentStatus) error {
	query := `
		UPDATE payments
		SET status = $1, payment_method = NULL, failure_reason = NULL,
			settled_at = NULL, updated_at = $2
		WHERE id = $3 AND status = $4`

	result, err := r.db.ExecContext(ctx, query,
		domain.PaymentStatusPending.String(), payment.Timestamps.UpdatedAt, payment.ID.String(), from.String(),
	)
	if err != nil {
		return models.Unavailable(err, "failed to reopen payment")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return models.Unavailable(err, "failed to read affected rows")
	}
	if rows == 0 {
		return errors.Wrapf(domain.ErrPaymentAlreadyProcessed, "payment %s is no longer %s", payment.ID, from)
	}
	return nil
}

// FindByID finds a payment by ID
func (r *PostgresPaymentRepository) FindByID(ctx context.Context, id models.ID) (*domain.Payment, error) {
	return r.findOne(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id)
}

// FindByOrderID finds the payment of an order
func (r *PostgresPaymentRepository) FindByOrderID(ctx context.Context, orderID models.ID) (*domain.Payment, error) {
	return r.findOne(ctx, `SELECT `+paymentColumns+` FROM payments WHERE order_id = $1`, orderID)
}

func (r *PostgresPaymentRepository) findOne(ctx context.Context, query string, arg models.ID) (*domain.Payment, error) {
	var pgPayment postgresPayment
	if err := r.db.GetContext(ctx, &pgPayment, query, arg.String()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, models.Unavailable(err, "failed to find payment")
	}
	return toDomainPayment(&pgPayment)
}

// FindAll returns every payment, newest first
func (r *PostgresPaymentRepository) FindAll(ctx context.Context) ([]*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments ORDER BY created_at DESC`

	var pgPayments []postgresPayment
	if err := r.db.SelectContext(ctx, &pgPayments, query); err != nil {
		return nil, models.Unavailable(err, "failed to list payments")
	}

	payments := make([]*domain.Payment, len(pgPayments))
	for i := range pgPayments {
		payment, err := toDomainPayment(&pgPayments[i])
		if err != nil {
			return nil, err
		}
		payments[i] = payment
	}
	return payments, nil
}

func toPostgresPayment(payment *domain.Payment) *postgresPayment {
	return &postgresPayment{
		ID:            payment.ID.String(),
		OrderID:       payment.OrderID.String(),
		CustomerName:  payment.CustomerName,
		Amount:        payment.Amount,
		Status:        payment.Status.String(),
		PaymentMethod: nullString(payment.PaymentMethod.String()),
		FailureReason: nullString(payment.FailureReason),
		CreatedAt:     payment.Timestamps.CreatedAt,
		UpdatedAt:     payment.Timestamps.UpdatedAt,
		SettledAt:     payment.SettledAt,
	}
}

func toDomainPayment(pgPayment *postgresPayment) (*domain.Payment, error) {
	id, err := models.NewID(pgPayment.ID)
	if err != nil {
		return nil, errors.Wrap(err, "invalid payment ID")
	}

	orderID, err := models.NewID(pgPayment.OrderID)
	if err != nil {
		return nil, errors.Wrap(err, "invalid order ID")
	}

	var method domain.PaymentMethodType
	if pgPayment.PaymentMethod.Valid {
		method, err = domain.ParsePaymentMethodType(pgPayment.PaymentMethod.String)
		if err != nil {
			return nil, err
		}
	}

	return &domain.Payment{
		ID:            id,
		OrderID:       orderID,
		CustomerName:  pgPayment.CustomerName,
		Amount:        pgPayment.Amount,
		Status:        domain.PaymentStatus(pgPayment.Status),
		PaymentMethod: method,
		FailureReason: pgPayment.FailureReason.String,
		Timestamps: models.Timestamps{
			CreatedAt: pgPayment.CreatedAt,
			UpdatedAt: pgPayment.UpdatedAt,
		},
		SettledAt: pgPayment.SettledAt,
	}, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
