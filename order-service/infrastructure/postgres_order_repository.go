package infrastructure

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/orderflow/fulfillment/order-service/domain"
	"github.com/orderflow/fulfillment/shared/models"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

var _ domain.OrderRepository = (*PostgresOrderRepository)(nil)

// PostgresOrderRepository implements OrderRepository using PostgreSQL
type PostgresOrderRepository struct {
	db *sqlx.DB
}

// NewPostgresOrderRepository creates a new PostgresOrderRepository
func NewPostgresOrderRepository(db *sqlx.DB) *PostgresOrderRepository {
	return &PostgresOrderRepository{db: db}
}

// postgresOrder represents order in database. The cache stores the same
// record as JSON.
type postgresOrder struct {
	ID           string          `db:"id" json:"id"`
	CustomerName string          `db:"customer_name" json:"customer_name"`
	ProductName  string          `db:"product_name" json:"product_name"`
	Quantity     int             `db:"quantity" json:"quantity"`
	UnitPrice    decimal.Decimal `db:"unit_price" json:"unit_price"`
	TotalAmount  decimal.Decimal `db:"total_amount" json:"total_amount"`
	Status       string          `db:"status" json:"status"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
}

const orderColumns = `id, customer_name, product_name, quantity, unit_price,
			   total_amount, status, created_at, updated_at`

// Save inserts a new order
func (r *PostgresOrderRepository) Save(ctx context.Context, order *domain.Order) error {
	query := `
		INSERT INTO orders (
			id, customer_name, product_name, quantity, unit_price,
			total_amount, status, created_at, updated_at
		) VALUES (
			:id, :customer_name, :product_name, :quantity, :unit_price,
			:total_amount, :status, :created_at, :updated_at
		)`

	if _, err := r.db.NamedExecContext(ctx, query, toPostgresOrder(order)); err != nil {
		return models.Unavailable(err, "failed to insert order")
	}
	return nil
}

// FindByID finds an order by ID
func (r *PostgresOrderRepository) FindByID(ctx context.Context, id models.ID) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	var pgOrder postgresOrder
	if err := r.db.GetContext(ctx, &pgOrder, query, id.String()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, models.Unavailable(err, "failed to find order")
	}

	return toDomainOrder(&pgOrder)
}

// FindAll returns every order, newest first
func (r *PostgresOrderRepository) FindAll(ctx context.Context) ([]*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders ORDER BY created_at DESC`

	var pgOrders []postgresOrder
	if err := r.db.SelectContext(ctx, &pgOrders, query); err != nil {
		return nil, models.Unavailable(err, "failed to list orders")
	}

	orders := make([]*domain.Order, len(pgOrders))
	for i := range pgOrders {
		order, err := toDomainOrder(&pgOrders[i])
		if err != nil {
			return nil, err
		}
		orders[i] = order
	}
	return orders, nil
}

// UpdateStatus is a compare-and-set on the status column
func (r *PostgresOrderRepository) UpdateStatus(ctx context.Context, id models.ID, to domain.OrderStatus, from []domain.OrderStatus) (int64, error) {
	query := `
		UPDATE orders
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status = ANY($4)`

	allowed := make([]string, len(from))
	for i, s := range from {
		allowed[i] = s.String()
	}

	result, err := r.db.ExecContext(ctx, query, to.String(), models.Now(), id.String(), pq.Array(allowed))
	if err != nil {
		return 0, models.Unavailable(err, "failed to update order status")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, models.Unavailable(err, "failed to read affected rows")
	}
	return rows, nil
}

func toPostgresOrder(order *domain.Order) *postgresOrder {
	return &postgresOrder{
		ID:           order.ID.String(),
		CustomerName: order.CustomerName,
		ProductName:  order.ProductName,
		Quantity:     order.Quantity,
		UnitPrice:    order.UnitPrice,
		TotalAmount:  order.TotalAmount,
		Status:       order.Status.String(),
		CreatedAt:    order.Timestamps.CreatedAt,
		UpdatedAt:    order.Timestamps.UpdatedAt,
	}
}

func toDomainOrder(pgOrder *postgresOrder) (*domain.Order, error) {
	id, err := models.NewID(pgOrder.ID)
	if err != nil {
		return nil, errors.Wrap(err, "invalid order ID")
	}

	status, err := domain.ParseOrderStatus(pgOrder.Status)
	if err != nil {
		return nil, err
	}

	return &domain.Order{
		ID:           id,
		CustomerName: pgOrder.CustomerName,
		ProductName:  pgOrder.ProductName,
		Quantity:     pgOrder.Quantity,
		UnitPrice:    pgOrder.UnitPrice,
		TotalAmount:  pgOrder.TotalAmount,
		Status:       status,
		Timestamps: models.Timestamps{
			CreatedAt: pgOrder.CreatedAt,
			UpdatedAt: pgOrder.UpdatedAt,
		},
	}, nil
}
