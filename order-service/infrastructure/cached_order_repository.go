package infrastructure

import (
	"context"
	"encoding/json"
	"time"

	"github.com/orderflow/fulfillment/order-service/domain"
	"github.com/orderflow/fulfillment/shared/logging"
	"github.com/orderflow/fulfillment/shared/models"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var _ domain.OrderRepository = (*CachedOrderRepository)(nil)

// CachedOrderRepository is a read-through Redis cache in front of another
// OrderRepository. Writes go to next first and then drop the cached entry.
// Cache failures are logged and never fail the call.
type CachedOrderRepository struct {
	next   domain.OrderRepository
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewCachedOrderRepository(next domain.OrderRepository, client *redis.Client, ttl time.Duration, logger *zap.Logger) *CachedOrderRepository {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &CachedOrderRepository{
		next:   next,
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func orderCacheKey(id models.ID) string {
	return "order:" + id.String()
}

func (r *CachedOrderRepository) Save(ctx context.Context, order *domain.Order) error {
	if err := r.next.Save(ctx, order); err != nil {
		return err
	}
	r.invalidate(ctx, order.ID)
	return nil
}

func (r *CachedOrderRepository) FindByID(ctx context.Context, id models.ID) (*domain.Order, error) {
	key := orderCacheKey(id)

	val, err := r.client.Get(ctx, key).Bytes()
	if err == nil {
		var record postgresOrder
		if err := json.Unmarshal(val, &record); err == nil {
			if order, err := toDomainOrder(&record); err == nil {
				return order, nil
			}
		}
	} else if err != redis.Nil {
		logging.Warn(ctx, r.logger, "order cache read failed", zap.String("order_id", id.String()), zap.Error(err))
	}

	order, err := r.next.FindByID(ctx, id)
	if err != nil || order == nil {
		return order, err
	}

	if data, err := json.Marshal(toPostgresOrder(order)); err == nil {
		if err := r.client.Set(ctx, key, data, r.ttl).Err(); err != nil {
			logging.Warn(ctx, r.logger, "order cache write failed", zap.String("order_id", id.String()), zap.Error(err))
		}
	}

	return order, nil
}

func (r *CachedOrderRepository) FindAll(ctx context.Context) ([]*domain.Order, error) {
	return r.next.FindAll(ctx)
}

// UpdateStatus drops the cached entry whatever the outcome. A write that
// matched no row is followed by a FindByID that must see the stored status.
func (r *CachedOrderRepository) UpdateStatus(ctx context.Context, id models.ID, to domain.OrderStatus, from []domain.OrderStatus) (int64, error) {
	rows, err := r.next.UpdateStatus(ctx, id, to, from)
	r.invalidate(ctx, id)
	return rows, err
}

func (r *CachedOrderRepository) invalidate(ctx context.Context, id models.ID) {
	if err := r.client.Del(ctx, orderCacheKey(id)).Err(); err != nil {
		logging.Warn(ctx, r.logger, "order cache invalidation failed", zap.String("order_id", id.String()), zap.Error(err))
	}
}
