package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// productKeyPrefix matches the key scheme of the storefront read cache.
const productKeyPrefix = "product:"

// invalidateTimeout bounds the fire-and-forget DEL so a slow Redis can never
// stall a mutation path.
const invalidateTimeout = 2 * time.Second

// RedisInvalidator drops cached product read models after a stock mutation.
// It is strictly best-effort: failures are logged and swallowed because the
// cache carries TTLs and the ledger's correctness never depends on it.
type RedisInvalidator struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRedisInvalidator creates a Redis-backed cache invalidator.
func NewRedisInvalidator(client *redis.Client, logger *slog.Logger) *RedisInvalidator {
	return &RedisInvalidator{client: client, logger: logger}
}

// Invalidate deletes the cached read model for a product.
func (i *RedisInvalidator) Invalidate(ctx context.Context, productID string) {
	ctx, cancel := context.WithTimeout(ctx, invalidateTimeout)
	defer cancel()

	if err := i.client.Del(ctx, productKeyPrefix+productID).Err(); err != nil {
		i.logger.WarnContext(ctx, "cache invalidation failed",
			slog.String("product_id", productID),
			slog.String("error", err.Error()),
		)
		return
	}

	i.logger.DebugContext(ctx, "cache invalidated",
		slog.String("product_id", productID),
	)
}
