// Package coordinator implements the fast coordinator: a Redis-backed atomic
// stock counter and per-sale user-mark set shared by all admission workers.
// It is a performance accelerator, not the source of truth; the order table's
// unique constraint remains the ultimate enforcer and the reconciliation
// operations in the service layer repair any drift.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisClient defines the Redis operations needed by the coordinator.
// Implemented by *redis.Client; narrowed for easier testing with mocks.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Decr(ctx context.Context, key string) *redis.IntCmd
	Incr(ctx context.Context, key string) *redis.IntCmd
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd
	Ping(ctx context.Context) *redis.StatusCmd
}

// Coordinator provides atomic stock accounting and user marks on Redis.
// Key layout: "<stockPrefix><sale_id>" holds a signed integer counter;
// "<markPrefix><sale_id>:<user_id>" = "1" with TTL markTTL.
type Coordinator struct {
	client      RedisClient
	stockPrefix string
	markPrefix  string
	markTTL     time.Duration
}

// New creates a Coordinator with the given client, key prefixes and user-mark
// TTL. A non-positive TTL falls back to 24 hours.
func New(client RedisClient, stockPrefix, markPrefix string, markTTL time.Duration) *Coordinator {
	if stockPrefix == "" {
		stockPrefix = "stock:"
	}
	if markPrefix == "" {
		markPrefix = "user:"
	}
	if markTTL <= 0 {
		markTTL = 24 * time.Hour
	}
	return &Coordinator{
		client:      client,
		stockPrefix: stockPrefix,
		markPrefix:  markPrefix,
		markTTL:     markTTL,
	}
}

func (c *Coordinator) stockKey(saleID string) string {
	return c.stockPrefix + saleID
}

func (c *Coordinator) markKey(saleID, userID string) string {
	return c.markPrefix + saleID + ":" + userID
}

// SetStock unconditionally writes the stock counter for a sale.
// Used by bootstrap, reset and stock re-initialisation only.
func (c *Coordinator) SetStock(ctx context.Context, saleID string, n int64) error {
	if err := c.client.Set(ctx, c.stockKey(saleID), n, 0).Err(); err != nil {
		return fmt.Errorf("set stock for %s: %w", saleID, err)
	}
	return nil
}

// GetStock reads the stock counter. The second return value is false when no
// counter exists for the sale.
func (c *Coordinator) GetStock(ctx context.Context, saleID string) (int64, bool, error) {
	val, err := c.client.Get(ctx, c.stockKey(saleID)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("get stock for %s: %w", saleID, err)
	}
	return val, true, nil
}

// DecrStock atomically decrements the stock counter and returns the new
// value. The counter may go negative; callers gate acceptance on the returned
// value and compensate with IncrStock. No clamping happens here: clamping at
// zero would break the compensation arithmetic.
func (c *Coordinator) DecrStock(ctx context.Context, saleID string) (int64, error) {
	val, err := c.client.Decr(ctx, c.stockKey(saleID)).Result()
	if err != nil {
		return 0, fmt.Errorf("decrement stock for %s: %w", saleID, err)
	}
	return val, nil
}

// IncrStock atomically increments the stock counter and returns the new
// value. Used to compensate a decrement after a rejected or failed purchase.
func (c *Coordinator) IncrStock(ctx context.Context, saleID string) (int64, error) {
	val, err := c.client.Incr(ctx, c.stockKey(saleID)).Result()
	if err != nil {
		return 0, fmt.Errorf("increment stock for %s: %w", saleID, err)
	}
	return val, nil
}

// HasMark reports whether a user mark exists for (sale, user).
// The mark is advisory: absence never contradicts a committed order.
func (c *Coordinator) HasMark(ctx context.Context, saleID, userID string) (bool, error) {
	n, err := c.client.Exists(ctx, c.markKey(saleID, userID)).Result()
	if err != nil {
		return false, fmt.Errorf("check mark for %s/%s: %w", saleID, userID, err)
	}
	return n > 0, nil
}

// SetMark records that a user purchased in this sale. Idempotent; each write
// refreshes the TTL.
func (c *Coordinator) SetMark(ctx context.Context, saleID, userID string) error {
	if err := c.client.Set(ctx, c.markKey(saleID, userID), "1", c.markTTL).Err(); err != nil {
		return fmt.Errorf("set mark for %s/%s: %w", saleID, userID, err)
	}
	return nil
}

// ClearMark removes a user mark. Used to compensate a mark written for a
// purchase that failed to commit.
func (c *Coordinator) ClearMark(ctx context.Context, saleID, userID string) error {
	if err := c.client.Del(ctx, c.markKey(saleID, userID)).Err(); err != nil {
		return fmt.Errorf("clear mark for %s/%s: %w", saleID, userID, err)
	}
	return nil
}

// Reset deletes the stock counter and every user mark for the sale.
// Marks are discovered with SCAN to avoid blocking Redis on large sales.
func (c *Coordinator) Reset(ctx context.Context, saleID string) error {
	if err := c.client.Del(ctx, c.stockKey(saleID)).Err(); err != nil {
		return fmt.Errorf("delete stock for %s: %w", saleID, err)
	}

	match := c.markKey(saleID, "*")
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, match, 100).Result()
		if err != nil {
			return fmt.Errorf("scan marks for %s: %w", saleID, err)
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("delete marks for %s: %w", saleID, err)
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

// Ping checks coordinator connectivity. Used by the health endpoint.
func (c *Coordinator) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping coordinator: %w", err)
	}
	return nil
}
