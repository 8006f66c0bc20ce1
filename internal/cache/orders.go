// Package cache keeps confirmed orders in Redis so receipt reads skip the
// order, item and payment joins.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/joao-fontenele/lampslot/internal/domain"
)

// commands is the slice of the redis client the cache needs.
type commands interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

type Orders struct {
	rdb commands
	ttl time.Duration
}

func NewOrders(rdb commands, ttl time.Duration) *Orders {
	return &Orders{rdb: rdb, ttl: ttl}
}

// NewClient connects to addr and checks the connection.
func NewClient(ctx context.Context, addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", addr, err)
	}
	return rdb, nil
}

func orderKey(id int64) string {
	return fmt.Sprintf("lamp:order:%d", id)
}

// Get returns nil, nil on a miss.
func (c *Orders) Get(ctx context.Context, orderID int64) (*domain.Order, error) {
	data, err := c.rdb.Get(ctx, orderKey(orderID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cached order %d: %w", orderID, err)
	}

	var order domain.Order
	if err := json.Unmarshal(data, &order); err != nil {
		return nil, fmt.Errorf("decode cached order %d: %w", orderID, err)
	}
	return &order, nil
}

func (c *Orders) Set(ctx context.Context, order *domain.Order) error {
	data, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("encode order %d: %w", order.ID, err)
	}
	if err := c.rdb.Set(ctx, orderKey(order.ID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache order %d: %w", order.ID, err)
	}
	return nil
}

func (c *Orders) Delete(ctx context.Context, orderID int64) error {
	if err := c.rdb.Del(ctx, orderKey(orderID)).Err(); err != nil {
		return fmt.Errorf("evict order %d: %w", orderID, err)
	}
	return nil
}
