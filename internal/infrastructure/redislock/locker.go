// Package redislock implementa el lock distribuido de RebuildStats sobre Redis.
package redislock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"

	app "github.com/jhoicas/inventario-kardex/internal/application/inventory"
)

var _ app.StatsLocker = (*Locker)(nil)

// DefaultTTL vida del lock; una reconstrucción más larga lo pierde.
const DefaultTTL = 10 * time.Minute

// Locker adapta bsm/redislock a app.StatsLocker.
type Locker struct {
	client *redislock.Client
	ttl    time.Duration
}

// New construye el locker. ttl <= 0 usa DefaultTTL.
func New(rdb redis.UniversalClient, ttl time.Duration) *Locker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Locker{client: redislock.New(rdb), ttl: ttl}
}

// Lock intenta una sola vez; si otro proceso tiene la clave devuelve app.ErrLockNotAcquired.
func (l *Locker) Lock(ctx context.Context, key string) (func(context.Context) error, error) {
	lock, err := l.client.Obtain(ctx, key, l.ttl, nil)
	if err != nil {
		if errors.Is(err, redislock.ErrNotObtained) {
			return nil, app.ErrLockNotAcquired
		}
		return nil, fmt.Errorf("redis lock %s: %w", key, err)
	}
	return func(ctx context.Context) error {
		if err := lock.Release(ctx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			return fmt.Errorf("redis unlock %s: %w", key, err)
		}
		return nil
	}, nil
}

// NewClient cliente Redis desde la configuración; nil si no hay dirección.
func NewClient(addr, password string, db int) *redis.Client {
	if addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
}
