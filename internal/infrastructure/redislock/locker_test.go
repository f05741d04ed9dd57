package redislock

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	app "github.com/jhoicas/inventario-kardex/internal/application/inventory"
)

// Requiere un Redis real: REDIS_ADDRESS=localhost:6379 go test ./internal/infrastructure/redislock/...
func TestLocker_Exclusion(t *testing.T) {
	addr := os.Getenv("REDIS_ADDRESS")
	if addr == "" {
		t.Skip("REDIS_ADDRESS no definido")
	}
	rdb := NewClient(addr, "", 0)
	defer rdb.Close()
	ctx := context.Background()
	l := New(rdb, time.Minute)
	key := "test:rebuild-stats:" + time.Now().Format(time.RFC3339Nano)

	unlock, err := l.Lock(ctx, key)
	require.NoError(t, err)

	_, err = l.Lock(ctx, key)
	assert.ErrorIs(t, err, app.ErrLockNotAcquired)

	require.NoError(t, unlock(ctx))
	require.NoError(t, unlock(ctx), "liberar dos veces no falla")

	unlock, err = l.Lock(ctx, key)
	require.NoError(t, err)
	require.NoError(t, unlock(ctx))
}

func TestNewClient_SinDireccion(t *testing.T) {
	assert.Nil(t, NewClient("", "", 0))
	assert.Equal(t, DefaultTTL, New(nil, 0).ttl)
}
