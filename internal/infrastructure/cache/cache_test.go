package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/erp/settlement/internal/domain/shared"
	"github.com/erp/settlement/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	clock := shared.NewFakeClock(time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC))

	t.Run("first mark wins until the ttl elapses", func(t *testing.T) {
		store := NewMemoryStore(WithClock(clock), WithSweepInterval(0))
		defer store.Close()

		first, err := store.MarkProcessed(ctx, "payout-generated:PO-1", time.Hour)
		require.NoError(t, err)
		assert.True(t, first)

		again, err := store.MarkProcessed(ctx, "payout-generated:PO-1", time.Hour)
		require.NoError(t, err)
		assert.False(t, again)

		seen, err := store.IsProcessed(ctx, "payout-generated:PO-1")
		require.NoError(t, err)
		assert.True(t, seen)

		clock.Advance(time.Hour)

		seen, err = store.IsProcessed(ctx, "payout-generated:PO-1")
		require.NoError(t, err)
		assert.False(t, seen)

		renewed, err := store.MarkProcessed(ctx, "payout-generated:PO-1", time.Hour)
		require.NoError(t, err)
		assert.True(t, renewed)
	})

	t.Run("sweep drops expired keys only", func(t *testing.T) {
		store := NewMemoryStore(WithClock(clock), WithSweepInterval(0))
		defer store.Close()

		_, _ = store.MarkProcessed(ctx, "short", time.Minute)
		_, _ = store.MarkProcessed(ctx, "long", time.Hour)
		clock.Advance(2 * time.Minute)

		store.sweep()
		assert.Equal(t, 1, store.Len())
	})

	t.Run("exactly one concurrent caller wins", func(t *testing.T) {
		store := NewMemoryStore(WithClock(clock), WithSweepInterval(0))
		defer store.Close()

		var wins atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 32; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if ok, _ := store.MarkProcessed(ctx, "payout-run:2024-03-04", time.Hour); ok {
					wins.Add(1)
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, int32(1), wins.Load())
	})

	t.Run("close is idempotent", func(t *testing.T) {
		store := NewMemoryStore(WithSweepInterval(time.Millisecond))
		assert.NoError(t, store.Close())
		assert.NoError(t, store.Close())
	})
}

func TestRedisStore_Errors(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	store := NewRedisStore(client, "")
	defer store.Close()
	assert.Equal(t, DefaultKeyPrefix, store.keyPrefix)

	_, err := store.MarkProcessed(context.Background(), "k", time.Minute)
	assert.ErrorContains(t, err, "failed to mark k")

	_, err = store.IsProcessed(context.Background(), "k")
	assert.ErrorContains(t, err, "failed to check k")
}

func TestNewIdempotencyStore(t *testing.T) {
	ctx := context.Background()

	t.Run("disabled redis uses memory", func(t *testing.T) {
		store, err := NewIdempotencyStore(ctx, config.RedisConfig{Enabled: false}, true, nil)
		require.NoError(t, err)
		defer store.Close()
		assert.IsType(t, &MemoryStore{}, store)
	})

	unreachable := config.RedisConfig{Enabled: true, Host: "127.0.0.1", Port: 1}

	t.Run("unreachable redis falls back to memory", func(t *testing.T) {
		store, err := NewIdempotencyStore(ctx, unreachable, false, nil)
		require.NoError(t, err)
		defer store.Close()
		assert.IsType(t, &MemoryStore{}, store)
	})

	t.Run("unreachable redis is an error when required", func(t *testing.T) {
		_, err := NewIdempotencyStore(ctx, unreachable, true, nil)
		assert.ErrorContains(t, err, "redis is required")
	})
}
