package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, time.Minute), mr
}

func TestCacheFetchPopulatesAndHits(t *testing.T) {
	cache, _ := newTestCache(t)
	key := Key(1, 5, day(1), day(30))

	loads := 0
	loader := func(context.Context) (AccountLedger, error) {
		loads++
		return AccountLedger{AccountID: 5, ClosingBalance: 42}, nil
	}

	first, err := cache.Fetch(context.Background(), key, loader)
	require.NoError(t, err)
	require.Equal(t, 42.0, first.ClosingBalance)
	require.Equal(t, 1, loads)

	second, err := cache.Fetch(context.Background(), key, loader)
	require.NoError(t, err)
	require.Equal(t, 42.0, second.ClosingBalance)
	require.Equal(t, 1, loads, "second fetch must come from the cache")
}

func TestCacheFetchPropagatesLoaderError(t *testing.T) {
	cache, _ := newTestCache(t)

	wantErr := errors.New("backend down")
	_, err := cache.Fetch(context.Background(), Key(1, 5, day(1), day(2)), func(context.Context) (AccountLedger, error) {
		return AccountLedger{}, wantErr
	})
	require.ErrorIs(t, err, wantErr)
}

func TestCacheInvalidateScopesToCompany(t *testing.T) {
	cache, mr := newTestCache(t)

	loader := func(result AccountLedger) func(context.Context) (AccountLedger, error) {
		return func(context.Context) (AccountLedger, error) { return result, nil }
	}
	_, err := cache.Fetch(context.Background(), Key(1, 5, day(1), day(30)), loader(AccountLedger{AccountID: 5}))
	require.NoError(t, err)
	_, err = cache.Fetch(context.Background(), Key(2, 5, day(1), day(30)), loader(AccountLedger{AccountID: 5}))
	require.NoError(t, err)

	require.NoError(t, cache.Invalidate(context.Background(), 1))

	require.False(t, mr.Exists(Key(1, 5, day(1), day(30))))
	require.True(t, mr.Exists(Key(2, 5, day(1), day(30))))
}

func TestCacheNilClientFallsThrough(t *testing.T) {
	cache := NewCache(nil, time.Minute)

	loads := 0
	for i := 0; i < 2; i++ {
		out, err := cache.Fetch(context.Background(), "ledger:1:1:a:b", func(context.Context) (AccountLedger, error) {
			loads++
			return AccountLedger{ClosingBalance: 7}, nil
		})
		require.NoError(t, err)
		require.Equal(t, 7.0, out.ClosingBalance)
	}
	require.Equal(t, 2, loads)
}
