package cache

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Count int `json:"count"`
}

func newTestCache(t *testing.T) *Versioned {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewVersioned(client, "test", time.Minute)
}

func TestFetchJSONCachesLoaderResult(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)
	calls := 0
	loader := func(context.Context) (any, error) {
		calls++
		return payload{Count: 7}, nil
	}

	key, err := c.BuildKey(ctx, "stats")
	require.NoError(t, err)

	var first, second payload
	require.NoError(t, c.FetchJSON(ctx, key, &first, loader))
	require.NoError(t, c.FetchJSON(ctx, key, &second, loader))

	assert.Equal(t, 7, first.Count)
	assert.Equal(t, 7, second.Count)
	assert.Equal(t, 1, calls)
}

func TestFetchJSONSharedLoadSurvivesCallerCancel(t *testing.T) {
	c := newTestCache(t)
	key, err := c.BuildKey(context.Background(), "menu")
	require.NoError(t, err)

	started := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32
	loader := func(ctx context.Context) (any, error) {
		calls.Add(1)
		close(started)
		<-release
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return payload{Count: 3}, nil
	}

	firstCtx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		var dest payload
		firstErr <- c.FetchJSON(firstCtx, key, &dest, loader)
	}()

	<-started
	cancel()
	assert.ErrorIs(t, <-firstErr, context.Canceled)
	close(release)

	require.Eventually(t, func() bool {
		n, err := c.client.Exists(context.Background(), key).Result()
		return err == nil && n == 1
	}, time.Second, 10*time.Millisecond)

	var second payload
	require.NoError(t, c.FetchJSON(context.Background(), key, &second, loader))
	assert.Equal(t, 3, second.Count)
	assert.Equal(t, int32(1), calls.Load())
}

func TestBumpChangesKey(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)

	before, err := c.BuildKey(ctx, "stats")
	require.NoError(t, err)
	require.NoError(t, c.Bump(ctx))
	after, err := c.BuildKey(ctx, "stats")
	require.NoError(t, err)

	assert.NotEqual(t, before, after)
	assert.Contains(t, after, "workshop:test:stats:v2")
}

func TestFetchJSONPropagatesLoaderError(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)
	boom := errors.New("boom")

	var out payload
	err := c.FetchJSON(ctx, "k", &out, func(context.Context) (any, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)
}

func TestNilClientCallsLoaderDirectly(t *testing.T) {
	c := NewVersioned(nil, "test", time.Minute)
	var out payload
	err := c.FetchJSON(context.Background(), "k", &out, func(context.Context) (any, error) {
		return payload{Count: 3}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, out.Count)
	assert.NoError(t, c.Bump(context.Background()))
}
