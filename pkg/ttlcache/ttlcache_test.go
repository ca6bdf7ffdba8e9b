package ttlcache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrCompute_CachesWithinTTL(t *testing.T) {
	c := New[int]()
	var calls int32

	for i := 0; i < 5; i++ {
		v, err := c.GetOrCompute(context.Background(), "k", time.Minute, func(ctx context.Context) (int, error) {
			atomic.AddInt32(&calls, 1)
			return 42, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 42, v)
	}

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "supplier should run once within TTL")
}

func TestGetOrCompute_RecomputesAfterExpiry(t *testing.T) {
	c := New[int]()
	var calls int32

	supplier := func(ctx context.Context) (int, error) {
		return int(atomic.AddInt32(&calls, 1)), nil
	}

	v, err := c.GetOrCompute(context.Background(), "k", 10*time.Millisecond, supplier)
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	time.Sleep(20 * time.Millisecond)

	v, err = c.GetOrCompute(context.Background(), "k", 10*time.Millisecond, supplier)
	require.NoError(t, err)
	assert.Equal(t, 2, v, "expired entry must be recomputed")
}

func TestGetOrCompute_ErrorNotCached(t *testing.T) {
	c := New[int]()
	var calls int32
	boom := errors.New("boom")

	_, err := c.GetOrCompute(context.Background(), "k", time.Minute, func(ctx context.Context) (int, error) {
		atomic.AddInt32(&calls, 1)
		return 0, boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 0, c.Len(), "failed entry must not remain")

	v, err := c.GetOrCompute(context.Background(), "k", time.Minute, func(ctx context.Context) (int, error) {
		atomic.AddInt32(&calls, 1)
		return 7, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 7, v)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestGetOrCompute_ConcurrentSingleFlight(t *testing.T) {
	c := New[string]()
	var calls int32

	const callers = 20
	var wg sync.WaitGroup
	results := make([]string, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := c.GetOrCompute(context.Background(), "k", time.Minute, func(ctx context.Context) (string, error) {
				atomic.AddInt32(&calls, 1)
				time.Sleep(20 * time.Millisecond) // 동시 호출자가 대기 경로를 타도록
				return "shared", nil
			})
			require.NoError(t, err)
			results[i] = v
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "concurrent callers must share one computation")
	for _, v := range results {
		assert.Equal(t, "shared", v)
	}
}

func TestGet_And_Invalidate(t *testing.T) {
	c := New[int]()

	_, ok := c.Get("k", time.Minute)
	assert.False(t, ok)

	_, err := c.GetOrCompute(context.Background(), "k", time.Minute, func(ctx context.Context) (int, error) {
		return 9, nil
	})
	require.NoError(t, err)

	v, ok := c.Get("k", time.Minute)
	assert.True(t, ok)
	assert.Equal(t, 9, v)

	c.Invalidate("k")
	_, ok = c.Get("k", time.Minute)
	assert.False(t, ok)
}

func TestClear(t *testing.T) {
	c := New[int]()
	for _, key := range []string{"a", "b", "c"} {
		_, err := c.GetOrCompute(context.Background(), key, time.Minute, func(ctx context.Context) (int, error) {
			return 1, nil
		})
		require.NoError(t, err)
	}
	assert.Equal(t, 3, c.Len())

	c.Clear()
	assert.Equal(t, 0, c.Len())
}
