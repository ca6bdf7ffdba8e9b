package ttlcache

import (
	"context"
	"sync"
	"time"
)

// entry is one cached value plus its in-flight computation state
type entry[V any] struct {
	value     V
	err       error
	createdAt time.Time
	done      bool
	ready     chan struct{} // closed when the supplier finishes
}

// Cache is an in-memory key→value store with per-entry TTL.
// TTL 초과 읽기는 반드시 재계산을 유발하고, 실패한 supplier는 엔트리를
// 남기지 않는다 (부분/실패 값으로 캐시 오염 금지). TTL 외 축출 정책 없음
// (수천 엔트리 규모에서 무한 성장 허용).
// ⭐ SSOT: 스냅샷 메모이제이션은 이 타입에서만
type Cache[V any] struct {
	mu      sync.Mutex
	entries map[string]*entry[V]
}

// New creates an empty cache
func New[V any]() *Cache[V] {
	return &Cache[V]{
		entries: make(map[string]*entry[V]),
	}
}

// GetOrCompute returns the cached value when it is younger than ttl,
// otherwise invokes supplier, stores the result and returns it.
// Concurrent callers for the same key run the supplier once; the rest wait
// and share a successful outcome. A supplier error propagates to its caller,
// the failed entry is removed, and waiters recompute.
func (c *Cache[V]) GetOrCompute(ctx context.Context, key string, ttl time.Duration, supplier func(context.Context) (V, error)) (V, error) {
	for {
		c.mu.Lock()
		e, exists := c.entries[key]
		if exists {
			if !e.done {
				// 다른 호출자가 계산 중: 완료를 기다렸다가 재검사
				ready := e.ready
				c.mu.Unlock()

				select {
				case <-ctx.Done():
					var zero V
					return zero, ctx.Err()
				case <-ready:
				}
				continue
			}
			if e.err == nil && time.Since(e.createdAt) < ttl {
				v := e.value
				c.mu.Unlock()
				return v, nil
			}
			// 만료 또는 실패 엔트리: 아래에서 교체
		}

		ne := &entry[V]{ready: make(chan struct{})}
		c.entries[key] = ne
		c.mu.Unlock()

		v, err := supplier(ctx)

		c.mu.Lock()
		ne.value = v
		ne.err = err
		ne.createdAt = time.Now()
		ne.done = true
		if err != nil {
			// 실패는 캐시하지 않음: 다음 호출이 새로 계산
			if cur, ok := c.entries[key]; ok && cur == ne {
				delete(c.entries, key)
			}
		}
		close(ne.ready)
		c.mu.Unlock()

		return v, err
	}
}

// Get returns the cached value when present and younger than ttl
func (c *Cache[V]) Get(key string, ttl time.Duration) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, exists := c.entries[key]
	if !exists || !e.done || e.err != nil || time.Since(e.createdAt) >= ttl {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Invalidate removes one entry
func (c *Cache[V]) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Clear removes all entries (기초 데이터 일괄 갱신 후 사용)
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry[V])
}

// Len returns the number of stored entries, including expired ones
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
