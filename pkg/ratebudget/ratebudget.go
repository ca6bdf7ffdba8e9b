package ratebudget

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

const (
	// MinInterval is the floor for any pacing interval.
	// 실수로 0에 가까운 값을 넣어 tight-loop이 되는 것을 방지.
	MinInterval = 100 * time.Millisecond

	// maxJitter is the upper bound of random wait added on contention
	// to avoid thundering-herd release of blocked callers.
	maxJitter = 50 * time.Millisecond
)

// Budget paces outbound calls to one rate-limited source.
// 하나의 외부 소스당 하나의 인스턴스를 모든 fetcher가 공유한다 (DI로 전달,
// 전역 상태 금지). Acquire는 직전 승인 이후 interval이 지날 때까지 블록한다.
// ⭐ SSOT: 외부 API 페이싱은 이 타입에서만
type Budget struct {
	mu        sync.Mutex
	interval  time.Duration
	lastAdmit time.Time
	rng       *rand.Rand
}

// New creates a budget with the default interval for Acquire.
// Intervals below MinInterval are raised to it.
func New(interval time.Duration) *Budget {
	return &Budget{
		interval: clampInterval(interval),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Interval returns the default pacing interval
func (b *Budget) Interval() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.interval
}

// Acquire blocks until at least the default interval has elapsed since the
// previous admission by any caller, then records the admission.
func (b *Budget) Acquire(ctx context.Context) error {
	return b.AcquireInterval(ctx, 0)
}

// AcquireInterval is Acquire with a per-call interval override.
// An override of 0 (or below the floor) falls back to the default interval.
func (b *Budget) AcquireInterval(ctx context.Context, override time.Duration) error {
	for {
		b.mu.Lock()
		interval := b.interval
		if override > 0 {
			interval = clampInterval(override)
		}

		now := time.Now()
		next := b.lastAdmit.Add(interval)
		if !now.Before(next) {
			// 경과 확인과 타임스탬프 갱신은 같은 락 안에서: 동시 호출자가
			// 둘 다 stale 체크로 통과하는 이중 승인 방지.
			b.lastAdmit = now
			b.mu.Unlock()
			return nil
		}

		wait := next.Sub(now) + time.Duration(b.rng.Int63n(int64(maxJitter)))
		b.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
			// 대기 중 다른 호출자가 승인됐을 수 있으므로 재검사
		}
	}
}

func clampInterval(d time.Duration) time.Duration {
	if d < MinInterval {
		return MinInterval
	}
	return d
}
