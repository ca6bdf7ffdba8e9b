package ratebudget

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_ClampsInterval(t *testing.T) {
	b := New(1 * time.Millisecond)
	assert.Equal(t, MinInterval, b.Interval())

	b = New(300 * time.Millisecond)
	assert.Equal(t, 300*time.Millisecond, b.Interval())
}

func TestAcquire_SpacesAdmissions(t *testing.T) {
	interval := 120 * time.Millisecond
	b := New(interval)

	const callers = 4
	var mu sync.Mutex
	var admitted []time.Time

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			require.NoError(t, b.Acquire(context.Background()))
			mu.Lock()
			admitted = append(admitted, time.Now())
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Len(t, admitted, callers)
	sort.Slice(admitted, func(i, j int) bool { return admitted[i].Before(admitted[j]) })

	// 승인 기록과 관측 타임스탬프 사이 스케줄링 지연 허용분
	const slack = 20 * time.Millisecond
	for i := 1; i < len(admitted); i++ {
		gap := admitted[i].Sub(admitted[i-1])
		assert.GreaterOrEqual(t, gap, interval-slack,
			"admissions %d and %d too close: %v", i-1, i, gap)
	}
}

func TestAcquireInterval_Override(t *testing.T) {
	b := New(100 * time.Millisecond)

	start := time.Now()
	require.NoError(t, b.Acquire(context.Background()))
	require.NoError(t, b.AcquireInterval(context.Background(), 250*time.Millisecond))
	elapsed := time.Since(start)

	assert.GreaterOrEqual(t, elapsed, 250*time.Millisecond-20*time.Millisecond)
}

func TestAcquire_ContextCancelled(t *testing.T) {
	b := New(500 * time.Millisecond)
	require.NoError(t, b.Acquire(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := b.Acquire(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
