package breaker

import (
	"errors"
	"time"

	"github.com/sony/gobreaker"
)

// ErrOpen is returned while the breaker rejects calls
var ErrOpen = errors.New("circuit breaker open")

// Breaker guards an external source against hammering it while it is down.
// 연속 실패가 쌓이면 일정 시간 호출을 차단한다. 차단 중 에러는 transient로
// 분류되어 재시도/실패 레코드 경로를 그대로 탄다.
type Breaker struct {
	cb *gobreaker.CircuitBreaker
}

// New creates a breaker for the named source
func New(name string) *Breaker {
	st := gobreaker.Settings{
		Name:     name,
		Interval: 60 * time.Second,
		Timeout:  30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.ConsecutiveFailures >= 5 {
				return true
			}
			if counts.Requests < 20 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) > 0.5
		},
	}
	return &Breaker{cb: gobreaker.NewCircuitBreaker(st)}
}

// Execute runs fn under the breaker
func (b *Breaker) Execute(fn func() (any, error)) (any, error) {
	v, err := b.cb.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, ErrOpen
	}
	return v, err
}

// State returns the current breaker state name
func (b *Breaker) State() string {
	return b.cb.State().String()
}
