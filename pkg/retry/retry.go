package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Class categorizes a failure for retry purposes
type Class int

const (
	// ClassUnknown means the error could not be categorized; not retried.
	ClassUnknown Class = iota
	// ClassTransient errors (timeout, 429, 5xx) are retried with backoff.
	ClassTransient
	// ClassPermanent errors (bad symbol, auth, schema) fail immediately.
	ClassPermanent
)

// String returns the class name
func (c Class) String() string {
	switch c {
	case ClassTransient:
		return "transient"
	case ClassPermanent:
		return "permanent"
	default:
		return "unknown"
	}
}

// Error carries a failure class alongside the underlying error
type Error struct {
	Class Class
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Class, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Transient wraps err as a retryable failure
func Transient(err error) error {
	return &Error{Class: ClassTransient, Err: err}
}

// Permanent wraps err as a non-retryable failure
func Permanent(err error) error {
	return &Error{Class: ClassPermanent, Err: err}
}

// Classify extracts the failure class from an error chain
func Classify(err error) Class {
	var re *Error
	if errors.As(err, &re) {
		return re.Class
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ClassTransient
	}
	return ClassUnknown
}

// attemptError records how many invocations were made before giving up
type attemptError struct {
	attempts int
	err      error
}

func (e *attemptError) Error() string {
	return fmt.Sprintf("after %d attempts: %v", e.attempts, e.err)
}

func (e *attemptError) Unwrap() error {
	return e.err
}

// Attempts returns how many invocations a failed Do performed (1 when the
// error never went through Do).
func Attempts(err error) int {
	var ae *attemptError
	if errors.As(err, &ae) {
		return ae.attempts
	}
	return 1
}

// Executor retries transient failures with capped exponential backoff.
// 페이싱은 여기서 하지 않는다: RateBudget이 operation 안쪽에서 담당.
// ⭐ SSOT: 재시도 정책은 이 타입에서만
type Executor struct {
	MaxAttempts int           // total invocations, not extra retries
	Base        time.Duration // first backoff delay
	Cap         time.Duration // backoff ceiling
	Classify    func(error) Class
}

// NewExecutor creates an executor with the package classifier
func NewExecutor(maxAttempts int, base, cap time.Duration) *Executor {
	return &Executor{
		MaxAttempts: maxAttempts,
		Base:        base,
		Cap:         cap,
		Classify:    Classify,
	}
}

// Do invokes op until it succeeds, fails permanently, or attempts run out.
// The backoff delay before retry n is min(Cap, Base*2^(n-1)), computed fresh
// per failure. The last error is returned wrapped with the attempt count.
func Do[T any](ctx context.Context, ex *Executor, op func(context.Context) (T, error)) (T, error) {
	var zero T

	maxAttempts := ex.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	classify := ex.Classify
	if classify == nil {
		classify = Classify
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err

		if classify(err) != ClassTransient {
			return zero, &attemptError{attempts: attempt, err: err}
		}
		if attempt == maxAttempts {
			break
		}

		if err := sleep(ctx, ex.backoff(attempt)); err != nil {
			return zero, &attemptError{attempts: attempt, err: lastErr}
		}
	}

	return zero, &attemptError{attempts: maxAttempts, err: lastErr}
}

// backoff computes the delay after the given 1-based failed attempt
func (ex *Executor) backoff(attempt int) time.Duration {
	delay := ex.Base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= ex.Cap {
			return ex.Cap
		}
	}
	if ex.Cap > 0 && delay > ex.Cap {
		return ex.Cap
	}
	return delay
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
