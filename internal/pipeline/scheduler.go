package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/wonny/screener/backend/internal/contracts"
	"github.com/wonny/screener/backend/pkg/logger"
	"github.com/wonny/screener/backend/pkg/retry"
)

// RunAll executes task for every instrument with at most maxConcurrency in
// flight, returning per-item successes and failures independently.
//
// 개별 종목의 에러/패닉이 배치를 중단시키지 않는다: 모든 예외는 이 래퍼
// 한 곳에서 FailureRecord로 변환된다. 컨텍스트 취소 시 완료된 결과는
// 그대로 반환되고, 아직 시작하지 않은 종목은 취소 실패로 기록된다
// (부분 결과, all-or-nothing 아님). 결과 순서는 입력 순서와 무관하다.
func RunAll[T any](
	ctx context.Context,
	items []contracts.Instrument,
	maxConcurrency int,
	log *logger.Logger,
	task func(context.Context, contracts.Instrument) (T, error),
) ([]T, []contracts.FailureRecord) {
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}
	if maxConcurrency > len(items) {
		maxConcurrency = len(items)
	}

	type outcome struct {
		value   T
		failure *contracts.FailureRecord
	}

	itemCh := make(chan contracts.Instrument, len(items))
	resultCh := make(chan outcome, len(items))

	var wg sync.WaitGroup
	for i := 0; i < maxConcurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range itemCh {
				if err := ctx.Err(); err != nil {
					// 취소 이후 미시작 종목: 실행하지 않고 기록만
					resultCh <- outcome{failure: &contracts.FailureRecord{
						Symbol:   item.Symbol,
						Class:    contracts.FailureTransient,
						Attempts: 0,
						Message:  fmt.Sprintf("cancelled before start: %v", err),
					}}
					continue
				}
				value, failure := runOne(ctx, item, task)
				resultCh <- outcome{value: value, failure: failure}
			}
		}()
	}

	for _, item := range items {
		itemCh <- item
	}
	close(itemCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	values := make([]T, 0, len(items))
	failures := make([]contracts.FailureRecord, 0)
	for res := range resultCh {
		if res.failure != nil {
			failures = append(failures, *res.failure)
		} else {
			values = append(values, res.value)
		}
	}

	if len(failures) > 0 {
		log.WithFields(map[string]interface{}{
			"total":   len(items),
			"ok":      len(values),
			"failed":  len(failures),
			"workers": maxConcurrency,
		}).Warn("Batch completed with failures")
	}

	return values, failures
}

// runOne executes one task with panic recovery, converting any failure to a
// FailureRecord
func runOne[T any](ctx context.Context, item contracts.Instrument, task func(context.Context, contracts.Instrument) (T, error)) (value T, failure *contracts.FailureRecord) {
	defer func() {
		if r := recover(); r != nil {
			failure = &contracts.FailureRecord{
				Symbol:   item.Symbol,
				Class:    contracts.FailureUnknown,
				Attempts: 1,
				Message:  fmt.Sprintf("panic: %v", r),
			}
		}
	}()

	v, err := task(ctx, item)
	if err != nil {
		failure = &contracts.FailureRecord{
			Symbol:   item.Symbol,
			Class:    failureClass(err),
			Attempts: retry.Attempts(err),
			Message:  err.Error(),
		}
		return
	}

	value = v
	return
}

// failureClass maps the retry taxonomy onto the contract classification
func failureClass(err error) contracts.FailureClass {
	switch retry.Classify(err) {
	case retry.ClassTransient:
		return contracts.FailureTransient
	case retry.ClassPermanent:
		return contracts.FailurePermanent
	default:
		return contracts.FailureUnknown
	}
}
