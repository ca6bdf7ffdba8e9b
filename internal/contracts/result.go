package contracts

import "time"

// FailureClass categorizes why an instrument's fetch failed
type FailureClass string

const (
	FailureTransient FailureClass = "transient"
	FailurePermanent FailureClass = "permanent"
	FailureUnknown   FailureClass = "unknown"
)

// FailureRecord describes one instrument that could not be analyzed.
// 개별 종목 실패는 배치를 중단시키지 않고 이 레코드로만 보고된다.
type FailureRecord struct {
	Symbol   string       `json:"symbol"`
	Class    FailureClass `json:"class"`
	Attempts int          `json:"attempts"`
	Message  string       `json:"message"`
}

// FilteredInstrument is an instrument that was analyzed but removed from
// ranking by the quality gate. Reported, never silently dropped.
type FilteredInstrument struct {
	Instrument Instrument `json:"instrument"`
	Reason     string     `json:"reason"`
}

// PipelineResult is the complete outcome of one analyze run
// ⭐ SSOT: 파이프라인 결과는 이 타입으로만 외부에 노출
type PipelineResult struct {
	RunID      string               `json:"run_id"`
	ConfigHash string               `json:"config_hash,omitempty"`
	StartedAt  time.Time            `json:"started_at"`
	Duration   time.Duration        `json:"duration"`
	Ranked     []CompositeScore     `json:"ranked"`
	Filtered   []FilteredInstrument `json:"filtered"`
	Failed     []FailureRecord      `json:"failed"`
}

// Analyzed returns how many instruments produced a score (ranked or filtered)
func (r *PipelineResult) Analyzed() int {
	return len(r.Ranked) + len(r.Filtered)
}
