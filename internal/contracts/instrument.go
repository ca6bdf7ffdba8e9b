package contracts

import (
	"math"
	"time"
)

// Instrument identifies one analyzable stock
// ⭐ SSOT: 분석 대상 종목 식별은 이 타입으로만
type Instrument struct {
	Symbol string `json:"symbol"` // 종목코드 (예: 005930)
	Name   string `json:"name"`
	Sector string `json:"sector"` // 업종 (예: 전기전자)
}

// Snapshot field names used by scoring and gating.
// 외부 수집기가 채우는 필드 이름의 단일 출처.
const (
	FieldPrice           = "price"
	FieldPER             = "per"
	FieldPBR             = "pbr"
	FieldROE             = "roe"
	FieldDebtRatio       = "debt_ratio"       // 부채비율 (%)
	FieldOperatingMargin = "operating_margin" // 영업이익률 (%)
	FieldPriceTo52WHigh  = "price_to_52w_high"
	FieldESG             = "esg"
	FieldCredit          = "credit"
	FieldAnalyst         = "analyst"
)

// RawSnapshot is point-in-time fetched data for one instrument.
// Fields holds named numeric values; missing or non-finite values are
// treated as unavailable by consumers, never defaulted.
type RawSnapshot struct {
	Symbol    string             `json:"symbol"`
	Sector    string             `json:"sector"`
	FetchedAt time.Time          `json:"fetched_at"`
	Fields    map[string]float64 `json:"fields"`
}

// NewRawSnapshot creates an empty snapshot for a symbol
func NewRawSnapshot(symbol, sector string) *RawSnapshot {
	return &RawSnapshot{
		Symbol:    symbol,
		Sector:    sector,
		FetchedAt: time.Now(),
		Fields:    make(map[string]float64),
	}
}

// Field returns the named value if present and finite
func (s *RawSnapshot) Field(name string) (float64, bool) {
	v, ok := s.Fields[name]
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// Set stores a field value. Non-finite values are dropped so a later
// Field() call reports them as unavailable.
func (s *RawSnapshot) Set(name string, v float64) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return
	}
	s.Fields[name] = v
}

// PeerStats holds sector peer distribution breakpoints for one metric
type PeerStats struct {
	Sector     string  `json:"sector"`
	Metric     string  `json:"metric"`
	P25        float64 `json:"p25"`
	P50        float64 `json:"p50"`
	P75        float64 `json:"p75"`
	SampleSize int     `json:"sample_size"`
}
