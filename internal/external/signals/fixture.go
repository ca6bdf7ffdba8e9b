package signals

import (
	"context"
	"hash/fnv"
)

// FixtureProvider returns deterministic signal values derived from the
// symbol. 테스트와 오프라인 실행용: 같은 심볼은 항상 같은 값.
type FixtureProvider struct{}

// NewFixtureProvider creates the deterministic provider
func NewFixtureProvider() *FixtureProvider {
	return &FixtureProvider{}
}

// Fetch derives stable 0~100 values from an FNV hash of the symbol
func (p *FixtureProvider) Fetch(_ context.Context, symbol string) (*Values, error) {
	return &Values{
		ESG:     derive(symbol, "esg"),
		Credit:  derive(symbol, "credit"),
		Analyst: derive(symbol, "analyst"),
	}, nil
}

func derive(symbol, kind string) float64 {
	h := fnv.New32a()
	h.Write([]byte(symbol))
	h.Write([]byte(":"))
	h.Write([]byte(kind))
	// 30~90 범위로 접어 극단값 회피
	return 30 + float64(h.Sum32()%6100)/100
}
