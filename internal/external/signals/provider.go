package signals

import (
	"context"
)

// Values holds the qualitative external signals for one symbol,
// each on a 0~100 scale.
type Values struct {
	ESG     float64 `json:"esg"`
	Credit  float64 `json:"credit"`
	Analyst float64 `json:"analyst"`
}

// Provider supplies ESG/credit/analyst signals per symbol.
// 프로덕션 경로에 인라인 랜덤 금지: 실 HTTP 구현과 결정적 픽스처 구현만
// 존재한다.
// ⭐ SSOT: 외부 정성 신호 공급은 이 인터페이스로만
type Provider interface {
	Fetch(ctx context.Context, symbol string) (*Values, error)
}
