package gate

import (
	"github.com/wonny/screener/backend/internal/contracts"
	"github.com/wonny/screener/backend/internal/scoringconfig"
	"github.com/wonny/screener/backend/pkg/logger"
)

// Gate implements the hard-cut quality filter applied before ranking.
// 종합 점수와 무관하게 최소 생존 조건을 검사한다: 빠진 필드 위에서 계산된
// 높은 점수가 상위 추천으로 올라오는 것을 막는다.
// ⭐ SSOT: 하드컷 필터링은 여기서만
type Gate struct {
	config scoringconfig.Gate
	logger *logger.Logger
}

// New creates a quality gate from the strategy config
func New(cfg scoringconfig.Gate, log *logger.Logger) *Gate {
	return &Gate{
		config: cfg,
		logger: log.WithField("module", "gate"),
	}
}

// Passes applies the conjunction of minimum-viability checks.
// Returns the first failing reason; an empty reason means pass.
// 게이트에 필요한 필드가 없으면 통과가 아니라 탈락이다.
func (g *Gate) Passes(snap *contracts.RawSnapshot) (bool, string) {
	reason := g.check(snap)
	if reason != "" {
		g.logger.WithFields(map[string]interface{}{
			"symbol": snap.Symbol,
			"reason": reason,
		}).Debug("Quality gate rejected")
		return false, reason
	}
	return true, ""
}

// check returns the failing condition name, or "" when all pass
func (g *Gate) check(snap *contracts.RawSnapshot) string {
	// Profitability floor
	roe, ok := snap.Field(contracts.FieldROE)
	if !ok {
		return "roe_missing"
	}
	if roe < g.config.MinROE {
		return "roe_below_floor"
	}

	// Leverage ceiling
	debt, ok := snap.Field(contracts.FieldDebtRatio)
	if !ok {
		return "debt_ratio_missing"
	}
	if debt > g.config.MaxDebtRatio {
		return "debt_ratio_above_ceiling"
	}

	// Margin floor
	margin, ok := snap.Field(contracts.FieldOperatingMargin)
	if !ok {
		return "operating_margin_missing"
	}
	if margin < g.config.MinOperatingMargin {
		return "operating_margin_below_floor"
	}

	// Overheat check: 52주 고점 부근 종목 제외. 필드가 있을 때만 적용.
	if ratio, ok := snap.Field(contracts.FieldPriceTo52WHigh); ok {
		if g.config.MaxPriceTo52WHigh > 0 && ratio > g.config.MaxPriceTo52WHigh {
			return "near_52w_high"
		}
	}

	return ""
}
