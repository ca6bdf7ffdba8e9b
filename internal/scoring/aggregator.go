package scoring

import (
	"github.com/wonny/screener/backend/internal/contracts"
	"github.com/wonny/screener/backend/internal/scoringconfig"
	"github.com/wonny/screener/backend/pkg/logger"
)

// Aggregator combines named weighted sub-scores into one composite score
// ⭐ SSOT: 종합 점수 계산은 여기서만
type Aggregator struct {
	weights    scoringconfig.Weights
	percentile scoringconfig.Percentile
	risk       scoringconfig.Risk
	logger     *logger.Logger
}

// NewAggregator creates an aggregator from the strategy config
func NewAggregator(cfg *scoringconfig.Config, log *logger.Logger) *Aggregator {
	return &Aggregator{
		weights:    cfg.Weights,
		percentile: cfg.Percentile,
		risk:       cfg.Risk,
		logger:     log.WithField("module", "scoring"),
	}
}

// Compose computes the composite score for one instrument.
//
// 가용한 컴포넌트만 가중 평균에 들어가고 가중치는 그 부분집합 기준으로
// 재정규화된다. 빠진 컴포넌트를 0이나 50으로 조용히 채우지 않는다.
// 가용 컴포넌트가 하나도 없으면 insufficient data.
func (a *Aggregator) Compose(instrument contracts.Instrument, snap *contracts.RawSnapshot, peers *contracts.PeerStats) contracts.CompositeScore {
	components := a.components(snap, peers)

	weightSum := 0.0
	weighted := 0.0
	available := 0
	for _, comp := range components {
		if !comp.Available || comp.Weight <= 0 {
			continue
		}
		weighted += comp.Score * comp.Weight
		weightSum += comp.Weight
		available++
	}

	score := contracts.CompositeScore{
		Instrument: instrument,
		Components: components,
	}

	if weightSum == 0 {
		score.Insufficient = true
		score.Grade = contracts.GradeNone
		score.Recommendation = contracts.RecInsufficient
		score.Confidence = contracts.ConfidenceLow

		a.logger.WithField("symbol", instrument.Symbol).Warn("No score component available")
		return score
	}

	score.Total = weighted / weightSum
	score.Grade = GradeFromTotal(score.Total)
	score.Confidence = confidenceFrom(available, len(components))

	rec := RecommendationFromGrade(score.Grade)
	score.RiskFlags = a.riskFlags(snap)
	if len(score.RiskFlags) > 0 {
		// Soft guard: 리스크 신호는 추천을 정확히 한 단계만 낮춘다.
		// 단일 휴리스틱 하나가 결과를 뒤집지 못하게 영향 범위를 제한.
		rec = rec.Downgrade()
	}
	score.Recommendation = rec

	a.logger.WithFields(map[string]interface{}{
		"symbol":    instrument.Symbol,
		"total":     score.Total,
		"grade":     score.Grade,
		"available": available,
	}).Debug("Composed score")

	return score
}

// components computes every category sub-score independently
func (a *Aggregator) components(snap *contracts.RawSnapshot, peers *contracts.PeerStats) []contracts.ScoreComponent {
	components := make([]contracts.ScoreComponent, 0, len(contracts.Categories()))

	for _, category := range contracts.Categories() {
		comp := contracts.ScoreComponent{
			Category: category,
			Weight:   a.weights.ByCategory(category),
		}

		switch category {
		case contracts.CategoryValuation:
			comp.Score, comp.Available = valuationScore(snap)
		case contracts.CategoryProfitability:
			comp.Score, comp.Available = profitabilityScore(snap)
		case contracts.CategoryStability:
			comp.Score, comp.Available = stabilityScore(snap)
		case contracts.CategorySectorPercentile:
			comp.Score, comp.Available = a.sectorPercentile(snap, peers)
		case contracts.CategoryExternal:
			comp.Score, comp.Available = externalScore(snap)
		}

		components = append(components, comp)
	}

	return components
}

// sectorPercentile ranks the configured metric against sector peers
func (a *Aggregator) sectorPercentile(snap *contracts.RawSnapshot, peers *contracts.PeerStats) (float64, bool) {
	value, ok := snap.Field(a.percentile.Metric)
	if !ok || peers == nil {
		// 메트릭 결측 또는 피어 수집 실패: 중립이 아니라 제외 대상
		return 0, false
	}

	rank := PercentileRank(value, peers, a.percentile.MinPeerSample, a.percentile.DegenerateEpsilon)
	if lowerIsBetter(a.percentile.Metric) {
		rank = 100 - rank
	}
	return rank, true
}

// riskFlags evaluates the soft-guard triggers against the snapshot
func (a *Aggregator) riskFlags(snap *contracts.RawSnapshot) []string {
	var flags []string

	if debt, ok := snap.Field(contracts.FieldDebtRatio); ok && a.risk.MaxDebtRatio > 0 && debt > a.risk.MaxDebtRatio {
		flags = append(flags, "high_debt_ratio")
	}
	if ratio, ok := snap.Field(contracts.FieldPriceTo52WHigh); ok && a.risk.MaxPriceTo52WHigh > 0 && ratio >= a.risk.MaxPriceTo52WHigh {
		flags = append(flags, "near_52w_high")
	}

	return flags
}
