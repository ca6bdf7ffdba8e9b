package contracts

// Score categories combined into the composite total
// ⭐ SSOT: 카테고리 이름은 여기서만 정의
const (
	CategoryValuation        = "valuation"
	CategoryProfitability    = "profitability"
	CategoryStability        = "stability"
	CategorySectorPercentile = "sector_percentile"
	CategoryExternal         = "external"
)

// Categories lists all score categories in composition order
func Categories() []string {
	return []string{
		CategoryValuation,
		CategoryProfitability,
		CategoryStability,
		CategorySectorPercentile,
		CategoryExternal,
	}
}

// ScoreComponent is one named weighted sub-score.
// Score is meaningful only when Available is true; unavailable components
// are excluded from the weighted total and its denominator.
type ScoreComponent struct {
	Category  string  `json:"category"`
	Weight    float64 `json:"weight"` // original configured weight
	Score     float64 `json:"score"`  // 0 ~ 100
	Available bool    `json:"available"`
}

// Grade is the ordinal letter grade derived from the composite total
type Grade string

const (
	GradeAPlus Grade = "A+"
	GradeA     Grade = "A"
	GradeBPlus Grade = "B+"
	GradeB     Grade = "B"
	GradeCPlus Grade = "C+"
	GradeC     Grade = "C"
	GradeD     Grade = "D"
	GradeF     Grade = "F"
	GradeNone  Grade = "N/A" // insufficient data
)

// Recommendation is the investor-facing label derived from Grade
type Recommendation string

const (
	RecStrongBuy    Recommendation = "strong_buy"
	RecBuy          Recommendation = "buy"
	RecHold         Recommendation = "hold"
	RecSell         Recommendation = "sell"
	RecStrongSell   Recommendation = "strong_sell"
	RecInsufficient Recommendation = "insufficient_data"
)

// Downgrade returns the recommendation one step worse.
// StrongSell stays StrongSell; insufficient data is never downgraded.
func (r Recommendation) Downgrade() Recommendation {
	switch r {
	case RecStrongBuy:
		return RecBuy
	case RecBuy:
		return RecHold
	case RecHold:
		return RecSell
	case RecSell, RecStrongSell:
		return RecStrongSell
	default:
		return r
	}
}

// Confidence expresses how many sub-scores backed the composite
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// CompositeScore is the scored result for one instrument
// ⭐ SSOT: 스테이지 간 점수 전달은 이 타입으로만 (shape 추측 금지)
type CompositeScore struct {
	Instrument     Instrument       `json:"instrument"`
	Components     []ScoreComponent `json:"components"`
	Total          float64          `json:"total"` // 0 ~ 100, weight-renormalized
	Grade          Grade            `json:"grade"`
	Recommendation Recommendation   `json:"recommendation"`
	Confidence     Confidence       `json:"confidence"`
	RiskFlags      []string         `json:"risk_flags,omitempty"`
	Rank           int              `json:"rank"` // 1-based, assigned after sorting
	Insufficient   bool             `json:"insufficient"`
}

// Component returns the component for a category, if present
func (c *CompositeScore) Component(category string) (ScoreComponent, bool) {
	for _, comp := range c.Components {
		if comp.Category == category {
			return comp, true
		}
	}
	return ScoreComponent{}, false
}

// IsTopRanked checks if the instrument is in top N ranks
func (c *CompositeScore) IsTopRanked(n int) bool {
	return c.Rank > 0 && c.Rank <= n
}
