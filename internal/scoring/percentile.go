package scoring

import (
	"github.com/wonny/screener/backend/internal/contracts"
)

// NeutralPercentile is returned when the peer distribution cannot support a
// meaningful rank. 납작한 분포의 노이즈로 0/100이 튀는 것을 막는다.
const NeutralPercentile = 50.0

// PercentileRank maps a value onto its peer distribution using the
// p25/p50/p75 breakpoints, returning a rank in [0, 100].
//
// Degenerate policy: when the sample is below minSample or the
// interquartile range is below epsilon (사실상 모든 피어가 같은 값),
// the rank is exactly the neutral 50.
func PercentileRank(value float64, stats *contracts.PeerStats, minSample int, epsilon float64) float64 {
	if stats == nil || stats.SampleSize < minSample {
		return NeutralPercentile
	}

	iqr := stats.P75 - stats.P25
	if iqr < epsilon {
		return NeutralPercentile
	}

	switch {
	case value <= stats.P25:
		// p25 아래는 IQR 폭으로 0점까지 선형 외삽
		return clamp100(25 - (stats.P25-value)/iqr*25)
	case value <= stats.P50:
		return interpolate(value, stats.P25, stats.P50, 25, 50)
	case value <= stats.P75:
		return interpolate(value, stats.P50, stats.P75, 50, 75)
	default:
		// p75 위는 IQR 폭으로 100점까지 선형 외삽
		return clamp100(75 + (value-stats.P75)/iqr*25)
	}
}

// interpolate maps value from [lo, hi] onto [loRank, hiRank]
func interpolate(value, lo, hi, loRank, hiRank float64) float64 {
	if hi-lo <= 0 {
		// 퇴화 구간: 구간 중앙값 반환
		return (loRank + hiRank) / 2
	}
	return loRank + (value-lo)/(hi-lo)*(hiRank-loRank)
}

// lowerIsBetter reports whether a metric ranks better at lower values
func lowerIsBetter(metric string) bool {
	switch metric {
	case contracts.FieldPER, contracts.FieldPBR, contracts.FieldDebtRatio:
		return true
	default:
		return false
	}
}
