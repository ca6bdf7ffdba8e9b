package scoring

import (
	"github.com/wonny/screener/backend/internal/contracts"
)

// GradeFromTotal maps a composite total to the ordinal grade ladder
func GradeFromTotal(total float64) contracts.Grade {
	switch {
	case total >= 90:
		return contracts.GradeAPlus
	case total >= 80:
		return contracts.GradeA
	case total >= 70:
		return contracts.GradeBPlus
	case total >= 60:
		return contracts.GradeB
	case total >= 50:
		return contracts.GradeCPlus
	case total >= 40:
		return contracts.GradeC
	case total >= 20:
		return contracts.GradeD
	default:
		return contracts.GradeF
	}
}

// RecommendationFromGrade maps the grade to the base recommendation
func RecommendationFromGrade(grade contracts.Grade) contracts.Recommendation {
	switch grade {
	case contracts.GradeAPlus, contracts.GradeA:
		return contracts.RecStrongBuy
	case contracts.GradeBPlus, contracts.GradeB:
		return contracts.RecBuy
	case contracts.GradeCPlus, contracts.GradeC:
		return contracts.RecHold
	case contracts.GradeD:
		return contracts.RecSell
	case contracts.GradeF:
		return contracts.RecStrongSell
	default:
		return contracts.RecInsufficient
	}
}

// confidenceFrom grades how many of the categories backed the total
func confidenceFrom(available, total int) contracts.Confidence {
	switch {
	case available == total:
		return contracts.ConfidenceHigh
	case available >= 3:
		return contracts.ConfidenceMedium
	default:
		return contracts.ConfidenceLow
	}
}
