package scoring

import (
	"github.com/wonny/screener/backend/internal/contracts"
)

// Monotonic scoring curves, each clamped to [0, 100].
// 밸류에이션 멀티플은 낮을수록, 수익성 지표는 높을수록 좋다.
// 필요 필드가 없거나 비정상(NaN/Inf)이면 ok=false로 컴포넌트 제외.

// valuationScore scores PER/PBR (lower is better)
func valuationScore(snap *contracts.RawSnapshot) (float64, bool) {
	per, perOK := snap.Field(contracts.FieldPER)
	pbr, pbrOK := snap.Field(contracts.FieldPBR)
	if !perOK || !pbrOK {
		return 0, false
	}

	// PER: 5 → 100점, 30 → 0점. 적자(PER<=0)는 0점.
	perScore := 0.0
	if per > 0 {
		perScore = clamp100((30 - per) / 25 * 100)
	}

	// PBR: 0.5 → 100점, 3.0 → 0점
	pbrScore := 0.0
	if pbr > 0 {
		pbrScore = clamp100((3.0 - pbr) / 2.5 * 100)
	}

	// PER 60%, PBR 40%
	return perScore*0.6 + pbrScore*0.4, true
}

// profitabilityScore scores ROE and operating margin (higher is better)
func profitabilityScore(snap *contracts.RawSnapshot) (float64, bool) {
	roe, roeOK := snap.Field(contracts.FieldROE)
	margin, marginOK := snap.Field(contracts.FieldOperatingMargin)
	if !roeOK || !marginOK {
		return 0, false
	}

	// ROE: 20% → 100점, 0% 이하 → 0점
	roeScore := clamp100(roe / 20 * 100)

	// 영업이익률: 15% → 100점
	marginScore := clamp100(margin / 15 * 100)

	// ROE 70%, margin 30%
	return roeScore*0.7 + marginScore*0.3, true
}

// stabilityScore scores the debt ratio (lower is better)
func stabilityScore(snap *contracts.RawSnapshot) (float64, bool) {
	debt, ok := snap.Field(contracts.FieldDebtRatio)
	if !ok {
		return 0, false
	}

	// 부채비율: 50% → 100점, 200% → 0점
	return clamp100((200 - debt) / 150 * 100), true
}

// externalScore averages whichever of the ESG/credit/analyst signals are
// present (each already on a 0~100 scale)
func externalScore(snap *contracts.RawSnapshot) (float64, bool) {
	sum := 0.0
	n := 0
	for _, field := range []string{contracts.FieldESG, contracts.FieldCredit, contracts.FieldAnalyst} {
		if v, ok := snap.Field(field); ok {
			sum += clamp100(v)
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

func clamp100(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
