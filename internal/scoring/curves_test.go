package scoring

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wonny/screener/backend/internal/contracts"
)

func snapWith(fields map[string]float64) *contracts.RawSnapshot {
	snap := contracts.NewRawSnapshot("005930", "전기전자")
	for k, v := range fields {
		snap.Set(k, v)
	}
	return snap
}

func TestValuationScore(t *testing.T) {
	tests := []struct {
		name   string
		fields map[string]float64
		want   float64
		ok     bool
	}{
		{
			name:   "cheap multiples score high",
			fields: map[string]float64{contracts.FieldPER: 5, contracts.FieldPBR: 0.5},
			want:   100,
			ok:     true,
		},
		{
			name:   "expensive multiples score zero",
			fields: map[string]float64{contracts.FieldPER: 30, contracts.FieldPBR: 3.0},
			want:   0,
			ok:     true,
		},
		{
			name:   "negative PER treated as worst",
			fields: map[string]float64{contracts.FieldPER: -4, contracts.FieldPBR: 0.5},
			want:   40, // PER 0점 * 0.6 + PBR 100점 * 0.4
			ok:     true,
		},
		{
			name:   "missing PBR drops the component",
			fields: map[string]float64{contracts.FieldPER: 8},
			ok:     false,
		},
		{
			name:   "missing everything",
			fields: nil,
			ok:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := valuationScore(snapWith(tt.fields))
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.InDelta(t, tt.want, got, 0.01)
			}
		})
	}
}

func TestProfitabilityScore(t *testing.T) {
	tests := []struct {
		name   string
		fields map[string]float64
		want   float64
		ok     bool
	}{
		{
			name:   "strong ROE and margin",
			fields: map[string]float64{contracts.FieldROE: 20, contracts.FieldOperatingMargin: 15},
			want:   100,
			ok:     true,
		},
		{
			name:   "loss-making company",
			fields: map[string]float64{contracts.FieldROE: -10, contracts.FieldOperatingMargin: -5},
			want:   0,
			ok:     true,
		},
		{
			name:   "mid-range",
			fields: map[string]float64{contracts.FieldROE: 10, contracts.FieldOperatingMargin: 7.5},
			want:   50,
			ok:     true,
		},
		{
			name:   "missing margin drops the component",
			fields: map[string]float64{contracts.FieldROE: 10},
			ok:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := profitabilityScore(snapWith(tt.fields))
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.InDelta(t, tt.want, got, 0.01)
			}
		})
	}
}

func TestStabilityScore(t *testing.T) {
	got, ok := stabilityScore(snapWith(map[string]float64{contracts.FieldDebtRatio: 50}))
	assert.True(t, ok)
	assert.InDelta(t, 100, got, 0.01)

	got, ok = stabilityScore(snapWith(map[string]float64{contracts.FieldDebtRatio: 350}))
	assert.True(t, ok)
	assert.Equal(t, 0.0, got)

	_, ok = stabilityScore(snapWith(nil))
	assert.False(t, ok)
}

func TestExternalScore(t *testing.T) {
	// 세 신호 모두
	got, ok := externalScore(snapWith(map[string]float64{
		contracts.FieldESG:     80,
		contracts.FieldCredit:  60,
		contracts.FieldAnalyst: 70,
	}))
	assert.True(t, ok)
	assert.InDelta(t, 70, got, 0.01)

	// 일부만 있어도 가용한 것의 평균
	got, ok = externalScore(snapWith(map[string]float64{contracts.FieldESG: 90}))
	assert.True(t, ok)
	assert.InDelta(t, 90, got, 0.01)

	// 하나도 없으면 제외
	_, ok = externalScore(snapWith(nil))
	assert.False(t, ok)
}

func TestClamp100(t *testing.T) {
	assert.Equal(t, 0.0, clamp100(-10))
	assert.Equal(t, 100.0, clamp100(250))
	assert.Equal(t, 55.5, clamp100(55.5))
}

func TestSnapshotSet_DropsNonFinite(t *testing.T) {
	snap := contracts.NewRawSnapshot("005930", "전기전자")
	snap.Set(contracts.FieldROE, math.NaN())
	snap.Set(contracts.FieldPER, math.Inf(1))

	_, ok := snap.Field(contracts.FieldROE)
	assert.False(t, ok)
	_, ok = snap.Field(contracts.FieldPER)
	assert.False(t, ok)
}
