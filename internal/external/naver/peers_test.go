package naver

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/screener/backend/internal/contracts"
	"github.com/wonny/screener/backend/pkg/logger"
)

const sectorHTML = `
<html><body>
<table class="type_5">
  <tr><th>종목명</th><th>현재가</th><th>전일비</th><th>등락률</th><th>PER</th><th>PBR</th><th>ROE</th></tr>
  <tr><td>삼성전자</td><td>72,300</td><td>+500</td><td>+0.70%</td><td>12.5</td><td>1.4</td><td>10.2</td></tr>
  <tr><td>SK하이닉스</td><td>198,000</td><td>-1,000</td><td>-0.50%</td><td>8.3</td><td>2.1</td><td>15.8</td></tr>
  <tr><td>LG전자</td><td>91,500</td><td>0</td><td>0.00%</td><td>10.0</td><td>0.9</td><td>7.4</td></tr>
  <tr><td>적자기업</td><td>1,200</td><td>0</td><td>0.00%</td><td>N/A</td><td>0.4</td><td>-</td></tr>
</table>
</body></html>`

func TestParsePeerColumn(t *testing.T) {
	// ROE 컬럼(6): "-"는 건너뛴다
	values, err := parsePeerColumn(sectorHTML, 6)
	require.NoError(t, err)
	assert.Equal(t, []float64{10.2, 15.8, 7.4}, values)

	// PER 컬럼(4): "N/A"는 건너뛴다
	values, err = parsePeerColumn(sectorHTML, 4)
	require.NoError(t, err)
	assert.Equal(t, []float64{12.5, 8.3, 10.0}, values)
}

func TestParsePeerColumn_NoTable(t *testing.T) {
	_, err := parsePeerColumn("<html><body><p>점검 중</p></body></html>", 6)
	require.Error(t, err)
}

func TestParseNum(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"1,234.56", 1234.56, true},
		{"  10.2  ", 10.2, true},
		{"-5.5", -5.5, true},
		{"-", 0, false},
		{"N/A", 0, false},
		{"", 0, false},
		{"abc", 0, false},
	}

	for _, tt := range tests {
		got, ok := parseNum(tt.in)
		assert.Equal(t, tt.ok, ok, "input %q", tt.in)
		if tt.ok {
			assert.Equal(t, tt.want, got, "input %q", tt.in)
		}
	}
}

func TestComputeStats(t *testing.T) {
	// 1..9: p25=3, p50=5, p75=7
	values := []float64{9, 1, 5, 3, 7, 2, 8, 4, 6}
	stats := computeStats(values)

	assert.Equal(t, 9, stats.SampleSize)
	assert.InDelta(t, 3, stats.P25, 0.01)
	assert.InDelta(t, 5, stats.P50, 0.01)
	assert.InDelta(t, 7, stats.P75, 0.01)
}

func TestComputeStats_Empty(t *testing.T) {
	stats := computeStats(nil)
	assert.Equal(t, 0, stats.SampleSize)
}

func TestQuantile_Interpolates(t *testing.T) {
	sorted := []float64{10, 20, 30, 40}
	assert.InDelta(t, 17.5, quantile(sorted, 0.25), 0.01)
	assert.InDelta(t, 25, quantile(sorted, 0.50), 0.01)
	assert.InDelta(t, 40, quantile(sorted, 1.0), 0.01)
	assert.Equal(t, 5.0, quantile([]float64{5}, 0.5))
}

func TestFetchSectorPeerStats(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/sise/sise_group_detail.naver", r.URL.Path)
		assert.Equal(t, "upjong", r.URL.Query().Get("type"))
		fmt.Fprint(w, sectorHTML)
	}))
	defer server.Close()

	c := NewClient(server.URL, logger.NewNop())

	stats, err := c.FetchSectorPeerStats(context.Background(), "전기전자", contracts.FieldROE)
	require.NoError(t, err)
	assert.Equal(t, "전기전자", stats.Sector)
	assert.Equal(t, contracts.FieldROE, stats.Metric)
	assert.Equal(t, 3, stats.SampleSize)
	assert.InDelta(t, 10.2, stats.P50, 0.01)
}

func TestFetchSectorPeerStats_UnknownSector(t *testing.T) {
	c := NewClient("http://unused.invalid", logger.NewNop())

	stats, err := c.FetchSectorPeerStats(context.Background(), "없는업종", contracts.FieldROE)
	require.NoError(t, err, "unknown sector is an empty sample, not an error")
	assert.Equal(t, 0, stats.SampleSize)
}

func TestFetchSectorPeerStats_UnsupportedMetric(t *testing.T) {
	c := NewClient("http://unused.invalid", logger.NewNop())

	_, err := c.FetchSectorPeerStats(context.Background(), "전기전자", "price")
	require.Error(t, err)
}
