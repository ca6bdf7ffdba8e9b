package scoringconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/screener/backend/internal/contracts"
)

func writeStrategy(t *testing.T, yaml string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "strategy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	return path
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := writeStrategy(t, `
meta:
  strategy_id: test_v1
  version: "2.0"
weights:
  valuation: 0.5
  profitability: 0.5
  stability: 0
  sector_percentile: 0
  external: 0
fetch:
  rate_interval: 300ms
  max_concurrency: 4
universe:
  - { symbol: "005930", name: "삼성전자", sector: "전기전자" }
  - { symbol: "000660", name: "SK하이닉스", sector: "전기전자" }
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "test_v1", cfg.Meta.StrategyID)
	assert.Equal(t, 0.5, cfg.Weights.Valuation)
	assert.Equal(t, 0.0, cfg.Weights.External)
	assert.Equal(t, 300*time.Millisecond, cfg.Fetch.RateInterval)
	assert.Equal(t, 4, cfg.Fetch.MaxConcurrency)

	// YAML에 없는 필드는 기본값 유지
	assert.Equal(t, 3, cfg.Fetch.MaxRetries)
	assert.Equal(t, 10*time.Minute, cfg.Fetch.CacheTTL)
	assert.Equal(t, contracts.FieldROE, cfg.Percentile.Metric)

	instruments := cfg.Instruments()
	require.Len(t, instruments, 2)
	assert.Equal(t, "005930", instruments[0].Symbol)
	assert.Equal(t, "전기전자", instruments[0].Sector)
}

func TestLoad_UnknownFieldFails(t *testing.T) {
	path := writeStrategy(t, `
meta:
  strategy_id: test_v1
weihgts:
  valuation: 0.5
`)

	_, err := Load(path)
	require.Error(t, err, "typo in a top-level key must fail loading")
}

func TestLoad_BadDurationFails(t *testing.T) {
	path := writeStrategy(t, `
meta:
  strategy_id: test_v1
fetch:
  rate_interval: quickly
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate_interval")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{"defaults are valid", nil, ""},
		{"empty strategy id", func(c *Config) { c.Meta.StrategyID = "" }, "meta.strategy_id"},
		{"weight above one", func(c *Config) { c.Weights.Valuation = 1.5 }, "weights.valuation"},
		{"all weights zero", func(c *Config) { c.Weights = Weights{} }, "weights"},
		{"zero rate interval", func(c *Config) { c.Fetch.RateInterval = 0 }, "fetch.rate_interval"},
		{"zero concurrency", func(c *Config) { c.Fetch.MaxConcurrency = 0 }, "fetch.max_concurrency"},
		{"cap below base", func(c *Config) { c.Fetch.BackoffCap = c.Fetch.BackoffBase / 2 }, "fetch.backoff_cap"},
		{"unsupported percentile metric", func(c *Config) { c.Percentile.Metric = "price" }, "percentile.metric"},
		{"gate ratio above one", func(c *Config) { c.Gate.MaxPriceTo52WHigh = 1.2 }, "gate.max_price_to_52w_high"},
		{
			"duplicate universe symbol",
			func(c *Config) {
				c.Universe = []UniverseMember{
					{Symbol: "005930", Name: "a"},
					{Symbol: "005930", Name: "b"},
				}
			},
			"universe[1].symbol",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			if tt.mutate != nil {
				tt.mutate(cfg)
			}

			err := Validate(cfg)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var ve ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.wantField, ve.Field)
		})
	}
}

func TestHash_Deterministic(t *testing.T) {
	cfg := Default()

	h1, err := Hash(cfg)
	require.NoError(t, err)
	h2, err := Hash(cfg)
	require.NoError(t, err)

	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64)

	// 설정이 바뀌면 해시도 바뀐다
	cfg.Weights.Valuation = 0.26
	h3, err := Hash(cfg)
	require.NoError(t, err)
	assert.NotEqual(t, h1, h3)
}
