package scoringconfig

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wonny/screener/backend/internal/contracts"
)

// Config is the typed screening strategy configuration.
// 느슨한 중첩 dict 금지: 모든 필드는 이름과 기본값, 검증 규칙을 가진다.
// ⭐ SSOT: config/strategy/*.yaml 의 스키마는 이 파일에서만
type Config struct {
	Meta       Meta             `yaml:"meta" json:"meta"`
	Weights    Weights          `yaml:"weights" json:"weights"`
	Fetch      Fetch            `yaml:"fetch" json:"fetch"`
	Percentile Percentile       `yaml:"percentile" json:"percentile"`
	Gate       Gate             `yaml:"gate" json:"gate"`
	Risk       Risk             `yaml:"risk" json:"risk"`
	Universe   []UniverseMember `yaml:"universe" json:"universe"`
}

// Meta identifies the strategy
type Meta struct {
	StrategyID string `yaml:"strategy_id" json:"strategy_id"`
	Version    string `yaml:"version" json:"version"`
}

// Weights maps score categories to weights in [0,1].
// 합이 1일 필요는 없다: 가용 컴포넌트 기준으로 항상 재정규화된다.
type Weights struct {
	Valuation        float64 `yaml:"valuation" json:"valuation"`
	Profitability    float64 `yaml:"profitability" json:"profitability"`
	Stability        float64 `yaml:"stability" json:"stability"`
	SectorPercentile float64 `yaml:"sector_percentile" json:"sector_percentile"`
	External         float64 `yaml:"external" json:"external"`
}

// ByCategory returns the weight for a contracts category name
func (w Weights) ByCategory(category string) float64 {
	switch category {
	case contracts.CategoryValuation:
		return w.Valuation
	case contracts.CategoryProfitability:
		return w.Profitability
	case contracts.CategoryStability:
		return w.Stability
	case contracts.CategorySectorPercentile:
		return w.SectorPercentile
	case contracts.CategoryExternal:
		return w.External
	default:
		return 0
	}
}

// Fetch controls pacing, caching, retry and concurrency
type Fetch struct {
	RateInterval   time.Duration `yaml:"rate_interval" json:"rate_interval"`
	CacheTTL       time.Duration `yaml:"cache_ttl" json:"cache_ttl"`
	PeerCacheTTL   time.Duration `yaml:"peer_cache_ttl" json:"peer_cache_ttl"`
	MaxConcurrency int           `yaml:"max_concurrency" json:"max_concurrency"`
	MaxRetries     int           `yaml:"max_retries" json:"max_retries"`
	BackoffBase    time.Duration `yaml:"backoff_base" json:"backoff_base"`
	BackoffCap     time.Duration `yaml:"backoff_cap" json:"backoff_cap"`
	OverallTimeout time.Duration `yaml:"overall_timeout" json:"overall_timeout"`
}

// fetchYAML is the wire form of Fetch: durations are "200ms"/"10m" strings.
// 포인터 필드: YAML에 없는 키는 Default() 값을 덮어쓰지 않는다.
type fetchYAML struct {
	RateInterval   *string `yaml:"rate_interval"`
	CacheTTL       *string `yaml:"cache_ttl"`
	PeerCacheTTL   *string `yaml:"peer_cache_ttl"`
	MaxConcurrency *int    `yaml:"max_concurrency"`
	MaxRetries     *int    `yaml:"max_retries"`
	BackoffBase    *string `yaml:"backoff_base"`
	BackoffCap     *string `yaml:"backoff_cap"`
	OverallTimeout *string `yaml:"overall_timeout"`
}

// UnmarshalYAML decodes durations via time.ParseDuration
func (f *Fetch) UnmarshalYAML(value *yaml.Node) error {
	var raw fetchYAML
	if err := value.Decode(&raw); err != nil {
		return err
	}

	setDuration := func(dst *time.Duration, src *string, name string) error {
		if src == nil {
			return nil
		}
		d, err := time.ParseDuration(*src)
		if err != nil {
			return fmt.Errorf("fetch.%s: %w", name, err)
		}
		*dst = d
		return nil
	}

	if err := setDuration(&f.RateInterval, raw.RateInterval, "rate_interval"); err != nil {
		return err
	}
	if err := setDuration(&f.CacheTTL, raw.CacheTTL, "cache_ttl"); err != nil {
		return err
	}
	if err := setDuration(&f.PeerCacheTTL, raw.PeerCacheTTL, "peer_cache_ttl"); err != nil {
		return err
	}
	if err := setDuration(&f.BackoffBase, raw.BackoffBase, "backoff_base"); err != nil {
		return err
	}
	if err := setDuration(&f.BackoffCap, raw.BackoffCap, "backoff_cap"); err != nil {
		return err
	}
	if err := setDuration(&f.OverallTimeout, raw.OverallTimeout, "overall_timeout"); err != nil {
		return err
	}
	if raw.MaxConcurrency != nil {
		f.MaxConcurrency = *raw.MaxConcurrency
	}
	if raw.MaxRetries != nil {
		f.MaxRetries = *raw.MaxRetries
	}
	return nil
}

// Percentile controls sector-relative percentile scoring
type Percentile struct {
	Metric            string  `yaml:"metric" json:"metric"`                         // snapshot field compared against peers
	MinPeerSample     int     `yaml:"min_peer_sample" json:"min_peer_sample"`       // below this → neutral 50
	DegenerateEpsilon float64 `yaml:"degenerate_epsilon" json:"degenerate_epsilon"` // IQR below this → neutral 50
}

// Gate holds hard-cut quality thresholds applied before ranking
type Gate struct {
	MinROE             float64 `yaml:"min_roe" json:"min_roe"`                             // %
	MaxDebtRatio       float64 `yaml:"max_debt_ratio" json:"max_debt_ratio"`               // %
	MinOperatingMargin float64 `yaml:"min_operating_margin" json:"min_operating_margin"`   // %
	MaxPriceTo52WHigh  float64 `yaml:"max_price_to_52w_high" json:"max_price_to_52w_high"` // 0~1
}

// Risk holds soft-guard triggers. 발동 시 추천 등급을 정확히 한 단계만
// 낮춘다 (즉시 최악 라벨 강제 금지).
type Risk struct {
	MaxDebtRatio      float64 `yaml:"max_debt_ratio" json:"max_debt_ratio"`
	MaxPriceTo52WHigh float64 `yaml:"max_price_to_52w_high" json:"max_price_to_52w_high"`
}

// UniverseMember is one instrument in the configured analysis universe
type UniverseMember struct {
	Symbol string `yaml:"symbol" json:"symbol"`
	Name   string `yaml:"name" json:"name"`
	Sector string `yaml:"sector" json:"sector"`
}

// Instruments converts the configured universe to contract instruments
func (c *Config) Instruments() []contracts.Instrument {
	out := make([]contracts.Instrument, 0, len(c.Universe))
	for _, m := range c.Universe {
		out = append(out, contracts.Instrument{
			Symbol: m.Symbol,
			Name:   m.Name,
			Sector: m.Sector,
		})
	}
	return out
}

// Default returns the baseline strategy configuration
func Default() *Config {
	return &Config{
		Meta: Meta{
			StrategyID: "korea_value_v1",
			Version:    "1.0",
		},
		Weights: Weights{
			Valuation:        0.25,
			Profitability:    0.25,
			Stability:        0.15,
			SectorPercentile: 0.20,
			External:         0.15,
		},
		Fetch: Fetch{
			RateInterval:   200 * time.Millisecond,
			CacheTTL:       10 * time.Minute,
			PeerCacheTTL:   1 * time.Hour,
			MaxConcurrency: 8,
			MaxRetries:     3,
			BackoffBase:    500 * time.Millisecond,
			BackoffCap:     8 * time.Second,
			OverallTimeout: 10 * time.Minute,
		},
		Percentile: Percentile{
			Metric:            contracts.FieldROE,
			MinPeerSample:     25,
			DegenerateEpsilon: 1e-6,
		},
		Gate: Gate{
			MinROE:             5.0,
			MaxDebtRatio:       200.0,
			MinOperatingMargin: 3.0,
			MaxPriceTo52WHigh:  0.95,
		},
		Risk: Risk{
			MaxDebtRatio:      250.0,
			MaxPriceTo52WHigh: 0.92,
		},
	}
}
