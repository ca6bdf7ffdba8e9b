package scoringconfig

import (
	"fmt"
	"time"

	"github.com/wonny/screener/backend/internal/contracts"
)

// ValidationError 검증 실패 (프로그램 중단)
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks all required constraints
// 실패 시 error 반환 (프로그램 중단)
func Validate(cfg *Config) error {
	// === Meta ===
	if cfg.Meta.StrategyID == "" {
		return ValidationError{"meta.strategy_id", "required"}
	}

	// === Weights ===
	weights := map[string]float64{
		"weights.valuation":         cfg.Weights.Valuation,
		"weights.profitability":     cfg.Weights.Profitability,
		"weights.stability":         cfg.Weights.Stability,
		"weights.sector_percentile": cfg.Weights.SectorPercentile,
		"weights.external":          cfg.Weights.External,
	}
	sum := 0.0
	for field, w := range weights {
		if w < 0 || w > 1 {
			return ValidationError{field, "must be in [0, 1]"}
		}
		sum += w
	}
	if sum <= 0 {
		return ValidationError{"weights", "at least one weight must be positive"}
	}

	// === Fetch ===
	if cfg.Fetch.RateInterval <= 0 {
		return ValidationError{"fetch.rate_interval", "must be positive"}
	}
	if cfg.Fetch.CacheTTL <= 0 {
		return ValidationError{"fetch.cache_ttl", "must be positive"}
	}
	if cfg.Fetch.MaxConcurrency < 1 {
		return ValidationError{"fetch.max_concurrency", "must be at least 1"}
	}
	if cfg.Fetch.MaxRetries < 0 {
		return ValidationError{"fetch.max_retries", "must not be negative"}
	}
	if cfg.Fetch.BackoffBase <= 0 {
		return ValidationError{"fetch.backoff_base", "must be positive"}
	}
	if cfg.Fetch.BackoffCap < cfg.Fetch.BackoffBase {
		return ValidationError{"fetch.backoff_cap", "must be >= backoff_base"}
	}
	if cfg.Fetch.OverallTimeout < time.Second {
		return ValidationError{"fetch.overall_timeout", "must be at least 1s"}
	}

	// === Percentile ===
	if cfg.Percentile.Metric == "" {
		return ValidationError{"percentile.metric", "required"}
	}
	if cfg.Percentile.MinPeerSample < 1 {
		return ValidationError{"percentile.min_peer_sample", "must be at least 1"}
	}
	if cfg.Percentile.DegenerateEpsilon <= 0 {
		return ValidationError{"percentile.degenerate_epsilon", "must be positive"}
	}

	// === Gate ===
	if cfg.Gate.MaxDebtRatio <= 0 {
		return ValidationError{"gate.max_debt_ratio", "must be positive"}
	}
	if cfg.Gate.MaxPriceTo52WHigh <= 0 || cfg.Gate.MaxPriceTo52WHigh > 1 {
		return ValidationError{"gate.max_price_to_52w_high", "must be in (0, 1]"}
	}

	// === Risk ===
	if cfg.Risk.MaxPriceTo52WHigh <= 0 || cfg.Risk.MaxPriceTo52WHigh > 1 {
		return ValidationError{"risk.max_price_to_52w_high", "must be in (0, 1]"}
	}

	// === Universe ===
	seen := make(map[string]bool, len(cfg.Universe))
	for i, m := range cfg.Universe {
		if m.Symbol == "" {
			return ValidationError{fmt.Sprintf("universe[%d].symbol", i), "required"}
		}
		if seen[m.Symbol] {
			return ValidationError{fmt.Sprintf("universe[%d].symbol", i), "duplicate"}
		}
		seen[m.Symbol] = true
	}

	// percentile metric must be a known snapshot field
	switch cfg.Percentile.Metric {
	case contracts.FieldROE, contracts.FieldPER, contracts.FieldPBR, contracts.FieldOperatingMargin:
	default:
		return ValidationError{"percentile.metric", "unsupported metric"}
	}

	return nil
}
