package commands

import (
	"fmt"

	"github.com/wonny/screener/backend/internal/external/kis"
	"github.com/wonny/screener/backend/internal/external/naver"
	"github.com/wonny/screener/backend/internal/external/signals"
	"github.com/wonny/screener/backend/internal/pipeline"
	"github.com/wonny/screener/backend/internal/results"
	"github.com/wonny/screener/backend/internal/scoringconfig"
	"github.com/wonny/screener/backend/pkg/config"
	"github.com/wonny/screener/backend/pkg/database"
	"github.com/wonny/screener/backend/pkg/logger"
	"github.com/wonny/screener/backend/pkg/metrics"
	"github.com/wonny/screener/backend/pkg/ratebudget"
	"github.com/wonny/screener/backend/pkg/redis"
)

// app bundles the shared dependencies every command wires the same way.
// ⭐ SSOT: 의존성 조립은 buildApp()에서만
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	strategy *scoringconfig.Config
	pipeline *pipeline.Pipeline
	metrics  *metrics.Metrics
	repo     *results.Repository

	db  *database.DB
	rdb *redis.Client
}

// buildApp loads config and strategy, then assembles the pipeline with
// all its collaborators. Callers must defer a.Close().
func buildApp() (*app, error) {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	// 2. Initialize logger
	log := logger.New(cfg)

	// 3. Load strategy (flag overrides env)
	path := cfg.StrategyFile
	if strategyFile != "" {
		path = strategyFile
	}
	strategy, err := scoringconfig.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load strategy %s: %w", path, err)
	}

	log.WithFields(map[string]interface{}{
		"strategy": strategy.Meta.StrategyID,
		"universe": len(strategy.Universe),
	}).Info("Strategy loaded")

	// 4. Rate budget + external clients
	budget := ratebudget.New(strategy.Fetch.RateInterval)
	kisClient := kis.NewClient(cfg, budget, log)
	naverClient := naver.NewClient(cfg.Naver.BaseURL, log)

	// 5. Signal provider: BaseURL 미설정이면 결정적 픽스처
	var signalProvider signals.Provider
	if cfg.Signals.BaseURL != "" {
		signalProvider = signals.NewHTTPProvider(cfg.Signals.BaseURL, cfg.Signals.APIKey, log)
	} else {
		signalProvider = signals.NewFixtureProvider()
		log.Info("Using fixture signal provider")
	}

	a := &app{
		cfg:      cfg,
		log:      log,
		strategy: strategy,
	}

	// 6. Optional Redis warm tier
	rdb, err := redis.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	a.rdb = rdb

	// 7. Optional run history (PostgreSQL)
	if cfg.Database.Enabled {
		db, err := database.New(cfg)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		a.db = db
		a.repo = results.NewRepository(db.Pool)
		log.Info("Connected to database")
	}

	// 8. Metrics
	if cfg.MetricsEnabled {
		a.metrics = metrics.New()
	}

	// 9. Pipeline
	deps := pipeline.Deps{
		Snapshots: kisClient,
		Peers:     naverClient,
		Signals:   signalProvider,
		WarmCache: redis.NewCache(rdb, "screener"),
		Metrics:   a.metrics,
		Logger:    log,
	}
	if a.repo != nil {
		deps.Repo = a.repo
	}
	a.pipeline = pipeline.New(deps)

	return a, nil
}

// Close releases pooled connections
func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.log.WithError(err).Warn("Failed to close redis client")
		}
	}
}
