package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/screener/backend/internal/contracts"
	"github.com/wonny/screener/backend/internal/external/signals"
	"github.com/wonny/screener/backend/internal/gate"
	"github.com/wonny/screener/backend/internal/scoring"
	"github.com/wonny/screener/backend/internal/scoringconfig"
	"github.com/wonny/screener/backend/pkg/breaker"
	"github.com/wonny/screener/backend/pkg/logger"
	"github.com/wonny/screener/backend/pkg/metrics"
	"github.com/wonny/screener/backend/pkg/redis"
	"github.com/wonny/screener/backend/pkg/retry"
	"github.com/wonny/screener/backend/pkg/ttlcache"
)

// ErrAllInstrumentsFailed is the only hard pipeline-level error: every
// single instrument failed to fetch, meaning the source is unreachable.
var ErrAllInstrumentsFailed = errors.New("all instruments failed")

// SnapshotProvider supplies per-instrument market/financial snapshots
type SnapshotProvider interface {
	FetchSnapshot(ctx context.Context, symbol string) (*contracts.RawSnapshot, error)
}

// PeerStatsProvider supplies sector peer distributions for one metric
type PeerStatsProvider interface {
	FetchSectorPeerStats(ctx context.Context, sector, metric string) (*contracts.PeerStats, error)
}

// RunRepository persists completed runs (optional export step)
type RunRepository interface {
	SaveRun(ctx context.Context, result *contracts.PipelineResult) error
}

// Deps bundles the pipeline's collaborators. Snapshots, Peers and Signals
// are required; WarmCache, Repo and Metrics may be nil.
type Deps struct {
	Snapshots SnapshotProvider
	Peers     PeerStatsProvider
	Signals   signals.Provider
	WarmCache *redis.Cache
	Repo      RunRepository
	Metrics   *metrics.Metrics
	Logger    *logger.Logger
}

// Pipeline orchestrates fetch → score → filter → rank
// ⭐ SSOT: 분석 오케스트레이션은 여기서만
type Pipeline struct {
	deps      Deps
	breaker   *breaker.Breaker
	snapCache *ttlcache.Cache[*contracts.RawSnapshot]
	peerCache *ttlcache.Cache[*contracts.PeerStats]
	logger    *logger.Logger
}

// New creates a pipeline. Caches and the circuit breaker live for the
// pipeline's lifetime so repeated Analyze calls share them.
func New(deps Deps) *Pipeline {
	return &Pipeline{
		deps:      deps,
		breaker:   breaker.New("kis"),
		snapCache: ttlcache.New[*contracts.RawSnapshot](),
		peerCache: ttlcache.New[*contracts.PeerStats](),
		logger:    deps.Logger.WithField("module", "pipeline"),
	}
}

// scored is the per-instrument task result before ranking
type scored struct {
	score    *contracts.CompositeScore
	filtered *contracts.FilteredInstrument
}

// Analyze runs the full pipeline for the given instruments.
//
// 항상 부분 실패를 담은 결과를 반환한다. 단 하나의 예외: 성공이 0건이고
// 실패가 1건 이상이면 소스 전체 장애로 보고 ErrAllInstrumentsFailed.
func (p *Pipeline) Analyze(ctx context.Context, instruments []contracts.Instrument, cfg *scoringconfig.Config) (*contracts.PipelineResult, error) {
	start := time.Now()

	if cfg.Fetch.OverallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Fetch.OverallTimeout)
		defer cancel()
	}

	configHash, err := scoringconfig.Hash(cfg)
	if err != nil {
		return nil, fmt.Errorf("hash config: %w", err)
	}

	result := &contracts.PipelineResult{
		RunID:      uuid.NewString(),
		ConfigHash: configHash,
		StartedAt:  start,
		Ranked:     []contracts.CompositeScore{},
		Filtered:   []contracts.FilteredInstrument{},
		Failed:     []contracts.FailureRecord{},
	}

	p.logger.WithFields(map[string]interface{}{
		"run_id":      result.RunID,
		"instruments": len(instruments),
		"workers":     cfg.Fetch.MaxConcurrency,
		"strategy":    cfg.Meta.StrategyID,
	}).Info("Starting analyze run")

	aggregator := scoring.NewAggregator(cfg, p.deps.Logger)
	qualityGate := gate.New(cfg.Gate, p.deps.Logger)
	// maxRetries는 재시도 횟수: 총 시도는 +1
	executor := retry.NewExecutor(cfg.Fetch.MaxRetries+1, cfg.Fetch.BackoffBase, cfg.Fetch.BackoffCap)

	outcomes, failures := RunAll(ctx, instruments, cfg.Fetch.MaxConcurrency, p.deps.Logger,
		func(ctx context.Context, inst contracts.Instrument) (scored, error) {
			return p.analyzeOne(ctx, inst, cfg, executor, aggregator, qualityGate)
		})

	result.Failed = failures
	for _, o := range outcomes {
		if o.filtered != nil {
			result.Filtered = append(result.Filtered, *o.filtered)
			continue
		}
		result.Ranked = append(result.Ranked, *o.score)
	}

	// 점수 내림차순, 동점은 심볼 오름차순: 같은 입력 → 같은 출력
	sort.Slice(result.Ranked, func(i, j int) bool {
		if result.Ranked[i].Total != result.Ranked[j].Total {
			return result.Ranked[i].Total > result.Ranked[j].Total
		}
		return result.Ranked[i].Instrument.Symbol < result.Ranked[j].Instrument.Symbol
	})
	for i := range result.Ranked {
		result.Ranked[i].Rank = i + 1
	}

	result.Duration = time.Since(start)

	if p.deps.Metrics != nil {
		p.deps.Metrics.RunDuration.Observe(result.Duration.Seconds())
		p.deps.Metrics.RunInstruments.Observe(float64(len(instruments)))
	}

	p.logger.WithFields(map[string]interface{}{
		"run_id":   result.RunID,
		"ranked":   len(result.Ranked),
		"filtered": len(result.Filtered),
		"failed":   len(result.Failed),
		"duration": result.Duration,
	}).Info("Analyze run completed")

	if len(instruments) > 0 && result.Analyzed() == 0 && len(result.Failed) > 0 {
		return nil, fmt.Errorf("%w: %d/%d", ErrAllInstrumentsFailed, len(result.Failed), len(instruments))
	}

	if p.deps.Repo != nil {
		if err := p.deps.Repo.SaveRun(ctx, result); err != nil {
			// 저장 실패가 분석 결과를 버리게 하지는 않는다
			p.logger.WithError(err).Error("Failed to persist run")
		}
	}

	return result, nil
}

// analyzeOne is the per-instrument task: fetch → merge signals → gate → score
func (p *Pipeline) analyzeOne(
	ctx context.Context,
	inst contracts.Instrument,
	cfg *scoringconfig.Config,
	executor *retry.Executor,
	aggregator *scoring.Aggregator,
	qualityGate *gate.Gate,
) (scored, error) {
	snap, err := p.fetchSnapshot(ctx, inst, cfg, executor)
	if err != nil {
		return scored{}, err
	}

	peers := p.fetchPeers(ctx, inst.Sector, cfg)

	if ok, reason := qualityGate.Passes(snap); !ok {
		if p.deps.Metrics != nil {
			p.deps.Metrics.GateRejected.WithLabelValues(reason).Inc()
		}
		return scored{filtered: &contracts.FilteredInstrument{
			Instrument: inst,
			Reason:     reason,
		}}, nil
	}

	score := aggregator.Compose(inst, snap, peers)
	return scored{score: &score}, nil
}

// fetchSnapshot resolves the snapshot through the cache hierarchy:
// in-memory TTL cache → warm Redis tier → retried, breaker-guarded fetch.
// 외부 신호(ESG/신용/애널리스트)는 성공한 스냅샷에 병합된 채로 캐시된다.
func (p *Pipeline) fetchSnapshot(ctx context.Context, inst contracts.Instrument, cfg *scoringconfig.Config, executor *retry.Executor) (*contracts.RawSnapshot, error) {
	key := "snapshot:" + inst.Symbol

	return p.snapCache.GetOrCompute(ctx, key, cfg.Fetch.CacheTTL, func(ctx context.Context) (*contracts.RawSnapshot, error) {
		p.countCache("snapshot", "miss")

		// Warm tier: 프로세스 재시작 간 재사용 (정합성 경로 아님)
		if p.deps.WarmCache != nil {
			var cached contracts.RawSnapshot
			if found, err := p.deps.WarmCache.Get(ctx, key, &cached); err == nil && found {
				p.countCache("warm", "hit")
				return &cached, nil
			}
			p.countCache("warm", "miss")
		}

		snap, err := retry.Do(ctx, executor, func(ctx context.Context) (*contracts.RawSnapshot, error) {
			return p.guardedFetch(ctx, inst.Symbol)
		})
		if err != nil {
			p.countFetch("kis", "error")
			return nil, err
		}
		p.countFetch("kis", "ok")

		snap.Sector = inst.Sector
		p.mergeSignals(ctx, snap)

		if p.deps.WarmCache != nil {
			if err := p.deps.WarmCache.Set(ctx, key, snap, cfg.Fetch.CacheTTL); err != nil {
				p.logger.WithError(err).Warn("Warm cache write failed")
			}
		}

		return snap, nil
	})
}

// guardedFetch runs the provider call under the circuit breaker.
// 차단 중 에러는 transient: 재시도 경로에서 백오프 후 다시 시도된다.
func (p *Pipeline) guardedFetch(ctx context.Context, symbol string) (*contracts.RawSnapshot, error) {
	v, err := p.breaker.Execute(func() (any, error) {
		return p.deps.Snapshots.FetchSnapshot(ctx, symbol)
	})
	if err != nil {
		if errors.Is(err, breaker.ErrOpen) {
			return nil, retry.Transient(err)
		}
		return nil, err
	}
	return v.(*contracts.RawSnapshot), nil
}

// mergeSignals adds external qualitative signals into the snapshot.
// 실패는 데이터 품질 문제일 뿐 종목 분석을 중단시키지 않는다.
func (p *Pipeline) mergeSignals(ctx context.Context, snap *contracts.RawSnapshot) {
	values, err := p.deps.Signals.Fetch(ctx, snap.Symbol)
	if err != nil {
		p.logger.WithFields(map[string]interface{}{
			"symbol": snap.Symbol,
			"error":  err.Error(),
		}).Debug("External signals unavailable")
		return
	}

	snap.Set(contracts.FieldESG, values.ESG)
	snap.Set(contracts.FieldCredit, values.Credit)
	snap.Set(contracts.FieldAnalyst, values.Analyst)
}

// fetchPeers resolves sector peer stats through the peer cache.
// 수집 실패 시 nil을 반환해 해당 컴포넌트를 제외시킨다.
func (p *Pipeline) fetchPeers(ctx context.Context, sector string, cfg *scoringconfig.Config) *contracts.PeerStats {
	if sector == "" {
		return nil
	}

	key := "peers:" + sector + ":" + cfg.Percentile.Metric
	peers, err := p.peerCache.GetOrCompute(ctx, key, cfg.Fetch.PeerCacheTTL, func(ctx context.Context) (*contracts.PeerStats, error) {
		p.countCache("peers", "miss")
		stats, err := p.deps.Peers.FetchSectorPeerStats(ctx, sector, cfg.Percentile.Metric)
		if err != nil {
			p.countFetch("naver", "error")
			return nil, err
		}
		p.countFetch("naver", "ok")
		return stats, nil
	})
	if err != nil {
		p.logger.WithFields(map[string]interface{}{
			"sector": sector,
			"error":  err.Error(),
		}).Warn("Peer stats unavailable")
		return nil
	}
	return peers
}

// InvalidateCaches clears both caches (기초 데이터 일괄 갱신 후 사용)
func (p *Pipeline) InvalidateCaches() {
	p.snapCache.Clear()
	p.peerCache.Clear()
}

func (p *Pipeline) countCache(cache, outcome string) {
	if p.deps.Metrics != nil {
		p.deps.Metrics.CacheTotal.WithLabelValues(cache, outcome).Inc()
	}
}

func (p *Pipeline) countFetch(source, outcome string) {
	if p.deps.Metrics != nil {
		p.deps.Metrics.FetchTotal.WithLabelValues(source, outcome).Inc()
	}
}
