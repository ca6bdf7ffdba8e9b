package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/screener/backend/internal/contracts"
	"github.com/wonny/screener/backend/internal/external/signals"
	"github.com/wonny/screener/backend/internal/scoringconfig"
	"github.com/wonny/screener/backend/pkg/logger"
	"github.com/wonny/screener/backend/pkg/retry"
)

// fakeSnapshots serves canned snapshots per symbol, counting fetches
type fakeSnapshots struct {
	mu      sync.Mutex
	fields  map[string]map[string]float64
	errs    map[string]error
	fetches int32
}

func (f *fakeSnapshots) FetchSnapshot(ctx context.Context, symbol string) (*contracts.RawSnapshot, error) {
	atomic.AddInt32(&f.fetches, 1)

	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.errs[symbol]; ok {
		return nil, err
	}

	snap := contracts.NewRawSnapshot(symbol, "")
	for k, v := range f.fields[symbol] {
		snap.Set(k, v)
	}
	return snap, nil
}

type fakePeers struct {
	stats *contracts.PeerStats
	err   error
}

func (f *fakePeers) FetchSectorPeerStats(ctx context.Context, sector, metric string) (*contracts.PeerStats, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.stats != nil {
		return f.stats, nil
	}
	return &contracts.PeerStats{Sector: sector, Metric: metric, P25: 5, P50: 10, P75: 15, SampleSize: 100}, nil
}

// fakeSignals returns the same values for every symbol so composite
// totals stay comparable across instruments
type fakeSignals struct{}

func (fakeSignals) Fetch(ctx context.Context, symbol string) (*signals.Values, error) {
	return &signals.Values{ESG: 70, Credit: 65, Analyst: 75}, nil
}

type fakeRepo struct {
	mu    sync.Mutex
	saved []*contracts.PipelineResult
}

func (f *fakeRepo) SaveRun(ctx context.Context, result *contracts.PipelineResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, result)
	return nil
}

func healthy(roe float64) map[string]float64 {
	return map[string]float64{
		contracts.FieldPrice:           72300,
		contracts.FieldPER:             10,
		contracts.FieldPBR:             1.2,
		contracts.FieldROE:             roe,
		contracts.FieldOperatingMargin: 9,
		contracts.FieldDebtRatio:       80,
		contracts.FieldPriceTo52WHigh:  0.7,
	}
}

func testConfig(symbols ...string) *scoringconfig.Config {
	cfg := scoringconfig.Default()
	cfg.Fetch.BackoffBase = time.Millisecond
	cfg.Fetch.BackoffCap = 2 * time.Millisecond
	cfg.Fetch.MaxRetries = 1
	for _, s := range symbols {
		cfg.Universe = append(cfg.Universe, scoringconfig.UniverseMember{
			Symbol: s, Name: s, Sector: "전기전자",
		})
	}
	return cfg
}

func newTestPipeline(snaps *fakeSnapshots, peers PeerStatsProvider, repo RunRepository) *Pipeline {
	deps := Deps{
		Snapshots: snaps,
		Peers:     peers,
		Signals:   fakeSignals{},
		Repo:      repo,
		Logger:    logger.NewNop(),
	}
	return New(deps)
}

func TestAnalyze_RanksAllInstruments(t *testing.T) {
	snaps := &fakeSnapshots{fields: map[string]map[string]float64{
		"AAA": healthy(18), // 높은 ROE → 상위
		"BBB": healthy(8),
		"CCC": healthy(12),
	}}
	repo := &fakeRepo{}
	p := newTestPipeline(snaps, &fakePeers{}, repo)
	cfg := testConfig("AAA", "BBB", "CCC")

	result, err := p.Analyze(context.Background(), cfg.Instruments(), cfg)
	require.NoError(t, err)

	assert.NotEmpty(t, result.RunID)
	assert.Len(t, result.ConfigHash, 64)
	require.Len(t, result.Ranked, 3)
	assert.Empty(t, result.Filtered)
	assert.Empty(t, result.Failed)

	// 점수 내림차순, 랭크는 1부터
	for i, s := range result.Ranked {
		assert.Equal(t, i+1, s.Rank)
		if i > 0 {
			assert.GreaterOrEqual(t, result.Ranked[i-1].Total, s.Total)
		}
	}
	assert.Equal(t, "AAA", result.Ranked[0].Instrument.Symbol)

	// 결과는 저장소에도 기록
	require.Len(t, repo.saved, 1)
	assert.Equal(t, result.RunID, repo.saved[0].RunID)
}

func TestAnalyze_PermanentFailureIsolated(t *testing.T) {
	snaps := &fakeSnapshots{
		fields: map[string]map[string]float64{
			"AAA": healthy(12),
			"CCC": healthy(10),
		},
		errs: map[string]error{
			"BBB": retry.Permanent(errors.New("unknown symbol")),
		},
	}
	p := newTestPipeline(snaps, &fakePeers{}, nil)
	cfg := testConfig("AAA", "BBB", "CCC")

	result, err := p.Analyze(context.Background(), cfg.Instruments(), cfg)
	require.NoError(t, err, "partial failure must not fail the run")

	assert.Len(t, result.Ranked, 2)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, "BBB", result.Failed[0].Symbol)
	assert.Equal(t, contracts.FailurePermanent, result.Failed[0].Class)
	assert.Equal(t, 1, result.Failed[0].Attempts, "permanent failures are not retried")
}

func TestAnalyze_TransientFailureRetried(t *testing.T) {
	snaps := &fakeSnapshots{
		errs: map[string]error{
			"AAA": retry.Transient(errors.New("upstream flapping")),
		},
		fields: map[string]map[string]float64{"BBB": healthy(12)},
	}
	p := newTestPipeline(snaps, &fakePeers{}, nil)
	cfg := testConfig("AAA", "BBB")

	result, err := p.Analyze(context.Background(), cfg.Instruments(), cfg)
	require.NoError(t, err)

	require.Len(t, result.Failed, 1)
	assert.Equal(t, contracts.FailureTransient, result.Failed[0].Class)
	// max_retries=1 → 총 2회 시도
	assert.Equal(t, 2, result.Failed[0].Attempts)
}

func TestAnalyze_GateRejectionFiltered(t *testing.T) {
	low := healthy(2) // ROE 2 < min_roe 5
	snaps := &fakeSnapshots{fields: map[string]map[string]float64{
		"AAA": healthy(12),
		"BBB": low,
	}}
	p := newTestPipeline(snaps, &fakePeers{}, nil)
	cfg := testConfig("AAA", "BBB")

	result, err := p.Analyze(context.Background(), cfg.Instruments(), cfg)
	require.NoError(t, err)

	assert.Len(t, result.Ranked, 1)
	require.Len(t, result.Filtered, 1)
	assert.Equal(t, "BBB", result.Filtered[0].Instrument.Symbol)
	assert.Equal(t, "roe_below_floor", result.Filtered[0].Reason)
	assert.Empty(t, result.Failed)

	// 필터링은 분석 성공: Analyzed에 포함
	assert.Equal(t, 2, result.Analyzed())
}

func TestAnalyze_AllFailed(t *testing.T) {
	snaps := &fakeSnapshots{errs: map[string]error{
		"AAA": retry.Permanent(errors.New("down")),
		"BBB": retry.Permanent(errors.New("down")),
	}}
	p := newTestPipeline(snaps, &fakePeers{}, nil)
	cfg := testConfig("AAA", "BBB")

	result, err := p.Analyze(context.Background(), cfg.Instruments(), cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAllInstrumentsFailed)
	assert.Nil(t, result)
}

func TestAnalyze_SnapshotCacheReused(t *testing.T) {
	snaps := &fakeSnapshots{fields: map[string]map[string]float64{"AAA": healthy(12)}}
	p := newTestPipeline(snaps, &fakePeers{}, nil)
	cfg := testConfig("AAA")

	_, err := p.Analyze(context.Background(), cfg.Instruments(), cfg)
	require.NoError(t, err)
	first := atomic.LoadInt32(&snaps.fetches)

	_, err = p.Analyze(context.Background(), cfg.Instruments(), cfg)
	require.NoError(t, err)

	assert.Equal(t, first, atomic.LoadInt32(&snaps.fetches),
		"second run within TTL must be served from cache")

	p.InvalidateCaches()
	_, err = p.Analyze(context.Background(), cfg.Instruments(), cfg)
	require.NoError(t, err)
	assert.Greater(t, atomic.LoadInt32(&snaps.fetches), first)
}

func TestAnalyze_PeerFailureExcludesComponent(t *testing.T) {
	snaps := &fakeSnapshots{fields: map[string]map[string]float64{"AAA": healthy(12)}}
	p := newTestPipeline(snaps, &fakePeers{err: errors.New("scrape blocked")}, nil)
	cfg := testConfig("AAA")

	result, err := p.Analyze(context.Background(), cfg.Instruments(), cfg)
	require.NoError(t, err, "peer stats are enrichment, not a hard dependency")

	require.Len(t, result.Ranked, 1)
	comp, ok := result.Ranked[0].Component(contracts.CategorySectorPercentile)
	require.True(t, ok)
	assert.False(t, comp.Available)
}

func TestAnalyze_SignalsMergedIntoExternalScore(t *testing.T) {
	// 스냅샷 자체에는 외부 신호가 없어도 provider 값이 병합된다
	snaps := &fakeSnapshots{fields: map[string]map[string]float64{"AAA": healthy(12)}}
	p := newTestPipeline(snaps, &fakePeers{}, nil)
	cfg := testConfig("AAA")

	result, err := p.Analyze(context.Background(), cfg.Instruments(), cfg)
	require.NoError(t, err)

	comp, ok := result.Ranked[0].Component(contracts.CategoryExternal)
	require.True(t, ok)
	assert.True(t, comp.Available)
	assert.InDelta(t, 70.0, comp.Score, 0.01) // (70+65+75)/3
}

func TestAnalyze_EmptyUniverse(t *testing.T) {
	p := newTestPipeline(&fakeSnapshots{}, &fakePeers{}, nil)
	cfg := testConfig()

	result, err := p.Analyze(context.Background(), nil, cfg)
	require.NoError(t, err)
	assert.Empty(t, result.Ranked)
	assert.Empty(t, result.Failed)
}

func TestAnalyze_TieBreakBySymbol(t *testing.T) {
	// 동일 스냅샷 → 동점: 심볼 오름차순으로 안정된 순서
	snaps := &fakeSnapshots{fields: map[string]map[string]float64{
		"ZZZ": healthy(12),
		"AAA": healthy(12),
		"MMM": healthy(12),
	}}
	p := newTestPipeline(snaps, &fakePeers{}, nil)
	cfg := testConfig("ZZZ", "AAA", "MMM")

	result, err := p.Analyze(context.Background(), cfg.Instruments(), cfg)
	require.NoError(t, err)

	require.Len(t, result.Ranked, 3)
	assert.Equal(t, "AAA", result.Ranked[0].Instrument.Symbol)
	assert.Equal(t, "MMM", result.Ranked[1].Instrument.Symbol)
	assert.Equal(t, "ZZZ", result.Ranked[2].Instrument.Symbol)
}
