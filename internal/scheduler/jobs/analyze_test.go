package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/screener/backend/internal/contracts"
	"github.com/wonny/screener/backend/internal/external/signals"
	"github.com/wonny/screener/backend/internal/pipeline"
	"github.com/wonny/screener/backend/internal/scoringconfig"
	"github.com/wonny/screener/backend/pkg/logger"
)

type stubSnapshots struct{}

func (stubSnapshots) FetchSnapshot(ctx context.Context, symbol string) (*contracts.RawSnapshot, error) {
	snap := contracts.NewRawSnapshot(symbol, "")
	snap.Set(contracts.FieldPrice, 72300)
	snap.Set(contracts.FieldPER, 10)
	snap.Set(contracts.FieldPBR, 1.2)
	snap.Set(contracts.FieldROE, 12)
	snap.Set(contracts.FieldOperatingMargin, 9)
	snap.Set(contracts.FieldDebtRatio, 80)
	snap.Set(contracts.FieldPriceTo52WHigh, 0.7)
	return snap, nil
}

type stubPeers struct{}

func (stubPeers) FetchSectorPeerStats(ctx context.Context, sector, metric string) (*contracts.PeerStats, error) {
	return &contracts.PeerStats{Sector: sector, Metric: metric, P25: 5, P50: 10, P75: 15, SampleSize: 100}, nil
}

func newTestJob(symbols ...string) *AnalyzeJob {
	cfg := scoringconfig.Default()
	cfg.Fetch.BackoffBase = time.Millisecond
	cfg.Fetch.BackoffCap = 2 * time.Millisecond
	for _, s := range symbols {
		cfg.Universe = append(cfg.Universe, scoringconfig.UniverseMember{
			Symbol: s, Name: s, Sector: "전기전자",
		})
	}

	p := pipeline.New(pipeline.Deps{
		Snapshots: stubSnapshots{},
		Peers:     stubPeers{},
		Signals:   signals.NewFixtureProvider(),
		Logger:    logger.NewNop(),
	})
	return NewAnalyzeJob(p, cfg, "", logger.NewNop())
}

func TestAnalyzeJob_Run(t *testing.T) {
	job := newTestJob("005930", "000660")

	err := job.Run(context.Background())
	require.NoError(t, err)
}

func TestAnalyzeJob_EmptyUniverse(t *testing.T) {
	job := newTestJob()

	err := job.Run(context.Background())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "universe")
}

func TestAnalyzeJob_Defaults(t *testing.T) {
	job := newTestJob("005930")

	assert.Equal(t, "analyze", job.Name())
	assert.Equal(t, "0 30 15 * * MON-FRI", job.Schedule())

	custom := NewAnalyzeJob(nil, scoringconfig.Default(), "@every 1h", logger.NewNop())
	assert.Equal(t, "@every 1h", custom.Schedule())
}
