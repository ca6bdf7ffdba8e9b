package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/screener/backend/internal/pipeline"
	"github.com/wonny/screener/backend/internal/scoringconfig"
	"github.com/wonny/screener/backend/pkg/logger"
)

// AnalyzeJob runs the screening pipeline on a schedule.
// 실시간 스트림이 아니라 주기 폴링: 장중에는 스케줄 주기가 곧 데이터 신선도.
type AnalyzeJob struct {
	pipeline *pipeline.Pipeline
	strategy *scoringconfig.Config
	schedule string
	logger   *logger.Logger
}

// NewAnalyzeJob creates the scheduled analyze job
func NewAnalyzeJob(p *pipeline.Pipeline, strategy *scoringconfig.Config, schedule string, log *logger.Logger) *AnalyzeJob {
	if schedule == "" {
		schedule = "0 30 15 * * MON-FRI" // 장 마감(15:30) 직후
	}
	return &AnalyzeJob{
		pipeline: p,
		strategy: strategy,
		schedule: schedule,
		logger:   log.WithField("job", "analyze"),
	}
}

// Name returns the job name
func (j *AnalyzeJob) Name() string {
	return "analyze"
}

// Schedule returns the cron expression
func (j *AnalyzeJob) Schedule() string {
	return j.schedule
}

// Run executes one full analyze run over the strategy universe
func (j *AnalyzeJob) Run(ctx context.Context) error {
	instruments := j.strategy.Instruments()
	if len(instruments) == 0 {
		return fmt.Errorf("strategy universe is empty")
	}

	result, err := j.pipeline.Analyze(ctx, instruments, j.strategy)
	if err != nil {
		return fmt.Errorf("scheduled analyze: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"run_id":   result.RunID,
		"ranked":   len(result.Ranked),
		"filtered": len(result.Filtered),
		"failed":   len(result.Failed),
	}).Info("Scheduled analyze completed")

	return nil
}
