package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/screener/backend/internal/scheduler"
	"github.com/wonny/screener/backend/internal/scheduler/jobs"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "스케줄러 관리",
	Long: `스케줄러를 시작하거나 작업을 관리합니다.

이 명령어는:
- 스케줄러 데몬 시작
- 특정 작업 즉시 실행
- 작업 실행 이력 조회

등록되는 작업:
- analyze: 평일 장 마감(15:30) 직후 전체 유니버스 분석

Example:
  go run ./cmd/screener scheduler start
  go run ./cmd/screener scheduler run analyze
  go run ./cmd/screener scheduler status analyze`,
}

var (
	schedulerCron string

	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "스케줄러 시작",
		Long: `스케줄러를 시작하고 등록된 모든 작업을 스케줄합니다.

스케줄러는 Ctrl+C로 종료할 수 있습니다.`,
		RunE: runScheduler,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "특정 작업 즉시 실행",
		Args:  cobra.ExactArgs(1),
		RunE:  runSchedulerJob,
	}

	schedulerStatusCmd = &cobra.Command{
		Use:   "status [job_name]",
		Short: "작업 실행 이력 조회",
		Args:  cobra.ExactArgs(1),
		RunE:  showSchedulerStatus,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
	schedulerCmd.AddCommand(schedulerStatusCmd)

	schedulerStartCmd.Flags().StringVar(&schedulerCron, "cron", "", "analyze 작업 cron 표현식 (초 포함 6필드)")
}

// initScheduler builds the scheduler with all jobs registered. The
// returned app owns the pooled connections; callers defer a.Close().
func initScheduler() (*scheduler.Scheduler, *app, error) {
	a, err := buildApp()
	if err != nil {
		return nil, nil, err
	}

	sched := scheduler.New(a.log)

	analyzeJob := jobs.NewAnalyzeJob(a.pipeline, a.strategy, schedulerCron, a.log)
	if err := sched.AddJob(analyzeJob); err != nil {
		a.Close()
		return nil, nil, fmt.Errorf("register analyze job: %w", err)
	}

	return sched, a, nil
}

func runScheduler(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Screener Scheduler ===")

	sched, a, err := initScheduler()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer a.Close()

	sched.Start()

	fmt.Println("\n✅ Scheduler started successfully")
	fmt.Println("\nRegistered jobs:")
	fmt.Println("  - analyze")
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	a.log.Info("Stopping scheduler...")
	sched.Stop()
	a.log.Info("Scheduler stopped")
	return nil
}

func runSchedulerJob(cmd *cobra.Command, args []string) error {
	jobName := args[0]
	fmt.Printf("=== Run job: %s ===\n", jobName)

	sched, a, err := initScheduler()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer a.Close()

	if err := sched.RunJob(jobName); err != nil {
		return fmt.Errorf("run job %s: %w", jobName, err)
	}

	fmt.Printf("\n✅ Job %s completed\n", jobName)
	return nil
}

func showSchedulerStatus(cmd *cobra.Command, args []string) error {
	jobName := args[0]

	sched, a, err := initScheduler()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer a.Close()

	history := sched.History(jobName)
	if len(history) == 0 {
		fmt.Printf("No execution history for job %q\n", jobName)
		return nil
	}

	fmt.Printf("Execution history for %q:\n", jobName)
	for _, r := range history {
		status := "✅"
		if !r.Success {
			status = "❌"
		}
		fmt.Printf("  %s %s  %.2fs", status, r.StartTime.Format("2006-01-02 15:04:05"), r.Duration.Seconds())
		if r.Error != "" {
			fmt.Printf("  %s", r.Error)
		}
		fmt.Println()
	}
	return nil
}
