package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/screener/backend/internal/api"
	"github.com/wonny/screener/backend/internal/api/handlers"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `REST API 서버를 시작합니다.

이 명령어는:
- HTTP API 서버 시작
- 분석 트리거 엔드포인트 제공
- 과거 실행 조회 엔드포인트 제공

Endpoints:
  GET  /health           - Health check
  GET  /metrics          - Prometheus metrics
  POST /api/analyze      - 분석 실행
  GET  /api/runs         - 실행 이력 조회
  GET  /api/runs/{id}    - 특정 실행 조회

Example:
  go run ./cmd/screener api
  go run ./cmd/screener api --port 8091`,
	RunE: runAPIServer,
}

var (
	apiPort string
)

func init() {
	rootCmd.AddCommand(apiCmd)

	// Flags
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Screener API Server ===")

	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.Close()

	// Override port if flag is set
	if apiPort != "" {
		a.cfg.Port = apiPort
	}

	a.log.WithFields(map[string]interface{}{
		"port": a.cfg.Port,
		"env":  a.cfg.Env,
	}).Info("Initializing API server")

	// Handlers: runs handler는 DB가 켜져 있을 때만
	analyzeHandler := handlers.NewAnalyzeHandler(a.pipeline, a.strategy, a.log)
	var runsHandler *handlers.RunsHandler
	if a.repo != nil {
		runsHandler = handlers.NewRunsHandler(a.repo, a.log)
	}

	router := api.NewRouter(analyzeHandler, runsHandler, a.cfg.MetricsEnabled, a.log)
	server := api.New(a.cfg, a.log, router)

	// Start server with graceful shutdown
	go func() {
		if err := server.Start(); err != nil {
			a.log.WithError(err).Fatal("Failed to start server")
		}
	}()

	a.log.Info("API server started successfully")
	fmt.Printf("\n✅ Server running on http://localhost:%s\n", a.cfg.Port)
	fmt.Println("\nAvailable endpoints:")
	fmt.Println("  GET  /health")
	if a.cfg.MetricsEnabled {
		fmt.Println("  GET  /metrics")
	}
	fmt.Println("  POST /api/analyze")
	if runsHandler != nil {
		fmt.Println("  GET  /api/runs")
		fmt.Println("  GET  /api/runs/{id}")
	}
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	a.log.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	a.log.Info("Server stopped")
	return nil
}
