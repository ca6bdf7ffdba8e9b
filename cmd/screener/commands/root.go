package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	strategyFile string
	verbose      bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "screener",
	Short: "Screener - 휴리스틱 종목 스크리닝 시스템",
	Long: `Screener Unified CLI

Go 기반 종목 스크리닝 시스템.
수집 → 스코어링 → 게이트 → 랭킹 파이프라인.

Usage:
  go run ./cmd/screener [command]

Examples:
  go run ./cmd/screener analyze
  go run ./cmd/screener api
  go run ./cmd/screener scheduler start
  go run ./cmd/screener test-logger`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&strategyFile, "strategy", "", "strategy file (default is STRATEGY_FILE env)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
