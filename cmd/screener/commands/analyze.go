package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wonny/screener/backend/internal/contracts"
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "스크리닝 분석 실행",
	Long: `전략 유니버스(또는 지정 종목)에 대해 분석 파이프라인을 실행합니다.

이 명령어는:
- 종목별 스냅샷 수집 (rate budget + retry + circuit breaker)
- 품질 게이트 통과 여부 판정
- 카테고리별 스코어 합성 및 랭킹
- 결과 출력 (선택: DB 저장)

Example:
  go run ./cmd/screener analyze
  go run ./cmd/screener analyze --symbols 005930,000660
  go run ./cmd/screener analyze --top 10 --json`,
	RunE: runAnalyze,
}

var (
	analyzeSymbols string
	analyzeTop     int
	analyzeJSON    bool
)

func init() {
	rootCmd.AddCommand(analyzeCmd)

	// Flags
	analyzeCmd.Flags().StringVar(&analyzeSymbols, "symbols", "", "쉼표로 구분한 종목 코드 (기본: 전략 유니버스 전체)")
	analyzeCmd.Flags().IntVar(&analyzeTop, "top", 0, "상위 N개만 출력 (0 = 전체)")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "JSON으로 출력")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	if !analyzeJSON {
		fmt.Println("=== Screener Analyze ===")
	}

	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.Close()

	instruments := a.strategy.Instruments()
	if analyzeSymbols != "" {
		instruments = selectInstruments(instruments, analyzeSymbols)
	}
	if len(instruments) == 0 {
		return fmt.Errorf("no instruments to analyze")
	}

	result, err := a.pipeline.Analyze(context.Background(), instruments, a.strategy)
	if err != nil {
		return fmt.Errorf("analyze: %w", err)
	}

	if analyzeTop > 0 && len(result.Ranked) > analyzeTop {
		result.Ranked = result.Ranked[:analyzeTop]
	}

	if analyzeJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	printResult(result)
	return nil
}

// selectInstruments resolves a comma-separated symbol list against the
// strategy universe. 유니버스에 없는 심볼은 섹터 없이 그대로 분석한다.
func selectInstruments(universe []contracts.Instrument, csv string) []contracts.Instrument {
	bySymbol := make(map[string]contracts.Instrument, len(universe))
	for _, inst := range universe {
		bySymbol[inst.Symbol] = inst
	}

	var selected []contracts.Instrument
	for _, raw := range strings.Split(csv, ",") {
		symbol := strings.TrimSpace(raw)
		if symbol == "" {
			continue
		}
		if inst, ok := bySymbol[symbol]; ok {
			selected = append(selected, inst)
			continue
		}
		selected = append(selected, contracts.Instrument{Symbol: symbol})
	}
	return selected
}

func printResult(result *contracts.PipelineResult) {
	fmt.Println()
	fmt.Println("═══════════════════════════════════════════════════════════")
	fmt.Printf("  Run %s (strategy hash %.12s)\n", result.RunID, result.ConfigHash)
	fmt.Println("───────────────────────────────────────────────────────────")
	fmt.Printf("  %-4s %-8s %-16s %6s  %-3s %-12s %s\n",
		"Rank", "Symbol", "Name", "Score", "Grd", "Action", "Conf")

	for _, s := range result.Ranked {
		flags := ""
		if len(s.RiskFlags) > 0 {
			flags = " ⚠ " + strings.Join(s.RiskFlags, ",")
		}
		fmt.Printf("  %-4d %-8s %-16s %6.1f  %-3s %-12s %s%s\n",
			s.Rank, s.Instrument.Symbol, truncate(s.Instrument.Name, 16),
			s.Total, s.Grade, s.Recommendation, s.Confidence, flags)
	}

	if len(result.Filtered) > 0 {
		fmt.Println("───────────────────────────────────────────────────────────")
		fmt.Printf("  Filtered (%d):\n", len(result.Filtered))
		for _, f := range result.Filtered {
			fmt.Printf("    %-8s %s\n", f.Instrument.Symbol, f.Reason)
		}
	}

	if len(result.Failed) > 0 {
		fmt.Println("───────────────────────────────────────────────────────────")
		fmt.Printf("  Failed (%d):\n", len(result.Failed))
		for _, f := range result.Failed {
			fmt.Printf("    %-8s [%s] %s\n", f.Symbol, f.Class, f.Message)
		}
	}

	fmt.Println("───────────────────────────────────────────────────────────")
	fmt.Printf("✅ %d ranked, %d filtered, %d failed in %.2fs\n",
		len(result.Ranked), len(result.Filtered), len(result.Failed),
		result.Duration.Seconds())
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
