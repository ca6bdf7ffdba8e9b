package kis

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/wonny/screener/backend/internal/contracts"
	"github.com/wonny/screener/backend/pkg/retry"
)

// FetchSnapshot fetches the full per-instrument snapshot: current price and
// 52-week high from the quote endpoint, fundamentals from the ratio endpoint.
// 두 요청 모두 RateBudget 승인을 거친다.
func (c *Client) FetchSnapshot(ctx context.Context, symbol string) (*contracts.RawSnapshot, error) {
	snap := contracts.NewRawSnapshot(symbol, "")

	if err := c.fetchPrice(ctx, symbol, snap); err != nil {
		return nil, fmt.Errorf("fetch price %s: %w", symbol, err)
	}
	if err := c.fetchRatios(ctx, symbol, snap); err != nil {
		return nil, fmt.Errorf("fetch ratios %s: %w", symbol, err)
	}

	return snap, nil
}

// fetchPrice fills price, PER, PBR and the 52-week-high ratio
func (c *Client) fetchPrice(ctx context.Context, symbol string, snap *contracts.RawSnapshot) error {
	path := "/uapi/domestic-stock/v1/quotations/inquire-price"
	trID := "FHKST01010100" // 국내주식 현재가

	params := url.Values{}
	params.Set("fid_cond_mrkt_div_code", "J")
	params.Set("fid_input_iscd", symbol)

	body, err := c.request(ctx, path+"?"+params.Encode(), trID)
	if err != nil {
		return err
	}

	var result struct {
		Output struct {
			CurrentPrice string `json:"stck_prpr"`    // 현재가
			PER          string `json:"per"`
			PBR          string `json:"pbr"`
			High52W      string `json:"w52_hgpr"`     // 52주 최고가
		} `json:"output"`
		RtCd  string `json:"rt_cd"`
		MsgCd string `json:"msg_cd"`
		Msg1  string `json:"msg1"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return retry.Permanent(fmt.Errorf("decode price response: %w", err))
	}
	if result.RtCd != "0" {
		// 잘못된 종목코드 등 업무 오류는 재시도 무의미
		return retry.Permanent(fmt.Errorf("API error: %s - %s", result.MsgCd, result.Msg1))
	}

	price := parseNumeric(result.Output.CurrentPrice)
	setIfValid(snap, contracts.FieldPrice, price)
	setIfValid(snap, contracts.FieldPER, parseNumeric(result.Output.PER))
	setIfValid(snap, contracts.FieldPBR, parseNumeric(result.Output.PBR))

	if high := parseNumeric(result.Output.High52W); high > 0 && price > 0 {
		snap.Set(contracts.FieldPriceTo52WHigh, price/high)
	}

	return nil
}

// fetchRatios fills ROE, debt ratio and operating margin
func (c *Client) fetchRatios(ctx context.Context, symbol string, snap *contracts.RawSnapshot) error {
	path := "/uapi/domestic-stock/v1/finance/financial-ratio"
	trID := "FHKST66430300" // 국내주식 재무비율

	params := url.Values{}
	params.Set("fid_cond_mrkt_div_code", "J")
	params.Set("fid_input_iscd", symbol)
	params.Set("fid_div_cls_code", "0") // 연간

	body, err := c.request(ctx, path+"?"+params.Encode(), trID)
	if err != nil {
		return err
	}

	var result struct {
		Output []struct {
			ROE             string `json:"roe_val"`        // ROE
			DebtRatio       string `json:"lblt_rate"`      // 부채비율
			OperatingMargin string `json:"bsop_prfi_inrt"` // 영업이익률
		} `json:"output"`
		RtCd  string `json:"rt_cd"`
		MsgCd string `json:"msg_cd"`
		Msg1  string `json:"msg1"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return retry.Permanent(fmt.Errorf("decode ratio response: %w", err))
	}
	if result.RtCd != "0" {
		return retry.Permanent(fmt.Errorf("API error: %s - %s", result.MsgCd, result.Msg1))
	}
	if len(result.Output) == 0 {
		// 재무비율 없는 종목(신규상장 등): 스코어러가 결측으로 처리
		return nil
	}

	// 첫 행이 최근 결산 기준
	latest := result.Output[0]
	setIfValid(snap, contracts.FieldROE, parseNumeric(latest.ROE))
	setIfValid(snap, contracts.FieldDebtRatio, parseNumeric(latest.DebtRatio))
	setIfValid(snap, contracts.FieldOperatingMargin, parseNumeric(latest.OperatingMargin))

	return nil
}

// parseNumeric parses KIS numeric strings ("1,234.56", "N/A", "")
func parseNumeric(s string) float64 {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" || s == "N/A" || s == "-" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// setIfValid stores positive-or-negative nonzero values; zero means the
// upstream field was blank and must stay unavailable
func setIfValid(snap *contracts.RawSnapshot, field string, v float64) {
	if v != 0 {
		snap.Set(field, v)
	}
}
