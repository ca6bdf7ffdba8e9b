package naver

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"github.com/wonny/screener/backend/internal/contracts"
	"github.com/wonny/screener/backend/pkg/logger"
)

// Naver Finance 스크레이핑 제한: 초당 5회 (보수적)
const requestsPerSecond = 5

// 업종 코드 매핑 (finance.naver.com/sise/sise_group_detail.naver?type=upjong)
var sectorCodes = map[string]string{
	"전기전자":  "278",
	"화학":    "261",
	"의약품":   "262",
	"철강금속":  "265",
	"기계":    "266",
	"운수장비":  "270",
	"유통업":   "271",
	"전기가스업": "272",
	"건설업":   "273",
	"통신업":   "275",
	"금융":    "276",
	"서비스업":  "277",
	"음식료품":  "258",
}

// 메트릭 → 업종 테이블 컬럼 인덱스
var metricColumns = map[string]int{
	contracts.FieldROE: 6,
	contracts.FieldPER: 4,
	contracts.FieldPBR: 5,
}

// Client fetches sector peer statistics from Naver Finance
// ⭐ SSOT: 섹터 피어 분포 수집은 이 클라이언트에서만
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *logger.Logger
	baseURL    string
}

// NewClient creates a new Naver Finance peer stats client
func NewClient(baseURL string, log *logger.Logger) *Client {
	if baseURL == "" {
		baseURL = "https://finance.naver.com"
	}
	return &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond),
		logger:     log.WithField("module", "naver"),
		baseURL:    baseURL,
	}
}

// FetchSectorPeerStats scrapes the sector listing page and computes the
// 25/50/75 percentile breakpoints of the metric across peers.
//
// 표본이 작아도 에러가 아니다: SampleSize를 그대로 실어 보내고 퇴화 분포
// 처리는 스코어러의 정책에 맡긴다.
func (c *Client) FetchSectorPeerStats(ctx context.Context, sector, metric string) (*contracts.PeerStats, error) {
	col, ok := metricColumns[metric]
	if !ok {
		return nil, fmt.Errorf("unsupported peer metric: %s", metric)
	}

	code, ok := sectorCodes[sector]
	if !ok {
		// 알 수 없는 업종: 빈 표본 반환 (중립 처리 유도)
		c.logger.WithField("sector", sector).Warn("Unknown sector, returning empty peer sample")
		return &contracts.PeerStats{Sector: sector, Metric: metric}, nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("naver rate limit wait: %w", err)
	}

	html, err := c.fetchHTML(ctx, "/sise/sise_group_detail.naver", url.Values{
		"type": []string{"upjong"},
		"no":   []string{code},
	})
	if err != nil {
		return nil, err
	}

	values, err := parsePeerColumn(html, col)
	if err != nil {
		return nil, fmt.Errorf("parse sector page %s: %w", sector, err)
	}

	stats := computeStats(values)
	stats.Sector = sector
	stats.Metric = metric

	c.logger.WithFields(map[string]interface{}{
		"sector": sector,
		"metric": metric,
		"sample": stats.SampleSize,
		"p50":    stats.P50,
	}).Debug("Fetched sector peer stats")

	return stats, nil
}

// fetchHTML fetches a page from Naver Finance
func (c *Client) fetchHTML(ctx context.Context, path string, params url.Values) (string, error) {
	fullURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	return string(body), nil
}

// parsePeerColumn extracts one numeric column from the sector detail table
func parsePeerColumn(html string, col int) ([]float64, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	// Naver 업종 상세: type_5 테이블에 구성 종목 나열
	table := doc.Find("table.type_5")
	if table.Length() == 0 {
		return nil, fmt.Errorf("sector table not found")
	}

	var values []float64
	table.Find("tr").Each(func(i int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() <= col {
			return
		}
		if v, ok := parseNum(cells.Eq(col).Text()); ok {
			values = append(values, v)
		}
	})

	return values, nil
}

// parseNum parses a cell value ("1,234.56", "N/A", "-")
func parseNum(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", "")
	if s == "" || s == "-" || s == "N/A" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// computeStats computes quartile breakpoints from raw peer values
func computeStats(values []float64) *contracts.PeerStats {
	stats := &contracts.PeerStats{SampleSize: len(values)}
	if len(values) == 0 {
		return stats
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	stats.P25 = quantile(sorted, 0.25)
	stats.P50 = quantile(sorted, 0.50)
	stats.P75 = quantile(sorted, 0.75)
	return stats
}

// quantile computes the linearly interpolated q-quantile of sorted values
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(pos)
	frac := pos - float64(lo)
	if lo+1 >= len(sorted) {
		return sorted[len(sorted)-1]
	}
	return sorted[lo]*(1-frac) + sorted[lo+1]*frac
}
