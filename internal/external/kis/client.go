package kis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/wonny/screener/backend/pkg/config"
	"github.com/wonny/screener/backend/pkg/logger"
	"github.com/wonny/screener/backend/pkg/ratebudget"
	"github.com/wonny/screener/backend/pkg/retry"
)

// Client handles communication with the KIS open API
// ⭐ SSOT: KIS API 호출은 이 클라이언트에서만
type Client struct {
	cfg        *config.Config
	logger     *logger.Logger
	httpClient *http.Client
	budget     *ratebudget.Budget

	tokenMu     sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// NewClient creates a new KIS client. The budget is the shared pacing
// primitive for this source; every outbound request acquires it first.
func NewClient(cfg *config.Config, budget *ratebudget.Budget, log *logger.Logger) *Client {
	return &Client{
		cfg:        cfg,
		logger:     log.WithField("module", "kis"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		budget:     budget,
	}
}

// getToken returns a cached access token, refreshing when expired
func (c *Client) getToken(ctx context.Context) (string, error) {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	body, err := json.Marshal(map[string]string{
		"grant_type": "client_credentials",
		"appkey":     c.cfg.KIS.AppKey,
		"appsecret":  c.cfg.KIS.AppSecret,
	})
	if err != nil {
		return "", fmt.Errorf("marshal token request: %w", err)
	}

	url := c.cfg.KIS.BaseURL + "/oauth2/tokenP"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", retry.Transient(fmt.Errorf("token request failed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", classifyStatus(resp.StatusCode, fmt.Errorf("token request status %d: %s", resp.StatusCode, string(respBody)))
	}

	var result struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", retry.Permanent(fmt.Errorf("decode token response: %w", err))
	}

	c.accessToken = result.AccessToken
	// 만료 1분 전에 갱신
	c.tokenExpiry = time.Now().Add(time.Duration(result.ExpiresIn)*time.Second - time.Minute)

	c.logger.Debug("Refreshed KIS access token")
	return c.accessToken, nil
}

// request makes an authenticated, rate-budgeted request to KIS API
func (c *Client) request(ctx context.Context, path, trID string) ([]byte, error) {
	// 모든 아웃바운드 호출은 공유 RateBudget 승인 후에만 나간다
	if err := c.budget.Acquire(ctx); err != nil {
		return nil, retry.Transient(fmt.Errorf("rate budget acquire: %w", err))
	}

	token, err := c.getToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("get token: %w", err)
	}

	url := c.cfg.KIS.BaseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("create request: %w", err))
	}

	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("authorization", "Bearer "+token)
	req.Header.Set("appkey", c.cfg.KIS.AppKey)
	req.Header.Set("appsecret", c.cfg.KIS.AppSecret)
	req.Header.Set("tr_id", trID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, retry.Transient(ctx.Err())
		}
		// 전송 계층 실패는 재시도 가능
		return nil, retry.Transient(fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, retry.Transient(fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(resp.StatusCode, fmt.Errorf("API error status %d: %s", resp.StatusCode, string(body)))
	}

	return body, nil
}

// classifyStatus maps HTTP status codes to the retry taxonomy.
// 429/5xx ⇒ transient, 그 외 4xx(잘못된 종목/인증) ⇒ permanent.
func classifyStatus(statusCode int, err error) error {
	if statusCode == http.StatusTooManyRequests || statusCode >= 500 {
		return retry.Transient(err)
	}
	return retry.Permanent(err)
}
