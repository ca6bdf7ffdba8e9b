package signals

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/wonny/screener/backend/pkg/logger"
)

// HTTPProvider fetches signals from the external signal feed
type HTTPProvider struct {
	httpClient *http.Client
	logger     *logger.Logger
	baseURL    string
	apiKey     string
}

// NewHTTPProvider creates a provider backed by the signal feed API
func NewHTTPProvider(baseURL, apiKey string, log *logger.Logger) *HTTPProvider {
	return &HTTPProvider{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     log.WithField("module", "signals"),
		baseURL:    baseURL,
		apiKey:     apiKey,
	}
}

// Fetch retrieves the signal values for one symbol
func (p *HTTPProvider) Fetch(ctx context.Context, symbol string) (*Values, error) {
	url := fmt.Sprintf("%s/v1/signals/%s", p.baseURL, symbol)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if p.apiKey != "" {
		req.Header.Set("X-API-Key", p.apiKey)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("signal request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("signal feed status %d for %s", resp.StatusCode, symbol)
	}

	var values Values
	if err := json.NewDecoder(resp.Body).Decode(&values); err != nil {
		return nil, fmt.Errorf("decode signal response: %w", err)
	}

	return &values, nil
}
