// Package marketdata implements the market-capitalization provider
// chain: a JSON API primary and a scraping fallback.
package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"BlogHarvester/internal/domain"
	"BlogHarvester/internal/ports"
)

// PrimaryClient talks to the quote API keyed by ticker and exchange.
type PrimaryClient struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

var _ ports.MarketCapProvider = (*PrimaryClient)(nil)

// NewPrimaryClient creates a reusable HTTP client.
func NewPrimaryClient(endpoint, apiKey string) *PrimaryClient {
	return &PrimaryClient{
		endpoint: endpoint,
		apiKey:   apiKey,
		http:     &http.Client{Timeout: 10 * time.Second},
	}
}

// Name identifies the provider in logs and metrics.
func (c *PrimaryClient) Name() string {
	return "primary-api"
}

// MarketCap queries the quote endpoint. Throttling surfaces as
// ports.ErrRateLimited so the caller can trip its breaker.
func (c *PrimaryClient) MarketCap(ctx context.Context, ref domain.CompanyReference) (float64, error) {
	symbol := ref.NSECode
	if symbol == "" {
		symbol = ref.BSECode
	}
	if symbol == "" {
		return 0, fmt.Errorf("no ticker for %s", ref.Name)
	}

	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("exchange", ref.Exchange)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/quote?"+q.Encode(), nil)
	if err != nil {
		return 0, fmt.Errorf("new request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("quote %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return 0, fmt.Errorf("quote %s: %w", symbol, ports.ErrRateLimited)
	}
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("quote %s: unexpected status %s", symbol, resp.Status)
	}

	var payload struct {
		MarketCap float64 `json:"marketCap"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, fmt.Errorf("decode quote %s: %w", symbol, err)
	}
	if payload.MarketCap <= 0 {
		return 0, fmt.Errorf("quote %s: no market cap in response", symbol)
	}
	return payload.MarketCap, nil
}
