// Package quickquote provides a no-credential price lookup used as the last
// resort for watchlist display when no cached quote exists for a symbol.
package quickquote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/madhav2145/Stocks-and-ETFS-broking-platform/internal/domain"
)

const defaultBaseURL = "https://query1.finance.yahoo.com/v8/finance/chart"

// Client fetches a single current price per symbol.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger
}

// NewClient creates a new quick-quote client.
// baseURL may be empty to use the default provider.
func NewClient(baseURL string, log zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		log: log.With().Str("client", "quickquote").Logger(),
	}
}

// chartResponse is the subset of the provider payload we read.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				RegularMarketPrice float64 `json:"regularMarketPrice"`
				ChartPreviousClose float64 `json:"chartPreviousClose"`
			} `json:"meta"`
		} `json:"result"`
	} `json:"chart"`
}

// Quote returns a display-formatted quote for one symbol.
func (c *Client) Quote(ctx context.Context, symbol string) (domain.Ticker, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return domain.Ticker{}, fmt.Errorf("empty symbol")
	}

	url := fmt.Sprintf("%s/%s?range=1d&interval=5m", c.baseURL, symbol)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return domain.Ticker{}, fmt.Errorf("failed to build quote request: %w", err)
	}
	// The provider rejects default Go user agents
	req.Header.Set("User-Agent", "curl/8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Ticker{}, fmt.Errorf("quote request failed for %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.Ticker{}, fmt.Errorf("quote request for %s returned status %d", symbol, resp.StatusCode)
	}

	var payload chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return domain.Ticker{}, fmt.Errorf("failed to parse quote response for %s: %w", symbol, err)
	}

	if len(payload.Chart.Result) == 0 {
		return domain.Ticker{}, fmt.Errorf("no quote data for %s", symbol)
	}

	meta := payload.Chart.Result[0].Meta
	if meta.RegularMarketPrice == 0 {
		return domain.Ticker{}, fmt.Errorf("no price for %s", symbol)
	}

	ticker := domain.Ticker{
		Symbol: symbol,
		Price:  fmt.Sprintf("%.2f", meta.RegularMarketPrice),
	}
	if meta.ChartPreviousClose > 0 {
		change := (meta.RegularMarketPrice - meta.ChartPreviousClose) / meta.ChartPreviousClose * 100
		ticker.ChangePercent = fmt.Sprintf("%.2f%%", change)
	}

	return ticker, nil
}
