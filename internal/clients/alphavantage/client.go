// Package alphavantage provides a client for the Alpha Vantage market data API.
// It covers the four endpoints the app consumes: top gainers/losers, symbol
// search, company overview, and time series. Responses are normalized
// defensively; upstream schema drift degrades to empty values, never errors.
package alphavantage

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/madhav2145/Stocks-and-ETFS-broking-platform/internal/domain"
)

const (
	defaultBaseURL = "https://www.alphavantage.co/query"
	// Free tier allows 25 requests per day
	defaultDailyLimit = 25
)

// ErrRateLimitExceeded is returned when the local daily request budget is
// exhausted. The counter resets at midnight via the scheduler.
type ErrRateLimitExceeded struct {
	Limit int
}

func (e ErrRateLimitExceeded) Error() string {
	return fmt.Sprintf("alpha vantage daily limit of %d requests exceeded", e.Limit)
}

// ErrFetchFailed is the uniform transport-level failure: network errors,
// non-success statuses, and upstream rate-limit notes all collapse into it.
// The client never retries; serve-stale handling is the caller's job.
type ErrFetchFailed struct {
	Function string
	Status   int
	Err      error
}

func (e ErrFetchFailed) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("alpha vantage %s fetch failed: %v", e.Function, e.Err)
	}
	return fmt.Sprintf("alpha vantage %s fetch failed with status %d", e.Function, e.Status)
}

func (e ErrFetchFailed) Unwrap() error {
	return e.Err
}

// Client is the Alpha Vantage API client.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        zerolog.Logger

	mu            sync.Mutex
	requestsToday int
	dailyLimit    int
}

// NewClient creates a new Alpha Vantage client.
func NewClient(apiKey string, log zerolog.Logger) *Client {
	return &Client{
		baseURL: defaultBaseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		log:        log.With().Str("client", "alphavantage").Logger(),
		dailyLimit: defaultDailyLimit,
	}
}

// GetRemainingRequests returns how many requests are left today.
func (c *Client) GetRemainingRequests() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dailyLimit - c.requestsToday
}

// ResetDailyCounter resets the daily request counter. Scheduled at midnight.
func (c *Client) ResetDailyCounter() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.requestsToday > 0 {
		c.log.Info().Int("used", c.requestsToday).Msg("Resetting daily request counter")
	}
	c.requestsToday = 0
}

// checkRateLimit consumes one request from the daily budget.
func (c *Client) checkRateLimit() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.requestsToday >= c.dailyLimit {
		return ErrRateLimitExceeded{Limit: c.dailyLimit}
	}
	c.requestsToday++
	return nil
}

// get performs one API call and returns the raw body.
func (c *Client) get(function string, params map[string]string) ([]byte, error) {
	if err := c.checkRateLimit(); err != nil {
		return nil, ErrFetchFailed{Function: function, Err: err}
	}

	query := url.Values{}
	query.Set("function", function)
	query.Set("apikey", c.apiKey)
	for k, v := range params {
		query.Set(k, v)
	}

	requestURL := c.baseURL + "?" + query.Encode()
	c.log.Debug().Str("function", function).Msg("Fetching from Alpha Vantage")

	resp, err := c.httpClient.Get(requestURL)
	if err != nil {
		return nil, ErrFetchFailed{Function: function, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, ErrFetchFailed{Function: function, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, ErrFetchFailed{Function: function, Err: err}
	}

	// Alpha Vantage reports throttling and bad requests as 200s with a
	// message body instead of an HTTP error status
	var notice struct {
		Note         string `json:"Note"`
		Information  string `json:"Information"`
		ErrorMessage string `json:"Error Message"`
	}
	if err := json.Unmarshal(body, &notice); err == nil {
		switch {
		case notice.Note != "":
			return nil, ErrFetchFailed{Function: function, Err: fmt.Errorf("rate limited: %s", notice.Note)}
		case notice.Information != "":
			return nil, ErrFetchFailed{Function: function, Err: fmt.Errorf("rate limited: %s", notice.Information)}
		case notice.ErrorMessage != "":
			return nil, ErrFetchFailed{Function: function, Err: fmt.Errorf("rejected: %s", notice.ErrorMessage)}
		}
	}

	return body, nil
}

// TopGainersLosers fetches the aggregate top-movers snapshot.
// Missing or malformed lists normalize to empty sequences, never an error.
func (c *Client) TopGainersLosers() (domain.GainersLosersSnapshot, error) {
	body, err := c.get("TOP_GAINERS_LOSERS", nil)
	if err != nil {
		return domain.GainersLosersSnapshot{}, err
	}

	var payload struct {
		TopGainers []json.RawMessage `json:"top_gainers"`
		TopLosers  []json.RawMessage `json:"top_losers"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		c.log.Warn().Err(err).Msg("Malformed top-movers payload, returning empty snapshot")
		return domain.GainersLosersSnapshot{TopGainers: []domain.Ticker{}, TopLosers: []domain.Ticker{}}, nil
	}

	return domain.GainersLosersSnapshot{
		TopGainers: normalizeRecords(payload.TopGainers),
		TopLosers:  normalizeRecords(payload.TopLosers),
	}, nil
}

// SymbolSearch queries the symbol search endpoint with the literal query.
// Empty or whitespace-only queries short-circuit without a network call.
func (c *Client) SymbolSearch(query string) ([]domain.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return []domain.SearchResult{}, nil
	}

	body, err := c.get("SYMBOL_SEARCH", map[string]string{"keywords": query})
	if err != nil {
		return nil, err
	}

	var payload struct {
		BestMatches []struct {
			Symbol flexString `json:"1. symbol"`
			Name   flexString `json:"2. name"`
		} `json:"bestMatches"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		c.log.Warn().Err(err).Msg("Malformed search payload, returning empty result")
		return []domain.SearchResult{}, nil
	}

	results := make([]domain.SearchResult, 0, len(payload.BestMatches))
	for _, m := range payload.BestMatches {
		results = append(results, domain.SearchResult{
			Symbol: string(m.Symbol),
			Name:   string(m.Name),
		})
	}
	return results, nil
}

// Overview fetches company fields for a symbol and passes them through
// verbatim. Absent fields are simply absent from the mapping.
func (c *Client) Overview(symbol string) (map[string]string, error) {
	body, err := c.get("OVERVIEW", map[string]string{"symbol": strings.ToUpper(strings.TrimSpace(symbol))})
	if err != nil {
		return nil, err
	}

	var raw map[string]flexString
	if err := json.Unmarshal(body, &raw); err != nil {
		c.log.Warn().Err(err).Str("symbol", symbol).Msg("Malformed overview payload, returning empty mapping")
		return map[string]string{}, nil
	}

	fields := make(map[string]string, len(raw))
	for k, v := range raw {
		fields[k] = string(v)
	}
	return fields, nil
}

// seriesParams maps a resolution onto the endpoint function, extra query
// parameters, and the response key holding the timestamp map.
func seriesParams(resolution domain.Resolution) (function string, params map[string]string, seriesKey string) {
	switch resolution {
	case domain.ResolutionIntraday5Min:
		return "TIME_SERIES_INTRADAY", map[string]string{"interval": "5min"}, "Time Series (5min)"
	case domain.ResolutionWeekly:
		return "TIME_SERIES_WEEKLY", nil, "Weekly Time Series"
	case domain.ResolutionMonthly:
		return "TIME_SERIES_MONTHLY", nil, "Monthly Time Series"
	default:
		return "TIME_SERIES_DAILY", nil, "Time Series (Daily)"
	}
}

// timestampLayouts covers both intraday and daily-resolution keys.
var timestampLayouts = []string{"2006-01-02 15:04:05", "2006-01-02"}

// TimeSeries fetches close prices for a symbol at the given resolution,
// converted to an ascending-ordered series. Entries with unparseable
// timestamps or prices are skipped.
func (c *Client) TimeSeries(symbol string, resolution domain.Resolution) (domain.TimeSeries, error) {
	function, params, seriesKey := seriesParams(resolution)
	if params == nil {
		params = map[string]string{}
	}
	params["symbol"] = strings.ToUpper(strings.TrimSpace(symbol))

	body, err := c.get(function, params)
	if err != nil {
		return nil, err
	}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		c.log.Warn().Err(err).Str("symbol", symbol).Msg("Malformed time-series payload, returning empty series")
		return domain.TimeSeries{}, nil
	}

	var bars map[string]struct {
		Close flexString `json:"4. close"`
	}
	if raw, ok := payload[seriesKey]; ok {
		if err := json.Unmarshal(raw, &bars); err != nil {
			c.log.Warn().Err(err).Str("symbol", symbol).Msg("Malformed time-series map, returning empty series")
			return domain.TimeSeries{}, nil
		}
	}

	series := make(domain.TimeSeries, 0, len(bars))
	for stamp, bar := range bars {
		ts, ok := parseTimestamp(stamp)
		if !ok {
			continue
		}
		close, err := strconv.ParseFloat(string(bar.Close), 64)
		if err != nil {
			continue
		}
		series = append(series, domain.TimeSeriesPoint{Timestamp: ts, Close: close})
	}

	sort.Slice(series, func(i, j int) bool {
		return series[i].Timestamp.Before(series[j].Timestamp)
	})

	return series, nil
}

func parseTimestamp(s string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}
