package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/madhav2145/Stocks-and-ETFS-broking-platform/internal/cache"
	"github.com/madhav2145/Stocks-and-ETFS-broking-platform/internal/clients/alphavantage"
	"github.com/madhav2145/Stocks-and-ETFS-broking-platform/internal/database"
	"github.com/madhav2145/Stocks-and-ETFS-broking-platform/internal/domain"
	"github.com/madhav2145/Stocks-and-ETFS-broking-platform/internal/logos"
	"github.com/madhav2145/Stocks-and-ETFS-broking-platform/internal/marketdata"
	"github.com/madhav2145/Stocks-and-ETFS-broking-platform/internal/watchlist"
)

type fakeMarketClient struct {
	snapshot    domain.GainersLosersSnapshot
	snapshotErr error
	results     []domain.SearchResult
	series      domain.TimeSeries
}

func (f *fakeMarketClient) TopGainersLosers() (domain.GainersLosersSnapshot, error) {
	return f.snapshot, f.snapshotErr
}

func (f *fakeMarketClient) SymbolSearch(string) ([]domain.SearchResult, error) {
	return f.results, nil
}

func (f *fakeMarketClient) Overview(string) (map[string]string, error) {
	return map[string]string{"Name": "Apple Inc"}, nil
}

func (f *fakeMarketClient) TimeSeries(string, domain.Resolution) (domain.TimeSeries, error) {
	return f.series, nil
}

type fakeBackups struct {
	key string
	err error
}

func (f *fakeBackups) CreateAndUpload(context.Context) (string, error) {
	return f.key, f.err
}

type fakeRateLimit struct {
	remaining int
}

func (f *fakeRateLimit) GetRemainingRequests() int {
	return f.remaining
}

func newTestServer(t *testing.T, client *fakeMarketClient) *Server {
	t.Helper()

	dataDir := t.TempDir()

	cacheDB, err := database.New(database.Config{
		Path:    filepath.Join(dataDir, "cache.db"),
		Profile: database.ProfileCache,
		Name:    "cache",
	})
	require.NoError(t, err)
	t.Cleanup(func() { cacheDB.Close() })

	stateDB, err := database.New(database.Config{
		Path:    filepath.Join(dataDir, "appdata.db"),
		Profile: database.ProfileStandard,
		Name:    "appdata",
	})
	require.NoError(t, err)
	t.Cleanup(func() { stateDB.Close() })

	cacheStore, err := cache.NewStore(cacheDB.Conn(), zerolog.Nop())
	require.NoError(t, err)
	stateStore, err := cache.NewStore(stateDB.Conn(), zerolog.Nop())
	require.NoError(t, err)

	market := marketdata.NewService(client, cacheStore, zerolog.Nop())
	watchlists := watchlist.NewStore(stateStore, zerolog.Nop())
	quotes := watchlist.NewQuoteService(watchlists, func(_ context.Context, symbol string) (domain.Ticker, error) {
		return domain.Ticker{Symbol: symbol, Price: "10.00"}, nil
	}, zerolog.Nop())

	return New(Config{
		Log:        zerolog.Nop(),
		Port:       0,
		DevMode:    true,
		DataDir:    dataDir,
		CacheDB:    cacheDB,
		StateDB:    stateDB,
		Market:     market,
		Watchlists: watchlists,
		Quotes:     quotes,
		Logos:      logos.NewResolver("https://logos.invalid/%s.png", zerolog.Nop()),
		RateLimit:  &fakeRateLimit{remaining: 25},
		Backups:    &fakeBackups{key: "backups/test.tar.gz"},
	})
}

func doRequest(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(v))
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer(t, &fakeMarketClient{})

	rec := doRequest(t, s, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	decodeBody(t, rec, &body)
	assert.Equal(t, "healthy", body["status"])
}

func TestHandleTopMovers(t *testing.T) {
	client := &fakeMarketClient{
		snapshot: domain.GainersLosersSnapshot{
			TopGainers: []domain.Ticker{{Symbol: "AAPL", Price: "150.00"}},
			TopLosers:  []domain.Ticker{{Symbol: "MSFT", Price: "300.00"}},
		},
	}
	s := newTestServer(t, client)

	rec := doRequest(t, s, http.MethodGet, "/api/market/top-movers", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body domain.GainersLosersSnapshot
	decodeBody(t, rec, &body)
	require.Len(t, body.TopGainers, 1)
	assert.Equal(t, "AAPL", body.TopGainers[0].Symbol)
}

func TestHandleTopMoversUpstreamFailure(t *testing.T) {
	client := &fakeMarketClient{
		snapshotErr: alphavantage.ErrFetchFailed{Function: "TOP_GAINERS_LOSERS", Status: 500},
	}
	s := newTestServer(t, client)

	rec := doRequest(t, s, http.MethodGet, "/api/market/top-movers", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestHandleTopMoversRateLimited(t *testing.T) {
	client := &fakeMarketClient{
		snapshotErr: alphavantage.ErrRateLimitExceeded{Limit: 25},
	}
	s := newTestServer(t, client)

	rec := doRequest(t, s, http.MethodGet, "/api/market/top-movers", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestHandleSearch(t *testing.T) {
	client := &fakeMarketClient{
		results: []domain.SearchResult{{Symbol: "AAPL", Name: "Apple Inc"}},
	}
	s := newTestServer(t, client)

	rec := doRequest(t, s, http.MethodGet, "/api/market/search?q=apple", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Results []domain.SearchResult `json:"results"`
	}
	decodeBody(t, rec, &body)
	require.Len(t, body.Results, 1)
	assert.Equal(t, "AAPL", body.Results[0].Symbol)
}

func TestHandleTimeSeries(t *testing.T) {
	client := &fakeMarketClient{series: seriesOf(100, 102, 104, 106)}
	s := newTestServer(t, client)

	rec := doRequest(t, s, http.MethodGet, "/api/market/timeseries/aapl?resolution=daily", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body timeSeriesResponse
	decodeBody(t, rec, &body)
	assert.Equal(t, "AAPL", body.Symbol)
	assert.Equal(t, domain.ResolutionDaily, body.Resolution)
	assert.Len(t, body.Points, 4)
	assert.Empty(t, body.SMA)
	assert.Nil(t, body.Summary)
}

func TestHandleTimeSeriesWithIndicators(t *testing.T) {
	client := &fakeMarketClient{series: seriesOf(100, 102, 104, 106)}
	s := newTestServer(t, client)

	rec := doRequest(t, s, http.MethodGet, "/api/market/timeseries/AAPL?sma=2&summary=true", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body timeSeriesResponse
	decodeBody(t, rec, &body)
	assert.Len(t, body.SMA, 4)
	require.NotNil(t, body.Summary)
	assert.InDelta(t, 103.0, body.Summary.Mean, 1e-9)
}

func TestHandleTimeSeriesBadResolution(t *testing.T) {
	s := newTestServer(t, &fakeMarketClient{})

	rec := doRequest(t, s, http.MethodGet, "/api/market/timeseries/AAPL?resolution=hourly", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleTimeSeriesBadSMAPeriod(t *testing.T) {
	client := &fakeMarketClient{series: seriesOf(100, 102)}
	s := newTestServer(t, client)

	rec := doRequest(t, s, http.MethodGet, "/api/market/timeseries/AAPL?sma=1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWatchlistLifecycle(t *testing.T) {
	s := newTestServer(t, &fakeMarketClient{})

	rec := doRequest(t, s, http.MethodPost, "/api/watchlists/", map[string]string{"name": "Tech"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(t, s, http.MethodPost, "/api/watchlists/", map[string]string{"name": "Tech"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doRequest(t, s, http.MethodPost, "/api/watchlists/Tech/symbols", map[string]string{"symbol": "aapl"})
	require.Equal(t, http.StatusOK, rec.Code)
	var toggle struct {
		Symbol string `json:"symbol"`
		Added  bool   `json:"added"`
	}
	decodeBody(t, rec, &toggle)
	assert.Equal(t, "AAPL", toggle.Symbol)
	assert.True(t, toggle.Added)

	rec = doRequest(t, s, http.MethodGet, "/api/watchlists/Tech/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var group struct {
		Name    string   `json:"name"`
		Symbols []string `json:"symbols"`
	}
	decodeBody(t, rec, &group)
	assert.Equal(t, []string{"AAPL"}, group.Symbols)

	rec = doRequest(t, s, http.MethodGet, "/api/watchlists/Tech/quotes", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var quotesBody struct {
		Quotes []domain.Ticker `json:"quotes"`
	}
	decodeBody(t, rec, &quotesBody)
	require.Len(t, quotesBody.Quotes, 1)
	assert.Equal(t, "10.00", quotesBody.Quotes[0].Price)

	rec = doRequest(t, s, http.MethodDelete, "/api/watchlists/Tech/", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, s, http.MethodGet, "/api/watchlists/Tech/", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleCreateWatchlistValidation(t *testing.T) {
	s := newTestServer(t, &fakeMarketClient{})

	rec := doRequest(t, s, http.MethodPost, "/api/watchlists/", map[string]string{"name": "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleGroupQuotesUnknownGroup(t *testing.T) {
	s := newTestServer(t, &fakeMarketClient{})

	rec := doRequest(t, s, http.MethodGet, "/api/watchlists/Missing/quotes", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleTriggerBackup(t *testing.T) {
	s := newTestServer(t, &fakeMarketClient{})

	rec := doRequest(t, s, http.MethodPost, "/api/system/backup", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	decodeBody(t, rec, &body)
	assert.Equal(t, "backups/test.tar.gz", body["key"])
}

func TestHandleTriggerBackupNotConfigured(t *testing.T) {
	s := newTestServer(t, &fakeMarketClient{})
	s.backups = nil

	rec := doRequest(t, s, http.MethodPost, "/api/system/backup", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHandleSystemInfo(t *testing.T) {
	s := newTestServer(t, &fakeMarketClient{})

	rec := doRequest(t, s, http.MethodGet, "/api/system/info", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		CPUPercent    float64 `json:"cpu_percent"`
		MemoryPercent float64 `json:"memory_percent"`
		UptimeSeconds int64   `json:"uptime_seconds"`
		Remaining     int     `json:"remaining_api_requests"`
	}
	decodeBody(t, rec, &body)
	assert.GreaterOrEqual(t, body.UptimeSeconds, int64(0))
	assert.Equal(t, 25, body.Remaining)
}

func TestHandleDatabaseStats(t *testing.T) {
	s := newTestServer(t, &fakeMarketClient{})

	// Put a row in each store so the counts are distinguishable from an
	// accidental zero default
	rec := doRequest(t, s, http.MethodPost, "/api/watchlists/", map[string]string{"name": "Tech"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(t, s, http.MethodGet, "/api/system/database/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Databases map[string]struct {
			Healthy bool  `json:"healthy"`
			Rows    int64 `json:"rows"`
		} `json:"databases"`
		DiskBytes int64 `json:"disk_bytes"`
	}
	decodeBody(t, rec, &body)

	require.Contains(t, body.Databases, "cache")
	require.Contains(t, body.Databases, "appdata")
	assert.True(t, body.Databases["cache"].Healthy)
	assert.True(t, body.Databases["appdata"].Healthy)
	assert.Equal(t, int64(1), body.Databases["appdata"].Rows, "watchlist mutation persists one row in the state database")
	assert.Greater(t, body.DiskBytes, int64(0))
}

func seriesOf(closes ...float64) domain.TimeSeries {
	series := make(domain.TimeSeries, 0, len(closes))
	for _, c := range closes {
		series = append(series, domain.TimeSeriesPoint{Close: c})
	}
	return series
}
