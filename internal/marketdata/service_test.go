package marketdata

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "modernc.org/sqlite"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/madhav2145/Stocks-and-ETFS-broking-platform/internal/cache"
	"github.com/madhav2145/Stocks-and-ETFS-broking-platform/internal/domain"
)

// fakeClient counts calls and returns canned data or a forced error.
type fakeClient struct {
	snapshot      domain.GainersLosersSnapshot
	series        domain.TimeSeries
	overview      map[string]string
	results       []domain.SearchResult
	err           error
	snapshotCalls int
	seriesCalls   int
}

func (f *fakeClient) TopGainersLosers() (domain.GainersLosersSnapshot, error) {
	f.snapshotCalls++
	if f.err != nil {
		return domain.GainersLosersSnapshot{}, f.err
	}
	return f.snapshot, nil
}

func (f *fakeClient) SymbolSearch(query string) ([]domain.SearchResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

func (f *fakeClient) Overview(symbol string) (map[string]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.overview, nil
}

func (f *fakeClient) TimeSeries(symbol string, resolution domain.Resolution) (domain.TimeSeries, error) {
	f.seriesCalls++
	if f.err != nil {
		return nil, f.err
	}
	return f.series, nil
}

func newTestService(t *testing.T, client MarketClient) *Service {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store, err := cache.NewStore(db, zerolog.Nop())
	require.NoError(t, err)

	return NewService(client, store, zerolog.Nop())
}

func TestGetTopGainersLosersCachesResult(t *testing.T) {
	client := &fakeClient{
		snapshot: domain.GainersLosersSnapshot{
			TopGainers: []domain.Ticker{{Symbol: "UP", Price: "10.00", ChangePercent: "50%"}},
			TopLosers:  []domain.Ticker{{Symbol: "DOWN", Price: "2.00", ChangePercent: "-50%"}},
		},
	}
	svc := newTestService(t, client)

	first, err := svc.GetTopGainersLosers()
	require.NoError(t, err)
	assert.Equal(t, client.snapshot, first)
	assert.Equal(t, 1, client.snapshotCalls)

	// Second call is served from cache
	second, err := svc.GetTopGainersLosers()
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, client.snapshotCalls, "fresh cache must not trigger a second fetch")
}

func TestGetTopGainersLosersServesStaleOnFailure(t *testing.T) {
	client := &fakeClient{
		snapshot: domain.GainersLosersSnapshot{TopGainers: []domain.Ticker{{Symbol: "UP"}}},
	}
	svc := newTestService(t, client)

	first, err := svc.GetTopGainersLosers()
	require.NoError(t, err)

	// Expire the entry by rewriting it with an old fetch time, then break upstream
	require.NoError(t, svc.snapshots.Write(cache.GainersLosersKey(), first, expiredTime()))
	client.err = errors.New("upstream down")

	stale, err := svc.GetTopGainersLosers()
	require.NoError(t, err)
	assert.Equal(t, first, stale)
}

func TestGetTopGainersLosersPropagatesErrorOnColdCache(t *testing.T) {
	client := &fakeClient{err: errors.New("upstream down")}
	svc := newTestService(t, client)

	_, err := svc.GetTopGainersLosers()
	assert.Error(t, err)
}

func TestGetTimeSeriesKeyedBySymbolAndResolution(t *testing.T) {
	client := &fakeClient{series: domain.TimeSeries{{Close: 101.5}}}
	svc := newTestService(t, client)

	_, err := svc.GetTimeSeries("AAPL", domain.ResolutionDaily)
	require.NoError(t, err)
	assert.Equal(t, 1, client.seriesCalls)

	// Same key: cached
	_, err = svc.GetTimeSeries("aapl", domain.ResolutionDaily)
	require.NoError(t, err)
	assert.Equal(t, 1, client.seriesCalls, "symbol lookup must be case-insensitive")

	// Different resolution: separate key, new fetch
	_, err = svc.GetTimeSeries("AAPL", domain.ResolutionWeekly)
	require.NoError(t, err)
	assert.Equal(t, 2, client.seriesCalls)
}

func TestGetOverview(t *testing.T) {
	client := &fakeClient{overview: map[string]string{"Symbol": "IBM", "Sector": "Technology"}}
	svc := newTestService(t, client)

	fields, err := svc.GetOverview("IBM")
	require.NoError(t, err)
	assert.Equal(t, "Technology", fields["Sector"])
}

func TestQuoteFromSnapshot(t *testing.T) {
	client := &fakeClient{
		snapshot: domain.GainersLosersSnapshot{
			TopGainers: []domain.Ticker{{Symbol: "UP", Price: "10.00", ChangePercent: "50%"}},
			TopLosers:  []domain.Ticker{{Symbol: "DOWN", Price: "2.00", ChangePercent: "-50%"}},
		},
	}
	svc := newTestService(t, client)

	ticker, ok := svc.QuoteFromSnapshot("down")
	require.True(t, ok)
	assert.Equal(t, "DOWN", ticker.Symbol)
	assert.Equal(t, "2.00", ticker.Price)

	_, ok = svc.QuoteFromSnapshot("MISSING")
	assert.False(t, ok)
}

func TestQuoteFromSnapshotSkipsPricelessEntries(t *testing.T) {
	client := &fakeClient{
		snapshot: domain.GainersLosersSnapshot{
			TopGainers: []domain.Ticker{{Symbol: "UP"}},
		},
	}
	svc := newTestService(t, client)

	_, ok := svc.QuoteFromSnapshot("UP")
	assert.False(t, ok, "a snapshot entry without a price is not a usable quote")
}

// expiredTime is a fetch time safely past the 24h TTL.
func expiredTime() time.Time {
	return time.Now().Add(-25 * time.Hour)
}
