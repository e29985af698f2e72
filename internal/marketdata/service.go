// Package marketdata is the fetch-or-refresh facade the API surface consumes.
// It composes the TTL cache with the upstream client: repeated calls inside
// the TTL window return identical cached results with no network traffic.
package marketdata

import (
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/madhav2145/Stocks-and-ETFS-broking-platform/internal/cache"
	"github.com/madhav2145/Stocks-and-ETFS-broking-platform/internal/domain"
)

// TTLOverview keeps company overviews for a week; fundamentals move slowly.
const TTLOverview = 7 * 24 * time.Hour

// MarketClient is the upstream surface the service depends on.
type MarketClient interface {
	TopGainersLosers() (domain.GainersLosersSnapshot, error)
	SymbolSearch(query string) ([]domain.SearchResult, error)
	Overview(symbol string) (map[string]string, error)
	TimeSeries(symbol string, resolution domain.Resolution) (domain.TimeSeries, error)
}

// Service provides cached market data operations
type Service struct {
	client    MarketClient
	snapshots *cache.TTL[domain.GainersLosersSnapshot]
	series    *cache.TTL[domain.TimeSeries]
	overviews *cache.TTL[map[string]string]
	log       zerolog.Logger
}

// NewService creates a new market data service on top of the shared store.
func NewService(client MarketClient, store *cache.Store, log zerolog.Logger) *Service {
	return &Service{
		client:    client,
		snapshots: cache.NewTTL[domain.GainersLosersSnapshot](store, log),
		series:    cache.NewTTL[domain.TimeSeries](store, log),
		overviews: cache.NewTTL[map[string]string](store, log),
		log:       log.With().Str("service", "marketdata").Logger(),
	}
}

// GetTopGainersLosers returns the cached top-movers snapshot, refreshing it
// from upstream when the 24h window has passed. A failed refresh serves the
// previous snapshot when one exists.
func (s *Service) GetTopGainersLosers() (domain.GainersLosersSnapshot, error) {
	return s.snapshots.GetOrFetch(cache.GainersLosersKey(), cache.DefaultTTL, s.client.TopGainersLosers)
}

// GetTimeSeries returns the cached series for (symbol, resolution).
func (s *Service) GetTimeSeries(symbol string, resolution domain.Resolution) (domain.TimeSeries, error) {
	key := cache.TimeSeriesKey(symbol, resolution)
	return s.series.GetOrFetch(key, cache.DefaultTTL, func() (domain.TimeSeries, error) {
		return s.client.TimeSeries(symbol, resolution)
	})
}

// GetOverview returns cached company fields for a symbol.
func (s *Service) GetOverview(symbol string) (map[string]string, error) {
	return s.overviews.GetOrFetch(cache.OverviewKey(symbol), TTLOverview, func() (map[string]string, error) {
		return s.client.Overview(symbol)
	})
}

// SearchSymbols queries the upstream search endpoint. Results are not
// cached; queries are too varied for a 24h window to pay off.
func (s *Service) SearchSymbols(query string) ([]domain.SearchResult, error) {
	return s.client.SymbolSearch(query)
}

// QuoteFromSnapshot looks a symbol up in the cached top-movers snapshot.
// Callers use it as the cheap first stop before a per-symbol quote fetch.
func (s *Service) QuoteFromSnapshot(symbol string) (domain.Ticker, bool) {
	symbol = strings.ToUpper(symbol)

	snapshot, err := s.GetTopGainersLosers()
	if err != nil {
		return domain.Ticker{}, false
	}

	for _, list := range [][]domain.Ticker{snapshot.TopGainers, snapshot.TopLosers} {
		for _, ticker := range list {
			if ticker.Symbol == symbol && ticker.Price != "" {
				return ticker, true
			}
		}
	}

	return domain.Ticker{}, false
}
