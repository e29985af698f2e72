package watchlist

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/madhav2145/Stocks-and-ETFS-broking-platform/internal/batch"
	"github.com/madhav2145/Stocks-and-ETFS-broking-platform/internal/domain"
)

// quoteConcurrency bounds parallel quote lookups for one group.
const quoteConcurrency = 4

// QuoteFunc fetches a display quote for one symbol.
type QuoteFunc func(ctx context.Context, symbol string) (domain.Ticker, error)

// QuoteService decorates the store with display prices for a group.
type QuoteService struct {
	store *Store
	quote QuoteFunc
	log   zerolog.Logger
}

// NewQuoteService creates a quote service over the store.
func NewQuoteService(store *Store, quote QuoteFunc, log zerolog.Logger) *QuoteService {
	return &QuoteService{
		store: store,
		quote: quote,
		log:   log.With().Str("service", "watchlist_quotes").Logger(),
	}
}

// GroupQuotes fetches quotes for every symbol in the group concurrently and
// in display order. Symbols are isolated: a failed lookup degrades that one
// entry to a price-less ticker instead of failing the group.
func (q *QuoteService) GroupQuotes(ctx context.Context, group string) ([]domain.Ticker, error) {
	symbols, err := q.store.Symbols(group)
	if err != nil {
		return nil, err
	}

	outcomes := batch.Map(ctx, symbols, quoteConcurrency, q.quote)

	tickers := make([]domain.Ticker, len(outcomes))
	for i, o := range outcomes {
		if o.Err != nil {
			q.log.Debug().Err(o.Err).Str("symbol", symbols[i]).Msg("Quote lookup failed, showing symbol only")
			tickers[i] = domain.Ticker{Symbol: symbols[i]}
			continue
		}
		tickers[i] = o.Value
	}

	return tickers, nil
}
