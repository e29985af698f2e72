package watchlist

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/madhav2145/Stocks-and-ETFS-broking-platform/internal/domain"
)

func TestGroupQuotes(t *testing.T) {
	store := NewStore(setupKV(t), zerolog.Nop())
	require.NoError(t, store.CreateGroup("Tech"))
	for _, symbol := range []string{"AAPL", "FAIL", "MSFT"} {
		_, err := store.ToggleSymbol("Tech", symbol)
		require.NoError(t, err)
	}

	quote := func(_ context.Context, symbol string) (domain.Ticker, error) {
		if symbol == "FAIL" {
			return domain.Ticker{}, errors.New("provider down")
		}
		return domain.Ticker{Symbol: symbol, Price: "100.00"}, nil
	}

	svc := NewQuoteService(store, quote, zerolog.Nop())
	tickers, err := svc.GroupQuotes(context.Background(), "Tech")
	require.NoError(t, err)
	require.Len(t, tickers, 3)

	// Display order preserved; the failed symbol degrades to symbol-only
	assert.Equal(t, domain.Ticker{Symbol: "AAPL", Price: "100.00"}, tickers[0])
	assert.Equal(t, domain.Ticker{Symbol: "FAIL"}, tickers[1])
	assert.Equal(t, domain.Ticker{Symbol: "MSFT", Price: "100.00"}, tickers[2])
}

func TestGroupQuotesUnknownGroup(t *testing.T) {
	store := NewStore(setupKV(t), zerolog.Nop())
	svc := NewQuoteService(store, nil, zerolog.Nop())

	_, err := svc.GroupQuotes(context.Background(), "Nope")
	assert.ErrorIs(t, err, ErrUnknownGroup)
}

func TestGroupQuotesEmptyGroup(t *testing.T) {
	store := NewStore(setupKV(t), zerolog.Nop())
	require.NoError(t, store.CreateGroup("Empty"))

	svc := NewQuoteService(store, func(_ context.Context, s string) (domain.Ticker, error) {
		t.Fatal("quote must not be called for an empty group")
		return domain.Ticker{}, nil
	}, zerolog.Nop())

	tickers, err := svc.GroupQuotes(context.Background(), "Empty")
	require.NoError(t, err)
	assert.Empty(t, tickers)
}
