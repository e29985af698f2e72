package cache

import (
	"fmt"
	"strings"

	"github.com/madhav2145/Stocks-and-ETFS-broking-platform/internal/domain"
)

// Key is a namespaced cache key. Call sites build keys through the
// constructors below instead of ad-hoc string concatenation, so two
// components can never collide on the shared store.
type Key string

// GainersLosersKey is the key for the cached top-movers snapshot.
func GainersLosersKey() Key {
	return "gainersLosersCache"
}

// TimeSeriesKey is the key for a cached time series. The symbol is
// uppercased so lookups are case-insensitive.
func TimeSeriesKey(symbol string, resolution domain.Resolution) Key {
	return Key(fmt.Sprintf("av_timeseries_%s_%s", strings.ToUpper(strings.TrimSpace(symbol)), resolution))
}

// OverviewKey is the key for a cached company overview.
func OverviewKey(symbol string) Key {
	return Key("av_overview_" + strings.ToUpper(strings.TrimSpace(symbol)))
}
