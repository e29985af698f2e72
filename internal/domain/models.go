// Package domain contains the core value types shared across the application.
// Types here are pure data with no infrastructure dependencies.
package domain

import (
	"fmt"
	"time"
)

// Ticker is a normalized quote record for one market symbol.
// Price and ChangePercent are display-formatted strings and may be empty when
// the upstream record did not carry them.
type Ticker struct {
	Symbol        string `json:"symbol"`
	Name          string `json:"name"`
	Price         string `json:"price"`
	ChangePercent string `json:"changePercent"`
}

// GainersLosersSnapshot holds the top market movers in upstream ranking order.
// Truncation to a display count happens at the UI boundary, never here.
type GainersLosersSnapshot struct {
	TopGainers []Ticker `json:"topGainers"`
	TopLosers  []Ticker `json:"topLosers"`
}

// SearchResult is a single symbol-search match.
type SearchResult struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

// TimeSeriesPoint is one sampled close price.
type TimeSeriesPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Close     float64   `json:"close"`
}

// TimeSeries is an ordered sequence of points, ascending by timestamp.
type TimeSeries []TimeSeriesPoint

// Resolution is the sampling granularity of a time series.
type Resolution string

const (
	ResolutionIntraday5Min Resolution = "intraday-5min"
	ResolutionDaily        Resolution = "daily"
	ResolutionWeekly       Resolution = "weekly"
	ResolutionMonthly      Resolution = "monthly"
)

// ParseResolution converts a string to a Resolution.
func ParseResolution(s string) (Resolution, error) {
	switch Resolution(s) {
	case ResolutionIntraday5Min, ResolutionDaily, ResolutionWeekly, ResolutionMonthly:
		return Resolution(s), nil
	case "":
		return ResolutionDaily, nil
	default:
		return "", fmt.Errorf("unknown resolution: %q", s)
	}
}
