package marketdata

import (
	"math"

	"github.com/markcheno/go-talib"
	"gonum.org/v1/gonum/stat"

	"github.com/madhav2145/Stocks-and-ETFS-broking-platform/internal/domain"
)

// SeriesSummary holds the aggregate statistics the chart view uses for
// y-axis scaling and the header line.
type SeriesSummary struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stdDev"`
}

// Summarize computes summary statistics over a series' close prices.
// An empty series yields the zero summary.
func Summarize(series domain.TimeSeries) SeriesSummary {
	if len(series) == 0 {
		return SeriesSummary{}
	}

	closes := closesOf(series)

	min, max := closes[0], closes[0]
	for _, c := range closes[1:] {
		min = math.Min(min, c)
		max = math.Max(max, c)
	}

	summary := SeriesSummary{
		Min:  min,
		Max:  max,
		Mean: stat.Mean(closes, nil),
	}
	if len(closes) > 1 {
		summary.StdDev = stat.StdDev(closes, nil)
	}
	return summary
}

// SMA computes a simple moving average overlay aligned with the series.
// talib leaves the warm-up positions before the window fills at zero; they
// are returned as-is so the caller can skip them. Returns nil when the
// series is shorter than the period or the period is invalid.
func SMA(series domain.TimeSeries, period int) []float64 {
	if period < 2 || len(series) < period {
		return nil
	}
	return talib.Sma(closesOf(series), period)
}

func closesOf(series domain.TimeSeries) []float64 {
	closes := make([]float64, len(series))
	for i, p := range series {
		closes[i] = p.Close
	}
	return closes
}
