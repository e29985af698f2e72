package marketdata

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/madhav2145/Stocks-and-ETFS-broking-platform/internal/domain"
)

func seriesOf(closes ...float64) domain.TimeSeries {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	series := make(domain.TimeSeries, len(closes))
	for i, c := range closes {
		series[i] = domain.TimeSeriesPoint{Timestamp: base.AddDate(0, 0, i), Close: c}
	}
	return series
}

func TestSummarize(t *testing.T) {
	summary := Summarize(seriesOf(10, 20, 30))

	assert.Equal(t, 10.0, summary.Min)
	assert.Equal(t, 30.0, summary.Max)
	assert.InDelta(t, 20.0, summary.Mean, 1e-9)
	assert.InDelta(t, 10.0, summary.StdDev, 1e-9)
}

func TestSummarizeEmptySeries(t *testing.T) {
	assert.Equal(t, SeriesSummary{}, Summarize(nil))
}

func TestSummarizeSinglePoint(t *testing.T) {
	summary := Summarize(seriesOf(42))
	assert.Equal(t, 42.0, summary.Min)
	assert.Equal(t, 42.0, summary.Max)
	assert.Equal(t, 0.0, summary.StdDev)
}

func TestSMA(t *testing.T) {
	series := seriesOf(1, 2, 3, 4, 5)

	sma := SMA(series, 3)
	require.Len(t, sma, 5)
	assert.InDelta(t, 2.0, sma[2], 1e-9)
	assert.InDelta(t, 3.0, sma[3], 1e-9)
	assert.InDelta(t, 4.0, sma[4], 1e-9)
}

func TestSMATooShort(t *testing.T) {
	assert.Nil(t, SMA(seriesOf(1, 2), 5))
	assert.Nil(t, SMA(seriesOf(1, 2, 3), 1))
}
