package alphavantage

import (
	"encoding/json"
	"strings"

	"github.com/madhav2145/Stocks-and-ETFS-broking-platform/internal/domain"
)

// flexString decodes a JSON string, number, bool, or null into a string.
// It never fails; anything unrecognizable becomes "". Upstream records mix
// string and numeric encodings for the same field, so every raw field goes
// through this type.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	trimmed := strings.TrimSpace(string(b))
	if trimmed == "" || trimmed == "null" {
		*f = ""
		return nil
	}

	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			*f = ""
			return nil
		}
		*f = flexString(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		*f = ""
		return nil
	}
	*f = flexString(n.String())
	return nil
}

// rawTicker is the union of field spellings seen across upstream payloads.
type rawTicker struct {
	Ticker           flexString `json:"ticker"`
	Symbol           flexString `json:"symbol"`
	Name             flexString `json:"name"`
	Price            flexString `json:"price"`
	Close            flexString `json:"close"`
	ChangePercentage flexString `json:"change_percentage"`
	Change           flexString `json:"change"`
}

// symbolOf resolves the ticker|symbol ambiguity. Uppercased for lookups.
func symbolOf(r rawTicker) string {
	for _, candidate := range []flexString{r.Ticker, r.Symbol} {
		if s := strings.TrimSpace(string(candidate)); s != "" {
			return strings.ToUpper(s)
		}
	}
	return ""
}

func nameOf(r rawTicker) string {
	return strings.TrimSpace(string(r.Name))
}

// priceOf resolves the price|close ambiguity.
func priceOf(r rawTicker) string {
	if s := strings.TrimSpace(string(r.Price)); s != "" {
		return s
	}
	return strings.TrimSpace(string(r.Close))
}

// changeOf resolves the change_percentage|change ambiguity.
func changeOf(r rawTicker) string {
	if s := strings.TrimSpace(string(r.ChangePercentage)); s != "" {
		return s
	}
	return strings.TrimSpace(string(r.Change))
}

// normalizeRecord maps one raw upstream record to a Ticker. Total: any
// record, however malformed, yields a Ticker with empty-string fields
// rather than an error.
func normalizeRecord(raw json.RawMessage) domain.Ticker {
	var r rawTicker
	// flexString absorbs field-level weirdness; only a non-object record
	// can fail here, and that yields the zero rawTicker
	_ = json.Unmarshal(raw, &r)

	return domain.Ticker{
		Symbol:        symbolOf(r),
		Name:          nameOf(r),
		Price:         priceOf(r),
		ChangePercent: changeOf(r),
	}
}

// normalizeRecords maps a raw list preserving upstream ranking order.
// A nil list normalizes to an empty sequence.
func normalizeRecords(raws []json.RawMessage) []domain.Ticker {
	tickers := make([]domain.Ticker, 0, len(raws))
	for _, raw := range raws {
		tickers = append(tickers, normalizeRecord(raw))
	}
	return tickers
}
