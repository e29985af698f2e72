// Package logos resolves a display image for a ticker symbol.
// Upstream logo storage is keyed inconsistently ("BRK.B" vs "BRK-B" vs "BRK"),
// so several candidate URLs are derived per symbol and probed in order; the
// first one that loads wins, and a local placeholder covers the rest.
package logos

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/madhav2145/Stocks-and-ETFS-broking-platform/internal/batch"
)

// PlaceholderAsset is the bundled fallback image reference returned to the
// client when no candidate resolves.
const PlaceholderAsset = "assets/logo_placeholder.png"

// defaultConcurrency bounds parallel probing across symbols.
const defaultConcurrency = 4

// CandidateSymbols derives the de-duplicated symbol variants to try, most
// specific first, base ticker last. The order is deterministic for a given
// input.
func CandidateSymbols(symbol string) []string {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil
	}

	variants := []string{
		symbol,
		strings.ReplaceAll(symbol, ".", "-"),
		strings.ReplaceAll(symbol, "-", "."),
	}
	// Base ticker: prefix before any class suffix separator
	if i := strings.IndexAny(symbol, ".-"); i > 0 {
		variants = append(variants, symbol[:i])
	}

	seen := make(map[string]struct{}, len(variants))
	out := make([]string, 0, len(variants))
	for _, v := range variants {
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// Resolution is the per-symbol outcome: either a loadable URL or the
// placeholder marker.
type Resolution struct {
	Symbol      string `json:"symbol"`
	URL         string `json:"url,omitempty"`
	Placeholder bool   `json:"placeholder"`
}

// Resolver probes candidate logo URLs.
type Resolver struct {
	template    string
	httpClient  *http.Client
	concurrency int
	log         zerolog.Logger
}

// NewResolver creates a resolver for the given URL template. The template
// must contain exactly one %s for the symbol variant.
func NewResolver(template string, log zerolog.Logger) *Resolver {
	return &Resolver{
		template: template,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
		concurrency: defaultConcurrency,
		log:         log.With().Str("component", "logo_resolver").Logger(),
	}
}

// CandidateURLs formats each symbol variant into the logo URL template.
func (r *Resolver) CandidateURLs(symbol string) []string {
	variants := CandidateSymbols(symbol)
	urls := make([]string, 0, len(variants))
	for _, v := range variants {
		urls = append(urls, fmt.Sprintf(r.template, v))
	}
	return urls
}

// Resolve probes the candidates for one symbol in order and returns the
// first URL that loads. A failed probe moves on to the next candidate; only
// when every candidate fails does the result fall back to the placeholder.
func (r *Resolver) Resolve(ctx context.Context, symbol string) Resolution {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	for _, url := range r.CandidateURLs(symbol) {
		if r.probe(ctx, url) {
			return Resolution{Symbol: symbol, URL: url}
		}
	}

	r.log.Debug().Str("symbol", symbol).Msg("No logo candidate resolved, using placeholder")
	return Resolution{Symbol: symbol, Placeholder: true}
}

// ResolveAll resolves logos for a batch of symbols concurrently. Symbols are
// independent: one symbol exhausting its candidates degrades that symbol to
// the placeholder without affecting the others.
func (r *Resolver) ResolveAll(ctx context.Context, symbols []string) []Resolution {
	outcomes := batch.Map(ctx, symbols, r.concurrency, func(ctx context.Context, symbol string) (Resolution, error) {
		return r.Resolve(ctx, symbol), nil
	})

	resolutions := make([]Resolution, len(outcomes))
	for i, o := range outcomes {
		resolutions[i] = o.Value
	}
	return resolutions
}

// probe reports whether the URL serves an image.
func (r *Resolver) probe(ctx context.Context, url string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false
	}

	contentType := resp.Header.Get("Content-Type")
	return contentType == "" || strings.HasPrefix(contentType, "image/")
}
