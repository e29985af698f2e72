package marketdata

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/madhav2145/Stocks-and-ETFS-broking-platform/internal/domain"
)

// DefaultDebounce is the quiet period before a search request is issued.
const DefaultDebounce = 400 * time.Millisecond

// Searcher coalesces rapid successive queries (one per keystroke) into one
// upstream request per quiet period. Every query gets a monotonically
// increasing sequence number; a response whose sequence number is no longer
// the latest is dropped, so a slow old request can never overwrite the
// results of a newer one.
//
// Searcher is the library entry point for interactive, keystroke-driven
// consumers embedding this module directly. The HTTP search endpoint is a
// synchronous request/response surface and calls Service.SearchSymbols
// without debouncing; its callers own their own typing cadence.
type Searcher struct {
	search   func(query string) ([]domain.SearchResult, error)
	debounce time.Duration
	log      zerolog.Logger

	mu    sync.Mutex
	seq   uint64
	timer *time.Timer
}

// NewSearcher creates a debounced searcher over the service.
func NewSearcher(svc *Service, log zerolog.Logger) *Searcher {
	return &Searcher{
		search:   svc.SearchSymbols,
		debounce: DefaultDebounce,
		log:      log.With().Str("component", "searcher").Logger(),
	}
}

// Query schedules a search for the given input. If another query arrives
// before the quiet period elapses, this one is superseded and deliver is
// never called for it. deliver runs on a background goroutine.
func (s *Searcher) Query(query string, deliver func([]domain.SearchResult, error)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	seq := s.seq

	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.debounce, func() {
		s.run(seq, query, deliver)
	})
}

// run executes the search for one query, dropping it when superseded.
func (s *Searcher) run(seq uint64, query string, deliver func([]domain.SearchResult, error)) {
	if !s.isLatest(seq) {
		return
	}

	results, err := s.search(query)

	// Re-check: a newer query may have been issued while this one was
	// in flight, and its results must win
	if !s.isLatest(seq) {
		s.log.Debug().Str("query", query).Msg("Dropping superseded search response")
		return
	}

	deliver(results, err)
}

func (s *Searcher) isLatest(seq uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return seq == s.seq
}
