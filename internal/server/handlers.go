package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/madhav2145/Stocks-and-ETFS-broking-platform/internal/clients/alphavantage"
	"github.com/madhav2145/Stocks-and-ETFS-broking-platform/internal/domain"
	"github.com/madhav2145/Stocks-and-ETFS-broking-platform/internal/marketdata"
	"github.com/madhav2145/Stocks-and-ETFS-broking-platform/internal/watchlist"
)

// handleHealth returns basic health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":  "healthy",
		"version": "1.0.0",
		"service": "broking-platform",
	}

	s.writeJSON(w, http.StatusOK, response)
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError maps domain errors to HTTP status codes.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	var rateLimit alphavantage.ErrRateLimitExceeded
	var fetchFailed alphavantage.ErrFetchFailed
	switch {
	case errors.Is(err, watchlist.ErrUnknownGroup):
		status = http.StatusNotFound
	case errors.Is(err, watchlist.ErrDuplicateGroup):
		status = http.StatusConflict
	case errors.As(err, &rateLimit):
		status = http.StatusTooManyRequests
	case errors.As(err, &fetchFailed):
		status = http.StatusBadGateway
	}

	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) handleTopMovers(w http.ResponseWriter, r *http.Request) {
	snapshot, err := s.market.GetTopGainersLosers()
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, snapshot)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")

	results, err := s.market.SearchSymbols(query)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{"results": results})
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	overview, err := s.market.GetOverview(symbol)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, overview)
}

// timeSeriesResponse carries the series plus any requested indicators.
type timeSeriesResponse struct {
	Symbol     string                    `json:"symbol"`
	Resolution domain.Resolution         `json:"resolution"`
	Points     domain.TimeSeries         `json:"points"`
	SMA        []float64                 `json:"sma,omitempty"`
	Summary    *marketdata.SeriesSummary `json:"summary,omitempty"`
}

func (s *Server) handleTimeSeries(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(chi.URLParam(r, "symbol"))

	resolution, err := domain.ParseResolution(r.URL.Query().Get("resolution"))
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	series, err := s.market.GetTimeSeries(symbol, resolution)
	if err != nil {
		s.writeError(w, err)
		return
	}

	response := timeSeriesResponse{
		Symbol:     symbol,
		Resolution: resolution,
		Points:     series,
	}

	if raw := r.URL.Query().Get("sma"); raw != "" {
		period, err := strconv.Atoi(raw)
		if err != nil || period < 2 {
			s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "sma must be an integer >= 2"})
			return
		}
		response.SMA = marketdata.SMA(series, period)
	}

	if r.URL.Query().Get("summary") == "true" {
		summary := marketdata.Summarize(series)
		response.Summary = &summary
	}

	s.writeJSON(w, http.StatusOK, response)
}

func (s *Server) handleLogo(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	resolution := s.logos.Resolve(r.Context(), symbol)
	s.writeJSON(w, http.StatusOK, resolution)
}

func (s *Server) handleListWatchlists(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.watchlists.LoadAll())
}

type createWatchlistRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleCreateWatchlist(w http.ResponseWriter, r *http.Request) {
	var req createWatchlistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	if err := s.watchlists.CreateGroup(req.Name); err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, map[string]string{"name": req.Name})
}

func (s *Server) handleGetWatchlist(w http.ResponseWriter, r *http.Request) {
	group := chi.URLParam(r, "group")

	symbols, err := s.watchlists.Symbols(group)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"name":    group,
		"symbols": symbols,
	})
}

func (s *Server) handleDeleteWatchlist(w http.ResponseWriter, r *http.Request) {
	group := chi.URLParam(r, "group")

	if err := s.watchlists.DeleteGroup(group); err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type toggleSymbolRequest struct {
	Symbol string `json:"symbol"`
}

func (s *Server) handleToggleSymbol(w http.ResponseWriter, r *http.Request) {
	group := chi.URLParam(r, "group")

	var req toggleSymbolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Symbol) == "" {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "symbol is required"})
		return
	}

	added, err := s.watchlists.ToggleSymbol(group, req.Symbol)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"symbol": strings.ToUpper(strings.TrimSpace(req.Symbol)),
		"added":  added,
	})
}

func (s *Server) handleGroupQuotes(w http.ResponseWriter, r *http.Request) {
	group := chi.URLParam(r, "group")

	quotes, err := s.quotes.GroupQuotes(r.Context(), group)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"name":   group,
		"quotes": quotes,
	})
}

func (s *Server) handleTriggerBackup(w http.ResponseWriter, r *http.Request) {
	if s.backups == nil {
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "backups are not configured",
		})
		return
	}

	key, err := s.backups.CreateAndUpload(r.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("Manual backup failed")
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{
		"status": "success",
		"key":    key,
	})
}
