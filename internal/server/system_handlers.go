package server

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/madhav2145/Stocks-and-ETFS-broking-platform/internal/database"
)

// SystemHandlers handles system monitoring endpoints.
type SystemHandlers struct {
	log         zerolog.Logger
	dataDir     string
	startupTime time.Time
	dbs         []*database.DB
	rateLimit   RateLimitReporter
}

// NewSystemHandlers creates a new system handlers instance
func NewSystemHandlers(log zerolog.Logger, dataDir string, dbs []*database.DB, rateLimit RateLimitReporter) *SystemHandlers {
	h := &SystemHandlers{
		log:         log.With().Str("component", "system_handlers").Logger(),
		dataDir:     dataDir,
		startupTime: time.Now(),
		rateLimit:   rateLimit,
	}
	for _, db := range dbs {
		if db != nil {
			h.dbs = append(h.dbs, db)
		}
	}
	return h
}

// HandleSystemInfo reports CPU, memory, uptime, and the remaining
// upstream request budget.
func (h *SystemHandlers) HandleSystemInfo(w http.ResponseWriter, r *http.Request) {
	cpuPercent, memPercent := h.getSystemStats()

	info := map[string]interface{}{
		"cpu_percent":    cpuPercent,
		"memory_percent": memPercent,
		"uptime_seconds": int64(time.Since(h.startupTime).Seconds()),
	}
	if h.rateLimit != nil {
		info["remaining_api_requests"] = h.rateLimit.GetRemainingRequests()
	}

	h.writeJSON(w, info)
}

// HandleDatabaseStats reports per-database health, row counts, and the
// combined on-disk size.
func (h *SystemHandlers) HandleDatabaseStats(w http.ResponseWriter, r *http.Request) {
	databases := make(map[string]interface{}, len(h.dbs))

	for _, db := range h.dbs {
		entry := map[string]interface{}{"healthy": true}

		if err := db.HealthCheck(r.Context()); err != nil {
			h.log.Warn().Err(err).Str("database", db.Name()).Msg("Database health check failed")
			entry["healthy"] = false
		}

		var rows int64
		if err := db.Conn().QueryRow("SELECT COUNT(*) FROM kv_store").Scan(&rows); err != nil {
			h.log.Warn().Err(err).Str("database", db.Name()).Msg("Failed to count rows")
		} else {
			entry["rows"] = rows
		}

		databases[db.Name()] = entry
	}

	h.writeJSON(w, map[string]interface{}{
		"databases":  databases,
		"disk_bytes": h.databaseDiskUsage(),
	})
}

// databaseDiskUsage sums the sizes of the database files under dataDir,
// including WAL and shared-memory sidecars.
func (h *SystemHandlers) databaseDiskUsage() int64 {
	var total int64

	entries, err := os.ReadDir(h.dataDir)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to read data directory")
		return 0
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.Contains(entry.Name(), ".db") {
			continue
		}
		info, err := os.Stat(filepath.Join(h.dataDir, entry.Name()))
		if err != nil {
			continue
		}
		total += info.Size()
	}

	return total
}

// getSystemStats calculates CPU and RAM usage percentages.
// Uses a short interval (100ms) so the endpoint stays responsive.
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return cpuPercent[0], 0
	}

	return cpuPercent[0], memStat.UsedPercent
}

func (h *SystemHandlers) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
