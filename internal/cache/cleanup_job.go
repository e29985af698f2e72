package cache

import (
	"time"

	"github.com/rs/zerolog"
)

// DefaultRetention is how long untouched rows are kept before pruning.
// It is deliberately much longer than any TTL: stale entries stay available
// for serve-stale-on-error across multi-day upstream outages.
const DefaultRetention = 7 * 24 * time.Hour

// CleanupJob prunes cache rows that have not been rewritten within the
// retention window. It should be scheduled to run daily.
type CleanupJob struct {
	store     *Store
	retention time.Duration
	log       zerolog.Logger
}

// NewCleanupJob creates a new cache cleanup job.
func NewCleanupJob(store *Store, retention time.Duration, log zerolog.Logger) *CleanupJob {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &CleanupJob{
		store:     store,
		retention: retention,
		log:       log.With().Str("job", "cache_cleanup").Logger(),
	}
}

// Run executes the cleanup job.
func (j *CleanupJob) Run() error {
	cutoff := time.Now().Add(-j.retention)

	deleted, err := j.store.DeleteOlderThan(cutoff)
	if err != nil {
		j.log.Error().Err(err).Msg("Failed to prune cache rows")
		return err
	}

	if deleted > 0 {
		j.log.Info().Int64("deleted", deleted).Msg("Pruned old cache rows")
	}

	return nil
}

// Name returns the job name for scheduling and logging.
func (j *CleanupJob) Name() string {
	return "cache_cleanup"
}
