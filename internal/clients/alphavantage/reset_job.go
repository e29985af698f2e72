package alphavantage

import "github.com/rs/zerolog"

// ResetJob resets the client's daily request counter.
// Scheduled at midnight, matching the upstream quota window.
type ResetJob struct {
	client *Client
	log    zerolog.Logger
}

// NewResetJob creates a new counter reset job.
func NewResetJob(client *Client, log zerolog.Logger) *ResetJob {
	return &ResetJob{
		client: client,
		log:    log.With().Str("job", "ratelimit_reset").Logger(),
	}
}

// Run executes the reset.
func (j *ResetJob) Run() error {
	j.client.ResetDailyCounter()
	return nil
}

// Name returns the job name for scheduling and logging.
func (j *ResetJob) Name() string {
	return "ratelimit_reset"
}
