package reliability

import (
	"context"
	"time"
)

// BackupJob runs scheduled backups.
type BackupJob struct {
	service *BackupService
	timeout time.Duration
}

// NewBackupJob wraps service for the scheduler.
func NewBackupJob(service *BackupService) *BackupJob {
	return &BackupJob{service: service, timeout: 10 * time.Minute}
}

func (j *BackupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	_, err := j.service.CreateAndUpload(ctx)
	return err
}

func (j *BackupJob) Name() string {
	return "database_backup"
}
