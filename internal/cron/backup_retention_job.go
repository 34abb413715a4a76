package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/pixcheckout-backend/pkg/logger"
)

const defaultBackupRetention = 90 * 24 * time.Hour

type backupPurger interface {
	PurgeBackups(ctx context.Context, retention time.Duration) (int64, error)
}

type BackupRetentionJobParams struct {
	Logger    *logger.Logger
	Backups   backupPurger
	Retention time.Duration
}

func NewBackupRetentionJob(params BackupRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Backups == nil {
		return nil, fmt.Errorf("backup service required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = defaultBackupRetention
	}
	return &backupRetentionJob{logg: params.Logger, backups: params.Backups, retention: retention}, nil
}

type backupRetentionJob struct {
	logg      *logger.Logger
	backups   backupPurger
	retention time.Duration
}

func (j *backupRetentionJob) Name() string { return "backup-retention" }

func (j *backupRetentionJob) Run(ctx context.Context) error {
	deleted, err := j.backups.PurgeBackups(ctx, j.retention)
	if err != nil {
		return fmt.Errorf("backup retention: %w", err)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"retention_hours": int(j.retention.Hours()),
		"rows_deleted":    deleted,
	}), "backup retention cleanup complete")
	return nil
}
