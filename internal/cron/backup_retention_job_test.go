package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/angelmondragon/pixcheckout-backend/pkg/logger"
)

type fakeBackupPurger struct {
	retention time.Duration
	err       error
}

func (f *fakeBackupPurger) PurgeBackups(_ context.Context, retention time.Duration) (int64, error) {
	f.retention = retention
	return 3, f.err
}

func TestBackupRetentionJobUsesDefaultRetention(t *testing.T) {
	purger := &fakeBackupPurger{}
	job, err := NewBackupRetentionJob(BackupRetentionJobParams{
		Logger:  logger.New(logger.Options{ServiceName: "test"}),
		Backups: purger,
	})
	if err != nil {
		t.Fatalf("NewBackupRetentionJob: %v", err)
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if purger.retention != defaultBackupRetention {
		t.Fatalf("expected %s, got %s", defaultBackupRetention, purger.retention)
	}
}

func TestBackupRetentionJobPropagatesError(t *testing.T) {
	job, _ := NewBackupRetentionJob(BackupRetentionJobParams{
		Logger:    logger.New(logger.Options{ServiceName: "test"}),
		Backups:   &fakeBackupPurger{err: errors.New("db down")},
		Retention: time.Hour,
	})
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
