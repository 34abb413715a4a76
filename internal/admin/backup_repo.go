package admin

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/pixcheckout-backend/pkg/db/models"
)

// BackupRepository persists transaction snapshots.
type BackupRepository interface {
	WithTx(tx *gorm.DB) BackupRepository
	Create(ctx context.Context, backup *models.Backup) error
	Find(ctx context.Context, id uuid.UUID) (*models.Backup, error)
	Latest(ctx context.Context, limit int) ([]models.Backup, error)
	MarkRestored(ctx context.Context, id uuid.UUID, at time.Time) error
	DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type backupRepository struct {
	db *gorm.DB
}

func NewBackupRepository(db *gorm.DB) BackupRepository {
	return &backupRepository{db: db}
}

func (r *backupRepository) WithTx(tx *gorm.DB) BackupRepository {
	if tx == nil {
		return r
	}
	return &backupRepository{db: tx}
}

func (r *backupRepository) Create(ctx context.Context, backup *models.Backup) error {
	return r.db.WithContext(ctx).Create(backup).Error
}

func (r *backupRepository) Find(ctx context.Context, id uuid.UUID) (*models.Backup, error) {
	var row models.Backup
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *backupRepository) Latest(ctx context.Context, limit int) ([]models.Backup, error) {
	var rows []models.Backup
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *backupRepository) MarkRestored(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Backup{}).
		Where("id = ?", id).
		Update("restored_at", at.UTC()).Error
}

func (r *backupRepository) DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("created_at < ?", cutoff.UTC()).
		Delete(&models.Backup{})
	return res.RowsAffected, res.Error
}
