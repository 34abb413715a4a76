package siteconfig

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/pixcheckout-backend/pkg/db/models"
)

// Repository persists raw site_config rows.
type Repository interface {
	All(ctx context.Context) ([]models.SiteConfigEntry, error)
	Upsert(ctx context.Context, key, value string) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) All(ctx context.Context) ([]models.SiteConfigEntry, error) {
	var rows []models.SiteConfigEntry
	err := r.db.WithContext(ctx).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "key"}}).
		Find(&rows).Error
	return rows, err
}

func (r *repository) Upsert(ctx context.Context, key, value string) error {
	entry := models.SiteConfigEntry{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&entry).Error
}
