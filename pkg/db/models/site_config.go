package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SiteConfigEntry is one raw key/value row of the site configuration.
type SiteConfigEntry struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Key       string    `gorm:"column:key;not null;uniqueIndex"`
	Value     string    `gorm:"column:value;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (SiteConfigEntry) TableName() string { return "site_config" }

func (e *SiteConfigEntry) BeforeCreate(*gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
