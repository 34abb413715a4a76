package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Backup is a snapshot of the transactions table taken before a bulk delete.
type Backup struct {
	ID          uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name        string         `gorm:"column:name;not null" json:"name"`
	Description *string        `gorm:"column:description" json:"description"`
	Data        datatypes.JSON `gorm:"column:data;type:jsonb;not null" json:"data"`
	CreatedAt   time.Time      `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	RestoredAt  *time.Time     `gorm:"column:restored_at" json:"restored_at"`
}

func (Backup) TableName() string { return "backups" }

func (b *Backup) BeforeCreate(*gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}
