package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UpsellOffer is an optional add-on shown on the payment step. Prices are stored
// as BRL display strings ("197,00") and parsed with pkg/money.
type UpsellOffer struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Title         string    `gorm:"column:title;not null" json:"title"`
	Description   string    `gorm:"column:description;not null;default:''" json:"description"`
	Price         string    `gorm:"column:price;not null" json:"price"`
	OriginalPrice *string   `gorm:"column:original_price" json:"original_price"`
	ImageURL      *string   `gorm:"column:image_url" json:"image_url"`
	Order         int       `gorm:"column:order;not null" json:"order"`
	Active        bool      `gorm:"column:active;not null" json:"active"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (UpsellOffer) TableName() string { return "upsell_config" }

func (u *UpsellOffer) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
