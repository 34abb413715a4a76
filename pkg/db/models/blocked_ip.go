package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const DefaultBlockRedirectURL = "https://google.com"

// BlockedIP denies the checkout form to an address. Only the newest active row per
// address is authoritative; unblocking flips Active instead of deleting history.
type BlockedIP struct {
	ID            uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	IPAddress     string     `gorm:"column:ip_address;not null" json:"ip_address"`
	TransactionID *uuid.UUID `gorm:"column:transaction_id;type:uuid" json:"transaction_id"`
	RedirectURL   string     `gorm:"column:redirect_url;not null;default:'https://google.com'" json:"redirect_url"`
	Active        bool       `gorm:"column:active;not null" json:"active"`
	CreatedAt     time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (BlockedIP) TableName() string { return "blocked_ips" }

func (b *BlockedIP) BeforeCreate(*gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	if b.RedirectURL == "" {
		b.RedirectURL = DefaultBlockRedirectURL
	}
	return nil
}
