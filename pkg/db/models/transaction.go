package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/pixcheckout-backend/pkg/enums"
)

// DefaultCustomerName is stored when the buyer leaves the name blank.
const DefaultCustomerName = "Não informado"

// Transaction is one checkout attempt and its PIX payment lifecycle.
type Transaction struct {
	ID          uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	PixID       *string                 `gorm:"column:pix_id" json:"pix_id"`
	Name        string                  `gorm:"column:name;not null" json:"name"`
	Email       *string                 `gorm:"column:email" json:"email"`
	Phone       *string                 `gorm:"column:phone" json:"phone"`
	Whatsapp    *string                 `gorm:"column:whatsapp" json:"whatsapp"`
	CPF         *string                 `gorm:"column:cpf" json:"cpf"`
	TotalValue  decimal.Decimal         `gorm:"column:total_value;type:numeric(10,2);not null" json:"total_value"`
	UpsellAdded bool                    `gorm:"column:upsell_added;not null;default:false" json:"upsell_added"`
	Status      enums.TransactionStatus `gorm:"column:status;type:text;not null;default:'pending'" json:"status"`
	IPAddress   *string                 `gorm:"column:ip_address" json:"ip_address"`
	CreatedAt   time.Time               `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time               `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Transaction) TableName() string { return "transactions" }

func (t *Transaction) BeforeCreate(*gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.Status == "" {
		t.Status = enums.TransactionStatusPending
	}
	return nil
}
