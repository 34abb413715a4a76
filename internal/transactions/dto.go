package transactions

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/pixcheckout-backend/pkg/db/models"
	"github.com/angelmondragon/pixcheckout-backend/pkg/enums"
	"github.com/angelmondragon/pixcheckout-backend/pkg/pagination"
)

// NewTransaction carries the buyer data captured at the first checkout step.
// Empty strings are stored as NULL.
type NewTransaction struct {
	Name       string
	Email      string
	Phone      string
	Whatsapp   string
	CPF        string
	TotalValue decimal.Decimal
	IPAddress  string
}

// Match selects one transaction either by id or by provider id.
type Match struct {
	ID    uuid.UUID
	PixID string
}

func ByID(id uuid.UUID) Match { return Match{ID: id} }

func ByPixID(pixID string) Match { return Match{PixID: pixID} }

func (m Match) String() string {
	if m.ID != uuid.Nil {
		return m.ID.String()
	}
	return "pix:" + m.PixID
}

func (m Match) empty() bool {
	return m.ID == uuid.Nil && m.PixID == ""
}

// StatusUpdate is the outcome of UpdateStatus. Changed is false when the
// stored status did not accept the write (terminal or repeated status).
type StatusUpdate struct {
	Transaction *models.Transaction
	Previous    enums.TransactionStatus
	Changed     bool
}

// AttachIntentInput binds a provider payment intent to a pending transaction.
type AttachIntentInput struct {
	PixID       string
	TotalValue  decimal.Decimal
	UpsellAdded bool
}

// ListFilter narrows admin listings. Zero values disable each filter.
type ListFilter struct {
	Status enums.TransactionStatus
	From   *time.Time
	To     *time.Time
	Limit  int
	Cursor *pagination.Cursor
}

// ListResult is one page of transactions, newest first.
type ListResult struct {
	Items      []models.Transaction `json:"items"`
	NextCursor string               `json:"next_cursor,omitempty"`
}

// Change is the notification carried by the change feed for one status transition.
type Change struct {
	TransactionID uuid.UUID               `json:"transaction_id"`
	PixID         string                  `json:"pix_id,omitempty"`
	Status        enums.TransactionStatus `json:"status"`
	TotalValue    decimal.Decimal         `json:"total_value"`
}

func changeFrom(txn *models.Transaction) Change {
	c := Change{
		TransactionID: txn.ID,
		Status:        txn.Status,
		TotalValue:    txn.TotalValue,
	}
	if txn.PixID != nil {
		c.PixID = *txn.PixID
	}
	return c
}

func nullable(value string) *string {
	if value == "" {
		return nil
	}
	v := value
	return &v
}
