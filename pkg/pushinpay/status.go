package pushinpay

import (
	"strings"

	"github.com/angelmondragon/pixcheckout-backend/pkg/enums"
)

// NormalizeStatus maps provider status vocabulary onto the transaction lattice.
// Anything that is neither a settlement nor a cancellation is treated as pending.
func NormalizeStatus(raw string) enums.TransactionStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "paid", "approved", "confirmed":
		return enums.TransactionStatusPaid
	case "cancelled", "canceled", "expired":
		return enums.TransactionStatusCancelled
	default:
		return enums.TransactionStatusPending
	}
}

// IsPaid reports whether the provider considers the intent settled.
func (s *PaymentStatus) IsPaid() bool {
	return s != nil && NormalizeStatus(s.Status) == enums.TransactionStatusPaid
}
