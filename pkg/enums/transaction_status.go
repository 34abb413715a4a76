package enums

import "fmt"

// TransactionStatus tracks a checkout transaction through the payment lattice
// pending -> awaiting_payment -> paid | cancelled.
type TransactionStatus string

const (
	TransactionStatusPending         TransactionStatus = "pending"
	TransactionStatusAwaitingPayment TransactionStatus = "awaiting_payment"
	TransactionStatusPaid            TransactionStatus = "paid"
	TransactionStatusCancelled       TransactionStatus = "cancelled"
)

var validTransactionStatuses = []TransactionStatus{
	TransactionStatusPending,
	TransactionStatusAwaitingPayment,
	TransactionStatusPaid,
	TransactionStatusCancelled,
}

// transitionSources lists, per target status, the stored statuses a write may replace.
// A write whose stored status is not listed matches no row and leaves the record as is.
var transitionSources = map[TransactionStatus][]TransactionStatus{
	TransactionStatusPending:         {},
	TransactionStatusAwaitingPayment: {TransactionStatusPending},
	TransactionStatusPaid:            {TransactionStatusPending, TransactionStatusAwaitingPayment},
	TransactionStatusCancelled:       {TransactionStatusPending, TransactionStatusAwaitingPayment},
}

// String implements fmt.Stringer.
func (s TransactionStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known TransactionStatus.
func (s TransactionStatus) IsValid() bool {
	for _, candidate := range validTransactionStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition may leave this status.
func (s TransactionStatus) IsTerminal() bool {
	return s == TransactionStatusPaid || s == TransactionStatusCancelled
}

// Sources returns the stored statuses that may move to s.
func (s TransactionStatus) Sources() []TransactionStatus {
	return transitionSources[s]
}

// CanTransitionTo reports whether a record currently in s may move to next.
func (s TransactionStatus) CanTransitionTo(next TransactionStatus) bool {
	for _, candidate := range transitionSources[next] {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseTransactionStatus converts raw input into a TransactionStatus.
func ParseTransactionStatus(value string) (TransactionStatus, error) {
	for _, candidate := range validTransactionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid transaction status %q", value)
}
