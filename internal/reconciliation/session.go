package reconciliation

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Session is the per-checkout context shared by every observer of one payment.
// The latches live here, not in the store, so two tabs never share a flag.
type Session struct {
	ID        string
	IPAddress string
	UserAgent string

	mu            sync.RWMutex
	transactionID uuid.UUID
	pixID         string
	amount        decimal.Decimal
	lastSeen      time.Time

	purchaseTracked   atomic.Bool
	checkoutInitiated atomic.Bool
}

func NewSession(id, ipAddress, userAgent string) *Session {
	return &Session{
		ID:        id,
		IPAddress: ipAddress,
		UserAgent: userAgent,
		lastSeen:  time.Now(),
	}
}

// BindTransaction records the transaction created at the first step.
func (s *Session) BindTransaction(id uuid.UUID) {
	s.mu.Lock()
	s.transactionID = id
	s.mu.Unlock()
}

// BindIntent records the provider id and the amount the buyer was charged.
func (s *Session) BindIntent(pixID string, amount decimal.Decimal) {
	s.mu.Lock()
	s.pixID = pixID
	s.amount = amount
	s.mu.Unlock()
}

func (s *Session) TransactionID() uuid.UUID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.transactionID
}

func (s *Session) PixID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pixID
}

func (s *Session) Amount() decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.amount
}

// Touch extends the idle deadline.
func (s *Session) Touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

// IdleSince reports when the session was last touched.
func (s *Session) IdleSince() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSeen
}

// ClaimPurchase flips the purchase latch. Only the first caller gets true.
func (s *Session) ClaimPurchase() bool {
	return s.purchaseTracked.CompareAndSwap(false, true)
}

func (s *Session) PurchaseTracked() bool {
	return s.purchaseTracked.Load()
}

// ClaimCheckoutInitiated flips the InitiateCheckout latch. Only the first caller gets true.
func (s *Session) ClaimCheckoutInitiated() bool {
	return s.checkoutInitiated.CompareAndSwap(false, true)
}
