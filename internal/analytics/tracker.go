// Package analytics turns checkout funnel moments into outbox events and, on the
// worker side, routes those events to BigQuery and the Facebook Conversions API.
package analytics

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/pixcheckout-backend/internal/reconciliation"
	"github.com/angelmondragon/pixcheckout-backend/internal/siteconfig"
	"github.com/angelmondragon/pixcheckout-backend/pkg/db/models"
	"github.com/angelmondragon/pixcheckout-backend/pkg/enums"
	"github.com/angelmondragon/pixcheckout-backend/pkg/logger"
	"github.com/angelmondragon/pixcheckout-backend/pkg/money"
	"github.com/angelmondragon/pixcheckout-backend/pkg/outbox"
	"github.com/angelmondragon/pixcheckout-backend/pkg/outbox/payloads"
)

const currencyBRL = "BRL"

// purchaseNamespace derives one Purchase event id per transaction, so a second
// session on an already paid transaction is dropped by the worker's guard and
// by the Conversions API's own event_id dedupe.
var purchaseNamespace = uuid.MustParse("6f1c1b8e-3d0a-4f57-9a52-0c7d2b41e9a3")

// PurchaseEventID is the stable outbox event id for a transaction's Purchase.
func PurchaseEventID(transactionID uuid.UUID) uuid.UUID {
	return uuid.NewSHA1(purchaseNamespace, []byte("purchase:"+transactionID.String()))
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type emitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type settingsLoader interface {
	Load(ctx context.Context) (siteconfig.Settings, error)
}

type transactionReader interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
}

// Tracker queues funnel events. The pixel id is stamped on a payload only when
// the matching pixel toggle is on, so the worker forwards exactly those events.
type Tracker struct {
	tx           txRunner
	outbox       emitter
	settings     settingsLoader
	transactions transactionReader
	sourceURL    string
	logg         *logger.Logger
}

func NewTracker(tx txRunner, outbox emitter, settings settingsLoader, transactions transactionReader, sourceURL string, logg *logger.Logger) (*Tracker, error) {
	if tx == nil {
		return nil, errors.New("tx runner required")
	}
	if outbox == nil {
		return nil, errors.New("outbox service required")
	}
	if settings == nil {
		return nil, errors.New("site config required")
	}
	if transactions == nil {
		return nil, errors.New("transaction store required")
	}
	return &Tracker{
		tx:           tx,
		outbox:       outbox,
		settings:     settings,
		transactions: transactions,
		sourceURL:    strings.TrimSpace(sourceURL),
		logg:         logg,
	}, nil
}

// TrackPurchase queues the Purchase event. Callers hold the session latch.
func (t *Tracker) TrackPurchase(ctx context.Context, purchase reconciliation.Purchase) error {
	session := purchase.Session
	base, err := t.pixelEvent(ctx, session, purchase.Amount, func(s siteconfig.Settings) bool { return s.PixelOnPurchase })
	if err != nil {
		return err
	}
	return t.emit(ctx, session, enums.EventPurchaseConfirmed, PurchaseEventID(session.TransactionID()), payloads.PurchaseConfirmedEvent{
		PixelEvent: base,
		Channel:    purchase.Channel,
	})
}

// TrackCheckoutInitiated queues InitiateCheckout for a freshly issued PIX intent.
func (t *Tracker) TrackCheckoutInitiated(ctx context.Context, session *reconciliation.Session, upsellAdded bool) error {
	base, err := t.pixelEvent(ctx, session, session.Amount(), func(s siteconfig.Settings) bool { return s.PixelOnCheckout })
	if err != nil {
		return err
	}
	return t.emit(ctx, session, enums.EventCheckoutInitiated, uuid.Nil, payloads.CheckoutInitiatedEvent{
		PixelEvent:  base,
		UpsellAdded: upsellAdded,
	})
}

// TrackAddToCart queues AddToCart for an upsell the buyer selected.
func (t *Tracker) TrackAddToCart(ctx context.Context, session *reconciliation.Session, upsellID uuid.UUID, title string, price decimal.Decimal) error {
	base, err := t.pixelEvent(ctx, session, price, func(s siteconfig.Settings) bool { return s.PixelOnCheckout })
	if err != nil {
		return err
	}
	if strings.TrimSpace(title) != "" {
		base.ContentName = title
	}
	return t.emit(ctx, session, enums.EventAddToCart, uuid.Nil, payloads.AddToCartEvent{
		PixelEvent: base,
		UpsellID:   upsellID,
	})
}

func (t *Tracker) pixelEvent(ctx context.Context, session *reconciliation.Session, amount decimal.Decimal, enabled func(siteconfig.Settings) bool) (payloads.PixelEvent, error) {
	if session == nil || session.TransactionID() == uuid.Nil {
		return payloads.PixelEvent{}, errors.New("session has no transaction")
	}
	settings, err := t.settings.Load(ctx)
	if err != nil {
		return payloads.PixelEvent{}, err
	}
	txn, err := t.transactions.Get(ctx, session.TransactionID())
	if err != nil {
		return payloads.PixelEvent{}, err
	}

	event := payloads.PixelEvent{
		TransactionID:  txn.ID,
		PixID:          session.PixID(),
		ValueMinor:     money.ToMinor(amount),
		Currency:       currencyBRL,
		EmailHash:      HashEmail(deref(txn.Email)),
		PhoneHash:      HashPhone(deref(txn.Phone)),
		ContentName:    settings.SiteTitle,
		EventSourceURL: t.sourceURL,
	}
	if settings.PixelConfigured() && enabled(settings) {
		event.PixelID = settings.FacebookPixelID
	}
	return event, nil
}

func (t *Tracker) emit(ctx context.Context, session *reconciliation.Session, eventType enums.OutboxEventType, eventID uuid.UUID, data any) error {
	event := outbox.DomainEvent{
		EventID:       eventID,
		EventType:     eventType,
		AggregateType: enums.AggregateTransaction,
		AggregateID:   session.TransactionID(),
		Actor: &outbox.Actor{
			SessionID: session.ID,
			IPAddress: session.IPAddress,
			UserAgent: session.UserAgent,
		},
		Data: data,
	}
	err := t.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return t.outbox.Emit(ctx, tx, event)
	})
	if err != nil && t.logg != nil {
		t.logg.Error(t.logg.WithField(ctx, "event_type", string(eventType)), "analytics.track_failed", err)
	}
	return err
}

// HashEmail normalizes and SHA-256 hashes an e-mail the way the Conversions API expects.
func HashEmail(email string) string {
	normalized := strings.ToLower(strings.TrimSpace(email))
	if normalized == "" {
		return ""
	}
	return sha256Hex(normalized)
}

// HashPhone keeps digits only, prefixing the Brazilian country code when absent.
func HashPhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if digits == "" {
		return ""
	}
	if !strings.HasPrefix(digits, "55") || len(digits) <= 11 {
		digits = "55" + digits
	}
	return sha256Hex(digits)
}

func sha256Hex(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
