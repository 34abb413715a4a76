package pushinpaywebhook

import (
	"context"
	"encoding/json"
	"errors"
	"mime"
	"net/url"
	"strings"

	"github.com/angelmondragon/pixcheckout-backend/internal/transactions"
	"github.com/angelmondragon/pixcheckout-backend/pkg/db/models"
	"github.com/angelmondragon/pixcheckout-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pixcheckout-backend/pkg/errors"
	"github.com/angelmondragon/pixcheckout-backend/pkg/logger"
	"github.com/angelmondragon/pixcheckout-backend/pkg/metrics"
	"github.com/angelmondragon/pixcheckout-backend/pkg/pushinpay"
)

// Notification is one provider delivery. PushinPay posts form bodies by
// default and JSON when configured to.
type Notification struct {
	ID        string      `json:"id"`
	Status    string      `json:"status"`
	Value     json.Number `json:"value,omitempty"`
	PayerName string      `json:"payer_name,omitempty"`
	PayerCPF  string      `json:"payer_cpf,omitempty"`
}

// ParseNotification decodes a delivery body according to its content type.
func ParseNotification(contentType string, body []byte) (Notification, error) {
	mediaType, _, _ := mime.ParseMediaType(contentType)
	if mediaType == "application/json" {
		var n Notification
		dec := json.NewDecoder(strings.NewReader(string(body)))
		dec.UseNumber()
		if err := dec.Decode(&n); err != nil {
			return Notification{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid json body")
		}
		return n, nil
	}
	values, err := url.ParseQuery(string(body))
	if err != nil {
		return Notification{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid form body")
	}
	return Notification{
		ID:        values.Get("id"),
		Status:    values.Get("status"),
		Value:     json.Number(values.Get("value")),
		PayerName: values.Get("payer_name"),
		PayerCPF:  values.Get("payer_cpf"),
	}, nil
}

type statusStore interface {
	GetByPixID(ctx context.Context, pixID string) (*models.Transaction, error)
	UpdateStatus(ctx context.Context, match transactions.Match, status enums.TransactionStatus) (*transactions.StatusUpdate, error)
}

type guard interface {
	CheckAndMark(ctx context.Context, pixID string, status enums.TransactionStatus) (bool, error)
	Delete(ctx context.Context, pixID string, status enums.TransactionStatus) error
}

// Result is what the receiver reports back to the provider.
type Result struct {
	Transaction *models.Transaction
	Status      enums.TransactionStatus
	Changed     bool
	Duplicate   bool
}

type Service struct {
	store   statusStore
	guard   guard
	metrics *metrics.ReconciliationMetrics
	logg    *logger.Logger
}

// NewService builds the receiver. guard may be nil to process every delivery.
func NewService(store statusStore, g guard, m *metrics.ReconciliationMetrics, logg *logger.Logger) (*Service, error) {
	if store == nil {
		return nil, errors.New("transaction store required")
	}
	return &Service{store: store, guard: g, metrics: m, logg: logg}, nil
}

// Handle applies one delivery. Missing id is a validation error, an unknown id
// is NOT_FOUND, and a store failure leaves the guard cleared for the retry.
func (s *Service) Handle(ctx context.Context, n Notification) (*Result, error) {
	pixID := strings.TrimSpace(n.ID)
	if pixID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "ID do PIX não encontrado")
	}
	status := pushinpay.NormalizeStatus(n.Status)
	ctx = s.logg.WithFields(s.logg.WithProviderID(ctx, pixID), map[string]any{
		"provider_status": n.Status,
		"status":          string(status),
	})

	if status == enums.TransactionStatusPending {
		txn, err := s.store.GetByPixID(ctx, pixID)
		if err != nil {
			return nil, err
		}
		s.logg.Info(ctx, "webhook.pushinpay.ignored")
		return &Result{Transaction: txn, Status: txn.Status}, nil
	}

	if s.guard != nil {
		seen, err := s.guard.CheckAndMark(ctx, pixID, status)
		if err != nil {
			s.logg.Warn(ctx, "webhook.pushinpay.guard_unavailable")
		} else if seen {
			txn, err := s.store.GetByPixID(ctx, pixID)
			if err != nil {
				return nil, err
			}
			s.metrics.Observe(enums.ChannelWebhook.String(), "duplicate")
			return &Result{Transaction: txn, Status: txn.Status, Duplicate: true}, nil
		}
	}

	update, err := s.store.UpdateStatus(ctx, transactions.ByPixID(pixID), status)
	if err != nil {
		if s.guard != nil {
			if delErr := s.guard.Delete(context.WithoutCancel(ctx), pixID, status); delErr != nil {
				s.logg.Error(ctx, "webhook.pushinpay.guard_release_failed", delErr)
			}
		}
		s.metrics.Observe(enums.ChannelWebhook.String(), "error")
		return nil, err
	}

	result := "unchanged"
	if update.Changed {
		result = "applied"
	}
	s.metrics.Observe(enums.ChannelWebhook.String(), result)
	s.logg.Info(s.logg.WithTransactionID(ctx, update.Transaction.ID.String()), "webhook.pushinpay.processed")
	return &Result{Transaction: update.Transaction, Status: update.Transaction.Status, Changed: update.Changed}, nil
}
