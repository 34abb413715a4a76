package transactions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/pixcheckout-backend/pkg/db/models"
	"github.com/angelmondragon/pixcheckout-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pixcheckout-backend/pkg/errors"
	"github.com/angelmondragon/pixcheckout-backend/pkg/logger"
	"github.com/angelmondragon/pixcheckout-backend/pkg/outbox"
	"github.com/angelmondragon/pixcheckout-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/pixcheckout-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Store is the single write path for transaction state. Every status write
// goes through a guarded UPDATE so the lattice holds under concurrent writers.
type Store struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
	feed   ChangeFeed
	logg   *logger.Logger
}

func NewStore(repo Repository, tx txRunner, outbox outboxPublisher, feed ChangeFeed, logg *logger.Logger) (*Store, error) {
	if repo == nil {
		return nil, fmt.Errorf("transactions repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if feed == nil {
		return nil, fmt.Errorf("change feed required")
	}
	return &Store{repo: repo, tx: tx, outbox: outbox, feed: feed, logg: logg}, nil
}

// Feed exposes the change feed listeners subscribe to.
func (s *Store) Feed() ChangeFeed { return s.feed }

func (s *Store) Create(ctx context.Context, input NewTransaction) (*models.Transaction, error) {
	if input.TotalValue.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "total value must not be negative")
	}
	name := input.Name
	if name == "" {
		name = models.DefaultCustomerName
	}
	txn := &models.Transaction{
		ID:         uuid.New(),
		Name:       name,
		Email:      nullable(input.Email),
		Phone:      nullable(input.Phone),
		Whatsapp:   nullable(input.Whatsapp),
		CPF:        nullable(input.CPF),
		TotalValue: input.TotalValue,
		Status:     enums.TransactionStatusPending,
		IPAddress:  nullable(input.IPAddress),
	}
	if err := s.repo.Create(ctx, txn); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create transaction")
	}
	return txn, nil
}

func (s *Store) Get(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	return s.find(ctx, s.repo, ByID(id))
}

func (s *Store) GetByPixID(ctx context.Context, pixID string) (*models.Transaction, error) {
	return s.find(ctx, s.repo, ByPixID(pixID))
}

// UpdateStatus moves the matched transaction to status when the stored status
// allows it. Writes the lattice rejects are not errors: the stored record is
// returned with Changed=false.
func (s *Store) UpdateStatus(ctx context.Context, match Match, status enums.TransactionStatus) (*StatusUpdate, error) {
	if !status.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid status %q", status)
	}
	if match.empty() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction id or pix_id required")
	}

	var result StatusUpdate
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		before, err := s.find(ctx, repo, match)
		if err != nil {
			return err
		}
		rows, err := repo.UpdateStatusGuarded(ctx, match, status, status.Sources())
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update transaction status")
		}
		after, err := s.find(ctx, repo, ByID(before.ID))
		if err != nil {
			return err
		}
		result = StatusUpdate{Transaction: after, Previous: before.Status, Changed: rows > 0}
		if !result.Changed {
			return nil
		}
		return s.emitStatusChanged(ctx, tx, after)
	})
	if err != nil {
		return nil, err
	}

	if result.Changed {
		s.publish(ctx, result.Transaction)
	}
	return &result, nil
}

// AttachIntent binds the provider intent and moves pending to awaiting_payment.
func (s *Store) AttachIntent(ctx context.Context, id uuid.UUID, input AttachIntentInput) (*models.Transaction, error) {
	if input.PixID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pix_id required")
	}
	if input.TotalValue.LessThan(decimal.Zero) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "total value must not be negative")
	}

	var updated *models.Transaction
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		rows, err := repo.AttachIntent(ctx, id, input)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "attach payment intent")
		}
		updated, err = s.find(ctx, repo, ByID(id))
		if err != nil {
			return err
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "transaction is no longer pending").
				WithDetails(map[string]any{"status": updated.Status})
		}
		return s.emitStatusChanged(ctx, tx, updated)
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, updated)
	return updated, nil
}

func (s *Store) UpdateWhatsapp(ctx context.Context, id uuid.UUID, whatsapp string) (*models.Transaction, error) {
	rows, err := s.repo.UpdateWhatsapp(ctx, id, whatsapp)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update whatsapp")
	}
	if rows == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
	}
	return s.Get(ctx, id)
}

func (s *Store) List(ctx context.Context, filter ListFilter) (*ListResult, error) {
	rows, next, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list transactions")
	}
	result := &ListResult{Items: rows}
	if next != nil {
		result.NextCursor = pagination.EncodeCursor(*next)
	}
	return result, nil
}

// ListBetween returns every transaction created in [from, to), newest first.
func (s *Store) ListBetween(ctx context.Context, from, to *time.Time) ([]models.Transaction, error) {
	rows, err := s.repo.ListBetween(ctx, from, to)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list transactions")
	}
	return rows, nil
}

func (s *Store) ListStale(ctx context.Context, status enums.TransactionStatus, olderThan time.Time, limit int) ([]models.Transaction, error) {
	rows, err := s.repo.ListStale(ctx, status, olderThan, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list stale transactions")
	}
	return rows, nil
}

func (s *Store) find(ctx context.Context, repo Repository, match Match) (*models.Transaction, error) {
	txn, err := repo.Find(ctx, match)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
		}
		if errors.Is(err, errEmptyMatch) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, err.Error())
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load transaction")
	}
	return txn, nil
}

func (s *Store) emitStatusChanged(ctx context.Context, tx *gorm.DB, txn *models.Transaction) error {
	event := payloads.TransactionStatusChangedEvent{
		TransactionID: txn.ID,
		Status:        txn.Status,
		TotalValue:    txn.TotalValue.StringFixed(2),
	}
	if txn.PixID != nil {
		event.PixID = *txn.PixID
	}
	err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventTransactionStatusChange,
		AggregateType: enums.AggregateTransaction,
		AggregateID:   txn.ID,
		Data:          event,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "queue status change event")
	}
	return nil
}

// publish runs after commit. Feed failures are logged only: pollers and the
// cron sweep still observe the committed status.
func (s *Store) publish(ctx context.Context, txn *models.Transaction) {
	if err := s.feed.Publish(ctx, changeFrom(txn)); err != nil && s.logg != nil {
		logCtx := s.logg.WithTransactionID(ctx, txn.ID.String())
		s.logg.Error(logCtx, "transactions.feed.publish_failed", err)
	}
}
