package admin

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/pixcheckout-backend/internal/transactions"
	"github.com/angelmondragon/pixcheckout-backend/pkg/db/models"
	"github.com/angelmondragon/pixcheckout-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pixcheckout-backend/pkg/errors"
	"github.com/angelmondragon/pixcheckout-backend/pkg/logger"
	"github.com/angelmondragon/pixcheckout-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type transactionLister interface {
	List(ctx context.Context, filter transactions.ListFilter) (*transactions.ListResult, error)
	ListBetween(ctx context.Context, from, to *time.Time) ([]models.Transaction, error)
}

// Service backs the dashboard: stats, listings, and the clear/restore pair.
type Service struct {
	tx           txRunner
	transactions transactions.Repository
	store        transactionLister
	backups      BackupRepository
	logg         *logger.Logger
	now          func() time.Time
}

func NewService(tx txRunner, repo transactions.Repository, store transactionLister, backups BackupRepository, logg *logger.Logger) (*Service, error) {
	switch {
	case tx == nil:
		return nil, errors.New("tx runner required")
	case repo == nil:
		return nil, errors.New("transactions repository required")
	case store == nil:
		return nil, errors.New("transaction store required")
	case backups == nil:
		return nil, errors.New("backup repository required")
	}
	return &Service{tx: tx, transactions: repo, store: store, backups: backups, logg: logg, now: time.Now}, nil
}

// Period narrows listings and stats to a calendar month or year. The zero
// value means all time.
type Period struct {
	Year  int
	Month int
}

// Bounds returns [from, to) in UTC, or nils for all time.
func (p Period) Bounds() (*time.Time, *time.Time, error) {
	if p.Year == 0 && p.Month == 0 {
		return nil, nil, nil
	}
	if p.Year < 2000 || p.Year > 9999 {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "year is out of range")
	}
	if p.Month < 0 || p.Month > 12 {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "month must be between 1 and 12")
	}
	if p.Month == 0 {
		from := time.Date(p.Year, time.January, 1, 0, 0, 0, 0, time.UTC)
		to := from.AddDate(1, 0, 0)
		return &from, &to, nil
	}
	from := time.Date(p.Year, time.Month(p.Month), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)
	return &from, &to, nil
}

// ListQuery is the admin transactions listing filter.
type ListQuery struct {
	Status enums.TransactionStatus
	Period Period
	Limit  int
	Cursor string
}

func (s *Service) Transactions(ctx context.Context, q ListQuery) (*transactions.ListResult, error) {
	if q.Status != "" && !q.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter")
	}
	from, to, err := q.Period.Bounds()
	if err != nil {
		return nil, err
	}
	filter := transactions.ListFilter{Status: q.Status, From: from, To: to, Limit: q.Limit}
	if strings.TrimSpace(q.Cursor) != "" {
		cursor, err := pagination.ParseCursor(q.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		filter.Cursor = cursor
	}
	return s.store.List(ctx, filter)
}

// Emails returns distinct buyer e-mails, optionally only from paid transactions.
func (s *Service) Emails(ctx context.Context, paidOnly bool) ([]string, error) {
	rows, err := s.store.ListBetween(ctx, nil, nil)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(rows))
	out := make([]string, 0, len(rows))
	for _, row := range rows {
		if paidOnly && row.Status != enums.TransactionStatusPaid {
			continue
		}
		if row.Email == nil {
			continue
		}
		email := strings.TrimSpace(*row.Email)
		key := strings.ToLower(email)
		if email == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, email)
	}
	return out, nil
}
