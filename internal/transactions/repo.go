package transactions

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/pixcheckout-backend/pkg/db/models"
	"github.com/angelmondragon/pixcheckout-backend/pkg/enums"
	"github.com/angelmondragon/pixcheckout-backend/pkg/pagination"
)

var errEmptyMatch = errors.New("transaction match requires id or pix_id")

// Repository defines persistence operations for the transactions table.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, txn *models.Transaction) error
	Find(ctx context.Context, match Match) (*models.Transaction, error)
	UpdateStatusGuarded(ctx context.Context, match Match, status enums.TransactionStatus, sources []enums.TransactionStatus) (int64, error)
	AttachIntent(ctx context.Context, id uuid.UUID, input AttachIntentInput) (int64, error)
	UpdateWhatsapp(ctx context.Context, id uuid.UUID, whatsapp string) (int64, error)
	List(ctx context.Context, filter ListFilter) ([]models.Transaction, *pagination.Cursor, error)
	ListBetween(ctx context.Context, from, to *time.Time) ([]models.Transaction, error)
	ListStale(ctx context.Context, status enums.TransactionStatus, olderThan time.Time, limit int) ([]models.Transaction, error)
	ListAll(ctx context.Context) ([]models.Transaction, error)
	DeleteAll(ctx context.Context) (int64, error)
	BulkDelete(ctx context.Context, ids []uuid.UUID) (int64, error)
	InsertMany(ctx context.Context, rows []models.Transaction) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a transactions repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, txn *models.Transaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

func (r *repository) Find(ctx context.Context, match Match) (*models.Transaction, error) {
	q, err := scoped(r.db.WithContext(ctx), match)
	if err != nil {
		return nil, err
	}
	var txn models.Transaction
	if err := q.First(&txn).Error; err != nil {
		return nil, err
	}
	return &txn, nil
}

// UpdateStatusGuarded writes status only when the stored status is one of sources
// and reports how many rows accepted the write.
func (r *repository) UpdateStatusGuarded(ctx context.Context, match Match, status enums.TransactionStatus, sources []enums.TransactionStatus) (int64, error) {
	if len(sources) == 0 {
		return 0, nil
	}
	q, err := scoped(r.db.WithContext(ctx).Model(&models.Transaction{}), match)
	if err != nil {
		return 0, err
	}
	res := q.Where("status IN ?", sources).
		Updates(map[string]any{
			"status":     status,
			"updated_at": time.Now().UTC(),
		})
	return res.RowsAffected, res.Error
}

func (r *repository) AttachIntent(ctx context.Context, id uuid.UUID, input AttachIntentInput) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("id = ? AND status = ?", id, enums.TransactionStatusPending).
		Updates(map[string]any{
			"pix_id":       input.PixID,
			"total_value":  input.TotalValue,
			"upsell_added": input.UpsellAdded,
			"status":       enums.TransactionStatusAwaitingPayment,
			"updated_at":   time.Now().UTC(),
		})
	return res.RowsAffected, res.Error
}

func (r *repository) UpdateWhatsapp(ctx context.Context, id uuid.UUID, whatsapp string) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"whatsapp":   nullable(whatsapp),
			"updated_at": time.Now().UTC(),
		})
	return res.RowsAffected, res.Error
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]models.Transaction, *pagination.Cursor, error) {
	query := between(r.db.WithContext(ctx).Model(&models.Transaction{}), filter.From, filter.To)
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)",
			filter.Cursor.CreatedAt, filter.Cursor.CreatedAt, filter.Cursor.ID)
	}

	var rows []models.Transaction
	err := query.Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(filter.Limit)).
		Find(&rows).Error
	if err != nil {
		return nil, nil, err
	}
	rows, next := pagination.Trim(rows, filter.Limit, func(t models.Transaction) pagination.Cursor {
		return pagination.Cursor{CreatedAt: t.CreatedAt, ID: t.ID}
	})
	return rows, next, nil
}

func (r *repository) ListBetween(ctx context.Context, from, to *time.Time) ([]models.Transaction, error) {
	var rows []models.Transaction
	err := between(r.db.WithContext(ctx), from, to).
		Order("created_at DESC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) ListStale(ctx context.Context, status enums.TransactionStatus, olderThan time.Time, limit int) ([]models.Transaction, error) {
	var rows []models.Transaction
	q := r.db.WithContext(ctx).
		Where("status = ? AND pix_id IS NOT NULL AND updated_at < ?", status, olderThan).
		Order("updated_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&rows).Error
	return rows, err
}

func (r *repository) ListAll(ctx context.Context) ([]models.Transaction, error) {
	var rows []models.Transaction
	err := r.db.WithContext(ctx).Order("created_at ASC").Find(&rows).Error
	return rows, err
}

func (r *repository) DeleteAll(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).
		Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&models.Transaction{})
	return res.RowsAffected, res.Error
}

func (r *repository) BulkDelete(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).Where("id IN ?", ids).Delete(&models.Transaction{})
	return res.RowsAffected, res.Error
}

func (r *repository) InsertMany(ctx context.Context, rows []models.Transaction) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(&rows, 200).Error
}

func scoped(q *gorm.DB, match Match) (*gorm.DB, error) {
	switch {
	case match.ID != uuid.Nil:
		return q.Where("id = ?", match.ID), nil
	case match.PixID != "":
		return q.Where("LOWER(pix_id) = LOWER(?)", match.PixID), nil
	default:
		return nil, errEmptyMatch
	}
}

func between(q *gorm.DB, from, to *time.Time) *gorm.DB {
	if from != nil {
		q = q.Where("created_at >= ?", from.UTC())
	}
	if to != nil {
		q = q.Where("created_at < ?", to.UTC())
	}
	return q
}
