package blocklist

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/pixcheckout-backend/pkg/db"
	"github.com/angelmondragon/pixcheckout-backend/pkg/db/models"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ActiveFor(ctx context.Context, ip string) (*models.BlockedIP, error)
	Insert(ctx context.Context, row *models.BlockedIP) error
	Deactivate(ctx context.Context, id uuid.UUID) (int64, error)
	List(ctx context.Context, activeOnly bool) ([]models.BlockedIP, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// ActiveFor returns the newest active block for ip, or nil.
func (r *repository) ActiveFor(ctx context.Context, ip string) (*models.BlockedIP, error) {
	var row models.BlockedIP
	err := r.db.WithContext(ctx).
		Where("ip_address = ? AND active = ?", ip, true).
		Order("created_at DESC").
		First(&row).Error
	if db.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) Insert(ctx context.Context, row *models.BlockedIP) error {
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *repository) Deactivate(ctx context.Context, id uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.BlockedIP{}).
		Where("id = ? AND active = ?", id, true).
		Update("active", false)
	return res.RowsAffected, res.Error
}

func (r *repository) List(ctx context.Context, activeOnly bool) ([]models.BlockedIP, error) {
	query := r.db.WithContext(ctx).Order("created_at DESC")
	if activeOnly {
		query = query.Where("active = ?", true)
	}
	var rows []models.BlockedIP
	err := query.Find(&rows).Error
	return rows, err
}
