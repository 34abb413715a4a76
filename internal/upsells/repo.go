package upsells

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/pixcheckout-backend/pkg/db/models"
)

// Repository persists upsell offers.
type Repository interface {
	List(ctx context.Context, activeOnly bool) ([]models.UpsellOffer, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.UpsellOffer, error)
	Find(ctx context.Context, id uuid.UUID) (*models.UpsellOffer, error)
	Create(ctx context.Context, offer *models.UpsellOffer) error
	Save(ctx context.Context, offer *models.UpsellOffer) error
	Delete(ctx context.Context, id uuid.UUID) (int64, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

var byDisplayOrder = clause.OrderBy{Columns: []clause.OrderByColumn{
	{Column: clause.Column{Name: "order"}},
	{Column: clause.Column{Name: "id"}},
}}

func (r *repository) List(ctx context.Context, activeOnly bool) ([]models.UpsellOffer, error) {
	query := r.db.WithContext(ctx).Clauses(byDisplayOrder)
	if activeOnly {
		query = query.Where("active = ?", true)
	}
	var rows []models.UpsellOffer
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.UpsellOffer, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []models.UpsellOffer
	err := r.db.WithContext(ctx).Clauses(byDisplayOrder).Where("id IN ?", ids).Find(&rows).Error
	return rows, err
}

func (r *repository) Find(ctx context.Context, id uuid.UUID) (*models.UpsellOffer, error) {
	var row models.UpsellOffer
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *repository) Create(ctx context.Context, offer *models.UpsellOffer) error {
	return r.db.WithContext(ctx).Create(offer).Error
}

// Save writes every column, including false booleans.
func (r *repository) Save(ctx context.Context, offer *models.UpsellOffer) error {
	return r.db.WithContext(ctx).Save(offer).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.UpsellOffer{})
	return res.RowsAffected, res.Error
}
