// Package upsells manages the add-on offers shown on the payment step.
package upsells

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/pixcheckout-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/pixcheckout-backend/pkg/errors"
	"github.com/angelmondragon/pixcheckout-backend/pkg/money"
)

// Input is the writable shape of an offer. Prices are BRL display strings.
type Input struct {
	Title         string  `json:"title" validate:"required,max=200"`
	Description   string  `json:"description" validate:"max=2000"`
	Price         string  `json:"price" validate:"required,brl"`
	OriginalPrice *string `json:"original_price" validate:"omitempty,brl"`
	ImageURL      *string `json:"image_url" validate:"omitempty,url"`
	Order         *int    `json:"order" validate:"omitempty,min=0"`
	Active        *bool   `json:"active"`
}

// Priced pairs an offer with its parsed price.
type Priced struct {
	Offer models.UpsellOffer
	Price decimal.Decimal
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) (*Service, error) {
	if repo == nil {
		return nil, errors.New("upsell repository required")
	}
	return &Service{repo: repo}, nil
}

// List returns offers in display order.
func (s *Service) List(ctx context.Context, activeOnly bool) ([]models.UpsellOffer, error) {
	rows, err := s.repo.List(ctx, activeOnly)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list upsells")
	}
	return rows, nil
}

// Selected resolves the buyer's choice to active offers with parsed prices.
// Unknown and inactive ids are dropped.
func (s *Service) Selected(ctx context.Context, ids []uuid.UUID) ([]Priced, error) {
	rows, err := s.repo.FindByIDs(ctx, dedupe(ids))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load upsells")
	}
	out := make([]Priced, 0, len(rows))
	for _, row := range rows {
		if !row.Active {
			continue
		}
		price, err := money.ParseBRL(row.Price)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "stored upsell price is invalid").
				WithDetails(map[string]any{"upsell_id": row.ID})
		}
		out = append(out, Priced{Offer: row, Price: price})
	}
	return out, nil
}

func (s *Service) Create(ctx context.Context, input Input) (*models.UpsellOffer, error) {
	offer := &models.UpsellOffer{Active: true, Order: 1}
	if err := apply(offer, input); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, offer); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create upsell")
	}
	return offer, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, input Input) (*models.UpsellOffer, error) {
	offer, err := s.repo.Find(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load upsell")
	}
	if offer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "upsell not found")
	}
	if err := apply(offer, input); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, offer); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update upsell")
	}
	return offer, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	n, err := s.repo.Delete(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete upsell")
	}
	if n == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "upsell not found")
	}
	return nil
}

func apply(offer *models.UpsellOffer, input Input) error {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	}
	if _, err := money.ParseBRL(input.Price); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid price")
	}
	if input.OriginalPrice != nil && strings.TrimSpace(*input.OriginalPrice) != "" {
		if _, err := money.ParseBRL(*input.OriginalPrice); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid original price")
		}
	}
	offer.Title = title
	offer.Description = strings.TrimSpace(input.Description)
	offer.Price = strings.TrimSpace(input.Price)
	offer.OriginalPrice = trimmedOrNil(input.OriginalPrice)
	offer.ImageURL = trimmedOrNil(input.ImageURL)
	if input.Order != nil {
		offer.Order = *input.Order
	}
	if input.Active != nil {
		offer.Active = *input.Active
	}
	return nil
}

func trimmedOrNil(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
