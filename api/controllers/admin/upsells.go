package admin

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/pixcheckout-backend/api/responses"
	"github.com/angelmondragon/pixcheckout-backend/api/validators"
	"github.com/angelmondragon/pixcheckout-backend/internal/upsells"
	"github.com/angelmondragon/pixcheckout-backend/pkg/db/models"
	"github.com/angelmondragon/pixcheckout-backend/pkg/logger"
)

type UpsellService interface {
	List(ctx context.Context, activeOnly bool) ([]models.UpsellOffer, error)
	Create(ctx context.Context, input upsells.Input) (*models.UpsellOffer, error)
	Update(ctx context.Context, id uuid.UUID, input upsells.Input) (*models.UpsellOffer, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

func ListUpsells(svc UpsellService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		rows, err := svc.List(ctx, false)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

func CreateUpsell(svc UpsellService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var body upsells.Input
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		offer, err := svc.Create(ctx, body)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, offer)
	}
}

func UpdateUpsell(svc UpsellService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id, err := validators.ParseUUIDParam(r, "upsellID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var body upsells.Input
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		offer, err := svc.Update(ctx, id, body)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, offer)
	}
}

func DeleteUpsell(svc UpsellService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id, err := validators.ParseUUIDParam(r, "upsellID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if err := svc.Delete(ctx, id); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
