package admin

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/pixcheckout-backend/api/responses"
	"github.com/angelmondragon/pixcheckout-backend/api/validators"
	"github.com/angelmondragon/pixcheckout-backend/internal/blocklist"
	"github.com/angelmondragon/pixcheckout-backend/pkg/db/models"
	"github.com/angelmondragon/pixcheckout-backend/pkg/logger"
)

type BlocklistService interface {
	Block(ctx context.Context, input blocklist.BlockInput) (*models.BlockedIP, error)
	Unblock(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, activeOnly bool) ([]models.BlockedIP, error)
}

// ListBlockedIPs returns active blocks unless ?all=true.
func ListBlockedIPs(svc BlocklistService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		rows, err := svc.List(ctx, r.URL.Query().Get("all") != "true")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

func BlockIP(svc BlocklistService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var body blocklist.BlockInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		row, err := svc.Block(ctx, body)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, row)
	}
}

func UnblockIP(svc BlocklistService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id, err := validators.ParseUUIDParam(r, "blockID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if err := svc.Unblock(ctx, id); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
