package admin

import (
	"context"
	"net/http"

	"github.com/angelmondragon/pixcheckout-backend/api/responses"
	"github.com/angelmondragon/pixcheckout-backend/api/validators"
	"github.com/angelmondragon/pixcheckout-backend/internal/siteconfig"
	"github.com/angelmondragon/pixcheckout-backend/pkg/logger"
)

type SettingsService interface {
	Entries(ctx context.Context) ([]siteconfig.Entry, error)
	Set(ctx context.Context, key, value string) (siteconfig.Entry, error)
}

type settingRequest struct {
	Value *string `json:"value" validate:"required"`
}

// Settings lists every known key with secrets masked.
func Settings(svc SettingsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		entries, err := svc.Entries(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, entries)
	}
}

func UpdateSetting(svc SettingsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		key, err := validators.RequireParam(r, "key")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var body settingRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		entry, err := svc.Set(ctx, key, *body.Value)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		logg.Info(logg.WithField(ctx, "setting_key", key), "admin.setting_updated")
		responses.WriteSuccess(w, entry)
	}
}
