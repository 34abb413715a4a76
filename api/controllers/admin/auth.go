package admin

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/pixcheckout-backend/api/middleware"
	"github.com/angelmondragon/pixcheckout-backend/api/responses"
	"github.com/angelmondragon/pixcheckout-backend/api/validators"
	adminsvc "github.com/angelmondragon/pixcheckout-backend/internal/admin"
	pkgerrors "github.com/angelmondragon/pixcheckout-backend/pkg/errors"
	"github.com/angelmondragon/pixcheckout-backend/pkg/logger"
)

type Authenticator interface {
	Login(ctx context.Context, req adminsvc.LoginRequest) (*adminsvc.LoginResponse, error)
	Logout(ctx context.Context, accessID string, expiresAt time.Time) error
}

func Login(auth Authenticator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var body adminsvc.LoginRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		resp, err := auth.Login(ctx, body)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}

// Logout revokes the bearer token that authenticated this request.
func Logout(auth Authenticator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		accessID, expiresAt := middleware.AccessFromContext(ctx)
		if accessID == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing access token"))
			return
		}
		if err := auth.Logout(ctx, accessID, expiresAt); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
