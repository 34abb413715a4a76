package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/pixcheckout-backend/api/middleware"
	"github.com/angelmondragon/pixcheckout-backend/api/responses"
	"github.com/angelmondragon/pixcheckout-backend/api/validators"
	"github.com/angelmondragon/pixcheckout-backend/internal/checkout"
	"github.com/angelmondragon/pixcheckout-backend/pkg/logger"
)

const sessionParam = "sessionID"

// CheckoutService is the checkout flow as seen by the HTTP layer.
type CheckoutService interface {
	StartSession(ctx context.Context, input checkout.StartInput) (*checkout.StartResult, error)
	Advance(ctx context.Context, sessionID string, form checkout.Form) (*checkout.View, error)
	Pay(ctx context.Context, sessionID string, input checkout.PayInput) (*checkout.Payment, error)
	Status(ctx context.Context, sessionID string) (*checkout.StatusView, error)
	Close(ctx context.Context, sessionID string)
	TrackAddToCart(ctx context.Context, sessionID string, upsellID uuid.UUID) error
}

type addToCartRequest struct {
	UpsellID uuid.UUID `json:"upsell_id" validate:"required"`
}

// CheckoutStart opens a session, or tells the page where to send a blocked
// or desktop visitor.
func CheckoutStart(svc CheckoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		result, err := svc.StartSession(ctx, checkout.StartInput{
			IPAddress: middleware.ClientIPFromContext(ctx),
			UserAgent: r.UserAgent(),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if result.RedirectURL != "" {
			responses.WriteRedirect(w, result.RedirectURL)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result.Session)
	}
}

func CheckoutAdvance(svc CheckoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		sessionID, err := validators.RequireParam(r, sessionParam)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		ctx = logg.WithSessionID(ctx, sessionID)

		var form checkout.Form
		if err := validators.DecodeJSONBody(r, &form); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		view, err := svc.Advance(ctx, sessionID, form)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func CheckoutPay(svc CheckoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		sessionID, err := validators.RequireParam(r, sessionParam)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		ctx = logg.WithSessionID(ctx, sessionID)

		var input checkout.PayInput
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &input); err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
		}
		payment, err := svc.Pay(ctx, sessionID, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, payment)
	}
}

func CheckoutStatus(svc CheckoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		sessionID, err := validators.RequireParam(r, sessionParam)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		view, err := svc.Status(ctx, sessionID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// CheckoutClose tears the session down when the buyer leaves the page.
func CheckoutClose(svc CheckoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, err := validators.RequireParam(r, sessionParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		svc.Close(r.Context(), sessionID)
		w.WriteHeader(http.StatusNoContent)
	}
}

func CheckoutAddToCart(svc CheckoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		sessionID, err := validators.RequireParam(r, sessionParam)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var body addToCartRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if err := svc.TrackAddToCart(ctx, sessionID, body.UpsellID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusAccepted, map[string]string{"status": "tracked"})
	}
}
