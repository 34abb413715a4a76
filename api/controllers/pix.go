package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/angelmondragon/pixcheckout-backend/api/responses"
	"github.com/angelmondragon/pixcheckout-backend/api/validators"
	pkgerrors "github.com/angelmondragon/pixcheckout-backend/pkg/errors"
	"github.com/angelmondragon/pixcheckout-backend/pkg/logger"
	"github.com/angelmondragon/pixcheckout-backend/pkg/pushinpay"
)

const (
	msgPixIDRequired  = "ID do PIX é obrigatório"
	msgPixCheckFailed = "Erro interno ao verificar PIX"
	msgPixCreateFail  = "Erro interno ao gerar PIX"
)

// PixProvider is the subset of the PushinPay client used by the PIX API.
type PixProvider interface {
	CreatePaymentIntent(ctx context.Context, amount int64, webhookURL string) (*pushinpay.PaymentIntent, error)
	GetPaymentStatus(ctx context.Context, providerID string) (*pushinpay.PaymentStatus, error)
}

type pixCreateRequest struct {
	Value json.Number `json:"value"`
}

type pixCreateResponse struct {
	ID        string `json:"id"`
	CopiaCola string `json:"copiaCola"`
	QRCode    string `json:"qrCode"`
}

type pixStatusResponse struct {
	ID     string  `json:"id"`
	Status string  `json:"status"`
	Value  int64   `json:"value"`
	PaidAt *string `json:"paid_at"`
}

type pixMessage struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// PixCreate issues a charge for an amount in centavos. Bodies are unenveloped
// because the storefront script reads them directly.
func PixCreate(provider PixProvider, webhookURL string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if provider == nil {
			responses.WriteJSON(w, http.StatusServiceUnavailable, pixMessage{Message: msgPixCreateFail})
			return
		}

		var body pixCreateRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			responses.WriteJSON(w, http.StatusBadRequest, pixMessage{Message: "corpo da requisição inválido"})
			return
		}
		amount, err := pushinpay.ValidateAmount(body.Value)
		if err != nil {
			writePixError(ctx, logg, w, err, msgPixCreateFail)
			return
		}

		intent, err := provider.CreatePaymentIntent(ctx, amount, webhookURL)
		if err != nil {
			writePixError(ctx, logg, w, err, msgPixCreateFail)
			return
		}
		responses.WriteJSON(w, http.StatusOK, pixCreateResponse{
			ID:        intent.ProviderID,
			CopiaCola: intent.PayableCode,
			QRCode:    intent.QRImage,
		})
	}
}

// PixCheckByPixID reports the provider-side status of a charge.
func PixCheckByPixID(provider PixProvider, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id, err := validators.RequireParam(r, "pixID")
		if err != nil {
			responses.WriteJSON(w, http.StatusBadRequest, pixMessage{Message: msgPixIDRequired})
			return
		}
		if provider == nil {
			responses.WriteJSON(w, http.StatusServiceUnavailable, pixMessage{Message: msgPixCheckFailed})
			return
		}

		status, err := provider.GetPaymentStatus(ctx, id)
		if err != nil {
			writePixError(ctx, logg, w, err, msgPixCheckFailed)
			return
		}
		responses.WriteJSON(w, http.StatusOK, pixStatusResponse{
			ID:     status.ProviderID,
			Status: status.Status,
			Value:  status.Value,
			PaidAt: status.PaidAt,
		})
	}
}

// writePixError relays provider rejections verbatim and flattens everything
// else to a {message} body.
func writePixError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error, fallback string) {
	if provErr, ok := pushinpay.AsProviderError(err); ok {
		logg.Warn(logg.WithField(ctx, "provider_status", provErr.StatusCode), "pix.provider_rejected")
		body := provErr.Body
		if len(strings.TrimSpace(string(body))) == 0 || !json.Valid(body) {
			responses.WriteJSON(w, provErr.StatusCode, pixMessage{Message: strings.TrimSpace(string(body))})
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(provErr.StatusCode)
		_, _ = w.Write(body)
		return
	}

	typed := pkgerrors.As(err)
	if typed != nil && typed.Code() == pkgerrors.CodeValidation {
		responses.WriteJSON(w, http.StatusBadRequest, pixMessage{Message: typed.Message()})
		return
	}

	logg.Error(ctx, "pix.request_failed", err)
	responses.WriteJSON(w, pkgerrors.HTTPStatus(err), pixMessage{Message: fallback, Error: err.Error()})
}
