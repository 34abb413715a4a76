package webhooks

import (
	"context"
	"crypto/subtle"
	"io"
	"net/http"

	"github.com/angelmondragon/pixcheckout-backend/api/responses"
	"github.com/angelmondragon/pixcheckout-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/pixcheckout-backend/pkg/errors"
	"github.com/angelmondragon/pixcheckout-backend/pkg/logger"

	pushinpaywebhook "github.com/angelmondragon/pixcheckout-backend/internal/webhooks/pushinpay"
)

const (
	webhookTokenHeader = "X-Webhook-Token"
	maxWebhookBody     = 64 << 10

	msgMissingPixID   = "ID do PIX não encontrado"
	msgNotFound       = "Transação não encontrada"
	msgUpdateFailed   = "Erro ao atualizar transação"
	msgInvalidToken   = "Token do webhook inválido"
	msgInternalError  = "Erro interno"
	msgInvalidPayload = "Corpo da notificação inválido"
)

type PushinPayWebhookService interface {
	Handle(ctx context.Context, n pushinpaywebhook.Notification) (*pushinpaywebhook.Result, error)
}

type webhookReply struct {
	Success     bool                `json:"success"`
	Transaction *models.Transaction `json:"transaction,omitempty"`
	Duplicate   bool                `json:"duplicate,omitempty"`
}

type webhookMessage struct {
	Message string `json:"message"`
}

// PushinPayWebhook applies provider status notifications. Replies use the
// provider-facing {success, transaction} / {message} shapes, not the API envelope.
// An empty token disables the shared-secret check.
func PushinPayWebhook(svc PushinPayWebhookService, token string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteJSON(w, http.StatusInternalServerError, webhookMessage{Message: msgInternalError})
			return
		}
		if token != "" {
			got := r.Header.Get(webhookTokenHeader)
			if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				logg.Warn(ctx, "webhook.pushinpay.invalid_token")
				responses.WriteJSON(w, http.StatusUnauthorized, webhookMessage{Message: msgInvalidToken})
				return
			}
		}

		payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			logg.Error(ctx, "webhook.pushinpay.read_failed", err)
			responses.WriteJSON(w, http.StatusBadRequest, webhookMessage{Message: msgInvalidPayload})
			return
		}

		notification, err := pushinpaywebhook.ParseNotification(r.Header.Get("Content-Type"), payload)
		if err != nil {
			logg.Warn(ctx, "webhook.pushinpay.invalid_payload")
			responses.WriteJSON(w, http.StatusBadRequest, webhookMessage{Message: msgInvalidPayload})
			return
		}

		result, err := svc.Handle(ctx, notification)
		if err != nil {
			writeWebhookError(ctx, logg, w, err)
			return
		}
		responses.WriteJSON(w, http.StatusOK, webhookReply{
			Success:     true,
			Transaction: result.Transaction,
			Duplicate:   result.Duplicate,
		})
	}
}

func writeWebhookError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	switch {
	case pkgerrors.IsCode(err, pkgerrors.CodeValidation):
		responses.WriteJSON(w, http.StatusBadRequest, webhookMessage{Message: msgMissingPixID})
	case pkgerrors.IsCode(err, pkgerrors.CodeNotFound):
		logg.Warn(ctx, "webhook.pushinpay.transaction_not_found")
		responses.WriteJSON(w, http.StatusNotFound, webhookMessage{Message: msgNotFound})
	default:
		logg.Error(ctx, "webhook.pushinpay.update_failed", err)
		responses.WriteJSON(w, http.StatusInternalServerError, webhookMessage{Message: msgUpdateFailed})
	}
}
