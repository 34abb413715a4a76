package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	pkgerrors "github.com/angelmondragon/pixcheckout-backend/pkg/errors"
	"github.com/angelmondragon/pixcheckout-backend/pkg/pushinpay"
)

type stubPixProvider struct {
	intent     *pushinpay.PaymentIntent
	status     *pushinpay.PaymentStatus
	err        error
	lastAmount int64
	lastHook   string
	lastID     string
}

func (s *stubPixProvider) CreatePaymentIntent(ctx context.Context, amount int64, webhookURL string) (*pushinpay.PaymentIntent, error) {
	s.lastAmount = amount
	s.lastHook = webhookURL
	return s.intent, s.err
}

func (s *stubPixProvider) GetPaymentStatus(ctx context.Context, providerID string) (*pushinpay.PaymentStatus, error) {
	s.lastID = providerID
	return s.status, s.err
}

func TestPixCreateSuccess(t *testing.T) {
	provider := &stubPixProvider{intent: &pushinpay.PaymentIntent{
		ProviderID:  "9c1f",
		PayableCode: "000201copia",
		QRImage:     "data:image/png;base64,AAA",
		Value:       6700,
	}}
	handler := PixCreate(provider, "https://shop.example/api/webhooks/pushinpay", nil)

	req := httptest.NewRequest(http.MethodPost, "/api/pix/create", strings.NewReader(`{"value":6700}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", rec.Code, rec.Body.String())
	}
	if provider.lastAmount != 6700 {
		t.Fatalf("expected amount 6700 got %d", provider.lastAmount)
	}
	if provider.lastHook != "https://shop.example/api/webhooks/pushinpay" {
		t.Fatalf("unexpected webhook url %q", provider.lastHook)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["id"] != "9c1f" || body["copiaCola"] != "000201copia" || body["qrCode"] != "data:image/png;base64,AAA" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestPixCreateRejectsInvalidAmounts(t *testing.T) {
	cases := map[string]string{
		"below minimum": `{"value":49}`,
		"fractional":    `{"value":50.5}`,
		"missing":       `{}`,
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			provider := &stubPixProvider{}
			handler := PixCreate(provider, "", nil)
			req := httptest.NewRequest(http.MethodPost, "/api/pix/create", strings.NewReader(payload))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400 got %d", rec.Code)
			}
			if provider.lastAmount != 0 {
				t.Fatalf("provider should not be called")
			}
			var body map[string]any
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if msg, _ := body["message"].(string); msg == "" {
				t.Fatalf("expected message in %v", body)
			}
		})
	}
}

func TestPixCreateMinimumMessageCitesFifty(t *testing.T) {
	handler := PixCreate(&stubPixProvider{}, "", nil)
	req := httptest.NewRequest(http.MethodPost, "/api/pix/create", strings.NewReader(`{"value":49}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if !strings.Contains(rec.Body.String(), "50") {
		t.Fatalf("expected minimum in message, got %s", rec.Body.String())
	}
}

func TestPixCreateRelaysProviderError(t *testing.T) {
	providerErr := pkgerrors.Wrap(pkgerrors.CodeProvider, &pushinpay.ProviderError{
		StatusCode: http.StatusUnprocessableEntity,
		Body:       []byte(`{"message":"token inválido"}`),
	}, "pushinpay request failed")
	handler := PixCreate(&stubPixProvider{err: providerErr}, "", nil)

	req := httptest.NewRequest(http.MethodPost, "/api/pix/create", strings.NewReader(`{"value":100}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected provider status 422 got %d", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `{"message":"token inválido"}` {
		t.Fatalf("expected verbatim provider body, got %s", got)
	}
}

func TestPixCheckByPixID(t *testing.T) {
	paidAt := "2026-03-01T12:00:00Z"
	provider := &stubPixProvider{status: &pushinpay.PaymentStatus{
		ProviderID: "abc",
		Status:     "paid",
		Value:      6700,
		PaidAt:     &paidAt,
	}}
	r := chi.NewRouter()
	r.Get("/api/pix/check-by-pixid/{pixID}", PixCheckByPixID(provider, nil))

	req := httptest.NewRequest(http.MethodGet, "/api/pix/check-by-pixid/abc", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if provider.lastID != "abc" {
		t.Fatalf("expected lookup of abc got %q", provider.lastID)
	}
	var body pixStatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "paid" || body.Value != 6700 || body.PaidAt == nil || *body.PaidAt != paidAt {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestPixCheckByPixIDRequiresID(t *testing.T) {
	handler := PixCheckByPixID(&stubPixProvider{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/pix/check-by-pixid/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), msgPixIDRequired) {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}

func TestPixCheckByPixIDInternalError(t *testing.T) {
	handler := PixCheckByPixID(&stubPixProvider{err: pkgerrors.New(pkgerrors.CodeInternal, "boom")}, nil)
	r := chi.NewRouter()
	r.Get("/api/pix/check-by-pixid/{pixID}", handler)

	req := httptest.NewRequest(http.MethodGet, "/api/pix/check-by-pixid/abc", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), msgPixCheckFailed) {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}
