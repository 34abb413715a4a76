package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/pixcheckout-backend/api/middleware"
	"github.com/angelmondragon/pixcheckout-backend/internal/checkout"
	"github.com/angelmondragon/pixcheckout-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pixcheckout-backend/pkg/errors"
)

type stubCheckout struct {
	start      *checkout.StartResult
	view       *checkout.View
	payment    *checkout.Payment
	status     *checkout.StatusView
	err        error
	startInput checkout.StartInput
	form       checkout.Form
	payInput   checkout.PayInput
	closed     string
	cartUpsell uuid.UUID
}

func (s *stubCheckout) StartSession(ctx context.Context, input checkout.StartInput) (*checkout.StartResult, error) {
	s.startInput = input
	return s.start, s.err
}

func (s *stubCheckout) Advance(ctx context.Context, sessionID string, form checkout.Form) (*checkout.View, error) {
	s.form = form
	return s.view, s.err
}

func (s *stubCheckout) Pay(ctx context.Context, sessionID string, input checkout.PayInput) (*checkout.Payment, error) {
	s.payInput = input
	return s.payment, s.err
}

func (s *stubCheckout) Status(ctx context.Context, sessionID string) (*checkout.StatusView, error) {
	return s.status, s.err
}

func (s *stubCheckout) Close(ctx context.Context, sessionID string) {
	s.closed = sessionID
}

func (s *stubCheckout) TrackAddToCart(ctx context.Context, sessionID string, upsellID uuid.UUID) error {
	s.cartUpsell = upsellID
	return s.err
}

func checkoutRouter(svc CheckoutService) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.ClientIP([]netip.Prefix{netip.MustParsePrefix("10.0.0.0/8")}))
	r.Post("/api/checkout/sessions", CheckoutStart(svc, nil))
	r.Route("/api/checkout/sessions/{sessionID}", func(r chi.Router) {
		r.Post("/advance", CheckoutAdvance(svc, nil))
		r.Post("/pay", CheckoutPay(svc, nil))
		r.Get("/status", CheckoutStatus(svc, nil))
		r.Delete("/", CheckoutClose(svc, nil))
		r.Post("/add-to-cart", CheckoutAddToCart(svc, nil))
	})
	return r
}

func TestCheckoutStartRedirectsBlockedVisitor(t *testing.T) {
	svc := &stubCheckout{start: &checkout.StartResult{RedirectURL: "https://example.com"}}
	req := httptest.NewRequest(http.MethodPost, "/api/checkout/sessions", nil)
	req.RemoteAddr = "10.0.0.1:443"
	req.Header.Set("X-Forwarded-For", "1.2.3.4, 10.0.0.1")
	req.Header.Set("User-Agent", "Mozilla/5.0 (iPhone)")
	rec := httptest.NewRecorder()
	checkoutRouter(svc).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if svc.startInput.IPAddress != "1.2.3.4" {
		t.Fatalf("expected client ip 1.2.3.4 got %q", svc.startInput.IPAddress)
	}
	if svc.startInput.UserAgent != "Mozilla/5.0 (iPhone)" {
		t.Fatalf("unexpected user agent %q", svc.startInput.UserAgent)
	}
	var envelope struct {
		Data map[string]string `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Data["redirect_url"] != "https://example.com" {
		t.Fatalf("unexpected redirect %v", envelope.Data)
	}
}

func TestCheckoutStartOpensSession(t *testing.T) {
	svc := &stubCheckout{start: &checkout.StartResult{Session: &checkout.View{
		SessionID:  "s-1",
		Step:       "data_entry",
		FieldsMode: enums.FieldsModeFull,
	}}}
	rec := httptest.NewRecorder()
	checkoutRouter(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/checkout/sessions", nil))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"session_id":"s-1"`) {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}

func TestCheckoutAdvanceDecodesForm(t *testing.T) {
	svc := &stubCheckout{view: &checkout.View{SessionID: "s-1", Step: "payment", StepIndex: 2}}
	body := `{"name":"Maria","email":"maria@example.com"}`
	req := httptest.NewRequest(http.MethodPost, "/api/checkout/sessions/s-1/advance", strings.NewReader(body))
	rec := httptest.NewRecorder()
	checkoutRouter(svc).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.form.Name != "Maria" || svc.form.Email != "maria@example.com" {
		t.Fatalf("unexpected form %+v", svc.form)
	}
}

func TestCheckoutAdvanceRejectsUnknownFields(t *testing.T) {
	svc := &stubCheckout{}
	req := httptest.NewRequest(http.MethodPost, "/api/checkout/sessions/s-1/advance", strings.NewReader(`{"nickname":"x"}`))
	rec := httptest.NewRecorder()
	checkoutRouter(svc).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestCheckoutPayMapsMinimumAmountError(t *testing.T) {
	upsell := uuid.New()
	svc := &stubCheckout{err: pkgerrors.New(pkgerrors.CodeValidation, "O valor mínimo para pagamento PIX é R$ 0,50")}
	req := httptest.NewRequest(http.MethodPost, "/api/checkout/sessions/s-1/pay", strings.NewReader(`{"upsell_ids":["`+upsell.String()+`"]}`))
	rec := httptest.NewRecorder()
	checkoutRouter(svc).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
	if len(svc.payInput.UpsellIDs) != 1 || svc.payInput.UpsellIDs[0] != upsell {
		t.Fatalf("unexpected pay input %+v", svc.payInput)
	}
	if !strings.Contains(rec.Body.String(), "R$ 0,50") {
		t.Fatalf("expected minimum message, got %s", rec.Body.String())
	}
}

func TestCheckoutPayWithoutBody(t *testing.T) {
	svc := &stubCheckout{payment: &checkout.Payment{PixID: "abc", CopiaCola: "000201", TotalDisplay: "R$ 67,00"}}
	req := httptest.NewRequest(http.MethodPost, "/api/checkout/sessions/s-1/pay", nil)
	rec := httptest.NewRecorder()
	checkoutRouter(svc).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"pix_id":"abc"`) {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}

func TestCheckoutStatusUnknownSession(t *testing.T) {
	svc := &stubCheckout{err: pkgerrors.New(pkgerrors.CodeNotFound, "checkout session not found")}
	rec := httptest.NewRecorder()
	checkoutRouter(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/checkout/sessions/missing/status", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", rec.Code)
	}
}

func TestCheckoutCloseAndAddToCart(t *testing.T) {
	svc := &stubCheckout{}
	router := checkoutRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/checkout/sessions/s-9/", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 got %d", rec.Code)
	}
	if svc.closed != "s-9" {
		t.Fatalf("expected session s-9 closed, got %q", svc.closed)
	}

	upsell := uuid.New()
	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/checkout/sessions/s-9/add-to-cart", strings.NewReader(`{"upsell_id":"`+upsell.String()+`"}`))
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202 got %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.cartUpsell != upsell {
		t.Fatalf("expected upsell %s got %s", upsell, svc.cartUpsell)
	}
}
