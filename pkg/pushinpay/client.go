package pushinpay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	pkgerrors "github.com/angelmondragon/pixcheckout-backend/pkg/errors"
	"github.com/angelmondragon/pixcheckout-backend/pkg/money"
)

const (
	DefaultBaseURL        = "https://api.pushinpay.com.br/api"
	defaultTimeout        = 10 * time.Second
	responseBodyReadLimit = 64 << 10
	statusPendingFallback = "pending"

	msgAmountNotInteger   = "O campo value deve ser inteiro em centavos"
	msgAmountBelowMinimum = "O campo value deve ser no mínimo 50."
	msgAmountTooLarge     = "O campo value excede o valor máximo permitido"
	msgTokenNotConfigured = "pushinpay bearer token is not configured"
	msgProviderIDRequired = "pix id is required"
)

// TokenSource resolves the bearer token per request so operators can rotate it
// from the admin settings without a restart. An empty result falls back to the
// static token.
type TokenSource func(ctx context.Context) string

// Client talks to the PushinPay PIX API. It holds no payment state.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	token       string
	tokenSource TokenSource
	limiter     *rate.Limiter
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the API base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = strings.TrimRight(trimmed, "/")
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithTokenSource installs a dynamic bearer token lookup.
func WithTokenSource(source TokenSource) Option {
	return func(c *Client) {
		c.tokenSource = source
	}
}

// WithRateLimit caps outbound requests across every caller sharing the client.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// NewClient builds a PushinPay client. token may be empty when a TokenSource is supplied.
func NewClient(token string, opts ...Option) (*Client, error) {
	client := &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    DefaultBaseURL,
		token:      strings.TrimSpace(token),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	if client.token == "" && client.tokenSource == nil {
		return nil, errors.New(msgTokenNotConfigured)
	}
	return client, nil
}

// PaymentIntent is the provider's answer to a cash-in request.
type PaymentIntent struct {
	ProviderID  string
	PayableCode string
	QRImage     string
	Status      string
	Value       int64
}

// PaymentStatus is the provider's view of an existing intent.
type PaymentStatus struct {
	ProviderID string
	Status     string
	Value      int64
	PaidAt     *string
}

// ProviderError carries a non-2xx provider response verbatim.
type ProviderError struct {
	StatusCode int
	Body       []byte
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("pushinpay responded %d: %s", e.StatusCode, strings.TrimSpace(string(e.Body)))
}

// AsProviderError extracts a ProviderError from err's chain.
func AsProviderError(err error) (*ProviderError, bool) {
	var provErr *ProviderError
	if errors.As(err, &provErr) {
		return provErr, true
	}
	return nil, false
}

// ValidateAmount checks an untyped amount from an HTTP body: it must be an integer
// number of centavos no lower than the PIX minimum.
func ValidateAmount(raw json.Number) (int64, error) {
	amount, err := raw.Int64()
	if err != nil {
		f, ferr := raw.Float64()
		if ferr != nil || f != math.Trunc(f) || math.IsInf(f, 0) {
			return 0, pkgerrors.New(pkgerrors.CodeValidation, msgAmountNotInteger)
		}
		if f >= math.MaxInt64 {
			return 0, pkgerrors.New(pkgerrors.CodeValidation, msgAmountTooLarge)
		}
		amount = int64(math.Max(f, math.MinInt64))
	}
	if err := validateMinimum(amount); err != nil {
		return 0, err
	}
	return amount, nil
}

func validateMinimum(amount int64) error {
	if amount < money.MinPixAmountMinor {
		return pkgerrors.New(pkgerrors.CodeValidation, msgAmountBelowMinimum).
			WithDetails(map[string]any{"minimum": money.MinPixAmountMinor, "value": amount})
	}
	return nil
}

type cashInRequest struct {
	Value      int64  `json:"value"`
	WebhookURL string `json:"webhook_url,omitempty"`
}

type cashInResponse struct {
	ID           string      `json:"id"`
	QRCode       string      `json:"qr_code"`
	QRCodeBase64 string      `json:"qr_code_base64"`
	Status       string      `json:"status"`
	Value        json.Number `json:"value"`
	CopiaCola    string      `json:"copia_cola"`
	Pix          *pixBlock   `json:"pix"`
}

type pixBlock struct {
	CopiaCola string `json:"copia_cola"`
	QRCode    string `json:"qr_code"`
}

type transactionResponse struct {
	ID     string      `json:"id"`
	Status string      `json:"status"`
	Value  json.Number `json:"value"`
	PaidAt *string     `json:"paid_at"`
}

// CreatePaymentIntent asks the provider for a PIX charge of amount centavos.
func (c *Client) CreatePaymentIntent(ctx context.Context, amount int64, webhookURL string) (*PaymentIntent, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "pushinpay client not configured")
	}
	if err := validateMinimum(amount); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(cashInRequest{Value: amount, WebhookURL: strings.TrimSpace(webhookURL)})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal cash-in request")
	}

	var resp cashInResponse
	if err := c.do(ctx, http.MethodPost, "/pix/cashIn", payload, &resp); err != nil {
		return nil, err
	}

	intent := &PaymentIntent{
		ProviderID:  resp.ID,
		PayableCode: firstNonEmpty(resp.QRCode, pixField(resp.Pix, true), resp.CopiaCola),
		QRImage:     firstNonEmpty(resp.QRCodeBase64, pixField(resp.Pix, false), resp.QRCode),
		Status:      firstNonEmpty(resp.Status, statusPendingFallback),
		Value:       numberOr(resp.Value, amount),
	}
	if intent.ProviderID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeProvider, "pushinpay response missing id")
	}
	return intent, nil
}

// GetPaymentStatus reads the provider's current status for an intent.
func (c *Client) GetPaymentStatus(ctx context.Context, providerID string) (*PaymentStatus, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "pushinpay client not configured")
	}
	trimmed := strings.TrimSpace(providerID)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, msgProviderIDRequired)
	}

	var resp transactionResponse
	if err := c.do(ctx, http.MethodGet, "/transactions/"+url.PathEscape(trimmed), nil, &resp); err != nil {
		return nil, err
	}

	return &PaymentStatus{
		ProviderID: firstNonEmpty(resp.ID, trimmed),
		Status:     firstNonEmpty(resp.Status, statusPendingFallback),
		Value:      numberOr(resp.Value, 0),
		PaidAt:     resp.PaidAt,
	}, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	token := c.resolveToken(ctx)
	if token == "" {
		return pkgerrors.New(pkgerrors.CodeDependency, msgTokenNotConfigured)
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "pushinpay rate limiter")
		}
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build pushinpay request")
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute pushinpay request")
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read pushinpay response")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return pkgerrors.Wrap(pkgerrors.CodeProvider, &ProviderError{StatusCode: resp.StatusCode, Body: raw}, "pushinpay request failed")
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeProvider, err, "decode pushinpay response")
	}
	return nil
}

func (c *Client) resolveToken(ctx context.Context) string {
	if c.tokenSource != nil {
		if token := strings.TrimSpace(c.tokenSource(ctx)); token != "" {
			return token
		}
	}
	return c.token
}

func pixField(pix *pixBlock, copiaCola bool) string {
	if pix == nil {
		return ""
	}
	if copiaCola {
		return pix.CopiaCola
	}
	return pix.QRCode
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func numberOr(n json.Number, fallback int64) int64 {
	if n == "" {
		return fallback
	}
	if v, err := n.Int64(); err == nil {
		return v
	}
	if f, err := n.Float64(); err == nil {
		return int64(f)
	}
	return fallback
}
