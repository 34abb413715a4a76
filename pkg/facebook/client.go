// Package facebook sends server-side pixel events to the Facebook Conversions API.
package facebook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/pixcheckout-backend/pkg/errors"
)

const (
	DefaultGraphURL             = "https://graph.facebook.com/v18.0"
	ActionSourceWebsite         = "website"
	responseBodyReadLimit int64 = 2048
)

var errPixelRequired = errors.New("facebook pixel id is required")

// UserData carries the hashed customer identifiers the API matches on.
type UserData struct {
	EmailHashes     []string `json:"em,omitempty"`
	PhoneHashes     []string `json:"ph,omitempty"`
	ClientIPAddress string   `json:"client_ip_address,omitempty"`
	ClientUserAgent string   `json:"client_user_agent,omitempty"`
}

type CustomData struct {
	Currency    string   `json:"currency,omitempty"`
	Value       float64  `json:"value,omitempty"`
	ContentName string   `json:"content_name,omitempty"`
	ContentIDs  []string `json:"content_ids,omitempty"`
}

// Event is one entry of the "data" array. EventID lets the API drop duplicates
// of the same event delivered twice.
type Event struct {
	EventName      string     `json:"event_name"`
	EventTime      int64      `json:"event_time"`
	EventID        string     `json:"event_id,omitempty"`
	ActionSource   string     `json:"action_source"`
	EventSourceURL string     `json:"event_source_url,omitempty"`
	UserData       UserData   `json:"user_data"`
	CustomData     CustomData `json:"custom_data"`
}

type eventsRequest struct {
	Data          []Event `json:"data"`
	TestEventCode string  `json:"test_event_code,omitempty"`
}

// Response is the API acknowledgement.
type Response struct {
	EventsReceived int    `json:"events_received"`
	FBTraceID      string `json:"fbtrace_id"`
}

// Client posts events to /{pixel_id}/events.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	testEventCode string
}

type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the Graph API base URL, including the version segment.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if trimmed := strings.TrimSpace(baseURL); trimmed != "" {
			c.baseURL = strings.TrimRight(trimmed, "/")
		}
	}
}

// WithTestEventCode routes events to the Events Manager test tab.
func WithTestEventCode(code string) Option {
	return func(c *Client) {
		c.testEventCode = strings.TrimSpace(code)
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

func NewClient(opts ...Option) *Client {
	client := &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    DefaultGraphURL,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client
}

// SendEvents delivers events for one pixel. The access token is per call because
// operators change it from the admin settings.
func (c *Client) SendEvents(ctx context.Context, pixelID, accessToken string, events ...Event) (*Response, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "facebook client not configured")
	}
	pixelID = strings.TrimSpace(pixelID)
	if pixelID == "" {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, errPixelRequired, "send pixel events")
	}
	if strings.TrimSpace(accessToken) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "facebook access token is required")
	}
	if len(events) == 0 {
		return &Response{}, nil
	}

	body, err := json.Marshal(eventsRequest{Data: events, TestEventCode: c.testEventCode})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal pixel events")
	}

	endpoint := fmt.Sprintf("%s/%s/events?access_token=%s", c.baseURL, url.PathEscape(pixelID), url.QueryEscape(accessToken))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build pixel events request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute pixel events request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		code := pkgerrors.CodeDependency
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			code = pkgerrors.CodeValidation
		}
		return nil, pkgerrors.Wrap(code, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "pixel events request failed")
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode pixel events response")
	}
	return &out, nil
}
