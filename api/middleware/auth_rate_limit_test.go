package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/pixcheckout-backend/pkg/errors"
)

func loginRequest(body, remoteAddr string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/admin/auth/login", strings.NewReader(body))
	req.RemoteAddr = remoteAddr
	return req
}

func TestAuthRateLimitReplaysBodyUnderLimit(t *testing.T) {
	store := newFakeRateStore()
	policy := NewAuthRateLimitPolicy("login", time.Minute, 2, 2)
	handler := AuthRateLimit(policy, store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Contains(t, string(body), `"username":"admin"`)
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, loginRequest(`{"username":"admin","password":"secret"}`, "1.2.3.4:5678"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthRateLimitBlocksAfterLimit(t *testing.T) {
	cases := map[string]struct {
		policy AuthRateLimitPolicy
		body   func(i int) string
		remote func(i int) string
		allow  int
	}{
		"username is normalized": {
			policy: NewAuthRateLimitPolicy("login", time.Minute, 0, 2),
			body:   func(i int) string { return []string{`{"username":"admin"}`, `{"username":" Admin "}`, `{"username":"ADMIN"}`}[i] },
			remote: func(i int) string { return []string{"1.1.1.1:1", "2.2.2.2:2", "3.3.3.3:3"}[i] },
			allow:  2,
		},
		"ip across usernames": {
			policy: NewAuthRateLimitPolicy("login", time.Minute, 1, 0),
			body:   func(i int) string { return []string{`{"username":"a"}`, `{"username":"b"}`, `{"username":"c"}`}[i] },
			remote: func(int) string { return "5.6.7.8:1234" },
			allow:  1,
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			handler := AuthRateLimit(tc.policy, newFakeRateStore(), nil)(okHandler())
			for i := 0; i < 3; i++ {
				rec := httptest.NewRecorder()
				handler.ServeHTTP(rec, loginRequest(tc.body(i), tc.remote(i)))
				if i < tc.allow {
					require.Equal(t, http.StatusOK, rec.Code, "attempt %d", i)
					continue
				}
				require.Equal(t, http.StatusTooManyRequests, rec.Code, "attempt %d", i)
				assert.Equal(t, "60", rec.Header().Get("Retry-After"))

				var payload struct {
					Error struct {
						Code string `json:"code"`
					} `json:"error"`
				}
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
				assert.Equal(t, string(pkgerrors.CodeRateLimit), payload.Error.Code)
			}
		})
	}
}

func TestAuthRateLimitUsesResolvedClientIP(t *testing.T) {
	store := newFakeRateStore()
	policy := NewAuthRateLimitPolicy("login", time.Minute, 1, 0)
	handler := ClientIP([]netip.Prefix{netip.MustParsePrefix("10.0.0.0/8")})(AuthRateLimit(policy, store, nil)(okHandler()))

	req := loginRequest(`{}`, "10.0.0.1:80")
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, int64(1), store.counts["rl:ip:login:203.0.113.9"])
}

func TestAuthRateLimitStoreFailureIsUnavailable(t *testing.T) {
	store := newFakeRateStore()
	store.err = errors.New("redis down")
	handler := AuthRateLimit(NewAuthRateLimitPolicy("login", time.Minute, 1, 0), store, nil)(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, loginRequest(`{}`, "1.2.3.4:1"))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAuthRateLimitDisabledPolicyPassesThrough(t *testing.T) {
	store := newFakeRateStore()
	handler := AuthRateLimit(NewAuthRateLimitPolicy("login", 0, 1, 1), store, nil)(okHandler())
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, loginRequest(`{"username":"admin"}`, "1.2.3.4:1"))
		require.Equal(t, http.StatusOK, rec.Code)
	}
	assert.Empty(t, store.counts)
}

type fakeRateStore struct {
	mu     sync.Mutex
	counts map[string]int64
	err    error
}

func newFakeRateStore() *fakeRateStore {
	return &fakeRateStore{counts: map[string]int64{}}
}

func (f *fakeRateStore) IncrWithTTL(_ context.Context, key string, _ time.Duration) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	f.counts[key]++
	return f.counts[key], nil
}
