package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/angelmondragon/pixcheckout-backend/api/responses"
	pkgerrors "github.com/angelmondragon/pixcheckout-backend/pkg/errors"
	"github.com/angelmondragon/pixcheckout-backend/pkg/logger"
)

// WindowLimiter is the fixed-window counter used by RateLimit.
type WindowLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// RateLimit caps requests per client IP for one named route group. A
// limiter outage lets traffic through so checkout keeps working without Redis.
func RateLimit(name string, limit int64, window time.Duration, limiter WindowLimiter, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil || limit <= 0 || window <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ip := ClientIPFromContext(ctx)
			if ip == "" {
				ip = clientIP(r, nil)
			}
			allowed, count, err := limiter.FixedWindowAllow(ctx, name+":"+ip, limit, window)
			if err != nil {
				logg.Error(logg.WithField(ctx, "policy", name), "rate_limit.unavailable", err)
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				logg.Warn(logg.WithFields(ctx, map[string]any{"policy": name, "attempts": count}), "rate_limit.exceeded")
				w.Header().Set("Retry-After", strconv.Itoa(int(window.Seconds())))
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many requests"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
