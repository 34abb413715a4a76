package middleware

import (
	"context"
	"time"
)

type contextKey string

const (
	ctxSubject   contextKey = "admin_subject"
	ctxRole      contextKey = "actor_role"
	ctxAccessID  contextKey = "access_id"
	ctxExpiresAt contextKey = "access_expires_at"
	ctxClientIP  contextKey = "client_ip"
)

// SubjectFromContext returns the authenticated admin username.
func SubjectFromContext(ctx context.Context) string {
	return stringValue(ctx, ctxSubject)
}

func RoleFromContext(ctx context.Context) string {
	return stringValue(ctx, ctxRole)
}

// AccessFromContext returns the token id and expiry of the current admin token.
func AccessFromContext(ctx context.Context) (string, time.Time) {
	if ctx == nil {
		return "", time.Time{}
	}
	exp, _ := ctx.Value(ctxExpiresAt).(time.Time)
	return stringValue(ctx, ctxAccessID), exp
}

// ClientIPFromContext returns the address resolved by ClientIP.
func ClientIPFromContext(ctx context.Context) string {
	return stringValue(ctx, ctxClientIP)
}

func stringValue(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}
