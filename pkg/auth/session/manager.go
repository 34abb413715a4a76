package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type revocationStore interface {
	RevokeAccessToken(ctx context.Context, accessID string, ttl time.Duration) error
	IsAccessTokenRevoked(ctx context.Context, accessID string) (bool, error)
}

// Manager tracks logged-out access tokens. A token stays revoked until it
// would have expired on its own.
type Manager struct {
	store revocationStore
	now   func() time.Time
}

// AccessSessionChecker exposes the read-only surface needed by middleware.
type AccessSessionChecker interface {
	HasSession(ctx context.Context, accessID string) (bool, error)
}

// NewManager constructs a session manager backed by Redis.
func NewManager(store revocationStore) (*Manager, error) {
	if store == nil {
		return nil, fmt.Errorf("revocation store is required")
	}
	return &Manager{store: store, now: time.Now}, nil
}

// Revoke blocks the access id until expiresAt.
func (m *Manager) Revoke(ctx context.Context, accessID string, expiresAt time.Time) error {
	if strings.TrimSpace(accessID) == "" {
		return fmt.Errorf("access id is required")
	}
	return m.store.RevokeAccessToken(ctx, accessID, expiresAt.Sub(m.now()))
}

// HasSession reports whether the access id is still usable.
func (m *Manager) HasSession(ctx context.Context, accessID string) (bool, error) {
	if strings.TrimSpace(accessID) == "" {
		return false, fmt.Errorf("access id is required")
	}
	revoked, err := m.store.IsAccessTokenRevoked(ctx, accessID)
	if err != nil {
		return false, err
	}
	return !revoked, nil
}

// NewAccessID produces the identifier used as the JWT jti.
func NewAccessID() string {
	return uuid.NewString()
}
