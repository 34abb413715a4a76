package admin

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgauth "github.com/angelmondragon/pixcheckout-backend/pkg/auth"
	"github.com/angelmondragon/pixcheckout-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/pixcheckout-backend/pkg/errors"
	"github.com/angelmondragon/pixcheckout-backend/pkg/security"
)

type fakeRevoker struct {
	mu      sync.Mutex
	revoked map[string]time.Time
}

func (f *fakeRevoker) Revoke(_ context.Context, accessID string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.revoked == nil {
		f.revoked = map[string]time.Time{}
	}
	f.revoked[accessID] = expiresAt
	return nil
}

func newAuthenticator(t *testing.T) (*Authenticator, *fakeRevoker, config.JWTConfig) {
	t.Helper()
	hash, err := security.HashPassword("s3cret!", config.PasswordConfig{
		ArgonMemoryKB:    8192,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     16,
		ArgonKeyLen:      32,
	})
	require.NoError(t, err)
	jwtCfg := config.JWTConfig{Secret: "jwt-secret", Issuer: "pixcheckout", ExpirationMinutes: 60}
	rev := &fakeRevoker{}
	a, err := NewAuthenticator(config.AdminConfig{Username: "admin", PasswordHash: hash}, jwtCfg, rev, nil)
	require.NoError(t, err)
	return a, rev, jwtCfg
}

func TestLoginIssuesAdminToken(t *testing.T) {
	a, _, jwtCfg := newAuthenticator(t)

	res, err := a.Login(context.Background(), LoginRequest{Username: " admin ", Password: "s3cret!"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer", res.TokenType)

	claims, err := pkgauth.ParseAccessToken(jwtCfg, res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Subject)
	assert.NotEmpty(t, claims.ID)
	assert.WithinDuration(t, time.Now().Add(time.Hour), res.ExpiresAt, 5*time.Second)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	a, _, _ := newAuthenticator(t)
	ctx := context.Background()

	_, err := a.Login(ctx, LoginRequest{Username: "admin", Password: "wrong"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))

	_, err = a.Login(ctx, LoginRequest{Username: "root", Password: "s3cret!"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
}

func TestLogoutRevokesUntilExpiry(t *testing.T) {
	a, rev, _ := newAuthenticator(t)
	ctx := context.Background()
	exp := time.Now().Add(30 * time.Minute)

	require.NoError(t, a.Logout(ctx, "jti-1", exp))
	assert.Equal(t, exp, rev.revoked["jti-1"])

	require.NoError(t, a.Logout(ctx, "jti-2", time.Now().Add(-time.Minute)))
	_, ok := rev.revoked["jti-2"]
	assert.False(t, ok)
}
