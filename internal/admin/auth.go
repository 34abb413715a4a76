package admin

import (
	"context"
	"errors"
	"strings"
	"time"

	pkgauth "github.com/angelmondragon/pixcheckout-backend/pkg/auth"
	"github.com/angelmondragon/pixcheckout-backend/pkg/auth/session"
	"github.com/angelmondragon/pixcheckout-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/pixcheckout-backend/pkg/errors"
	"github.com/angelmondragon/pixcheckout-backend/pkg/logger"
	"github.com/angelmondragon/pixcheckout-backend/pkg/security"
)

const invalidCredentialsMessage = "invalid credentials"

// LoginRequest is the dashboard login body.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse carries the bearer token for later admin calls.
type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type revoker interface {
	Revoke(ctx context.Context, accessID string, expiresAt time.Time) error
}

// Authenticator checks the single operator credential from config.
type Authenticator struct {
	admin    config.AdminConfig
	jwt      config.JWTConfig
	sessions revoker
	logg     *logger.Logger
	now      func() time.Time
}

func NewAuthenticator(admin config.AdminConfig, jwt config.JWTConfig, sessions revoker, logg *logger.Logger) (*Authenticator, error) {
	if strings.TrimSpace(admin.PasswordHash) == "" {
		return nil, errors.New("admin password hash required")
	}
	if sessions == nil {
		return nil, errors.New("session manager required")
	}
	return &Authenticator{admin: admin, jwt: jwt, sessions: sessions, logg: logg, now: time.Now}, nil
}

func (a *Authenticator) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	username := strings.TrimSpace(req.Username)
	usernameOK := security.EqualString(username, a.admin.Username)
	passwordOK, err := security.VerifyPassword(req.Password, a.admin.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify admin password")
	}
	if !usernameOK || !passwordOK {
		a.logg.Warn(a.logg.WithField(ctx, "username", username), "admin.login_rejected")
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}

	token, claims, err := pkgauth.MintAccessToken(a.jwt, a.now(), pkgauth.AccessTokenPayload{
		Subject: a.admin.Username,
		JTI:     session.NewAccessID(),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint access token")
	}
	return &LoginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   claims.ExpiresAt.Time,
	}, nil
}

// Logout revokes the presented token until its own expiry.
func (a *Authenticator) Logout(ctx context.Context, accessID string, expiresAt time.Time) error {
	if !expiresAt.After(a.now()) {
		return nil
	}
	if err := a.sessions.Revoke(ctx, accessID, expiresAt); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke access token")
	}
	return nil
}
