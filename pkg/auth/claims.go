package auth

import "github.com/golang-jwt/jwt/v5"

// RoleAdmin is the only role the dashboard issues.
const RoleAdmin = "admin"

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	Subject string
	JTI     string
}

// AccessTokenClaims represents the typed JWT issued to the dashboard.
type AccessTokenClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}
