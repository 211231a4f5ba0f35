package auth

import "github.com/golang-jwt/jwt/v5"

// Claims are the access token claims issued by the reference backend.
// Role travels in the token so RBAC needs no user lookup.
type Claims struct {
	jwt.RegisteredClaims

	UserID string `json:"user_id"`
	Name   string `json:"name,omitempty"`
	Role   string `json:"role"`
}
