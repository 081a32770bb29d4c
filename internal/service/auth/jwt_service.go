// Package auth issues and validates the JWT access tokens that identify the
// user behind each API request.
package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AccessTokenType is the value of the type claim on access tokens.
const AccessTokenType = "access"

// JWTService mints and checks access tokens.
type JWTService interface {
	// GenerateToken signs an access token for userID.
	GenerateToken(ctx context.Context, userID uuid.UUID) (string, error)

	// ValidateToken verifies signature, lifetime and type of tokenString and
	// returns its claims. Failures wrap one of the package's Err values.
	ValidateToken(ctx context.Context, tokenString string) (*Claims, error)
}

// Claims is the decoded content of a valid access token.
type Claims struct {
	UserID    uuid.UUID `json:"uid,omitempty"`
	TokenType string    `json:"type,omitempty"`
	Subject   string    `json:"sub,omitempty"`
	IssuedAt  time.Time `json:"iat,omitempty"`
	ExpiresAt time.Time `json:"exp,omitempty"`
	ID        string    `json:"jti,omitempty"`
}
