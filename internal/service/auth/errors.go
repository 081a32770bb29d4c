package auth

import "errors"

// Token validation failures. ValidateToken wraps every error it returns in
// one of these so callers can map them without inspecting jwt internals.
var (
	ErrInvalidToken     = errors.New("invalid authentication token")
	ErrExpiredToken     = errors.New("authentication token has expired")
	ErrTokenNotYetValid = errors.New("authentication token not yet valid")

	// ErrWrongTokenType is a correctly signed token whose type claim is not
	// AccessTokenType.
	ErrWrongTokenType = errors.New("wrong token type")
)
