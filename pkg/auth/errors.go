package auth

import "errors"

// Common errors for token issuance and validation.
var (
	ErrInvalidToken       = errors.New("invalid token")
	ErrExpiredToken       = errors.New("token has expired")
	ErrInvalidTokenType   = errors.New("invalid token type")
	ErrTokenSigningFailed = errors.New("failed to sign token")
	ErrCodeExpired        = errors.New("authorization code has expired")
	ErrCodeNotFound       = errors.New("authorization code not found")
	ErrCodeTooLong        = errors.New("authorization code validity exceeds the 1 year maximum")
	ErrKeyLoadFailed      = errors.New("failed to load signing key material")
)
