package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aeroline/flightcore/pkg/models"
)

// codeEntropyBytes is the raw entropy backing a minted code, chosen so the
// base64 encoding clears the spec's 256-byte minimum.
const codeEntropyBytes = 256

// MintAuthorizationCode generates a new opaque, high-entropy code for
// userID and persists it. validUntil more than MaxCodeValidity in the
// future is rejected with ErrCodeTooLong.
func (s *TokenService) MintAuthorizationCode(ctx context.Context, userID string, singleUse bool, validUntil time.Time) (*models.AuthorizationCode, error) {
	if time.Until(validUntil) > MaxCodeValidity {
		return nil, ErrCodeTooLong
	}
	raw := make([]byte, codeEntropyBytes)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("generating authorization code entropy: %w", err)
	}
	code := &models.AuthorizationCode{
		Code:       base64.URLEncoding.EncodeToString(raw),
		UserID:     userID,
		SingleUse:  singleUse,
		ValidUntil: validUntil,
	}
	if err := s.codes.CreateAuthCode(ctx, code); err != nil {
		return nil, fmt.Errorf("persisting authorization code: %w", err)
	}
	return code, nil
}

// RedeemAuthorizationCode looks up code, rejecting and deleting it if
// expired, deleting it if single-use, and returning the record so the
// caller can load the associated user and issue a new token pair.
func (s *TokenService) RedeemAuthorizationCode(ctx context.Context, codeStr string) (*models.AuthorizationCode, error) {
	code, err := s.codes.GetAuthCode(ctx, codeStr)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, models.ErrAuthCodeNotFound) {
			return nil, ErrCodeNotFound
		}
		return nil, fmt.Errorf("looking up authorization code: %w", err)
	}
	if code.Expired(time.Now()) {
		_ = s.codes.DeleteAuthCode(ctx, codeStr)
		return nil, ErrCodeExpired
	}
	if code.SingleUse {
		if err := s.codes.DeleteAuthCode(ctx, codeStr); err != nil {
			return nil, fmt.Errorf("consuming authorization code: %w", err)
		}
	}
	return code, nil
}

// RevokeAuthorizationCode deletes code unconditionally.
func (s *TokenService) RevokeAuthorizationCode(ctx context.Context, codeStr string) error {
	return s.codes.DeleteAuthCode(ctx, codeStr)
}

// NewUserID generates a fresh random user identifier.
func NewUserID() string {
	return uuid.NewString()
}
