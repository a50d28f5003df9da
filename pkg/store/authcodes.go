package store

import (
	"context"

	"github.com/aeroline/flightcore/pkg/models"
)

// CreateAuthCode persists a newly minted authorization code. Implements
// auth.CodeStore.
func (s *Store) CreateAuthCode(ctx context.Context, code *models.AuthorizationCode) error {
	return s.db.WithContext(ctx).Create(code).Error
}

// GetAuthCode looks up an authorization code by its opaque value. Implements
// auth.CodeStore.
func (s *Store) GetAuthCode(ctx context.Context, code string) (*models.AuthorizationCode, error) {
	var rec models.AuthorizationCode
	if err := s.db.WithContext(ctx).First(&rec, "code = ?", code).Error; err != nil {
		return nil, convertNotFoundError(err, models.ErrAuthCodeNotFound)
	}
	return &rec, nil
}

// DeleteAuthCode removes an authorization code unconditionally. Implements
// auth.CodeStore.
func (s *Store) DeleteAuthCode(ctx context.Context, code string) error {
	return s.db.WithContext(ctx).Delete(&models.AuthorizationCode{}, "code = ?", code).Error
}
