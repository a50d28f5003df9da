package store

import (
	"context"
	"strings"
	"time"

	"github.com/aeroline/flightcore/pkg/models"
)

// CreateUser persists a new user, translating a unique-name collision into
// models.ErrDuplicateUser.
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.ErrDuplicateUser
		}
		return err
	}
	return nil
}

// GetUserByID looks up a user by primary key.
func (s *Store) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, convertNotFoundError(err, models.ErrUserNotFound)
	}
	return &user, nil
}

// GetUserByUniqueName looks up a user by their unique login handle.
func (s *Store) GetUserByUniqueName(ctx context.Context, uniqueName string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "unique_name = ?", uniqueName).Error; err != nil {
		return nil, convertNotFoundError(err, models.ErrUserNotFound)
	}
	return &user, nil
}

// UpdateLastLogin stamps the user's LastLogin to when.
func (s *Store) UpdateLastLogin(ctx context.Context, userID string, when time.Time) error {
	return s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Update("last_login", when).Error
}

// isUniqueConstraintError reports whether err is a unique-constraint
// violation from either SQLite or PostgreSQL.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "UNIQUE constraint failed") ||
		strings.Contains(errStr, "duplicate key value violates unique constraint")
}
