package models

import "time"

// AuthorizationCode is an opaque, high-entropy bearer credential that can be
// redeemed for a token pair. Used both for refresh tokens (single-use) and
// for vessel provisioning codes.
type AuthorizationCode struct {
	Code       string    `gorm:"primaryKey;size:512" json:"code"`
	UserID     string    `gorm:"index;size:36;not null" json:"user_id"`
	SingleUse  bool      `json:"single_use"`
	ValidUntil time.Time `json:"valid_until"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName returns the table name for AuthorizationCode.
func (AuthorizationCode) TableName() string {
	return "authorization_codes"
}

// Expired reports whether the code is no longer valid as of now.
func (c AuthorizationCode) Expired(now time.Time) bool {
	return now.After(c.ValidUntil)
}
