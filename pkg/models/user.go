package models

import "time"

// Role represents a capability grant a user carries in their access token's
// roles claim.
type Role string

const (
	// RoleUser is a regular operator account.
	RoleUser Role = "user"
	// RoleVessel is held by vessel firmware; gates vessel-registration and
	// ingest endpoints.
	RoleVessel Role = "vessel"
	// RoleAdmin is an administrator with full permissions.
	RoleAdmin Role = "admin"
)

// IsValid reports whether r is a known role.
func (r Role) IsValid() bool {
	return r == RoleUser || r == RoleVessel || r == RoleAdmin
}

// StringSlice is a JSON-serialized list of strings, used for GORM columns
// backed by a document-style serializer rather than a join table.
type StringSlice []string

// Contains reports whether s holds value.
func (s StringSlice) Contains(value string) bool {
	for _, v := range s {
		if v == value {
			return true
		}
	}
	return false
}

// User is a flightcore account: an operator, a vessel identity, or both.
//
// Users are created explicitly via registration, or implicitly the first
// time an authorization code minted for a vessel is redeemed.
type User struct {
	ID           string      `gorm:"primaryKey;size:36" json:"id"`
	UniqueName   string      `gorm:"uniqueIndex;not null;size:255" json:"unique_name"`
	Name         string      `gorm:"size:255" json:"name"`
	PasswordHash string      `gorm:"size:255" json:"-"`
	Roles        StringSlice `gorm:"serializer:json" json:"roles"`
	CreatedAt    time.Time   `gorm:"autoCreateTime" json:"created_at"`
	LastLogin    *time.Time  `json:"last_login,omitempty"`
}

// TableName returns the table name for User.
func (User) TableName() string {
	return "users"
}

// HasRole reports whether the user carries the given role.
func (u *User) HasRole(r Role) bool {
	return u.Roles.Contains(string(r))
}
