package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Role is the closed set of account roles.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin:
		return true
	}
	return false
}

func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("invalid role %q", s)
	}
	return r, nil
}

// Status is the closed set of account lifecycle states.
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusInactive  Status = "INACTIVE"
	StatusSuspended Status = "SUSPENDED"
	StatusDeleted   Status = "DELETED"
	StatusPending   Status = "PENDING"
	StatusBanned    Status = "BANNED"
	StatusArchived  Status = "ARCHIVED"
	StatusLocked    Status = "LOCKED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusSuspended, StatusDeleted,
		StatusPending, StatusBanned, StatusArchived, StatusLocked:
		return true
	}
	return false
}

func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return "", fmt.Errorf("invalid status %q", s)
	}
	return st, nil
}

// Avatar is the descriptor returned by the image host. It has no lifecycle
// of its own and is stored inline on the account.
type Avatar struct {
	URL       string `json:"url"`
	PublicID  string `json:"public_id"`
	SecureURL string `json:"secure_url"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Format    string `json:"format"`
}

// Account is the per-tenant user record. OTP and refresh token are kept as
// digests; at most one of each is live at a time.
type Account struct {
	ID               uuid.UUID                   `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	AppID            string                      `gorm:"size:50;not null;uniqueIndex:idx_accounts_app_email;uniqueIndex:idx_accounts_app_phone" json:"-"`
	Name             string                      `gorm:"size:50" json:"name"`
	Email            string                      `gorm:"size:255;not null;uniqueIndex:idx_accounts_app_email" json:"email"`
	Phone            *string                     `gorm:"size:15;uniqueIndex:idx_accounts_app_phone" json:"phone,omitempty"`
	Avatar           datatypes.JSONType[*Avatar] `gorm:"type:jsonb;not null;default:'null'" json:"avatar"`
	Role             Role                        `gorm:"size:20;not null;default:'USER'" json:"role"`
	Status           Status                      `gorm:"size:20;not null;default:'ACTIVE';index" json:"status"`
	NewAccount       bool                        `gorm:"not null;default:false" json:"new_account"`
	OTPHash          string                      `gorm:"size:60" json:"-"`
	OTPExpiry        *time.Time                  `json:"-"`
	RefreshTokenHash string                      `gorm:"size:64" json:"-"`
	CreatedAt        time.Time                   `json:"created_at"`
	UpdatedAt        time.Time                   `json:"updated_at"`
}

// AvatarInfo returns the stored avatar descriptor, or nil.
func (a *Account) AvatarInfo() *Avatar {
	return a.Avatar.Data()
}

// Sanitized returns a copy without auth state, suitable for request context
// and responses.
func (a *Account) Sanitized() *Account {
	cp := *a
	cp.OTPHash = ""
	cp.OTPExpiry = nil
	cp.RefreshTokenHash = ""
	return &cp
}
