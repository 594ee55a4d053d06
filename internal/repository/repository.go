// Package repository persists accounts, scoped by tenant.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/ahmetcoskunkizilkaya/account-backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

var (
	ErrNotFound  = errors.New("account not found")
	ErrDuplicate = errors.New("account already exists")
)

// AccountStore is the account persistence contract. Every lookup is scoped
// to appID; an account in another tenant is reported as ErrNotFound.
type AccountStore interface {
	FindByID(ctx context.Context, appID string, id uuid.UUID) (*models.Account, error)
	FindByEmail(ctx context.Context, appID, email string) (*models.Account, error)
	List(ctx context.Context, appID string) ([]models.Account, error)
	Create(ctx context.Context, acc *models.Account) error
	Update(ctx context.Context, appID string, id uuid.UUID, p Patch) (*models.Account, error)
	Ping(ctx context.Context) error
}

// Field names a nullable column a Patch can clear.
type Field string

const (
	FieldRefreshTokenHash Field = "refresh_token_hash"
	FieldOTPHash          Field = "otp_hash"
	FieldOTPExpiry        Field = "otp_expiry"
	FieldAvatar           Field = "avatar"
	FieldPhone            Field = "phone"
)

// Patch is a partial update. Nil pointers are left untouched; fields listed
// in Unset are cleared.
type Patch struct {
	Name             *string
	Email            *string
	Phone            *string
	Role             *models.Role
	Status           *models.Status
	NewAccount       *bool
	OTPHash          *string
	OTPExpiry        *time.Time
	RefreshTokenHash *string
	Avatar           *models.Avatar
	Unset            []Field
}

func (p Patch) IsEmpty() bool {
	return p.Name == nil && p.Email == nil && p.Phone == nil && p.Role == nil &&
		p.Status == nil && p.NewAccount == nil && p.OTPHash == nil &&
		p.OTPExpiry == nil && p.RefreshTokenHash == nil && p.Avatar == nil &&
		len(p.Unset) == 0
}

// Apply writes the patch onto acc in place.
func (p Patch) Apply(acc *models.Account) {
	if p.Name != nil {
		acc.Name = *p.Name
	}
	if p.Email != nil {
		acc.Email = *p.Email
	}
	if p.Phone != nil {
		phone := *p.Phone
		acc.Phone = &phone
	}
	if p.Role != nil {
		acc.Role = *p.Role
	}
	if p.Status != nil {
		acc.Status = *p.Status
	}
	if p.NewAccount != nil {
		acc.NewAccount = *p.NewAccount
	}
	if p.OTPHash != nil {
		acc.OTPHash = *p.OTPHash
	}
	if p.OTPExpiry != nil {
		exp := *p.OTPExpiry
		acc.OTPExpiry = &exp
	}
	if p.RefreshTokenHash != nil {
		acc.RefreshTokenHash = *p.RefreshTokenHash
	}
	if p.Avatar != nil {
		av := *p.Avatar
		acc.Avatar = datatypes.NewJSONType(&av)
	}
	for _, f := range p.Unset {
		switch f {
		case FieldRefreshTokenHash:
			acc.RefreshTokenHash = ""
		case FieldOTPHash:
			acc.OTPHash = ""
		case FieldOTPExpiry:
			acc.OTPExpiry = nil
		case FieldAvatar:
			acc.Avatar = datatypes.NewJSONType[*models.Avatar](nil)
		case FieldPhone:
			acc.Phone = nil
		}
	}
}

// columns maps the patch to a gorm update set.
func (p Patch) columns() map[string]any {
	cols := make(map[string]any)
	if p.Name != nil {
		cols["name"] = *p.Name
	}
	if p.Email != nil {
		cols["email"] = *p.Email
	}
	if p.Phone != nil {
		cols["phone"] = *p.Phone
	}
	if p.Role != nil {
		cols["role"] = *p.Role
	}
	if p.Status != nil {
		cols["status"] = *p.Status
	}
	if p.NewAccount != nil {
		cols["new_account"] = *p.NewAccount
	}
	if p.OTPHash != nil {
		cols["otp_hash"] = *p.OTPHash
	}
	if p.OTPExpiry != nil {
		cols["otp_expiry"] = *p.OTPExpiry
	}
	if p.RefreshTokenHash != nil {
		cols["refresh_token_hash"] = *p.RefreshTokenHash
	}
	if p.Avatar != nil {
		av := *p.Avatar
		cols["avatar"] = datatypes.NewJSONType(&av)
	}
	for _, f := range p.Unset {
		switch f {
		case FieldRefreshTokenHash, FieldOTPHash:
			cols[string(f)] = ""
		case FieldAvatar:
			cols["avatar"] = datatypes.NewJSONType[*models.Avatar](nil)
		default:
			cols[string(f)] = nil
		}
	}
	return cols
}
