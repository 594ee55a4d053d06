package dto

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/account-backend/internal/models"
	"github.com/google/uuid"
)

// AccountResponse is the public projection of an account. Auth state never
// appears here.
type AccountResponse struct {
	ID         uuid.UUID      `json:"id"`
	Name       string         `json:"name"`
	Email      string         `json:"email"`
	Phone      *string        `json:"phone,omitempty"`
	Avatar     *models.Avatar `json:"avatar"`
	Role       models.Role    `json:"role"`
	Status     models.Status  `json:"status"`
	NewAccount bool           `json:"new_account"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

func NewAccountResponse(acc *models.Account) AccountResponse {
	return AccountResponse{
		ID:         acc.ID,
		Name:       acc.Name,
		Email:      acc.Email,
		Phone:      acc.Phone,
		Avatar:     acc.AvatarInfo(),
		Role:       acc.Role,
		Status:     acc.Status,
		NewAccount: acc.NewAccount,
		CreatedAt:  acc.CreatedAt,
		UpdatedAt:  acc.UpdatedAt,
	}
}

func NewAccountList(accounts []models.Account) []AccountResponse {
	out := make([]AccountResponse, 0, len(accounts))
	for i := range accounts {
		out = append(out, NewAccountResponse(&accounts[i]))
	}
	return out
}

// UpdateAccountRequest carries the mutable profile fields. Role and status
// are honoured only for admins.
type UpdateAccountRequest struct {
	Name   *string `json:"name,omitempty"`
	Email  *string `json:"email,omitempty"`
	Phone  *string `json:"phone,omitempty"`
	Role   *string `json:"role,omitempty"`
	Status *string `json:"status,omitempty"`
}
