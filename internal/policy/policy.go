// Package policy decides who may act on which account. Decisions are pure
// functions of the acting account and the target id.
package policy

import (
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/models"
	"github.com/google/uuid"
)

// CanReadAll reports whether actor may list every account of its tenant.
func CanReadAll(actor *models.Account) bool {
	return actor != nil && actor.Role == models.RoleAdmin
}

// CanAccess reports whether actor may read, update or delete the target.
// Admins may act on anyone; everyone else only on themselves.
func CanAccess(actor *models.Account, targetID uuid.UUID) bool {
	if actor == nil {
		return false
	}
	return actor.Role == models.RoleAdmin || actor.ID == targetID
}

// CanMutateAvatarOf applies the same rule to avatar upload and removal.
func CanMutateAvatarOf(actor *models.Account, targetID uuid.UUID) bool {
	return CanAccess(actor, targetID)
}

// CanChangePrivileges reports whether actor may set role or status.
func CanChangePrivileges(actor *models.Account) bool {
	return actor != nil && actor.Role == models.RoleAdmin
}
