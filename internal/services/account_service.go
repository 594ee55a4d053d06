package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/account-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/policy"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/repository"
	"github.com/google/uuid"
)

// AccountService is profile CRUD behind the authorization policy.
type AccountService struct {
	store  repository.AccountStore
	logger *slog.Logger
}

func NewAccountService(store repository.AccountStore, logger *slog.Logger) *AccountService {
	return &AccountService{store: store, logger: logger}
}

func (s *AccountService) List(ctx context.Context, appID string, actor *models.Account) ([]models.Account, error) {
	if err := authorize(actor, policy.CanReadAll(actor)); err != nil {
		return nil, err
	}
	accounts, err := s.store.List(ctx, appID)
	if err != nil {
		return nil, err
	}
	for i := range accounts {
		accounts[i] = *accounts[i].Sanitized()
	}
	return accounts, nil
}

func (s *AccountService) Get(ctx context.Context, appID string, actor *models.Account, id uuid.UUID) (*models.Account, error) {
	if err := authorize(actor, policy.CanAccess(actor, id)); err != nil {
		return nil, err
	}
	return s.load(ctx, appID, id)
}

func (s *AccountService) Update(ctx context.Context, appID string, actor *models.Account, id uuid.UUID, req *dto.UpdateAccountRequest) (*models.Account, error) {
	if err := authorize(actor, policy.CanAccess(actor, id)); err != nil {
		return nil, err
	}

	patch, err := buildPatch(actor, req)
	if err != nil {
		return nil, err
	}
	if patch.IsEmpty() {
		return s.load(ctx, appID, id)
	}

	updated, err := s.store.Update(ctx, appID, id, patch)
	if err != nil {
		return nil, storeError(err)
	}
	s.logger.Info("account updated", "app_id", appID, "account_id", id.String(), "action", "account_update",
		"actor_id", actor.ID.String())
	return updated.Sanitized(), nil
}

// Delete soft-deletes the target by flipping its status to DELETED.
func (s *AccountService) Delete(ctx context.Context, appID string, actor *models.Account, id uuid.UUID) (*models.Account, error) {
	if err := authorize(actor, policy.CanAccess(actor, id)); err != nil {
		return nil, err
	}
	deleted := models.StatusDeleted
	updated, err := s.store.Update(ctx, appID, id, repository.Patch{Status: &deleted})
	if err != nil {
		return nil, storeError(err)
	}
	s.logger.Info("account deleted", "app_id", appID, "account_id", id.String(), "action", "account_delete",
		"actor_id", actor.ID.String())
	return updated.Sanitized(), nil
}

func (s *AccountService) load(ctx context.Context, appID string, id uuid.UUID) (*models.Account, error) {
	acc, err := s.store.FindByID(ctx, appID, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("find account: %w", err)
	}
	return acc.Sanitized(), nil
}

func buildPatch(actor *models.Account, req *dto.UpdateAccountRequest) (repository.Patch, error) {
	var patch repository.Patch
	if req.Name != nil {
		name, err := validateName(*req.Name)
		if err != nil {
			return patch, err
		}
		patch.Name = &name
	}
	if req.Email != nil {
		addr, err := NormalizeEmail(*req.Email)
		if err != nil {
			return patch, err
		}
		patch.Email = &addr
	}
	if req.Phone != nil {
		phone, err := validatePhone(*req.Phone)
		if err != nil {
			return patch, err
		}
		if phone == "" {
			patch.Unset = append(patch.Unset, repository.FieldPhone)
		} else {
			patch.Phone = &phone
		}
	}
	if (req.Role != nil || req.Status != nil) && !policy.CanChangePrivileges(actor) {
		return patch, newError(ErrForbidden, "only admins may change role or status")
	}
	if req.Role != nil {
		role, err := models.ParseRole(*req.Role)
		if err != nil {
			return patch, badRequest(err.Error())
		}
		patch.Role = &role
	}
	if req.Status != nil {
		status, err := models.ParseStatus(*req.Status)
		if err != nil {
			return patch, badRequest(err.Error())
		}
		patch.Status = &status
	}
	return patch, nil
}

// authorize turns a policy decision into Unauthorized (no actor) or
// Forbidden (actor denied).
func authorize(actor *models.Account, allowed bool) error {
	if actor == nil {
		return newError(ErrUnauthorized, "authentication required")
	}
	if !allowed {
		return newError(ErrForbidden, "you are not allowed to access this resource")
	}
	return nil
}
