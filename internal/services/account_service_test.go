package services

import (
	"context"
	"testing"

	"github.com/ahmetcoskunkizilkaya/account-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestAccountService_Get(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	userA := env.createAccount(t, "a@example.com", models.RoleUser)
	userB := env.createAccount(t, "b@example.com", models.RoleUser)
	admin := env.createAccount(t, "admin@example.com", models.RoleAdmin)

	_, err := env.accounts.Get(ctx, testApp, userA, userB.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	got, err := env.accounts.Get(ctx, testApp, userA, userA.ID)
	require.NoError(t, err)
	assert.Equal(t, userA.ID, got.ID)

	got, err = env.accounts.Get(ctx, testApp, admin, userB.ID)
	require.NoError(t, err)
	assert.Equal(t, userB.ID, got.ID)

	_, err = env.accounts.Get(ctx, testApp, admin, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = env.accounts.Get(ctx, testApp, nil, userA.ID)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestAccountService_List(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	user := env.createAccount(t, "u@example.com", models.RoleUser)
	admin := env.createAccount(t, "admin@example.com", models.RoleAdmin)
	_, err := env.tokens.MintPair(ctx, testApp, user.ID)
	require.NoError(t, err)

	_, err = env.accounts.List(ctx, testApp, user)
	assert.ErrorIs(t, err, ErrForbidden)

	all, err := env.accounts.List(ctx, testApp, admin)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	for _, acc := range all {
		assert.Empty(t, acc.RefreshTokenHash)
	}
}

func TestAccountService_Update(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	user := env.createAccount(t, "u@example.com", models.RoleUser)
	admin := env.createAccount(t, "admin@example.com", models.RoleAdmin)

	updated, err := env.accounts.Update(ctx, testApp, user, user.ID, &dto.UpdateAccountRequest{Name: strPtr("Renamed User")})
	require.NoError(t, err)
	assert.Equal(t, "Renamed User", updated.Name)

	_, err = env.accounts.Update(ctx, testApp, user, user.ID, &dto.UpdateAccountRequest{Role: strPtr("ADMIN")})
	assert.ErrorIs(t, err, ErrForbidden, "users cannot promote themselves")

	_, err = env.accounts.Update(ctx, testApp, admin, user.ID, &dto.UpdateAccountRequest{Status: strPtr("GONE")})
	assert.ErrorIs(t, err, ErrBadRequest)

	updated, err = env.accounts.Update(ctx, testApp, admin, user.ID, &dto.UpdateAccountRequest{
		Role:   strPtr("ADMIN"),
		Status: strPtr("SUSPENDED"),
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, updated.Role)
	assert.Equal(t, models.StatusSuspended, updated.Status)

	_, err = env.accounts.Update(ctx, testApp, user, user.ID, &dto.UpdateAccountRequest{Email: strPtr("admin@example.com")})
	assert.ErrorIs(t, err, ErrConflict)

	_, err = env.accounts.Update(ctx, testApp, user, admin.ID, &dto.UpdateAccountRequest{Name: strPtr("Hijack")})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestAccountService_SoftDelete(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	target := env.createAccount(t, "x@example.com", models.RoleUser)
	admin := env.createAccount(t, "admin@example.com", models.RoleAdmin)

	deleted, err := env.accounts.Delete(ctx, testApp, admin, target.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDeleted, deleted.Status)

	still, err := env.store.FindByID(ctx, testApp, target.ID)
	require.NoError(t, err, "soft-deleted accounts remain resolvable")
	assert.Equal(t, models.StatusDeleted, still.Status)
}

func TestAccountService_DeleteForbidden(t *testing.T) {
	env := newTestEnv(t)
	a := env.createAccount(t, "a@example.com", models.RoleUser)
	b := env.createAccount(t, "b@example.com", models.RoleUser)

	_, err := env.accounts.Delete(context.Background(), testApp, a, b.ID)
	assert.ErrorIs(t, err, ErrForbidden)
}
