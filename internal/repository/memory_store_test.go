package repository

import (
	"context"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/account-backend/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestMemoryStore_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryAccountStore()

	acc := &models.Account{AppID: "app_a", Email: "ann@example.com"}
	require.NoError(t, store.Create(ctx, acc))
	assert.NotEqual(t, uuid.Nil, acc.ID)

	got, err := store.FindByEmail(ctx, "app_a", "ann@example.com")
	require.NoError(t, err)
	assert.Equal(t, acc.ID, got.ID)
	assert.Equal(t, models.RoleUser, got.Role)
	assert.Equal(t, models.StatusActive, got.Status)
	assert.Nil(t, got.AvatarInfo())
}

func TestMemoryStore_TenantIsolation(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryAccountStore()

	a := &models.Account{AppID: "app_a", Email: "same@example.com"}
	b := &models.Account{AppID: "app_b", Email: "same@example.com"}
	require.NoError(t, store.Create(ctx, a))
	require.NoError(t, store.Create(ctx, b), "email is unique per tenant, not globally")

	_, err := store.FindByID(ctx, "app_b", a.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.Update(ctx, "app_b", a.ID, Patch{Name: strPtr("nope")})
	assert.ErrorIs(t, err, ErrNotFound)

	list, err := store.List(ctx, "app_a")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, a.ID, list[0].ID)
}

func TestMemoryStore_DuplicateEmailAndPhone(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryAccountStore()

	require.NoError(t, store.Create(ctx, &models.Account{AppID: "app_a", Email: "x@example.com", Phone: strPtr("+100")}))
	err := store.Create(ctx, &models.Account{AppID: "app_a", Email: "x@example.com"})
	assert.ErrorIs(t, err, ErrDuplicate)

	other := &models.Account{AppID: "app_a", Email: "y@example.com"}
	require.NoError(t, store.Create(ctx, other))
	_, err = store.Update(ctx, "app_a", other.ID, Patch{Phone: strPtr("+100")})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestMemoryStore_PatchSetAndUnset(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryAccountStore()
	acc := &models.Account{AppID: "app_a", Email: "p@example.com"}
	require.NoError(t, store.Create(ctx, acc))

	exp := time.Now().Add(time.Minute)
	updated, err := store.Update(ctx, "app_a", acc.ID, Patch{
		OTPHash:          strPtr("hash"),
		OTPExpiry:        &exp,
		RefreshTokenHash: strPtr("digest"),
		Avatar:           &models.Avatar{URL: "https://cdn/x.png", PublicID: "avatar/x.png"},
	})
	require.NoError(t, err)
	assert.Equal(t, "hash", updated.OTPHash)
	assert.Equal(t, "digest", updated.RefreshTokenHash)
	require.NotNil(t, updated.AvatarInfo())
	assert.Equal(t, "avatar/x.png", updated.AvatarInfo().PublicID)

	cleared, err := store.Update(ctx, "app_a", acc.ID, Patch{
		Unset: []Field{FieldOTPHash, FieldOTPExpiry, FieldRefreshTokenHash, FieldAvatar},
	})
	require.NoError(t, err)
	assert.Empty(t, cleared.OTPHash)
	assert.Nil(t, cleared.OTPExpiry)
	assert.Empty(t, cleared.RefreshTokenHash)
	assert.Nil(t, cleared.AvatarInfo())
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryAccountStore()
	acc := &models.Account{AppID: "app_a", Email: "c@example.com", Name: "Original"}
	require.NoError(t, store.Create(ctx, acc))

	got, err := store.FindByID(ctx, "app_a", acc.ID)
	require.NoError(t, err)
	got.Name = "Mutated"

	again, err := store.FindByID(ctx, "app_a", acc.ID)
	require.NoError(t, err)
	assert.Equal(t, "Original", again.Name)
}
