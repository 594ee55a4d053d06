package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/ahmetcoskunkizilkaya/account-backend/internal/database"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/tenant"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormAccountStore is the postgres-backed AccountStore. The db handle must
// be opened with TranslateError so unique violations map to ErrDuplicate.
type GormAccountStore struct {
	db *gorm.DB
}

func NewGormAccountStore(db *gorm.DB) *GormAccountStore {
	return &GormAccountStore{db: db}
}

func (s *GormAccountStore) FindByID(ctx context.Context, appID string, id uuid.UUID) (*models.Account, error) {
	var acc models.Account
	err := s.db.WithContext(ctx).Scopes(tenant.ForAccount(appID, id)).First(&acc).Error
	if err != nil {
		return nil, translate(err)
	}
	return &acc, nil
}

func (s *GormAccountStore) FindByEmail(ctx context.Context, appID, email string) (*models.Account, error) {
	var acc models.Account
	err := s.db.WithContext(ctx).Scopes(tenant.ForTenant(appID)).
		Where("email = ?", email).First(&acc).Error
	if err != nil {
		return nil, translate(err)
	}
	return &acc, nil
}

func (s *GormAccountStore) List(ctx context.Context, appID string) ([]models.Account, error) {
	var accounts []models.Account
	err := s.db.WithContext(ctx).Scopes(tenant.ForTenant(appID)).
		Order("created_at ASC").Find(&accounts).Error
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return accounts, nil
}

func (s *GormAccountStore) Create(ctx context.Context, acc *models.Account) error {
	if acc.ID == uuid.Nil {
		acc.ID = uuid.New()
	}
	if err := s.db.WithContext(ctx).Create(acc).Error; err != nil {
		return translate(err)
	}
	return nil
}

func (s *GormAccountStore) Update(ctx context.Context, appID string, id uuid.UUID, p Patch) (*models.Account, error) {
	if p.IsEmpty() {
		return s.FindByID(ctx, appID, id)
	}
	result := s.db.WithContext(ctx).Model(&models.Account{}).
		Scopes(tenant.ForAccount(appID, id)).
		Updates(p.columns())
	if result.Error != nil {
		return nil, translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return s.FindByID(ctx, appID, id)
}

func (s *GormAccountStore) Ping(ctx context.Context) error {
	return database.Ping(ctx, s.db)
}

func translate(err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	default:
		return err
	}
}
