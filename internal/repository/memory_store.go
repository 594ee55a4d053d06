package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ahmetcoskunkizilkaya/account-backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// MemoryAccountStore keeps accounts in process. It backs DB_DRIVER=memory
// and the service tests, and enforces the same per-tenant uniqueness as the
// postgres indexes.
type MemoryAccountStore struct {
	mu       sync.RWMutex
	accounts map[uuid.UUID]*models.Account
	now      func() time.Time
}

func NewMemoryAccountStore() *MemoryAccountStore {
	return &MemoryAccountStore{
		accounts: make(map[uuid.UUID]*models.Account),
		now:      time.Now,
	}
}

func (s *MemoryAccountStore) FindByID(_ context.Context, appID string, id uuid.UUID) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acc, ok := s.accounts[id]
	if !ok || acc.AppID != appID {
		return nil, ErrNotFound
	}
	return clone(acc), nil
}

func (s *MemoryAccountStore) FindByEmail(_ context.Context, appID, email string) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, acc := range s.accounts {
		if acc.AppID == appID && acc.Email == email {
			return clone(acc), nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryAccountStore) List(_ context.Context, appID string) ([]models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]models.Account, 0)
	for _, acc := range s.accounts {
		if acc.AppID == appID {
			result = append(result, *clone(acc))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (s *MemoryAccountStore) Create(_ context.Context, acc *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if acc.ID == uuid.Nil {
		acc.ID = uuid.New()
	}
	if _, exists := s.accounts[acc.ID]; exists {
		return ErrDuplicate
	}
	if s.conflicts(acc, uuid.Nil) {
		return ErrDuplicate
	}
	if acc.Role == "" {
		acc.Role = models.RoleUser
	}
	if acc.Status == "" {
		acc.Status = models.StatusActive
	}
	now := s.now()
	acc.CreatedAt = now
	acc.UpdatedAt = now
	s.accounts[acc.ID] = clone(acc)
	return nil
}

func (s *MemoryAccountStore) Update(_ context.Context, appID string, id uuid.UUID, p Patch) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.accounts[id]
	if !ok || current.AppID != appID {
		return nil, ErrNotFound
	}
	next := clone(current)
	p.Apply(next)
	if s.conflicts(next, id) {
		return nil, ErrDuplicate
	}
	if !p.IsEmpty() {
		next.UpdatedAt = s.now()
	}
	s.accounts[id] = next
	return clone(next), nil
}

func (s *MemoryAccountStore) Ping(context.Context) error {
	return nil
}

// conflicts reports whether acc collides with another account of the same
// tenant on email or phone. Callers hold the lock.
func (s *MemoryAccountStore) conflicts(acc *models.Account, self uuid.UUID) bool {
	for id, other := range s.accounts {
		if id == self || other.AppID != acc.AppID {
			continue
		}
		if other.Email == acc.Email {
			return true
		}
		if acc.Phone != nil && other.Phone != nil && *acc.Phone == *other.Phone {
			return true
		}
	}
	return false
}

func clone(acc *models.Account) *models.Account {
	cp := *acc
	if acc.Phone != nil {
		phone := *acc.Phone
		cp.Phone = &phone
	}
	if acc.OTPExpiry != nil {
		exp := *acc.OTPExpiry
		cp.OTPExpiry = &exp
	}
	if av := acc.AvatarInfo(); av != nil {
		avCopy := *av
		cp.Avatar = datatypes.NewJSONType(&avCopy)
	}
	return &cp
}
