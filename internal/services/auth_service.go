package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ahmetcoskunkizilkaya/account-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

const (
	minNameLen = 3
	maxNameLen = 50
	maxPhone   = 15
)

// AuthService implements profile completion, OTP login, logout and refresh.
type AuthService struct {
	store     repository.AccountStore
	tokens    *TokenService
	otpLength int
	logger    *slog.Logger
	now       func() time.Time
}

func NewAuthService(store repository.AccountStore, tokens *TokenService, otpLength int, logger *slog.Logger) *AuthService {
	return &AuthService{
		store:     store,
		tokens:    tokens,
		otpLength: otpLength,
		logger:    logger,
		now:       time.Now,
	}
}

// Register completes the profile of an account created by the OTP flow.
// Name and phone are optional; only those present are written.
func (s *AuthService) Register(ctx context.Context, appID string, req *dto.RegisterRequest) (*models.Account, error) {
	addr, err := NormalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}

	notNew := false
	patch := repository.Patch{NewAccount: &notNew}
	if req.Name != nil {
		name, err := validateName(*req.Name)
		if err != nil {
			return nil, err
		}
		patch.Name = &name
	}

	acc, err := s.store.FindByEmail(ctx, appID, addr)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newError(ErrNotFound, "no account for this email, request an otp first")
		}
		return nil, fmt.Errorf("find account: %w", err)
	}

	if req.Phone != nil {
		phone, err := validatePhone(*req.Phone)
		if err != nil {
			return nil, err
		}
		if phone == "" {
			patch.Unset = append(patch.Unset, repository.FieldPhone)
		} else {
			patch.Phone = &phone
		}
	}

	updated, err := s.store.Update(ctx, appID, acc.ID, patch)
	if err != nil {
		return nil, storeError(err)
	}
	s.logger.Info("profile completed", "app_id", appID, "account_id", acc.ID.String(), "action", "register")
	return updated.Sanitized(), nil
}

// Login exchanges a valid, unexpired OTP for a token pair. The OTP stays on
// the account until the next Issue overwrites it.
func (s *AuthService) Login(ctx context.Context, appID string, req *dto.LoginRequest) (*models.Account, *TokenPair, error) {
	addr, err := NormalizeEmail(req.Email)
	if err != nil {
		return nil, nil, err
	}
	if req.OTP == "" {
		return nil, nil, badRequest("otp is required")
	}

	acc, err := s.store.FindByEmail(ctx, appID, addr)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrAccountNotFound
		}
		return nil, nil, fmt.Errorf("find account: %w", err)
	}

	code := s.padCode(string(req.OTP))
	if acc.OTPHash == "" || bcrypt.CompareHashAndPassword([]byte(acc.OTPHash), []byte(code)) != nil {
		return nil, nil, ErrInvalidCredential
	}
	if acc.OTPExpiry == nil || !s.now().Before(*acc.OTPExpiry) {
		return nil, nil, ErrExpired
	}

	pair, err := s.tokens.MintPair(ctx, appID, acc.ID)
	if err != nil {
		return nil, nil, err
	}
	s.logger.Info("login", "app_id", appID, "account_id", acc.ID.String(), "action", "login")
	return acc.Sanitized(), pair, nil
}

// Logout clears the stored refresh token and OTP. A nil actor is a no-op.
func (s *AuthService) Logout(ctx context.Context, appID string, actor *models.Account) error {
	if actor == nil {
		return nil
	}
	_, err := s.store.Update(ctx, appID, actor.ID, repository.Patch{
		Unset: []repository.Field{
			repository.FieldRefreshTokenHash,
			repository.FieldOTPHash,
			repository.FieldOTPExpiry,
		},
	})
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

func (s *AuthService) Refresh(ctx context.Context, appID, refreshToken string) (*TokenPair, error) {
	return s.tokens.Rotate(ctx, appID, refreshToken)
}

func (s *AuthService) padCode(code string) string {
	code = strings.TrimSpace(code)
	if len(code) >= s.otpLength || strings.Trim(code, "0123456789") != "" {
		return code
	}
	return strings.Repeat("0", s.otpLength-len(code)) + code
}

func validateName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	n := utf8.RuneCountInString(name)
	if n < minNameLen || n > maxNameLen {
		return "", badRequest(fmt.Sprintf("name must be between %d and %d characters", minNameLen, maxNameLen))
	}
	return name, nil
}

func validatePhone(raw string) (string, error) {
	phone := strings.TrimSpace(raw)
	if len(phone) > maxPhone {
		return "", badRequest(fmt.Sprintf("phone must be at most %d characters", maxPhone))
	}
	return phone, nil
}

// storeError maps repository errors from updates onto the service taxonomy.
func storeError(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrAccountNotFound
	case errors.Is(err, repository.ErrDuplicate):
		return newError(ErrConflict, "email or phone already in use")
	default:
		return fmt.Errorf("update account: %w", err)
	}
}
