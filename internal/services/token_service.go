package services

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/ahmetcoskunkizilkaya/account-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/repository"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenConfig holds the signing secrets and lifetimes for both token kinds.
type TokenConfig struct {
	AccessSecret  []byte
	AccessExpiry  time.Duration
	RefreshSecret []byte
	RefreshExpiry time.Duration
}

type TokenKind string

const (
	AccessToken  TokenKind = "access"
	RefreshToken TokenKind = "refresh"
)

// Claims is the payload of both token kinds. Refresh tokens leave Email and
// Role empty. Subject is the account id.
type Claims struct {
	AppID string      `json:"app_id"`
	Email string      `json:"email,omitempty"`
	Role  models.Role `json:"role,omitempty"`
	Kind  TokenKind   `json:"typ"`
	jwt.RegisteredClaims
}

// AccountID parses the subject claim.
func (c *Claims) AccountID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}

type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// TokenService mints, verifies and rotates token pairs. Only the digest of
// the latest refresh token is stored on the account.
type TokenService struct {
	store repository.AccountStore
	cfg   TokenConfig
	now   func() time.Time
}

func NewTokenService(store repository.AccountStore, cfg TokenConfig) *TokenService {
	return &TokenService{store: store, cfg: cfg, now: time.Now}
}

// MintPair signs a new pair for the account and stores the refresh digest,
// displacing any earlier refresh token.
func (s *TokenService) MintPair(ctx context.Context, appID string, accountID uuid.UUID) (*TokenPair, error) {
	acc, err := s.store.FindByID(ctx, appID, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("load account: %w", err)
	}

	now := s.now()
	access, err := s.sign(&Claims{
		AppID:            appID,
		Email:            acc.Email,
		Role:             acc.Role,
		Kind:             AccessToken,
		RegisteredClaims: registered(acc.ID, now, s.cfg.AccessExpiry),
	}, s.cfg.AccessSecret)
	if err != nil {
		return nil, err
	}

	refresh, err := s.sign(&Claims{
		AppID:            appID,
		Kind:             RefreshToken,
		RegisteredClaims: registered(acc.ID, now, s.cfg.RefreshExpiry),
	}, s.cfg.RefreshSecret)
	if err != nil {
		return nil, err
	}

	digest := hashToken(refresh)
	if _, err := s.store.Update(ctx, appID, acc.ID, repository.Patch{RefreshTokenHash: &digest}); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Verify checks signature, expiry and kind. Every failure is ErrInvalidToken.
func (s *TokenService) Verify(token string, kind TokenKind) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, s.Keyfunc(kind),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || claims.Kind != kind {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Rotate exchanges a refresh token for a new pair. A token that verifies but
// is no longer the stored one fails with ErrTokenMismatch.
func (s *TokenService) Rotate(ctx context.Context, appID, presented string) (*TokenPair, error) {
	if presented == "" {
		return nil, newError(ErrUnauthorized, "refresh token required")
	}

	claims, err := s.Verify(presented, RefreshToken)
	if err != nil {
		return nil, err
	}
	if claims.AppID != appID {
		return nil, ErrInvalidToken
	}
	accountID, err := claims.AccountID()
	if err != nil {
		return nil, ErrInvalidToken
	}

	acc, err := s.store.FindByID(ctx, appID, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("load account: %w", err)
	}

	if subtle.ConstantTimeCompare([]byte(hashToken(presented)), []byte(acc.RefreshTokenHash)) != 1 {
		return nil, ErrTokenMismatch
	}

	return s.MintPair(ctx, appID, acc.ID)
}

// Keyfunc returns the key for kind and accepts HS256 only. The session
// gate parses with it too, so both paths pin the same algorithm.
func (s *TokenService) Keyfunc(kind TokenKind) jwt.Keyfunc {
	secret := s.cfg.AccessSecret
	if kind == RefreshToken {
		secret = s.cfg.RefreshSecret
	}
	return func(t *jwt.Token) (interface{}, error) {
		if t.Method == nil || t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	}
}

func (s *TokenService) sign(claims *Claims, secret []byte) (string, error) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSigningFailure, err)
	}
	return signed, nil
}

func registered(accountID uuid.UUID, now time.Time, ttl time.Duration) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Subject:   accountID.String(),
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
}

func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return fmt.Sprintf("%x", h)
}
