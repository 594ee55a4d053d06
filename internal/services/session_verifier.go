package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/ahmetcoskunkizilkaya/account-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/repository"
)

// SessionVerifier authenticates a request from its access and refresh
// tokens. It holds no mutable state and is safe for concurrent use.
type SessionVerifier struct {
	tokens *TokenService
	store  repository.AccountStore
}

func NewSessionVerifier(tokens *TokenService, store repository.AccountStore) *SessionVerifier {
	return &SessionVerifier{tokens: tokens, store: store}
}

// Verify checks both raw tokens and returns the acting account without its
// auth state. It is for callers that have not parsed the access token
// themselves; the HTTP gate parses it with jwtware and calls Authenticate.
func (v *SessionVerifier) Verify(ctx context.Context, appID, accessToken, refreshToken string) (*models.Account, error) {
	if accessToken == "" {
		return nil, newError(ErrUnauthorized, "access token required")
	}
	access, err := v.tokens.Verify(accessToken, AccessToken)
	if err != nil {
		return nil, err
	}
	return v.Authenticate(ctx, appID, access, refreshToken)
}

// Authenticate finishes verification once the access token has already been
// parsed, as the JWT middleware does. Claims without an expiry are rejected
// here because the middleware does not require one.
func (v *SessionVerifier) Authenticate(ctx context.Context, appID string, access *Claims, refreshToken string) (*models.Account, error) {
	if access == nil {
		return nil, newError(ErrUnauthorized, "access token required")
	}
	if refreshToken == "" {
		return nil, newError(ErrUnauthorized, "refresh token required")
	}
	if access.Kind != AccessToken || access.AppID != appID || access.ExpiresAt == nil {
		return nil, ErrInvalidToken
	}

	refresh, err := v.tokens.Verify(refreshToken, RefreshToken)
	if err != nil {
		return nil, err
	}
	if refresh.AppID != appID {
		return nil, ErrInvalidToken
	}
	if access.Subject != refresh.Subject {
		return nil, ErrIdentityMismatch
	}

	accountID, err := access.AccountID()
	if err != nil {
		return nil, ErrInvalidToken
	}
	acc, err := v.store.FindByID(ctx, appID, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newError(ErrUnauthorized, "account no longer exists")
		}
		return nil, fmt.Errorf("load account: %w", err)
	}
	return acc.Sanitized(), nil
}
