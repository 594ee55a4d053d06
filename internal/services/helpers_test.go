package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/account-backend/internal/email"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/repository"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/storage"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testApp = "app_test"

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeMailer struct {
	mu   sync.Mutex
	sent []email.Message
	err  error
}

func (m *fakeMailer) Send(_ context.Context, msg email.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return m.err
}

func (m *fakeMailer) last(t *testing.T) email.Message {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.sent, "no email was sent")
	return m.sent[len(m.sent)-1]
}

type fakeHost struct {
	mu        sync.Mutex
	uploaded  []string
	deleted   []string
	uploadErr error
	deleteErr error
}

func (h *fakeHost) Upload(_ context.Context, localPath string, opts storage.UploadOptions) (*storage.UploadResult, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, err := os.Stat(localPath); err != nil {
		return nil, err
	}
	h.uploaded = append(h.uploaded, localPath)
	if h.uploadErr != nil {
		return nil, h.uploadErr
	}
	id := fmt.Sprintf("%s/test-%d.png", opts.Folder, len(h.uploaded))
	return &storage.UploadResult{
		URL:       "http://cdn.example.com/" + id,
		PublicID:  id,
		SecureURL: "https://cdn.example.com/" + id,
		Width:     opts.Width,
		Height:    opts.Height,
		Format:    "png",
	}, nil
}

func (h *fakeHost) Delete(_ context.Context, publicID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.deleted = append(h.deleted, publicID)
	return h.deleteErr
}

// clock is a settable time source shared by every service under test.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *clock {
	return &clock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type testEnv struct {
	store    *repository.MemoryAccountStore
	clock    *clock
	mailer   *fakeMailer
	tokens   *TokenService
	issuer   *OTPIssuer
	auth     *AuthService
	verifier *SessionVerifier
	accounts *AccountService
}

func newTestEnv(t *testing.T, adminEmails ...string) *testEnv {
	t.Helper()
	env := &testEnv{
		store:  repository.NewMemoryAccountStore(),
		clock:  newClock(),
		mailer: &fakeMailer{},
	}
	env.tokens = NewTokenService(env.store, TokenConfig{
		AccessSecret:  []byte("access-secret"),
		AccessExpiry:  15 * time.Minute,
		RefreshSecret: []byte("refresh-secret"),
		RefreshExpiry: 240 * time.Hour,
	})
	env.tokens.now = env.clock.Now

	env.issuer = NewOTPIssuer(env.store, env.mailer, func(string) string { return "Test" }, OTPConfig{
		Length:      6,
		TTL:         20 * time.Minute,
		HashCost:    bcrypt.MinCost,
		AdminEmails: adminEmails,
	}, discardLogger)
	env.issuer.now = env.clock.Now

	env.auth = NewAuthService(env.store, env.tokens, 6, discardLogger)
	env.auth.now = env.clock.Now
	env.verifier = NewSessionVerifier(env.tokens, env.store)
	env.accounts = NewAccountService(env.store, discardLogger)
	return env
}

// issueCode runs the OTP flow and returns the mailed code.
func (e *testEnv) issueCode(t *testing.T, addr string) string {
	t.Helper()
	require.NoError(t, e.issuer.Issue(context.Background(), testApp, addr))
	e.issuer.Wait()
	return e.mailer.last(t).Vars["otp"]
}

func (e *testEnv) createAccount(t *testing.T, addr string, role models.Role) *models.Account {
	t.Helper()
	acc := &models.Account{AppID: testApp, Email: addr, Name: "Test User", Role: role, Status: models.StatusActive}
	require.NoError(t, e.store.Create(context.Background(), acc))
	return acc
}
