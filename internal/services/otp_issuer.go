package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/ahmetcoskunkizilkaya/account-backend/internal/email"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

const (
	otpSubject  = "Email Verification"
	otpTemplate = "confirmEmail"
)

type OTPConfig struct {
	Length      int
	TTL         time.Duration
	HashCost    int
	SendTimeout time.Duration
	AdminEmails []string
}

// OTPIssuer generates login codes, stores their bcrypt digest on the
// account, and mails the plain code in the background.
type OTPIssuer struct {
	store    repository.AccountStore
	mailer   email.Sender
	fromName func(appID string) string
	cfg      OTPConfig
	logger   *slog.Logger
	now      func() time.Time
	wg       sync.WaitGroup
}

func NewOTPIssuer(store repository.AccountStore, mailer email.Sender, fromName func(string) string, cfg OTPConfig, logger *slog.Logger) *OTPIssuer {
	if cfg.SendTimeout == 0 {
		cfg.SendTimeout = 30 * time.Second
	}
	if cfg.HashCost == 0 {
		cfg.HashCost = bcrypt.DefaultCost
	}
	return &OTPIssuer{
		store:    store,
		mailer:   mailer,
		fromName: fromName,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// Issue overwrites any earlier code for email, creating a stub account when
// the address is unseen. Delivery failures are logged, not returned.
func (o *OTPIssuer) Issue(ctx context.Context, appID, rawEmail string) error {
	addr, err := NormalizeEmail(rawEmail)
	if err != nil {
		return err
	}

	code, err := generateCode(o.cfg.Length)
	if err != nil {
		return fmt.Errorf("generate otp: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), o.cfg.HashCost)
	if err != nil {
		return fmt.Errorf("hash otp: %w", err)
	}
	digest := string(hash)
	expiry := o.now().Add(o.cfg.TTL)

	acc, err := o.store.FindByEmail(ctx, appID, addr)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		acc, err = o.createStub(ctx, appID, addr, digest, expiry)
	case err == nil:
		acc, err = o.store.Update(ctx, appID, acc.ID, repository.Patch{OTPHash: &digest, OTPExpiry: &expiry})
	}
	if err != nil {
		return fmt.Errorf("store otp: %w", err)
	}

	o.deliver(ctx, appID, acc, code)
	return nil
}

func (o *OTPIssuer) createStub(ctx context.Context, appID, addr, digest string, expiry time.Time) (*models.Account, error) {
	stub := &models.Account{
		AppID:      appID,
		Email:      addr,
		Role:       models.RoleUser,
		Status:     models.StatusActive,
		NewAccount: true,
		OTPHash:    digest,
		OTPExpiry:  &expiry,
	}
	if o.isAdmin(addr) {
		stub.Role = models.RoleAdmin
	}

	err := o.store.Create(ctx, stub)
	if errors.Is(err, repository.ErrDuplicate) {
		// Lost a race with a concurrent request for the same address.
		existing, findErr := o.store.FindByEmail(ctx, appID, addr)
		if findErr != nil {
			return nil, findErr
		}
		return o.store.Update(ctx, appID, existing.ID, repository.Patch{OTPHash: &digest, OTPExpiry: &expiry})
	}
	if err != nil {
		return nil, err
	}
	o.logger.Info("account stub created", "app_id", appID, "account_id", stub.ID.String(), "action", "otp_issue")
	return stub, nil
}

func (o *OTPIssuer) deliver(ctx context.Context, appID string, acc *models.Account, code string) {
	msg := email.Message{
		To:       acc.Email,
		Subject:  otpSubject,
		Template: otpTemplate,
		Vars:     map[string]string{"otp": code},
	}
	if o.fromName != nil {
		msg.FromName = o.fromName(appID)
	}

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.cfg.SendTimeout)
		defer cancel()
		if err := o.mailer.Send(sendCtx, msg); err != nil {
			o.logger.Error("otp delivery failed",
				"app_id", appID,
				"account_id", acc.ID.String(),
				"action", "otp_send",
				"error", err,
			)
		}
	}()
}

// Wait blocks until in-flight deliveries finish.
func (o *OTPIssuer) Wait() {
	o.wg.Wait()
}

func (o *OTPIssuer) isAdmin(addr string) bool {
	for _, admin := range o.cfg.AdminEmails {
		if admin == addr {
			return true
		}
	}
	return false
}

// NormalizeEmail lowercases and trims raw, rejecting anything that is not a
// bare address.
func NormalizeEmail(raw string) (string, error) {
	addr := strings.ToLower(strings.TrimSpace(raw))
	if addr == "" {
		return "", badRequest("email is required")
	}
	parsed, err := mail.ParseAddress(addr)
	if err != nil || parsed.Address != addr {
		return "", badRequest("invalid email address")
	}
	return addr, nil
}

func generateCode(length int) (string, error) {
	limit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(length)), nil)
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", length, n), nil
}
