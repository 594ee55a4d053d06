package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/account-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/email"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/repository"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/routes"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/services"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/storage"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/tenant"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	appID      = "app_http"
	otherAppID = "app_wxyz"
)

type captureMailer struct {
	mu   sync.Mutex
	last email.Message
}

func (m *captureMailer) Send(_ context.Context, msg email.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.last = msg
	return nil
}

func (m *captureMailer) code() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last.Vars["otp"]
}

type countingHost struct {
	mu      sync.Mutex
	uploads int
}

func (h *countingHost) Upload(_ context.Context, _ string, opts storage.UploadOptions) (*storage.UploadResult, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.uploads++
	return &storage.UploadResult{PublicID: opts.Folder + "/x.png", SecureURL: "https://cdn/x.png", Format: "png"}, nil
}

func (h *countingHost) Delete(context.Context, string) error { return nil }

type server struct {
	app    *fiber.App
	store  *repository.MemoryAccountStore
	mailer *captureMailer
	issuer *services.OTPIssuer
	host   *countingHost
}

func newServer(t *testing.T, adminEmails ...string) *server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := tenant.NewRegistry()
	registry.Register(&tenant.AppConfig{AppID: appID, AppName: "HTTP Test"})
	registry.Register(&tenant.AppConfig{AppID: otherAppID, AppName: "Other"})

	s := &server{
		store:  repository.NewMemoryAccountStore(),
		mailer: &captureMailer{},
		host:   &countingHost{},
	}
	tokens := services.NewTokenService(s.store, services.TokenConfig{
		AccessSecret:  []byte("access"),
		AccessExpiry:  15 * time.Minute,
		RefreshSecret: []byte("refresh"),
		RefreshExpiry: 240 * time.Hour,
	})
	s.issuer = services.NewOTPIssuer(s.store, s.mailer, registry.MailFromName, services.OTPConfig{
		Length:      6,
		TTL:         20 * time.Minute,
		HashCost:    bcrypt.MinCost,
		AdminEmails: adminEmails,
	}, logger)
	avatars := services.NewAvatarService(s.store, s.host, registry.AvatarFolder, services.AvatarConfig{
		Width: 200, Height: 200, TmpDir: t.TempDir(),
	}, logger)

	cookies := handlers.CookieConfig{Secure: true, MaxAge: 240 * time.Hour}
	h := routes.Handlers{
		Auth:    handlers.NewAuthHandler(services.NewAuthService(s.store, tokens, 6, logger), s.issuer, cookies),
		Account: handlers.NewAccountHandler(services.NewAccountService(s.store, logger)),
		Avatar:  handlers.NewAvatarHandler(avatars),
		Health:  handlers.NewHealthHandler(s.store.Ping, registry),
	}

	s.app = fiber.New(fiber.Config{ErrorHandler: handlers.ErrorHandler})
	s.app.Use(middleware.TenantMiddleware(registry))
	routes.Setup(s.app, h, middleware.RequireSession(tokens, services.NewSessionVerifier(tokens, s.store)), nil, routes.Limits{
		API:  1000,
		Auth: 1000,
	})
	return s
}

func (s *server) do(t *testing.T, req *http.Request, cookies ...*http.Cookie) *http.Response {
	t.Helper()
	if req.Header.Get("X-App-ID") == "" {
		req.Header.Set("X-App-ID", appID)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func jsonRequest(method, target string, body any) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

type envelope[T any] struct {
	StatusCode int    `json:"status_code"`
	Data       T      `json:"data"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

func tokenCookies(resp *http.Response) []*http.Cookie {
	var out []*http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == middleware.AccessCookie || c.Name == middleware.RefreshCookie {
			out = append(out, c)
		}
	}
	return out
}

// login runs the OTP flow for addr and returns the session cookies.
func (s *server) login(t *testing.T, addr string) (dto.LoginResponse, []*http.Cookie) {
	t.Helper()
	resp := s.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/otp/"+addr, nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	s.issuer.Wait()

	resp = s.do(t, jsonRequest(http.MethodPost, "/api/v1/login", map[string]string{"email": addr, "otp": s.mailer.code()}))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	cookies := tokenCookies(resp)
	require.Len(t, cookies, 2)
	return decode[envelope[dto.LoginResponse]](t, resp).Data, cookies
}

func TestHealth_NoTenantRequired(t *testing.T) {
	s := newServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode[dto.HealthResponse](t, resp)
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, 2, body.AppCount)
}

func TestTenantRequired(t *testing.T) {
	s := newServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/otp/a@example.com", nil)
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/otp/a@example.com", nil)
	req.Header.Set("X-App-ID", "unknown")
	resp, err = s.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decode[dto.ErrorResponse](t, resp)
	assert.True(t, body.Error)
	assert.Equal(t, http.StatusBadRequest, body.StatusCode)
}

func TestLoginFlow_SetsCookiesAndReturnsAccount(t *testing.T) {
	s := newServer(t)
	login, cookies := s.login(t, "new@x.com")

	assert.Equal(t, "new@x.com", login.UserInfo.Email)
	assert.True(t, login.UserInfo.NewAccount)
	assert.Equal(t, models.RoleUser, login.UserInfo.Role)
	assert.Equal(t, models.StatusActive, login.UserInfo.Status)
	assert.NotEmpty(t, login.AccessToken)
	assert.NotEmpty(t, login.RefreshToken)

	for _, c := range cookies {
		assert.True(t, c.HttpOnly, c.Name)
		assert.True(t, c.Secure, c.Name)
		assert.Equal(t, "/", c.Path)
		assert.Equal(t, int((240 * time.Hour).Seconds()), c.MaxAge)
	}

	resp := s.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/user", nil), cookies...)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	me := decode[envelope[map[string]any]](t, resp)
	assert.Equal(t, "new@x.com", me.Data["email"])
	assert.NotContains(t, me.Data, "otp_hash")
	assert.NotContains(t, me.Data, "refresh_token_hash")
}

func TestSendOTP_StoredEmailSurvivesLaterRequests(t *testing.T) {
	ctx := context.Background()
	s := newServer(t)

	resp := s.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/otp/p@example.com", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Same lengths, so any reuse of the first request's bytes would show.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/otp/q@example.org", nil)
	req.Header.Set("X-App-ID", otherAppID)
	resp = s.do(t, req)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	s.do(t, jsonRequest(http.MethodPost, "/api/v1/login", map[string]string{"email": "n@example.net", "otp": "123456"}))
	s.issuer.Wait()

	accounts, err := s.store.List(ctx, appID)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "p@example.com", accounts[0].Email)
	assert.Equal(t, appID, accounts[0].AppID)

	others, err := s.store.List(ctx, otherAppID)
	require.NoError(t, err)
	require.Len(t, others, 1)
	assert.Equal(t, "q@example.org", others[0].Email)
	assert.Equal(t, otherAppID, others[0].AppID)

	_, err = s.store.FindByEmail(ctx, appID, "p@example.com")
	assert.NoError(t, err)
}

func TestLogin_WrongOTP(t *testing.T) {
	s := newServer(t)
	resp := s.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/otp/w@example.com", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	s.issuer.Wait()

	wrong := "000000"
	if s.mailer.code() == wrong {
		wrong = "111111"
	}
	resp = s.do(t, jsonRequest(http.MethodPost, "/api/v1/login", map[string]string{"email": "w@example.com", "otp": wrong}))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, tokenCookies(resp))
}

func TestProtectedRoutes_RequireBothTokens(t *testing.T) {
	s := newServer(t)
	_, cookies := s.login(t, "p@example.com")

	resp := s.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/user", nil))
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	var accessOnly []*http.Cookie
	for _, c := range cookies {
		if c.Name == middleware.AccessCookie {
			accessOnly = append(accessOnly, c)
		}
	}
	resp = s.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/user", nil), accessOnly...)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/user", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	resp = s.do(t, req)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestProtectedRoutes_RejectOtherAlgorithmsAndMissingExpiry(t *testing.T) {
	s := newServer(t)
	login, cookies := s.login(t, "alg@example.com")

	var refreshOnly []*http.Cookie
	for _, c := range cookies {
		if c.Name == middleware.RefreshCookie {
			refreshOnly = append(refreshOnly, c)
		}
	}
	withAccess := func(method jwt.SigningMethod, exp *jwt.NumericDate) int {
		claims := &services.Claims{
			AppID: appID,
			Email: login.UserInfo.Email,
			Role:  login.UserInfo.Role,
			Kind:  services.AccessToken,
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   login.UserInfo.ID.String(),
				IssuedAt:  jwt.NewNumericDate(time.Now()),
				ExpiresAt: exp,
			},
		}
		signed, err := jwt.NewWithClaims(method, claims).SignedString([]byte("access"))
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/api/v1/user", nil)
		req.Header.Set("Authorization", "Bearer "+signed)
		return s.do(t, req, refreshOnly...).StatusCode
	}

	later := jwt.NewNumericDate(time.Now().Add(time.Minute))
	assert.Equal(t, http.StatusOK, withAccess(jwt.SigningMethodHS256, later))
	assert.Equal(t, http.StatusUnauthorized, withAccess(jwt.SigningMethodHS512, later))
	assert.Equal(t, http.StatusUnauthorized, withAccess(jwt.SigningMethodHS384, later))
	assert.Equal(t, http.StatusUnauthorized, withAccess(jwt.SigningMethodHS256, nil))
}

func TestGetOtherUser_Forbidden(t *testing.T) {
	s := newServer(t)
	a, cookiesA := s.login(t, "a@example.com")
	b, _ := s.login(t, "b@example.com")

	resp := s.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/user/"+b.UserInfo.ID.String(), nil), cookiesA...)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = s.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/user/"+a.UserInfo.ID.String(), nil), cookiesA...)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = s.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/users", nil), cookiesA...)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = s.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/user/not-a-uuid", nil), cookiesA...)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAdmin_ListAndSoftDelete(t *testing.T) {
	s := newServer(t, "root@example.com")
	_, adminCookies := s.login(t, "root@example.com")
	victim, _ := s.login(t, "victim@example.com")

	resp := s.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/users", nil), adminCookies...)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decode[envelope[[]dto.AccountResponse]](t, resp)
	assert.Len(t, list.Data, 2)

	resp = s.do(t, httptest.NewRequest(http.MethodDelete, "/api/v1/user/"+victim.UserInfo.ID.String(), nil), adminCookies...)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = s.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/user/"+victim.UserInfo.ID.String(), nil), adminCookies...)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[envelope[dto.AccountResponse]](t, resp)
	assert.Equal(t, models.StatusDeleted, got.Data.Status)
}

func TestRefresh_RotatesAndRejectsReplay(t *testing.T) {
	s := newServer(t)
	login, _ := s.login(t, "r@example.com")

	resp := s.do(t, jsonRequest(http.MethodPost, "/api/v1/refreshToken", map[string]string{"refreshToken": login.RefreshToken}))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, tokenCookies(resp), 2)
	rotated := decode[envelope[dto.TokenResponse]](t, resp)
	assert.NotEqual(t, login.RefreshToken, rotated.Data.RefreshToken)

	resp = s.do(t, jsonRequest(http.MethodPost, "/api/v1/refreshToken", map[string]string{"refreshToken": login.RefreshToken}))
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = s.do(t, httptest.NewRequest(http.MethodPost, "/api/v1/refreshToken", nil),
		&http.Cookie{Name: middleware.RefreshCookie, Value: rotated.Data.RefreshToken})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = s.do(t, httptest.NewRequest(http.MethodPost, "/api/v1/refreshToken", nil))
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLogout_ClearsCookies(t *testing.T) {
	s := newServer(t)
	_, cookies := s.login(t, "out@example.com")

	resp := s.do(t, httptest.NewRequest(http.MethodPost, "/api/v1/logout", nil), cookies...)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	cleared := tokenCookies(resp)
	require.Len(t, cleared, 2)
	for _, c := range cleared {
		assert.Empty(t, c.Value)
		assert.True(t, c.Expires.Before(time.Now()), c.Name)
	}

	resp = s.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/user", nil), cookies...)
	assert.Equal(t, http.StatusOK, resp.StatusCode, "access token itself stays valid until expiry")
	resp = s.do(t, jsonRequest(http.MethodPost, "/api/v1/refreshToken", nil), cookies...)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func multipartUpload(t *testing.T, target, filename string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("image", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte("MZ fake binary"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestAvatarUpload_ExeRejectedBeforeHost(t *testing.T) {
	s := newServer(t)
	login, cookies := s.login(t, "img@example.com")

	resp := s.do(t, multipartUpload(t, "/api/v1/updateAvatar/"+login.UserInfo.ID.String(), "virus.exe"), cookies...)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, 0, s.host.uploads)

	resp = s.do(t, multipartUpload(t, "/api/v1/updateAvatar/"+login.UserInfo.ID.String(), "face.png"), cookies...)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, s.host.uploads)
	got := decode[envelope[dto.AccountResponse]](t, resp)
	require.NotNil(t, got.Data.Avatar)
	assert.Equal(t, "avatar/x.png", got.Data.Avatar.PublicID)

	resp = s.do(t, httptest.NewRequest(http.MethodPost, "/api/v1/updateAvatar/"+login.UserInfo.ID.String(), nil), cookies...)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
