package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/identikit/identikit/auth"
	"github.com/identikit/identikit/httpapi"
	"github.com/identikit/identikit/pkg/credential"
	"github.com/identikit/identikit/pkg/email"
	"github.com/identikit/identikit/pkg/roles"
	"github.com/identikit/identikit/provider"
)

type discardSender struct{}

func (discardSender) SendEmail(ctx context.Context, params email.SendEmailParams) error {
	return nil
}

type apiFixture struct {
	codec    *credential.Codec
	users    *auth.MemoryUserStore
	sessions *auth.MemorySessionStore
	issuer   *auth.Issuer
	service  *auth.Service
	router   http.Handler
}

func newAPIFixture(t *testing.T, opts ...httpapi.ServerOption) *apiFixture {
	t.Helper()
	codec, err := credential.New(credential.Config{
		Secret:     "test-secret-with-enough-entropy",
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 7 * 24 * time.Hour,
	})
	require.NoError(t, err)

	users := auth.NewMemoryUserStore()
	sessions := auth.NewMemorySessionStore()
	issuer := auth.NewIssuer(codec, sessions)
	guard := auth.NewGuard(codec, sessions, issuer)
	notifier := auth.NewNotifier(discardSender{})
	service := auth.NewService(users, sessions, issuer, notifier, auth.Config{})
	linker := auth.NewLinker(users, issuer, notifier)

	server := httpapi.NewServer(httpapi.Config{}, service, linker, guard, codec, opts...)
	return &apiFixture{
		codec:    codec,
		users:    users,
		sessions: sessions,
		issuer:   issuer,
		service:  service,
		router:   server.Router(),
	}
}

func (f *apiFixture) registerAndLogin(t *testing.T) (*auth.User, auth.TokenPair) {
	t.Helper()
	ctx := context.Background()
	user, err := f.service.Register(ctx, auth.RegisterParams{
		Email:    "jane@example.com",
		Username: "jane",
		Password: "S3cure-password!",
		Name:     "Jane",
	})
	require.NoError(t, err)
	_, pair, err := f.service.Login(ctx, auth.LoginParams{Login: "jane", Password: "S3cure-password!"}, auth.ClientInfo{})
	require.NoError(t, err)
	return user, pair
}

// loginAgain opens a second session for the already-registered user,
// as a second device would.
func (f *apiFixture) loginAgain(t *testing.T) (*auth.User, auth.TokenPair) {
	t.Helper()
	user, pair, err := f.service.Login(context.Background(), auth.LoginParams{Login: "jane", Password: "S3cure-password!"}, auth.ClientInfo{})
	require.NoError(t, err)
	return user, pair
}

func cookieValue(res *http.Response, name string) (string, bool) {
	for _, c := range res.Cookies() {
		if c.Name == name {
			return c.Value, c.MaxAge >= 0
		}
	}
	return "", false
}

func TestRequireAuth_BearerHeader(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t)
	_, pair := f.registerAndLogin(t)

	req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+pair.Access)
	req.Header.Set("x-refresh-token", pair.Refresh)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-New-Access-Token"))
	assert.Empty(t, rec.Header().Get("X-New-Refresh-Token"))
}

func TestRequireAuth_CookieTransport(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t)
	_, pair := f.registerAndLogin(t)

	req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	req.AddCookie(&http.Cookie{Name: "access_token", Value: pair.Access})
	req.AddCookie(&http.Cookie{Name: "refresh_token", Value: pair.Refresh})
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAuth_RejectsAndClearsCookies(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	req.AddCookie(&http.Cookie{Name: "access_token", Value: "garbage"})
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	res := rec.Result()
	cleared := 0
	for _, c := range res.Cookies() {
		if c.Name == "access_token" || c.Name == "refresh_token" {
			assert.Less(t, c.MaxAge, 0, "cookie %s should be expired", c.Name)
			cleared++
		}
	}
	assert.Equal(t, 2, cleared)
}

func TestRequireAuth_SilentRotationOnExpiredAccess(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t)
	user, pair := f.registerAndLogin(t)

	expired, err := f.codec.Sign(auth.ClaimsFor(user), -time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+expired)
	req.Header.Set("x-refresh-token", pair.Refresh)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	newAccess := rec.Header().Get("X-New-Access-Token")
	newRefresh := rec.Header().Get("X-New-Refresh-Token")
	require.NotEmpty(t, newAccess)
	require.NotEmpty(t, newRefresh)

	res := rec.Result()
	accessCookie, ok := cookieValue(res, "access_token")
	require.True(t, ok)
	assert.Equal(t, newAccess, accessCookie)
	refreshCookie, ok := cookieValue(res, "refresh_token")
	require.True(t, ok)
	assert.Equal(t, newRefresh, refreshCookie)

	// The consumed refresh token no longer works.
	replay := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	replay.Header.Set("x-refresh-token", pair.Refresh)
	replayRec := httptest.NewRecorder()
	f.router.ServeHTTP(replayRec, replay)
	assert.Equal(t, http.StatusUnauthorized, replayRec.Code)
}

func TestRequireRole(t *testing.T) {
	t.Parallel()

	protected := httpapi.RequireRole(roles.Admin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// No claims in context at all.
	rec := httptest.NewRecorder()
	protected.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestLoginEndpoint(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t)
	f.registerAndLogin(t)

	body, _ := json.Marshal(map[string]string{"login": "jane", "password": "S3cure-password!"})
	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			User         map[string]any `json:"user"`
			AccessToken  string         `json:"access_token"`
			RefreshToken string         `json:"refresh_token"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.Data.AccessToken)
	assert.NotEmpty(t, resp.Data.RefreshToken)
	// The profile never exposes credential material.
	assert.NotContains(t, resp.Data.User, "password")
	assert.NotContains(t, resp.Data.User, "password_hash")

	res := rec.Result()
	_, ok := cookieValue(res, "access_token")
	assert.True(t, ok)
	_, ok = cookieValue(res, "refresh_token")
	assert.True(t, ok)
}

func TestLoginEndpoint_BadCredentials(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t)
	f.registerAndLogin(t)

	body, _ := json.Marshal(map[string]string{"login": "jane", "password": "wrong"})
	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	var resp struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.Message)
}

func TestForgotPassword_SameAnswerForUnknownAddress(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t)
	f.registerAndLogin(t)

	call := func(addr string) (int, string) {
		body, _ := json.Marshal(map[string]string{"email": addr})
		req := httptest.NewRequest(http.MethodPost, "/auth/forgot-password", bytes.NewReader(body))
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, req)
		return rec.Code, rec.Body.String()
	}

	knownCode, knownBody := call("jane@example.com")
	unknownCode, unknownBody := call("ghost@example.com")
	assert.Equal(t, knownCode, unknownCode)
	assert.Equal(t, knownBody, unknownBody)
}

func TestLogoutEndpoint(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t)
	_, pair := f.registerAndLogin(t)

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer "+pair.Access)
	req.Header.Set("x-refresh-token", pair.Refresh)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	// The revoked refresh token cannot sustain a new request.
	next := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	next.Header.Set("x-refresh-token", pair.Refresh)
	nextRec := httptest.NewRecorder()
	f.router.ServeHTTP(nextRec, next)
	assert.Equal(t, http.StatusUnauthorized, nextRec.Code)
}

func TestLogoutEndpoint_ExpiredAccessLeavesNoSession(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t)
	user, pair := f.registerAndLogin(t)

	expired, err := f.codec.Sign(auth.ClaimsFor(user), -time.Minute)
	require.NoError(t, err)

	// The guard rotates on the way in; logout must revoke the rotated
	// session, not just the presented, already-retired token.
	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer "+expired)
	req.Header.Set("x-refresh-token", pair.Refresh)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	// No replacement credentials leak out of a logout response.
	assert.Empty(t, rec.Header().Get("X-New-Access-Token"))
	assert.Empty(t, rec.Header().Get("X-New-Refresh-Token"))
	for _, c := range rec.Result().Cookies() {
		assert.Less(t, c.MaxAge, 0, "cookie %s should be expired", c.Name)
		assert.Empty(t, c.Value)
	}

	sessions, err := f.sessions.ListByUser(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Empty(t, sessions)

	next := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	next.Header.Set("x-refresh-token", pair.Refresh)
	nextRec := httptest.NewRecorder()
	f.router.ServeHTTP(nextRec, next)
	assert.Equal(t, http.StatusUnauthorized, nextRec.Code)
}

func TestLogoutEndpoint_StaleRefreshLeavesNoExtraSession(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t)
	_, pair := f.registerAndLogin(t)
	user2, pair2 := f.loginAgain(t)

	// Valid access plus a dead refresh token: the guard mints a
	// replacement session, which the logout must then revoke. The other
	// device's session is untouched.
	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer "+pair2.Access)
	req.Header.Set("x-refresh-token", "not-a-live-token")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	sessions, err := f.sessions.ListByUser(context.Background(), user2.ID)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	for _, s := range sessions {
		assert.Contains(t, []string{auth.HashToken(pair.Refresh), auth.HashToken(pair2.Refresh)}, s.TokenHash)
	}
}

func TestSessionsEndpoint(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t)
	_, pair := f.registerAndLogin(t)

	req := httptest.NewRequest(http.MethodGet, "/sessions/", nil)
	req.Header.Set("Authorization", "Bearer "+pair.Access)
	req.Header.Set("x-refresh-token", pair.Refresh)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data []map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	// Metadata only: the raw token and its hash never leave the server.
	for key := range resp.Data[0] {
		assert.NotContains(t, key, "token")
	}
}

// fixedProvider answers every token with the same profile.
type fixedProvider struct {
	profile provider.Profile
}

func (p *fixedProvider) Name() string { return "google" }

func (p *fixedProvider) Verify(ctx context.Context, token string) (provider.Profile, error) {
	return p.profile, nil
}

func TestSocialLoginMessages(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t, httpapi.WithProvider(&fixedProvider{
		profile: provider.Profile{
			ExternalID:    "google-sub-1",
			Email:         "jane@example.com",
			Name:          "Jane",
			EmailVerified: true,
		},
	}))
	user, _ := f.registerAndLogin(t)

	socialLogin := func() (int, string) {
		body, _ := json.Marshal(map[string]string{"token": "opaque-token"})
		req := httptest.NewRequest(http.MethodPost, "/auth/social/google", bytes.NewReader(body))
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, req)

		var resp struct {
			Message string `json:"message"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		return rec.Code, resp.Message
	}

	// First sign-in attaches the identity to the password account.
	code, message := socialLogin()
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "account linked", message)

	linked, err := f.users.FindByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, "google-sub-1", linked.ProviderID("google"))

	// Subsequent sign-ins are plain logins.
	code, message = socialLogin()
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "logged in", message)
}

func TestSocialLogin_NewIdentityCreatesAccount(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t, httpapi.WithProvider(&fixedProvider{
		profile: provider.Profile{
			ExternalID:    "google-sub-2",
			Email:         "fresh@example.com",
			Name:          "Fresh User",
			EmailVerified: true,
		},
	}))

	body, _ := json.Marshal(map[string]string{"token": "opaque-token"})
	req := httptest.NewRequest(http.MethodPost, "/auth/social/google", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "account created", resp.Message)
}

func TestUnknownProviderRejected(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t)

	body, _ := json.Marshal(map[string]string{"token": "anything"})
	req := httptest.NewRequest(http.MethodPost, "/auth/social/myspace", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUserIDFromContext(t *testing.T) {
	t.Parallel()

	id, ok := httpapi.UserIDFromContext(context.Background())
	assert.False(t, ok)
	assert.Equal(t, uuid.Nil, id)
}
