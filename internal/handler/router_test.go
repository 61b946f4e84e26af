package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/natthaphon/secretkeeper/internal/auth"
	"github.com/natthaphon/secretkeeper/internal/metrics"
	"github.com/natthaphon/secretkeeper/internal/middleware"
	"github.com/natthaphon/secretkeeper/internal/model"
	"github.com/natthaphon/secretkeeper/internal/repository"
	"github.com/natthaphon/secretkeeper/internal/session"
	"github.com/natthaphon/secretkeeper/internal/view"
)

// routeProvider satisfies auth.Provider without network traffic, so the
// federated routes can be driven end to end.
type routeProvider struct {
	name    string
	field   repository.ProviderField
	profile *auth.Profile
	err     error
}

func (p *routeProvider) Name() string                           { return p.name }
func (p *routeProvider) SubjectField() repository.ProviderField { return p.field }

func (p *routeProvider) AuthCodeURL(state string) string {
	return "https://provider.test/auth?state=" + url.QueryEscape(state)
}

func (p *routeProvider) Exchange(context.Context, string) (*auth.Profile, error) {
	return p.profile, p.err
}

type testServer struct {
	handler  http.Handler
	users    repository.UserRepository
	sessions *session.Manager
	google   *routeProvider
	facebook *routeProvider
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return newTestServerWithUsers(t, repository.NewUserMemoryRepository())
}

func newTestServerWithUsers(t *testing.T, users repository.UserRepository) *testServer {
	t.Helper()

	logger := zerolog.Nop()

	sessions := session.NewManager(users, session.Config{TTL: time.Hour}, &logger)
	t.Cleanup(sessions.Close)

	states := auth.NewStateSigner([]byte("test-secret"), time.Minute)
	local := auth.NewLocalAuthenticator(users)
	federated := auth.NewFederatedAuthenticator(users, states, &logger)

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	limiter := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig())
	t.Cleanup(limiter.Stop)

	renderer := view.NewRenderer(&logger)

	google := &routeProvider{
		name:    "google",
		field:   repository.ProviderFieldGoogle,
		profile: &auth.Profile{SubjectID: "G-42", DisplayName: "Alice"},
	}
	facebook := &routeProvider{
		name:    "facebook",
		field:   repository.ProviderFieldFacebook,
		profile: &auth.Profile{SubjectID: "F-7", DisplayName: "Bob"},
	}

	handler := NewRouter(&RouterDeps{
		Auth:        NewAuthHandler(local, federated, sessions, renderer, collector, &logger),
		Secrets:     NewSecretsHandler(users, renderer, collector, &logger),
		Sessions:    sessions,
		Google:      google,
		Facebook:    facebook,
		Metrics:     collector,
		Gatherer:    registry,
		RateLimiter: limiter,
		Logger:      &logger,
	})

	return &testServer{
		handler:  handler,
		users:    users,
		sessions: sessions,
		google:   google,
		facebook: facebook,
	}
}

func (ts *testServer) get(path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}

	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) postForm(path string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}

	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()

	for _, c := range rec.Result().Cookies() {
		if c.Name == "sk_session" && c.Value != "" {
			return c
		}
	}

	t.Fatal("no session cookie in response")
	return nil
}

func credentials(username, password string) url.Values {
	return url.Values{"username": {username}, "password": {password}}
}

func (ts *testServer) register(t *testing.T, username, password string) *http.Cookie {
	t.Helper()

	rec := ts.postForm("/register", credentials(username, password))
	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, "/secrets", rec.Header().Get("Location"))

	return sessionCookie(t, rec)
}

func TestRegisterThenLogin(t *testing.T) {
	ts := newTestServer(t)

	cookie := ts.register(t, "alice", "pw123")

	rec := ts.get("/secrets", cookie)
	assert.Equal(t, http.StatusOK, rec.Code)

	// A fresh login with the same credentials reaches /secrets too.
	rec = ts.postForm("/login", credentials("alice", "pw123"))
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/secrets", rec.Header().Get("Location"))

	rec = ts.get("/secrets", sessionCookie(t, rec))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLoginWrongPassword(t *testing.T) {
	ts := newTestServer(t)
	ts.register(t, "alice", "pw123")

	rec := ts.postForm("/login", credentials("alice", "wrongpw"))
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestLoginMissingFields(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.postForm("/login", url.Values{"username": {"alice"}})
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestRegisterDuplicateUsername(t *testing.T) {
	ts := newTestServer(t)
	ts.register(t, "alice", "pw123")

	rec := ts.postForm("/register", credentials("alice", "otherpw"))
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/register", rec.Header().Get("Location"))
}

func TestProtectedRoutesRedirectWithoutSession(t *testing.T) {
	ts := newTestServer(t)

	for _, path := range []string{"/secrets", "/submit"} {
		rec := ts.get(path)
		assert.Equal(t, http.StatusFound, rec.Code, path)
		assert.Equal(t, "/login", rec.Header().Get("Location"), path)
	}
}

func TestSubmitOverwritesSecret(t *testing.T) {
	ts := newTestServer(t)
	cookie := ts.register(t, "alice", "pw123")

	rec := ts.postForm("/submit", url.Values{"secret": {"hello"}}, cookie)
	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, "/secrets", rec.Header().Get("Location"))

	rec = ts.postForm("/submit", url.Values{"secret": {"world"}}, cookie)
	require.Equal(t, http.StatusFound, rec.Code)

	rec = ts.get("/secrets", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "world")
	assert.NotContains(t, body, "hello", "a resubmitted secret replaces the previous one")
}

func TestSubmitEmptySecret(t *testing.T) {
	ts := newTestServer(t)
	cookie := ts.register(t, "alice", "pw123")

	rec := ts.postForm("/submit", url.Values{}, cookie)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "A secret is required.")
}

func TestLogout(t *testing.T) {
	ts := newTestServer(t)
	cookie := ts.register(t, "alice", "pw123")

	rec := ts.get("/logout", cookie)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	// The session is gone server-side: the old cookie no longer opens the
	// protected routes.
	rec = ts.get("/secrets", cookie)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestLogoutWithoutSession(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.get("/logout")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
}

func (ts *testServer) federatedLogin(t *testing.T, beginPath, callbackPath string) *http.Cookie {
	t.Helper()

	rec := ts.get(beginPath)
	require.Equal(t, http.StatusFound, rec.Code)

	location, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	state := location.Query().Get("state")
	require.NotEmpty(t, state)

	rec = ts.get(callbackPath + "?code=the-code&state=" + url.QueryEscape(state))
	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, "/secrets", rec.Header().Get("Location"))

	return sessionCookie(t, rec)
}

func TestFederatedLoginGoogle(t *testing.T) {
	ts := newTestServer(t)

	cookie := ts.federatedLogin(t, "/auth/google", "/auth/google/secrets")

	rec := ts.get("/secrets", cookie)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestFederatedLoginFacebook(t *testing.T) {
	ts := newTestServer(t)

	cookie := ts.federatedLogin(t, "/login/federated/facebook", "/oauth2/redirect/facebook")

	rec := ts.get("/secrets", cookie)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestFederatedLoginIdempotent(t *testing.T) {
	ts := newTestServer(t)

	first := ts.federatedLogin(t, "/auth/google", "/auth/google/secrets")
	second := ts.federatedLogin(t, "/auth/google", "/auth/google/secrets")

	userA, err := ts.sessions.Resolve(context.Background(), first.Value)
	require.NoError(t, err)
	userB, err := ts.sessions.Resolve(context.Background(), second.Value)
	require.NoError(t, err)

	assert.Equal(t, userA.ID, userB.ID, "two logins with the same subject id resolve to one identity")
}

func TestFederatedCallbackDenied(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.get("/auth/google/secrets?error=access_denied")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestFederatedCallbackForgedState(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.get("/auth/google/secrets?code=the-code&state=forged")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestCredentialEndpointsRateLimited(t *testing.T) {
	ts := newTestServer(t)

	var last *httptest.ResponseRecorder
	for i := 0; i < 11; i++ {
		last = ts.postForm("/login", credentials("alice", "pw123"))
	}

	assert.Equal(t, http.StatusTooManyRequests, last.Code)
}

// failingUserRepository injects store failures into the secret operations
// while delegating everything else.
type failingUserRepository struct {
	repository.UserRepository

	failListing bool
	failUpdates bool
}

var errStoreDown = errors.New("store unavailable")

func (f *failingUserRepository) ListUsersWithSecrets(ctx context.Context) ([]*model.User, error) {
	if f.failListing {
		return nil, errStoreDown
	}
	return f.UserRepository.ListUsersWithSecrets(ctx)
}

func (f *failingUserRepository) UpdateSecret(ctx context.Context, id string, secret string) (*model.User, error) {
	if f.failUpdates {
		return nil, errStoreDown
	}
	return f.UserRepository.UpdateSecret(ctx, id, secret)
}

func TestSubmitStoreFailure(t *testing.T) {
	failing := &failingUserRepository{UserRepository: repository.NewUserMemoryRepository()}
	ts := newTestServerWithUsers(t, failing)
	cookie := ts.register(t, "alice", "pw123")

	failing.failUpdates = true

	rec := ts.postForm("/submit", url.Values{"secret": {"hello"}}, cookie)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Could not save your secret.")
}

func TestListSecretsStoreFailure(t *testing.T) {
	failing := &failingUserRepository{UserRepository: repository.NewUserMemoryRepository()}
	ts := newTestServerWithUsers(t, failing)
	cookie := ts.register(t, "alice", "pw123")

	failing.failListing = true

	rec := ts.get("/secrets", cookie)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Could not load secrets.")
}

func TestOperationalEndpoints(t *testing.T) {
	ts := newTestServer(t)

	assert.Equal(t, http.StatusOK, ts.get("/healthz").Code)

	rec := ts.get("/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "secretkeeper_")
}
