package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	portalAuth "github.com/MrEthical07/portalAuth"
	"github.com/MrEthical07/portalAuth/authtest"
	"github.com/MrEthical07/portalAuth/session"
)

var adminUser = authtest.User{
	Profile:  session.Profile{ID: "a1", Name: "Asha", Email: "asha@example.com", Role: "admin"},
	Password: "admin-password-123",
}

func newTestRouter(t *testing.T) (*portalAuth.Manager, http.Handler) {
	t.Helper()
	srv := authtest.NewServer(t, adminUser)

	c := portalAuth.DefaultConfig()
	c.API.BaseURL = srv.URL()

	log := logrus.New()
	log.SetOutput(io.Discard)

	m, err := portalAuth.New().WithConfig(c).WithLogger(log).Build()
	require.NoError(t, err)
	t.Cleanup(m.Close)

	return m, newRouter(m, nil, log)
}

func do(h http.Handler, method, target string, form url.Values) *httptest.ResponseRecorder {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestServeAreasWaitForStartup(t *testing.T) {
	_, h := newTestRouter(t)

	rec := do(h, http.MethodGet, "/admin/home", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
}

func TestServeSignedOutRedirectsToLogin(t *testing.T) {
	m, h := newTestRouter(t)
	m.StartupValidate(context.Background())

	rec := do(h, http.MethodGet, "/admin/home", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login?from=%2Fadmin%2Fhome", rec.Header().Get("Location"))

	rec = do(h, http.MethodGet, "/login", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServeLoginFlow(t *testing.T) {
	m, h := newTestRouter(t)
	m.StartupValidate(context.Background())

	rec := do(h, http.MethodPost, "/login?from=%2Fadmin%2Fusers", url.Values{
		"email":    {adminUser.Email},
		"password": {adminUser.Password},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin/users", rec.Header().Get("Location"))

	rec = do(h, http.MethodGet, "/admin/users", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "admin area")
	assert.Contains(t, rec.Body.String(), "role-admin")

	// Signed-in visitors are sent away from the login page.
	rec = do(h, http.MethodGet, "/login", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin/home", rec.Header().Get("Location"))

	// The lab module sends other roles back to their own home.
	rec = do(h, http.MethodGet, "/lab/dashboard", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin/home", rec.Header().Get("Location"))

	rec = do(h, http.MethodGet, "/session", nil)
	assert.Contains(t, rec.Body.String(), "authenticated: true")
	assert.NotContains(t, rec.Body.String(), m.Snapshot().Credential)

	rec = do(h, http.MethodPost, "/logout", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
	assert.False(t, m.Snapshot().IsAuthenticated)
}

func TestServeLoginFailureShowsServerMessage(t *testing.T) {
	m, h := newTestRouter(t)
	m.StartupValidate(context.Background())

	rec := do(h, http.MethodPost, "/login", url.Values{
		"email":    {adminUser.Email},
		"password": {"wrong-password"},
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid email or password")
	assert.False(t, m.Snapshot().IsAuthenticated)
}

func TestServeHealthz(t *testing.T) {
	_, h := newTestRouter(t)
	rec := do(h, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTopLevel(t *testing.T) {
	cases := map[string]string{
		"/admin/home":       "/admin",
		"/delivery":         "/delivery",
		"/accountant/latex": "/accountant",
		"/":                 "/",
	}
	for in, want := range cases {
		assert.Equal(t, want, topLevel(in), in)
	}
}
