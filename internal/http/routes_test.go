package httpx

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	mocks "github.com/target/aquaops-console/internal/mocks/auth"
	"github.com/target/aquaops-console/internal/service"
)

func newTestConsole(t *testing.T, proxy http.Handler) (http.Handler, *mocks.FakeGateway, *service.AuthService) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	kv := mocks.NewMemoryKV()
	gw := mocks.NewFakeGateway()
	auth := service.NewAuthService(service.AuthServiceOptions{
		Gateway: gw,
		Session: service.AuthSessionDeps{
			Tokens: service.NewTokenStore(service.TokenStoreOptions{Store: kv, Logger: logger}),
			Users:  service.NewUserCache(kv, logger),
			State:  service.NewSessionHolder(),
		},
		Config: service.AuthServiceConfig{
			Navigator: ContextNavigator{Logger: logger},
			Logger:    logger,
		},
	})
	t.Cleanup(auth.Close)

	router := NewRouter(RouterServices{
		Auth:   auth,
		Guard:  service.NewRouteGuard(auth),
		Proxy:  proxy,
		Logger: logger,
	})
	return router, gw, auth
}

// serve runs req against h, sending cookies along.
func serve(t *testing.T, h http.Handler, req *http.Request, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func loginForm(username, password string) *http.Request {
	form := url.Values{"username": {username}, "password": {password}}
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

// consoleCookie logs in through the router and returns the issued console cookie.
func consoleCookie(t *testing.T, router http.Handler) *http.Cookie {
	t.Helper()
	rec := serve(t, router, loginForm("operator", "secret"))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	for _, c := range rec.Result().Cookies() {
		if c.Name == ConsoleCookieName {
			return c
		}
	}
	require.FailNow(t, "login issued no console cookie")
	return nil
}

func TestRouter_SessionFlow(t *testing.T) {
	router, gw, _ := newTestConsole(t, nil)

	rec := serve(t, router, httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/auth/login?returnUrl=%2Fadmin%2Fdashboard", rec.Header().Get("Location"))

	rec = serve(t, router, loginForm("operator", "secret"))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/welcome", rec.Header().Get("Location"))
	assert.Equal(t, int32(1), gw.LoginCalls.Load())
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	cookie := cookies[0]

	rec = serve(t, router, httptest.NewRequest(http.MethodGet, "/welcome", nil), cookie)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Welcome, Mock Operator")

	rec = serve(t, router, httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil), cookie)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/role-selector", rec.Header().Get("Location"))

	rec = serve(t, router, httptest.NewRequest(http.MethodGet, "/role-selector", nil), cookie)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"water-quality"`)
	assert.NotContains(t, rec.Body.String(), `"admin-dashboard"`)

	rec = serve(t, router, httptest.NewRequest(http.MethodGet, "/water-quality/samples", nil), cookie)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(t, router, httptest.NewRequest(http.MethodGet, "/auth/status", nil), cookie)
	assert.Contains(t, rec.Body.String(), `"authenticated":true`)
	assert.NotContains(t, rec.Body.String(), "header.")

	rec = serve(t, router, httptest.NewRequest(http.MethodPost, "/auth/logout", nil), cookie)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/goodbye", rec.Header().Get("Location"))

	rec = serve(t, router, httptest.NewRequest(http.MethodGet, "/goodbye", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(t, router, httptest.NewRequest(http.MethodGet, "/welcome", nil), cookie)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
}

func TestRouter_SecondClientWithoutCookieIsAnonymous(t *testing.T) {
	var upstreamHits atomic.Int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		upstreamHits.Add(1)
		_, _ = io.WriteString(w, `{"rows":["secret"]}`)
	}))
	t.Cleanup(upstream.Close)
	target, err := url.Parse(upstream.URL)
	require.NoError(t, err)

	router, gw, auth := newTestConsole(t, NewGatewayProxy(GatewayProxyOptions{Target: target}))
	operator := consoleCookie(t, router)
	require.True(t, auth.State().IsAuthenticated)

	rec := serve(t, router, httptest.NewRequest(http.MethodGet, "/api/water-quality/tests", nil), operator)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, int32(1), upstreamHits.Load())

	stale := &http.Cookie{Name: ConsoleCookieName, Value: "guessed"}
	for name, cookies := range map[string][]*http.Cookie{"no cookie": nil, "wrong cookie": {stale}} {
		t.Run(name, func(t *testing.T) {
			rec := serve(t, router, httptest.NewRequest(http.MethodGet, "/api/water-quality/tests", nil), cookies...)
			assert.Equal(t, http.StatusSeeOther, rec.Code)
			assert.Equal(t, "/auth/login?returnUrl=%2Fapi%2Fwater-quality%2Ftests", rec.Header().Get("Location"))
			assert.Equal(t, int32(1), upstreamHits.Load())

			rec = serve(t, router, httptest.NewRequest(http.MethodGet, "/welcome", nil), cookies...)
			assert.Equal(t, http.StatusSeeOther, rec.Code)
			assert.Equal(t, "/auth/login?returnUrl=%2Fwelcome", rec.Header().Get("Location"))

			rec = serve(t, router, httptest.NewRequest(http.MethodGet, "/auth/status", nil), cookies...)
			assert.Contains(t, rec.Body.String(), `"authenticated":false`)
			assert.NotContains(t, rec.Body.String(), "operator@example.com")

			rec = serve(t, router, httptest.NewRequest(http.MethodGet, "/role-selector?from=zones", nil), cookies...)
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.JSONEq(t, `{"roles":[],"areas":[]}`, rec.Body.String())

			rec = serve(t, router, httptest.NewRequest(http.MethodPost, "/auth/logout", nil), cookies...)
			assert.Equal(t, http.StatusSeeOther, rec.Code)
			assert.True(t, auth.State().IsAuthenticated)
			assert.Zero(t, gw.LogoutCalls.Load())
		})
	}

	rec = serve(t, router, httptest.NewRequest(http.MethodGet, "/welcome", nil), operator)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_NewLoginUnbindsPreviousBrowser(t *testing.T) {
	router, _, _ := newTestConsole(t, nil)

	first := consoleCookie(t, router)
	second := consoleCookie(t, router)
	assert.NotEqual(t, first.Value, second.Value)

	rec := serve(t, router, httptest.NewRequest(http.MethodGet, "/profile", nil), first)
	assert.Equal(t, http.StatusSeeOther, rec.Code)

	rec = serve(t, router, httptest.NewRequest(http.MethodGet, "/profile", nil), second)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_LoginFailureReportsMessage(t *testing.T) {
	router, _, _ := newTestConsole(t, nil)

	rec := serve(t, router, loginForm("", "secret"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"field":"username"`)

	rec = serve(t, router, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"session":"anonymous"`)
	assert.NotEmpty(t, rec.Header().Get(HeaderRequestID))
}

func TestNewRouter_PanicsWithoutServices(t *testing.T) {
	assert.Panics(t, func() { NewRouter(RouterServices{}) })
}
