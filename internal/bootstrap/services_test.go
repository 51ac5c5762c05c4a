package bootstrap

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/aquaops-console/config"
)

func TestErrorChannelBufferSize(t *testing.T) {
	tests := []struct {
		name  string
		modes []config.ServiceMode
		want  int
	}{
		{name: "no services enabled", want: 1},
		{name: "http only", modes: []config.ServiceMode{config.ServiceModeHTTP}, want: 2},
		{
			name:  "http and keepalive",
			modes: []config.ServiceMode{config.ServiceModeHTTP, config.ServiceModeKeepalive},
			want:  3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enabled := make(map[config.ServiceMode]bool, len(tt.modes))
			for _, mode := range tt.modes {
				enabled[mode] = true
			}

			if got := errorChannelBufferSize(enabled); got != tt.want {
				t.Fatalf("errorChannelBufferSize(%v) = %d, want %d", tt.modes, got, tt.want)
			}
		})
	}
}

func TestNewServices_MemoryStoreWithoutMetrics(t *testing.T) {
	_, srv := newFakeGateway(t)
	cfg := testConfig(t, srv.URL+"/api")
	cfg.Observability.Metrics.Enabled = false

	svc, err := NewServices(context.Background(), &ServiceDeps{Config: cfg, Logger: discardLogger()})
	require.NoError(t, err)
	assert.Nil(t, svc.Metrics)
	assert.Equal(t, config.StoreBackendMemory, svc.Store.Backend)
	require.NotNil(t, svc.Session)
	require.NoError(t, svc.Close())
}

func TestNewServices_MetricsEnabled(t *testing.T) {
	_, srv := newFakeGateway(t)
	cfg := testConfig(t, srv.URL+"/api")
	cfg.Observability.Metrics = config.ObservabilityMetricsConfig{Enabled: true, StatsdAddress: "127.0.0.1:8125", Prefix: "aquaops"}

	svc, err := NewServices(context.Background(), &ServiceDeps{Config: cfg, Logger: discardLogger()})
	require.NoError(t, err)
	assert.True(t, svc.Metrics.Enabled())
	require.NoError(t, svc.Close())
	assert.False(t, svc.Metrics.Enabled())
}

func TestNewServices_RequiresConfig(t *testing.T) {
	_, err := NewServices(context.Background(), &ServiceDeps{})
	require.Error(t, err)
}

func TestBuildHTTPHandler_GuardsAndProxies(t *testing.T) {
	fg, gw := newFakeGateway(t)
	cfg := testConfig(t, gw.URL+"/api")

	svc, err := NewServices(context.Background(), &ServiceDeps{Config: cfg, Logger: discardLogger()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })

	console := httptest.NewServer(BuildHTTPHandler(&HTTPServerConfig{Config: cfg, Session: svc.Session, Logger: discardLogger()}))
	t.Cleanup(console.Close)
	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }}

	resp, err := client.Get(console.URL + "/healthz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Anonymous users are sent to login with the requested path preserved.
	resp, err = client.Get(console.URL + "/api/reports")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/auth/login?returnUrl=%2Fapi%2Freports", resp.Header.Get("Location"))
	assert.Zero(t, fg.hitCount("/api/reports"))

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	operator := &http.Client{Jar: jar, CheckRedirect: client.CheckRedirect}
	resp, err = operator.PostForm(console.URL+"/auth/login", url.Values{"username": {"operator"}, "password": {"s3cret-pw"}})
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.True(t, svc.Session.State.IsAuthenticated())

	// A second client without the console cookie is still anonymous.
	resp, err = client.Get(console.URL + "/api/reports")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Zero(t, fg.hitCount("/api/reports"))

	req, err := http.NewRequest(http.MethodGet, console.URL+"/api/reports", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer smuggled")
	resp, err = operator.Do(req)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	_ = resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"reports":[]}`, string(body))
	assert.Equal(t, fg.access, fg.bearerFor("/api/reports"), "the session token replaces inbound credentials")
}
