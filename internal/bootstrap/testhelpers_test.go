package bootstrap

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/caarlos0/env/v11"
	"github.com/stretchr/testify/require"
	"github.com/target/aquaops-console/config"
	"github.com/target/aquaops-console/internal/testutil"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testConfig parses defaults from the environment and points the store at memory.
func testConfig(t *testing.T, gatewayURL string) *config.AppConfig {
	t.Helper()
	var cfg config.AppConfig
	require.NoError(t, env.Parse(&cfg))
	cfg.Store.Backend = config.StoreBackendMemory
	cfg.Gateway.BaseURL = gatewayURL
	cfg.Auth.Mode = config.AuthModeGateway
	cfg.Sanitize()
	return &cfg
}

// fakeGateway records every hit by path and answers the auth endpoints.
type fakeGateway struct {
	mu     sync.Mutex
	hits   map[string]int
	bearer map[string]string
	access string
}

func newFakeGateway(t *testing.T) (*fakeGateway, *httptest.Server) {
	t.Helper()
	fg := &fakeGateway{
		hits:   map[string]int{},
		bearer: map[string]string{},
		access: testutil.NewToken().WithSubject("user-1").Build(),
	}
	srv := httptest.NewServer(http.HandlerFunc(fg.serve))
	t.Cleanup(srv.Close)
	return fg, srv
}

func (fg *fakeGateway) serve(w http.ResponseWriter, r *http.Request) {
	fg.mu.Lock()
	fg.hits[r.URL.Path]++
	fg.bearer[r.URL.Path] = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	fg.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch r.URL.Path {
	case "/api/auth/login":
		_, _ = io.WriteString(w, `{"success":true,"message":"ok","data":{"accessToken":"`+fg.access+
			`","refreshToken":"refresh-1","tokenType":"Bearer","expiresIn":3600,"userInfo":{"userId":"user-1",`+
			`"username":"operator","email":"operator@example.com","organizationId":"org-1","roles":["OPERATOR"]}}}`)
	case "/api/reports":
		_, _ = io.WriteString(w, `{"reports":[]}`)
	default:
		_, _ = io.WriteString(w, `{"success":true}`)
	}
}

func (fg *fakeGateway) hitCount(path string) int {
	fg.mu.Lock()
	defer fg.mu.Unlock()
	return fg.hits[path]
}

func (fg *fakeGateway) bearerFor(path string) string {
	fg.mu.Lock()
	defer fg.mu.Unlock()
	return fg.bearer[path]
}
