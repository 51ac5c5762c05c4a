package gateway

// Package gateway implements ports.Gateway and ports.AuditSink against the remote REST gateway.

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	domainauth "github.com/target/aquaops-console/internal/domain/auth"
	httpx "github.com/target/aquaops-console/internal/http"
	"github.com/target/aquaops-console/internal/ports"
	"golang.org/x/net/publicsuffix"
)

// maxEnvelopeBytes bounds a decoded auth envelope.
const maxEnvelopeBytes = 1 << 20

// Paths names the gateway endpoints used by the client.
type Paths struct {
	Login           string
	Refresh         string
	Logout          string
	Audit           string
	MessagingLogout string
}

// DefaultPaths returns the gateway's standard endpoints.
func DefaultPaths() Paths {
	return Paths{
		Login:           "/auth/login",
		Refresh:         "/auth/refresh",
		Logout:          "/auth/logout",
		Audit:           "/audit/log",
		MessagingLogout: "/messaging/session/logout",
	}
}

// ClientOptions configures a Client.
type ClientOptions struct {
	BaseURL string // Required
	// Transport is normally the request pipeline from httpx.NewPipeline.
	Transport http.RoundTripper
	Timeout   time.Duration
	Paths     Paths
	Logger    *slog.Logger
}

// Client talks to the gateway's auth, audit and messaging endpoints.
// The messaging session is cookie based, so the client keeps a cookie jar.
type Client struct {
	http    *http.Client
	baseURL string
	paths   Paths
	logger  *slog.Logger
}

var (
	_ ports.Gateway   = (*Client)(nil)
	_ ports.AuditSink = (*Client)(nil)
)

// NewClient creates a gateway client.
func NewClient(opts ClientOptions) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, errors.New("gateway base URL is required")
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	paths := mergePaths(opts.Paths, DefaultPaths())

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		http: &http.Client{
			Transport: opts.Transport,
			Timeout:   timeout,
			Jar:       jar,
		},
		baseURL: base,
		paths:   paths,
		logger:  logger.With("component", "gateway_client"),
	}, nil
}

func mergePaths(p, defaults Paths) Paths {
	pick := func(v, d string) string {
		if v == "" {
			return d
		}
		return v
	}
	return Paths{
		Login:           pick(p.Login, defaults.Login),
		Refresh:         pick(p.Refresh, defaults.Refresh),
		Logout:          pick(p.Logout, defaults.Logout),
		Audit:           pick(p.Audit, defaults.Audit),
		MessagingLogout: pick(p.MessagingLogout, defaults.MessagingLogout),
	}
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Login posts creds. A decoded envelope with success=false is returned without error.
func (c *Client) Login(ctx context.Context, creds domainauth.Credentials) (*domainauth.AuthResponse, error) {
	return c.envelope(httpx.WithRawResponse(ctx), c.paths.Login, creds)
}

// Refresh exchanges refreshToken for a new pair.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*domainauth.AuthResponse, error) {
	return c.envelope(httpx.WithRawResponse(ctx), c.paths.Refresh, refreshRequest{RefreshToken: refreshToken})
}

// Logout notifies the server-side logout endpoint. The response body is ignored.
func (c *Client) Logout(ctx context.Context, refreshToken string) error {
	return c.fire(ctx, c.paths.Logout, refreshRequest{RefreshToken: refreshToken})
}

// MessagingLogout ends the messaging session bound to the jar's cookies.
func (c *Client) MessagingLogout(ctx context.Context) error {
	return c.fire(ctx, c.paths.MessagingLogout, nil)
}

// Audit posts entry to the audit log endpoint.
func (c *Client) Audit(ctx context.Context, entry domainauth.AuditEntry) error {
	return c.fire(ctx, c.paths.Audit, entry)
}

func (c *Client) envelope(ctx context.Context, path string, payload any) (*domainauth.AuthResponse, error) {
	resp, err := c.post(ctx, path, payload)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out domainauth.AuthResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxEnvelopeBytes)).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", path, err)
	}
	return &out, nil
}

func (c *Client) fire(ctx context.Context, path string, payload any) error {
	resp, err := c.post(ctx, path, payload)
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.Body.Close()
}

func (c *Client) post(ctx context.Context, path string, payload any) (*http.Response, error) {
	var body io.Reader = http.NoBody
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s request: %w", path, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.DebugContext(ctx, "gateway request failed", "path", path, "error", err)
		return nil, fmt.Errorf("post %s: %w", path, err)
	}
	return resp, nil
}
