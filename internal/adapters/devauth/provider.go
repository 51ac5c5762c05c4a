package devauth

// Package devauth provides a simple, config-driven Gateway for local development.

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	domainauth "github.com/target/aquaops-console/internal/domain/auth"
	"github.com/target/aquaops-console/internal/ports"
)

// Config controls the dev gateway behavior.
// All fields are required except Groups, which may be empty.
type Config struct {
	UserID         string
	Username       string
	Password       string
	Email          string
	OrganizationID string
	Groups         []string
	SigningKey     string
	TokenTTL       time.Duration // default 1h when zero
}

// Provider implements ports.Gateway for local development.
// It accepts one configured username/password and issues HS256 access tokens
// plus opaque refresh tokens that rotate on every refresh.
type Provider struct {
	user domainauth.User
	pass string
	key  []byte
	ttl  time.Duration
	now  func() time.Time

	mu      sync.Mutex
	refresh map[string]struct{}
}

var _ ports.Gateway = (*Provider)(nil)

// NewProvider constructs a dev gateway from Config.
func NewProvider(cfg Config, roles ports.RoleMapper) (*Provider, error) {
	if cfg.UserID == "" {
		return nil, errors.New("dev auth: UserID is required")
	}
	if cfg.Username == "" || cfg.Password == "" {
		return nil, errors.New("dev auth: Username and Password are required")
	}
	if cfg.SigningKey == "" {
		return nil, errors.New("dev auth: SigningKey is required")
	}
	if roles == nil {
		return nil, errors.New("dev auth: role mapper is required")
	}
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Provider{
		user: domainauth.User{
			UserID:         cfg.UserID,
			Username:       cfg.Username,
			Email:          cfg.Email,
			FirstName:      "Dev",
			LastName:       "User",
			OrganizationID: cfg.OrganizationID,
			Roles:          roles.Map(cfg.Groups),
		},
		pass:    cfg.Password,
		key:     []byte(cfg.SigningKey),
		ttl:     ttl,
		now:     time.Now,
		refresh: make(map[string]struct{}),
	}, nil
}

// Login checks creds against the configured identity.
func (p *Provider) Login(_ context.Context, creds domainauth.Credentials) (*domainauth.AuthResponse, error) {
	if creds.Username != p.user.Username || creds.Password != p.pass {
		return &domainauth.AuthResponse{Success: false, Message: "Invalid username or password"}, nil
	}
	return p.issue("")
}

// Refresh rotates a refresh token previously issued by this provider.
func (p *Provider) Refresh(_ context.Context, refreshToken string) (*domainauth.AuthResponse, error) {
	p.mu.Lock()
	_, ok := p.refresh[refreshToken]
	p.mu.Unlock()
	if !ok {
		return &domainauth.AuthResponse{Success: false, Message: "Refresh token is not valid"}, nil
	}
	return p.issue(refreshToken)
}

// Logout forgets refreshToken.
func (p *Provider) Logout(_ context.Context, refreshToken string) error {
	p.mu.Lock()
	delete(p.refresh, refreshToken)
	p.mu.Unlock()
	return nil
}

// MessagingLogout is a no-op in development.
func (p *Provider) MessagingLogout(context.Context) error {
	return nil
}

func (p *Provider) issue(replaces string) (*domainauth.AuthResponse, error) {
	now := p.now()
	user := p.user.Clone()
	user.LastLogin = now.UTC()

	access, err := p.sign(user, now)
	if err != nil {
		return nil, err
	}
	refresh, err := randomString(32)
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	p.mu.Lock()
	if replaces != "" {
		delete(p.refresh, replaces)
	}
	p.refresh[refresh] = struct{}{}
	p.mu.Unlock()

	return &domainauth.AuthResponse{
		Success: true,
		Message: "Login successful",
		Data: &domainauth.AuthData{
			AccessToken:  access,
			RefreshToken: refresh,
			TokenType:    "Bearer",
			ExpiresIn:    int64(p.ttl / time.Second),
			UserInfo:     user,
		},
		Timestamp: now.UTC().Format(time.RFC3339),
	}, nil
}

type accessClaims struct {
	Username       string            `json:"username"`
	OrganizationID string            `json:"organizationId,omitempty"`
	Roles          []domainauth.Role `json:"roles"`
	jwt.RegisteredClaims
}

func (p *Provider) sign(user *domainauth.User, now time.Time) (string, error) {
	claims := accessClaims{
		Username:       user.Username,
		OrganizationID: user.OrganizationID,
		Roles:          user.Roles,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.UserID,
			Issuer:    "aquaops-devauth",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(p.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.key)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

func randomString(n int) (string, error) {
	if n <= 0 {
		return "", nil
	}
	// Compute number of random bytes needed to produce at least n base64 URL chars
	bLen := (n*3 + 3) / 4
	b := make([]byte, bLen)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b)[:n], nil
}
