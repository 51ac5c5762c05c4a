package auth

// Package auth contains simple hand-written test doubles for auth ports.
// These are lightweight and suitable for unit tests without codegen.

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"maps"
	"sync"
	"sync/atomic"
	"time"

	domainauth "github.com/target/aquaops-console/internal/domain/auth"
	"github.com/target/aquaops-console/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.Gateway       = (*FakeGateway)(nil)
	_ ports.KeyValueStore = (*MemoryKV)(nil)
	_ ports.Navigator     = (*RecordingNavigator)(nil)
	_ ports.AuditSink     = (*RecordingAuditSink)(nil)
	_ ports.RoleMapper    = StaticRoleMapper{}
)

// FakeGateway simulates the remote auth endpoints with deterministic token issuance.
type FakeGateway struct {
	LoginFunc           func(ctx context.Context, creds domainauth.Credentials) (*domainauth.AuthResponse, error)
	RefreshFunc         func(ctx context.Context, refreshToken string) (*domainauth.AuthResponse, error)
	LogoutFunc          func(ctx context.Context, refreshToken string) error
	MessagingLogoutFunc func(ctx context.Context) error

	// Deterministic values for predictable testing
	User      domainauth.User
	ExpiresIn int64

	LoginCalls           atomic.Int32
	RefreshCalls         atomic.Int32
	LogoutCalls          atomic.Int32
	MessagingLogoutCalls atomic.Int32

	issued atomic.Int32
}

// NewFakeGateway creates a FakeGateway with sensible defaults.
func NewFakeGateway() *FakeGateway {
	return &FakeGateway{
		User: domainauth.User{
			UserID:         "mock-user-1",
			Username:       "operator",
			Email:          "operator@example.com",
			FirstName:      "Mock",
			LastName:       "Operator",
			OrganizationID: "org-1",
			Roles:          []domainauth.Role{domainauth.RoleOperator},
		},
		ExpiresIn: 3600,
	}
}

// Success builds a successful envelope for the default user.
func (g *FakeGateway) Success() *domainauth.AuthResponse {
	n := g.issued.Add(1)
	user := g.User
	user.Roles = append([]domainauth.Role(nil), g.User.Roles...)
	return &domainauth.AuthResponse{
		Success: true,
		Message: "ok",
		Data: &domainauth.AuthData{
			AccessToken:  fmt.Sprintf("header.%s.sig", encodedClaims(user.UserID, n)),
			RefreshToken: fmt.Sprintf("refresh-%d", n),
			TokenType:    "Bearer",
			ExpiresIn:    g.ExpiresIn,
			UserInfo:     &user,
		},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

func (g *FakeGateway) Login(ctx context.Context, creds domainauth.Credentials) (*domainauth.AuthResponse, error) {
	g.LoginCalls.Add(1)
	if g.LoginFunc != nil {
		return g.LoginFunc(ctx, creds)
	}
	return g.Success(), nil
}

func (g *FakeGateway) Refresh(ctx context.Context, refreshToken string) (*domainauth.AuthResponse, error) {
	g.RefreshCalls.Add(1)
	if g.RefreshFunc != nil {
		return g.RefreshFunc(ctx, refreshToken)
	}
	return g.Success(), nil
}

func (g *FakeGateway) Logout(ctx context.Context, refreshToken string) error {
	g.LogoutCalls.Add(1)
	if g.LogoutFunc != nil {
		return g.LogoutFunc(ctx, refreshToken)
	}
	return nil
}

func (g *FakeGateway) MessagingLogout(ctx context.Context) error {
	g.MessagingLogoutCalls.Add(1)
	if g.MessagingLogoutFunc != nil {
		return g.MessagingLogoutFunc(ctx)
	}
	return nil
}

// encodedClaims returns a base64url JSON payload segment {"sub":..., "n":...}.
func encodedClaims(sub string, n int32) string {
	return base64URL(fmt.Sprintf(`{"sub":%q,"n":%d}`, sub, n))
}

func base64URL(s string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(s))
}

// MemoryKV is an in-memory KeyValueStore with optional failure injection.
type MemoryKV struct {
	mu     sync.Mutex
	values map[string]string

	// GetErr, when set, is returned by every Get.
	GetErr error
	// SetErr, when set, is returned by every Set.
	SetErr error
}

// NewMemoryKV creates an empty MemoryKV.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{values: make(map[string]string)}
}

func (m *MemoryKV) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return "", m.GetErr
	}
	v, ok := m.values[key]
	if !ok {
		return "", ports.ErrKeyNotFound
	}
	return v, nil
}

func (m *MemoryKV) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SetErr != nil {
		return m.SetErr
	}
	if key == "" {
		return errors.New("key cannot be empty")
	}
	m.values[key] = value
	return nil
}

func (m *MemoryKV) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}

// Snapshot returns a copy of the stored values.
func (m *MemoryKV) Snapshot() map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return maps.Clone(m.values)
}

// RecordingNavigator records every navigation target in order.
type RecordingNavigator struct {
	mu    sync.Mutex
	paths []string
}

func (n *RecordingNavigator) Navigate(_ context.Context, path string) {
	n.mu.Lock()
	n.paths = append(n.paths, path)
	n.mu.Unlock()
}

// Paths returns the recorded targets.
func (n *RecordingNavigator) Paths() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.paths...)
}

// Last returns the most recent target, or "".
func (n *RecordingNavigator) Last() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.paths) == 0 {
		return ""
	}
	return n.paths[len(n.paths)-1]
}

// RecordingAuditSink collects audit entries; Err, when set, is returned after recording.
type RecordingAuditSink struct {
	mu      sync.Mutex
	entries []domainauth.AuditEntry
	Err     error
}

func (s *RecordingAuditSink) Audit(_ context.Context, entry domainauth.AuditEntry) error {
	s.mu.Lock()
	s.entries = append(s.entries, entry)
	s.mu.Unlock()
	return s.Err
}

// Entries returns the recorded entries.
func (s *RecordingAuditSink) Entries() []domainauth.AuditEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domainauth.AuditEntry(nil), s.entries...)
}

// StaticRoleMapper maps every group name equal to a key onto its role.
type StaticRoleMapper map[string]domainauth.Role

func (m StaticRoleMapper) Map(groups []string) []domainauth.Role {
	var out []domainauth.Role
	for _, g := range groups {
		if r, ok := m[g]; ok {
			out = append(out, r)
		}
	}
	return out
}
