package ports

// Package ports defines interfaces (hexagonal ports) for session-related behavior.
// Implementations live in internal/adapters; orchestration in internal/service.

import (
	"context"
	"errors"

	domainauth "github.com/target/aquaops-console/internal/domain/auth"
)

// ErrKeyNotFound is returned by KeyValueStore.Get when the key is absent.
var ErrKeyNotFound = errors.New("key not found")

// KeyValueStore is the durable string store backing the token store.
// Writes are expected to be visible to the next Get from any process sharing the backend.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
}

// Gateway talks to the remote authentication endpoints.
type Gateway interface {
	// Login posts credentials to the login endpoint. A response with Success=false is returned without error.
	Login(ctx context.Context, creds domainauth.Credentials) (*domainauth.AuthResponse, error)

	// Refresh exchanges a refresh token for a new token pair.
	Refresh(ctx context.Context, refreshToken string) (*domainauth.AuthResponse, error)

	// Logout notifies the server-side logout endpoint. The response is ignored.
	Logout(ctx context.Context, refreshToken string) error

	// MessagingLogout tears down the auxiliary messaging session.
	MessagingLogout(ctx context.Context) error
}

// AuditSink receives audit entries. Delivery is best-effort.
type AuditSink interface {
	Audit(ctx context.Context, entry domainauth.AuditEntry) error
}

// Navigator performs navigation side effects (welcome, goodbye, login, role selector).
type Navigator interface {
	Navigate(ctx context.Context, path string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(ctx context.Context, path string)

// Navigate calls f(ctx, path).
func (f NavigatorFunc) Navigate(ctx context.Context, path string) { f(ctx, path) }

// RoleMapper maps identity provider groups to application roles.
type RoleMapper interface {
	Map(groups []string) []domainauth.Role
}
