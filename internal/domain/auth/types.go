package auth

// Package auth contains domain-level types for the console session: users, tokens and session state.
// It is pure and free of framework/adapter concerns.

import (
	"slices"
	"time"
)

// Role represents an application authorization role as issued by the gateway.
// Keep string form; it is persisted verbatim inside user_info.
type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleOperator Role = "OPERATOR"
	RoleAnalyst  Role = "ANALYST"
	RoleClient   Role = "CLIENT"
)

// Durable keys written by the session subsystem. Together they are its complete persisted footprint.
const (
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
	KeyTokenExpiry  = "token_expiry"
	KeyUserInfo     = "user_info"
)

// User is the authenticated principal as returned by the gateway in userInfo.
// Identity is UserID; Roles is a set (membership only, order is irrelevant).
type User struct {
	UserID             string    `json:"userId"`
	Username           string    `json:"username"`
	Email              string    `json:"email"`
	FirstName          string    `json:"firstName"`
	LastName           string    `json:"lastName"`
	OrganizationID     string    `json:"organizationId,omitempty"`
	Roles              []Role    `json:"roles"`
	MustChangePassword bool      `json:"mustChangePassword"`
	LastLogin          time.Time `json:"lastLogin,omitzero"`
	Phone              string    `json:"phone,omitempty"`
}

// HasRole reports whether the user holds role.
func (u *User) HasRole(role Role) bool {
	if u == nil {
		return false
	}
	return slices.Contains(u.Roles, role)
}

// HasAnyRole reports whether the user holds at least one of roles.
func (u *User) HasAnyRole(roles ...Role) bool {
	for _, r := range roles {
		if u.HasRole(r) {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so callers can't mutate state owned by the session holder.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.Roles = slices.Clone(u.Roles)
	return &c
}

// DisplayName returns "First Last", falling back to the username.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	default:
		return u.Username
	}
}

// Phase is the lifecycle state of the session.
type Phase string

const (
	PhaseAnonymous      Phase = "anonymous"
	PhaseAuthenticating Phase = "authenticating"
	PhaseAuthenticated  Phase = "authenticated"
	PhaseRefreshing     Phase = "refreshing"
)

// SessionState is the single record describing who is logged in.
// Empty strings stand for absent tokens/errors.
type SessionState struct {
	IsAuthenticated bool   `json:"isAuthenticated"`
	User            *User  `json:"user"`
	AccessToken     string `json:"-"`
	RefreshToken    string `json:"-"`
	Loading         bool   `json:"loading"`
	Error           string `json:"error,omitempty"`
	Phase           Phase  `json:"phase"`
}

// AnonymousState returns the startup/logged-out defaults.
func AnonymousState() SessionState {
	return SessionState{Phase: PhaseAnonymous}
}

// Valid reports whether the state honours the authenticated invariant.
func (s SessionState) Valid() bool {
	if !s.IsAuthenticated {
		return true
	}
	return s.User != nil && s.AccessToken != ""
}

// Clone returns a copy that shares nothing mutable with s.
func (s SessionState) Clone() SessionState {
	s.User = s.User.Clone()
	return s
}

// TokenRecord is the persisted token triple. Expiry is always written with both tokens.
type TokenRecord struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Remaining returns the time left until expiry, clamped at zero.
func (t TokenRecord) Remaining(now time.Time) time.Duration {
	if t.ExpiresAt.IsZero() {
		return 0
	}
	d := t.ExpiresAt.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// Credentials carries the login form input.
type Credentials struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	RememberMe bool   `json:"rememberMe,omitempty"`
}

// AuthResponse is the gateway envelope for /auth/login and /auth/refresh.
type AuthResponse struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message,omitempty"`
	Data      *AuthData `json:"data,omitempty"`
	Timestamp string    `json:"timestamp,omitempty"`
}

// AuthData is the token payload of a successful AuthResponse.
type AuthData struct {
	AccessToken      string `json:"accessToken"`
	RefreshToken     string `json:"refreshToken"`
	TokenType        string `json:"tokenType,omitempty"`
	ExpiresIn        int64  `json:"expiresIn"`
	RefreshExpiresIn int64  `json:"refreshExpiresIn,omitempty"`
	UserInfo         *User  `json:"userInfo,omitempty"`
}

// AuditEntry is the body of POST /audit/log.
type AuditEntry struct {
	Action         string            `json:"action"`
	Resource       string            `json:"resource"`
	UserID         string            `json:"userId,omitempty"`
	OrganizationID string            `json:"organizationId,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	Timestamp      time.Time         `json:"timestamp"`
	IP             string            `json:"ip,omitempty"`
	UserAgent      string            `json:"userAgent,omitempty"`
}
