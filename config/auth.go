package config

import (
	"fmt"
	"strings"
	"time"
)

// AuthMode represents which gateway implementation drives login and refresh.
type AuthMode string

const (
	// AuthModeGateway posts credentials to the REST gateway's /auth endpoints.
	AuthModeGateway AuthMode = "gateway"
	// AuthModeOIDC uses the OIDC password grant against an identity provider.
	AuthModeOIDC AuthMode = "oidc"
	// AuthModeMock uses a local dev issuer (for development only).
	AuthModeMock AuthMode = "mock"
)

// UnmarshalText implements encoding.TextUnmarshaler for AuthMode.
func (a *AuthMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch v {
	case "gateway", "oidc", "mock":
		*a = AuthMode(v)
		return nil
	default:
		return fmt.Errorf("invalid AuthMode: %q (valid options: gateway, oidc, mock)", v)
	}
}

// OIDCConfig contains OIDC configuration used when AUTH_MODE=oidc.
type OIDCConfig struct {
	ClientID     string `env:"CLIENT_ID"     envDefault:"aquaops-console"`
	ClientSecret string `env:"CLIENT_SECRET"`
	Scope        string `env:"SCOPE"         envDefault:"openid profile email groups offline_access"`
	DiscoveryURL string `env:"DISCOVERY_URL"`
	LogoutURL    string `env:"LOGOUT_URL"`

	// OrganizationID is used for users whose id_token carries no organization claim.
	OrganizationID string `env:"ORGANIZATION_ID"`
}

// Scopes splits Scope on whitespace.
func (o OIDCConfig) Scopes() []string {
	return strings.Fields(o.Scope)
}

// DevAuthConfig controls the mock/dev identity.
// Used when AUTH_MODE=mock for development and testing.
type DevAuthConfig struct {
	UserID         string        `env:"USER_ID"         envDefault:"dev-user"`
	Username       string        `env:"USERNAME"        envDefault:"dev"`
	Password       string        `env:"PASSWORD"        envDefault:"aquaops-dev"`
	Email          string        `env:"EMAIL"           envDefault:"dev@example.com"`
	OrganizationID string        `env:"ORGANIZATION_ID" envDefault:"dev-org"`
	Groups         []string      `env:"GROUPS"          envDefault:"admins"          envSeparator:";"`
	SigningKey     string        `env:"SIGNING_KEY"     envDefault:"aquaops-dev-signing-key"`
	TokenTTL       time.Duration `env:"TOKEN_TTL"       envDefault:"1h"`
}

// AuthConfig groups all session and authentication configuration.
type AuthConfig struct {
	// Mode determines which gateway implementation to use.
	Mode AuthMode `env:"AUTH_MODE" envDefault:"gateway"`

	// RefreshLeadTimeMS is how long before expiry the refresh timer fires, in milliseconds.
	RefreshLeadTimeMS int64 `env:"AUTH_REFRESH_LEAD_TIME_MS" envDefault:"300000"`

	// MinRefreshDelay is the floor for the refresh timer delay.
	MinRefreshDelay time.Duration `env:"AUTH_MIN_REFRESH_DELAY" envDefault:"60s"`

	// ExpiringSoonWindow is the window used by the token store's expiring-soon check.
	ExpiringSoonWindow time.Duration `env:"AUTH_EXPIRING_SOON_WINDOW" envDefault:"5m"`

	// OIDC configuration (used when Mode=oidc).
	OIDC OIDCConfig `envPrefix:"AUTH_OIDC_"`

	// DevAuth configuration (used when Mode=mock).
	DevAuth DevAuthConfig `envPrefix:"DEV_AUTH_"`

	// Identity provider groups mapped onto console roles.
	AdminGroup    string `env:"AUTH_ADMIN_GROUP"    envDefault:"admins"`
	OperatorGroup string `env:"AUTH_OPERATOR_GROUP" envDefault:"operators"`
	AnalystGroup  string `env:"AUTH_ANALYST_GROUP"  envDefault:"analysts"`
	ClientGroup   string `env:"AUTH_CLIENT_GROUP"   envDefault:"clients"`
}

// RefreshLeadTime returns RefreshLeadTimeMS as a duration.
func (a *AuthConfig) RefreshLeadTime() time.Duration {
	return time.Duration(a.RefreshLeadTimeMS) * time.Millisecond
}

// Sanitize applies guardrails to auth configuration values.
func (a *AuthConfig) Sanitize() {
	if a.Mode == "" {
		a.Mode = AuthModeGateway
	}
	if a.RefreshLeadTimeMS < 0 {
		a.RefreshLeadTimeMS = 0
	}
	if a.MinRefreshDelay <= 0 {
		a.MinRefreshDelay = time.Minute
	}
	if a.ExpiringSoonWindow <= 0 {
		a.ExpiringSoonWindow = 5 * time.Minute
	}
	if a.DevAuth.TokenTTL <= 0 {
		a.DevAuth.TokenTTL = time.Hour
	}
}
