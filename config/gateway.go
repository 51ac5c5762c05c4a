package config

import (
	"strings"
	"time"
)

// GatewayConfig describes the remote HTTP gateway the console talks to.
type GatewayConfig struct {
	// BaseURL is the gateway root; endpoint paths are joined onto it.
	BaseURL string `env:"BASE_URL" envDefault:"http://localhost:8081/api"`

	// Timeout bounds every gateway request.
	Timeout time.Duration `env:"TIMEOUT" envDefault:"15s"`

	// DetachedTimeout bounds fire-and-forget calls (logout notification, audit).
	DetachedTimeout time.Duration `env:"DETACHED_TIMEOUT" envDefault:"10s"`

	LoginPath           string `env:"LOGIN_PATH"            envDefault:"/auth/login"`
	RefreshPath         string `env:"REFRESH_PATH"          envDefault:"/auth/refresh"`
	LogoutPath          string `env:"LOGOUT_PATH"           envDefault:"/auth/logout"`
	RegisterPath        string `env:"REGISTER_PATH"         envDefault:"/auth/register"`
	AuditPath           string `env:"AUDIT_PATH"            envDefault:"/audit/log"`
	MessagingLogoutPath string `env:"MESSAGING_LOGOUT_PATH" envDefault:"/messaging/session/logout"`
}

// Sanitize applies guardrails to gateway configuration values.
func (g *GatewayConfig) Sanitize() {
	g.BaseURL = strings.TrimRight(strings.TrimSpace(g.BaseURL), "/")
	if g.Timeout <= 0 {
		g.Timeout = 15 * time.Second
	}
	if g.DetachedTimeout <= 0 {
		g.DetachedTimeout = 10 * time.Second
	}
	g.LoginPath = normalizePath(g.LoginPath, "/auth/login")
	g.RefreshPath = normalizePath(g.RefreshPath, "/auth/refresh")
	g.LogoutPath = normalizePath(g.LogoutPath, "/auth/logout")
	g.RegisterPath = normalizePath(g.RegisterPath, "/auth/register")
	g.AuditPath = normalizePath(g.AuditPath, "/audit/log")
	g.MessagingLogoutPath = normalizePath(g.MessagingLogoutPath, "/messaging/session/logout")
}

// AuthPaths returns the endpoints that must never carry a bearer token or organization header.
func (g *GatewayConfig) AuthPaths() []string {
	return []string{g.LoginPath, g.RefreshPath, g.RegisterPath}
}

func normalizePath(p, fallback string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return fallback
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}
