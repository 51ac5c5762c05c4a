package config

import "time"

// HTTPConfig contains console HTTP server configuration.
type HTTPConfig struct {
	// Addr is the address to bind the HTTP server to. The default listens on loopback only.
	Addr string `env:"HTTP_ADDR" envDefault:"127.0.0.1:8080"`

	// BaseURL is the externally visible base URL of the console.
	BaseURL string `env:"APP_BASE_URL" envDefault:"http://localhost:8080"`

	// ReadHeaderTimeout bounds slow clients.
	ReadHeaderTimeout time.Duration `env:"HTTP_READ_HEADER_TIMEOUT" envDefault:"10s"`

	// Navigation targets produced by the session subsystem.
	LoginPath        string `env:"HTTP_LOGIN_PATH"         envDefault:"/auth/login"`
	WelcomePath      string `env:"HTTP_WELCOME_PATH"       envDefault:"/welcome"`
	GoodbyePath      string `env:"HTTP_GOODBYE_PATH"       envDefault:"/goodbye"`
	RoleSelectorPath string `env:"HTTP_ROLE_SELECTOR_PATH" envDefault:"/role-selector"`
}

// Sanitize applies guardrails to HTTP configuration values.
func (h *HTTPConfig) Sanitize() {
	if h.ReadHeaderTimeout <= 0 {
		h.ReadHeaderTimeout = 10 * time.Second
	}
	h.LoginPath = normalizePath(h.LoginPath, "/auth/login")
	h.WelcomePath = normalizePath(h.WelcomePath, "/welcome")
	h.GoodbyePath = normalizePath(h.GoodbyePath, "/goodbye")
	h.RoleSelectorPath = normalizePath(h.RoleSelectorPath, "/role-selector")
}
