package config

import (
	"os"
	"strings"
)

// AppConfig is the main application configuration struct that composes
// domain-specific configuration from separate files.
//
// Configuration is loaded from environment variables using the
// github.com/caarlos0/env library. See individual domain config
// files for details on available environment variables:
//   - auth.go: Session and identity provider configuration
//   - gateway.go: Remote gateway endpoints
//   - store.go: Durable token store and Redis configuration
//   - http.go: Console HTTP server configuration
//   - services.go: Service mode configuration
type AppConfig struct {
	// IsDev controls development mode behavior (verbose logging, mock auth allowed).
	// Set DEV=true or NODE_ENV=development for development mode.
	IsDev bool `env:"DEV" envDefault:"false"`

	// Environment names the deployment. "production" enables response sanitisation.
	Environment string `env:"APP_ENV" envDefault:"development"`

	// Session and identity configuration
	Auth AuthConfig

	// Remote gateway configuration
	Gateway GatewayConfig `envPrefix:"GATEWAY_"`

	// Durable token store configuration
	Store StoreConfig `envPrefix:"STORE_"`
	Redis RedisConfig `envPrefix:"REDIS_"`

	// HTTP server configuration
	HTTP HTTPConfig

	// Service mode configuration
	Services string `env:"SERVICES" envDefault:"http,keepalive"`

	// Observability configuration
	Observability ObservabilityConfig
}

// Sanitize applies guardrails to configuration values loaded from env.
// This should be called after loading configuration from environment variables.
func (c *AppConfig) Sanitize() {
	c.Auth.Sanitize()
	c.Gateway.Sanitize()
	c.Store.Sanitize()
	c.HTTP.Sanitize()
	c.Observability.Sanitize()

	c.Environment = strings.ToLower(strings.TrimSpace(c.Environment))
	if c.Environment == "" {
		c.Environment = "development"
	}

	// Check NODE_ENV for dev mode
	c.detectDevMode()
}

// detectDevMode checks both DEV and NODE_ENV environment variables.
// NODE_ENV is checked as a fallback (common in frontend tooling).
func (c *AppConfig) detectDevMode() {
	if !c.IsDev {
		nodeEnv := strings.ToLower(os.Getenv("NODE_ENV"))
		c.IsDev = nodeEnv == "development" || nodeEnv == "dev"
	}
}

// IsProduction reports whether production-only behavior (response sanitisation) applies.
func (c *AppConfig) IsProduction() bool {
	return !c.IsDev && (c.Environment == "production" || c.Environment == "prod")
}

// GetEnabledServices returns the enabled services based on the Services field.
func (c *AppConfig) GetEnabledServices() (map[ServiceMode]bool, error) {
	return ParseServices(c.Services)
}

// IsHTTPServerEnabled returns true if the console HTTP server is enabled.
func (c *AppConfig) IsHTTPServerEnabled() bool {
	services, err := c.GetEnabledServices()
	if err != nil {
		return false
	}
	return services[ServiceModeHTTP]
}

// IsKeepaliveEnabled returns true if the session keepalive (refresh timer) is enabled.
func (c *AppConfig) IsKeepaliveEnabled() bool {
	services, err := c.GetEnabledServices()
	if err != nil {
		return false
	}
	return services[ServiceModeKeepalive]
}
