package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/target/aquaops-console/config"
	"github.com/target/aquaops-console/internal/adapters/authroles"
	"github.com/target/aquaops-console/internal/adapters/devauth"
	"github.com/target/aquaops-console/internal/adapters/gateway"
	"github.com/target/aquaops-console/internal/adapters/oidc"
	domainauth "github.com/target/aquaops-console/internal/domain/auth"
	httpx "github.com/target/aquaops-console/internal/http"
	"github.com/target/aquaops-console/internal/observability/statsd"
	"github.com/target/aquaops-console/internal/ports"
	"github.com/target/aquaops-console/internal/service"
)

// SessionOptions contains dependencies for BuildSession.
type SessionOptions struct {
	Config    *config.AppConfig   // Required
	Store     ports.KeyValueStore // Required
	Metrics   statsd.Sink         // Optional
	Navigator ports.Navigator     // Optional
	Logger    *slog.Logger
}

// Session bundles the session subsystem shared by the console server and the admin CLI.
type Session struct {
	Auth    *service.AuthService
	Guard   *service.RouteGuard
	Tokens  *service.TokenStore
	Users   *service.UserCache
	State   *service.SessionHolder
	Loading *httpx.LoadingTracker

	// Transport is the outgoing request pipeline used for every gateway call.
	Transport http.RoundTripper
	// GatewayURL is the parsed gateway base URL the console proxies /api to.
	GatewayURL *url.URL
}

// Close stops the refresh timer and waits for detached logout and audit work.
func (s *Session) Close() {
	if s == nil || s.Auth == nil {
		return
	}
	s.Auth.Close()
}

// BuildSession wires the token store, session holder, request pipeline, gateway implementation
// selected by AUTH_MODE and the auth orchestrator.
func BuildSession(ctx context.Context, opts SessionOptions) (*Session, error) {
	if opts.Config == nil {
		return nil, errors.New("session config is required")
	}
	if opts.Store == nil {
		return nil, errors.New("session store is required")
	}
	cfg := opts.Config
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	gatewayURL, err := url.Parse(cfg.Gateway.BaseURL)
	if err != nil || gatewayURL.Scheme == "" || gatewayURL.Host == "" {
		return nil, fmt.Errorf("invalid gateway base URL %q", cfg.Gateway.BaseURL)
	}

	tokens := service.NewTokenStore(service.TokenStoreOptions{
		Store:  opts.Store,
		Config: service.TokenStoreConfig{ExpiringSoonWindow: cfg.Auth.ExpiringSoonWindow},
		Logger: logger,
	})
	users := service.NewUserCache(opts.Store, logger)
	state := service.NewSessionHolder()

	loading := httpx.NewLoadingTracker(httpx.LoadingTrackerOptions{
		OnChange: func(busy bool) {
			_ = state.Update(func(st domainauth.SessionState) domainauth.SessionState {
				st.Loading = busy
				return st
			})
		},
		Metrics: opts.Metrics,
	})

	transport := httpx.NewPipeline(httpx.PipelineOptions{
		Base: http.DefaultTransport,
		Deps: httpx.PipelineDeps{
			Tokens:  tokens,
			Session: state,
			Loading: loading,
		},
		Config: httpx.PipelineConfig{
			Paths: httpx.EndpointPaths{
				Login:    cfg.Gateway.LoginPath,
				Refresh:  cfg.Gateway.RefreshPath,
				Register: cfg.Gateway.RegisterPath,
				Audit:    cfg.Gateway.AuditPath,
			},
			Production: cfg.IsProduction(),
			Metrics:    opts.Metrics,
		},
	})

	gw, sink, err := buildGateway(ctx, gatewayDeps{
		Config:    cfg,
		Transport: transport,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}

	audit := service.NewAuditLogger(service.AuditLoggerOptions{
		Sink:    sink,
		Timeout: cfg.Gateway.DetachedTimeout,
		Logger:  logger,
	})

	auth := service.NewAuthService(service.AuthServiceOptions{
		Gateway: gw,
		Session: service.AuthSessionDeps{
			Tokens: tokens,
			Users:  users,
			State:  state,
		},
		Config: service.AuthServiceConfig{
			Navigator: opts.Navigator,
			Audit:     audit,
			Metrics:   opts.Metrics,
			Logger:    logger,
			Paths: service.NavigationPaths{
				Welcome:      cfg.HTTP.WelcomePath,
				Goodbye:      cfg.HTTP.GoodbyePath,
				Login:        cfg.HTTP.LoginPath,
				RoleSelector: cfg.HTTP.RoleSelectorPath,
			},
			RefreshLeadTime: cfg.Auth.RefreshLeadTime(),
			MinRefreshDelay: cfg.Auth.MinRefreshDelay,
			DetachedTimeout: cfg.Gateway.DetachedTimeout,
		},
	})

	return &Session{
		Auth:       auth,
		Guard:      service.NewRouteGuard(auth),
		Tokens:     tokens,
		Users:      users,
		State:      state,
		Loading:    loading,
		Transport:  transport,
		GatewayURL: gatewayURL,
	}, nil
}

type gatewayDeps struct {
	Config    *config.AppConfig
	Transport http.RoundTripper
	Logger    *slog.Logger
}

// buildGateway selects the login/refresh backend. Only the REST gateway receives audit entries.
//
//nolint:ireturn // the gateway implementation is chosen at runtime.
func buildGateway(ctx context.Context, deps gatewayDeps) (ports.Gateway, ports.AuditSink, error) {
	cfg := deps.Config
	roles := roleMapper(cfg.Auth)

	switch cfg.Auth.Mode {
	case config.AuthModeOIDC:
		oc := cfg.Auth.OIDC
		discoveryCtx, cancel := context.WithTimeout(ctx, cfg.Gateway.Timeout)
		defer cancel()
		prov, err := oidc.NewProvider(discoveryCtx, oidc.ProviderConfig{
			ClientID:       oc.ClientID,
			ClientSecret:   oc.ClientSecret,
			Scope:          oc.Scope,
			DiscoveryURL:   oc.DiscoveryURL,
			LogoutURL:      oc.LogoutURL,
			OrganizationID: oc.OrganizationID,
			Roles:          roles,
			HTTPClient:     &http.Client{Timeout: cfg.Gateway.Timeout},
			Logger:         deps.Logger,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("build oidc gateway: %w", err)
		}
		deps.Logger.Info("auth mode oidc", "discovery_url", oc.DiscoveryURL)
		return prov, nil, nil

	case config.AuthModeMock:
		dc := cfg.Auth.DevAuth
		prov, err := devauth.NewProvider(devauth.Config{
			UserID:         dc.UserID,
			Username:       dc.Username,
			Password:       dc.Password,
			Email:          dc.Email,
			OrganizationID: dc.OrganizationID,
			Groups:         dc.Groups,
			SigningKey:     dc.SigningKey,
			TokenTTL:       dc.TokenTTL,
		}, roles)
		if err != nil {
			return nil, nil, fmt.Errorf("build dev auth gateway: %w", err)
		}
		deps.Logger.Warn("auth mode mock: development identity in use", "username", dc.Username)
		return prov, nil, nil

	default:
		client, err := gateway.NewClient(gateway.ClientOptions{
			BaseURL:   cfg.Gateway.BaseURL,
			Transport: deps.Transport,
			Timeout:   cfg.Gateway.Timeout,
			Paths: gateway.Paths{
				Login:           cfg.Gateway.LoginPath,
				Refresh:         cfg.Gateway.RefreshPath,
				Logout:          cfg.Gateway.LogoutPath,
				Audit:           cfg.Gateway.AuditPath,
				MessagingLogout: cfg.Gateway.MessagingLogoutPath,
			},
			Logger: deps.Logger,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("build gateway client: %w", err)
		}
		return client, client, nil
	}
}

func roleMapper(cfg config.AuthConfig) authroles.StaticRoleMapper {
	return authroles.StaticRoleMapper{
		AdminGroup:    cfg.AdminGroup,
		OperatorGroup: cfg.OperatorGroup,
		AnalystGroup:  cfg.AnalystGroup,
		ClientGroup:   cfg.ClientGroup,
	}
}
