package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	domainauth "github.com/target/aquaops-console/internal/domain/auth"
	apperrors "github.com/target/aquaops-console/internal/errors"
	"github.com/target/aquaops-console/internal/observability/metrics"
	"github.com/target/aquaops-console/internal/observability/statsd"
	"github.com/target/aquaops-console/internal/ports"
	"github.com/target/aquaops-console/internal/validation"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// NavigationPaths are the destinations of the session subsystem's navigation side effects.
type NavigationPaths struct {
	Welcome      string
	Goodbye      string
	Login        string
	RoleSelector string
}

// DefaultNavigationPaths returns the console's standard destinations.
func DefaultNavigationPaths() NavigationPaths {
	return NavigationPaths{
		Welcome:      "/welcome",
		Goodbye:      "/goodbye",
		Login:        "/auth/login",
		RoleSelector: "/role-selector",
	}
}

// AuthSessionDeps groups the local session collaborators.
type AuthSessionDeps struct {
	Tokens *TokenStore    // Required
	Users  *UserCache     // Required
	State  *SessionHolder // Required
}

// AuthServiceConfig holds optional collaborators and tuning.
type AuthServiceConfig struct {
	Navigator       ports.Navigator
	Audit           *AuditLogger
	Metrics         statsd.Sink
	Logger          *slog.Logger
	Paths           NavigationPaths
	RefreshLeadTime time.Duration
	MinRefreshDelay time.Duration
	DetachedTimeout time.Duration
	Clock           TimeProvider

	afterFunc afterFunc
}

// AuthServiceOptions groups dependencies for AuthService.
type AuthServiceOptions struct {
	Gateway ports.Gateway // Required
	Session AuthSessionDeps
	Config  AuthServiceConfig
}

// AuthService drives the session lifecycle:
// ANONYMOUS -> AUTHENTICATING -> AUTHENTICATED -> (REFRESHING) -> AUTHENTICATED | ANONYMOUS.
//
// In-flight login and refresh calls are not cancelled by Logout; their results are applied
// to whatever state exists when they complete.
type AuthService struct {
	gateway ports.Gateway
	tokens  *TokenStore
	users   *UserCache
	state   *SessionHolder

	nav     ports.Navigator
	audit   *AuditLogger
	metrics statsd.Sink
	logger  *slog.Logger
	paths   NavigationPaths
	clock   TimeProvider

	lead     time.Duration
	minDelay time.Duration

	timer   *scheduledTask
	refresh singleflight.Group
	tasks   *detachedTasks
}

// NewAuthService constructs a new AuthService. It panics if a required dependency is nil.
func NewAuthService(opts AuthServiceOptions) *AuthService {
	if opts.Gateway == nil {
		panic("service: AuthService requires a Gateway")
	}
	if opts.Session.Tokens == nil || opts.Session.Users == nil || opts.Session.State == nil {
		panic("service: AuthService requires Tokens, Users and State")
	}

	cfg := opts.Config
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "auth_service")

	paths := cfg.Paths
	defaults := DefaultNavigationPaths()
	if paths.Welcome == "" {
		paths.Welcome = defaults.Welcome
	}
	if paths.Goodbye == "" {
		paths.Goodbye = defaults.Goodbye
	}
	if paths.Login == "" {
		paths.Login = defaults.Login
	}
	if paths.RoleSelector == "" {
		paths.RoleSelector = defaults.RoleSelector
	}

	lead := cfg.RefreshLeadTime
	if lead <= 0 {
		lead = DefaultRefreshLeadTime
	}
	minDelay := cfg.MinRefreshDelay
	if minDelay <= 0 {
		minDelay = DefaultMinRefreshDelay
	}
	clock := cfg.Clock
	if clock == nil {
		clock = RealTimeProvider{}
	}

	return &AuthService{
		gateway:  opts.Gateway,
		tokens:   opts.Session.Tokens,
		users:    opts.Session.Users,
		state:    opts.Session.State,
		nav:      cfg.Navigator,
		audit:    cfg.Audit,
		metrics:  cfg.Metrics,
		logger:   logger,
		paths:    paths,
		clock:    clock,
		lead:     lead,
		minDelay: minDelay,
		timer:    newScheduledTask(cfg.afterFunc),
		tasks:    newDetachedTasks(cfg.DetachedTimeout, logger),
	}
}

// State returns a snapshot of the session state.
func (s *AuthService) State() domainauth.SessionState {
	return s.state.Snapshot()
}

// Paths returns the navigation destinations in use.
func (s *AuthService) Paths() NavigationPaths {
	return s.paths
}

// Restore rehydrates the session from durable storage without a network call.
// It requires a valid token, a cached user and a decodable token payload.
func (s *AuthService) Restore(ctx context.Context) bool {
	if !s.tokens.HasValidToken(ctx) {
		s.emit(metrics.OpRestore, metrics.ResultNoop, 0, nil)
		return false
	}
	user := s.users.Load(ctx)
	if user == nil {
		s.emit(metrics.OpRestore, metrics.ResultNoop, 0, nil)
		return false
	}
	access := s.tokens.AccessToken(ctx)
	if s.tokens.DecodeToken(ctx, access) == nil {
		s.emit(metrics.OpRestore, metrics.ResultNoop, 0, nil)
		return false
	}

	next := domainauth.SessionState{
		IsAuthenticated: true,
		User:            user,
		AccessToken:     access,
		RefreshToken:    s.tokens.RefreshToken(ctx),
		Phase:           domainauth.PhaseAuthenticated,
	}
	if err := s.state.Replace(next); err != nil {
		s.logger.WarnContext(ctx, "restore produced invalid state", "error", err)
		return false
	}
	s.scheduleRefresh(s.tokens.Remaining(ctx))
	s.emit(metrics.OpRestore, metrics.ResultSuccess, 0, nil)
	s.logger.InfoContext(ctx, "session restored", "user_id", user.UserID)
	return true
}

// Login authenticates creds against the gateway. On failure the session is reset to anonymous
// with the normalised message retained, and that message is returned as an *AppError.
func (s *AuthService) Login(ctx context.Context, creds domainauth.Credentials) error {
	if err := validation.Credentials(creds).Err(); err != nil {
		_ = s.state.Update(func(st domainauth.SessionState) domainauth.SessionState {
			st.Error = apperrors.Message(err)
			return st
		})
		return err
	}

	start := s.clock.Now()
	_ = s.state.Update(func(st domainauth.SessionState) domainauth.SessionState {
		st.Loading = true
		st.Error = ""
		if !st.IsAuthenticated {
			st.Phase = domainauth.PhaseAuthenticating
		}
		return st
	})

	resp, err := s.gateway.Login(ctx, creds)
	if err == nil {
		err = rejectedEnvelope(resp)
	}
	if err != nil {
		return s.failLogin(ctx, err, start)
	}

	if err := s.applyAuthData(ctx, resp.Data, resp.Data.UserInfo); err != nil {
		return s.failLogin(ctx, err, start)
	}

	user := s.state.User()
	s.audit.RecordAuth(ctx, AuditActionLogin, user)
	s.emit(metrics.OpLogin, metrics.ResultSuccess, s.clock.Now().Sub(start), nil)
	s.logger.InfoContext(ctx, "login succeeded", "user_id", user.UserID)

	s.navigate(ctx, s.paths.Welcome)
	return nil
}

func (s *AuthService) failLogin(ctx context.Context, err error, start time.Time) error {
	appErr := NormalizeAuthError(err)
	s.state.Reset(appErr.Message)
	s.emit(metrics.OpLogin, metrics.ResultError, s.clock.Now().Sub(start), err)
	s.logger.WarnContext(ctx, "login failed", "status", appErr.Status, "error", err)
	return appErr
}

// Refresh exchanges the stored refresh token for a new pair. Concurrent callers share one
// gateway call. Any failure, including a missing refresh token, forces a full logout.
func (s *AuthService) Refresh(ctx context.Context) error {
	_, err, _ := s.refresh.Do("refresh", func() (any, error) {
		return nil, s.doRefresh(ctx)
	})
	return err
}

func (s *AuthService) doRefresh(ctx context.Context) error {
	start := s.clock.Now()
	refreshToken := s.tokens.RefreshToken(ctx)
	if refreshToken == "" {
		err := apperrors.Unauthorized("No refresh token available")
		s.emit(metrics.OpRefresh, metrics.ResultError, 0, err)
		s.logger.WarnContext(ctx, "refresh skipped: no refresh token")
		s.Logout(ctx)
		return err
	}

	_ = s.state.Update(func(st domainauth.SessionState) domainauth.SessionState {
		if st.IsAuthenticated {
			st.Phase = domainauth.PhaseRefreshing
		}
		return st
	})

	resp, err := s.gateway.Refresh(ctx, refreshToken)
	if err == nil {
		err = rejectedEnvelope(resp)
	}
	if err == nil {
		user := resp.Data.UserInfo
		if user == nil {
			user = s.state.User()
		}
		if user == nil {
			user = s.users.Load(ctx)
		}
		err = s.applyAuthData(ctx, resp.Data, user)
	}
	if err != nil {
		appErr := NormalizeAuthError(err)
		s.emit(metrics.OpRefresh, metrics.ResultError, s.clock.Now().Sub(start), err)
		s.logger.WarnContext(ctx, "refresh failed, logging out", "status", appErr.Status, "error", err)
		s.Logout(ctx)
		return appErr
	}

	s.emit(metrics.OpRefresh, metrics.ResultSuccess, s.clock.Now().Sub(start), nil)
	s.logger.InfoContext(ctx, "session refreshed", "expires_in", resp.Data.ExpiresIn)
	return nil
}

// applyAuthData persists tokens and user, replaces the state, then arms the refresh timer.
func (s *AuthService) applyAuthData(ctx context.Context, data *domainauth.AuthData, user *domainauth.User) error {
	if data == nil || data.AccessToken == "" {
		return apperrors.Internal("Authentication response did not include an access token")
	}
	if user == nil {
		return apperrors.Internal("Authentication response did not include user information")
	}
	if err := s.tokens.SetTokens(ctx, data.AccessToken, data.RefreshToken, data.ExpiresIn); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "Unable to store the session")
	}
	if err := s.users.Save(ctx, user); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "Unable to store the session")
	}

	next := domainauth.SessionState{
		IsAuthenticated: true,
		User:            user,
		AccessToken:     data.AccessToken,
		RefreshToken:    data.RefreshToken,
		Phase:           domainauth.PhaseAuthenticated,
	}
	if err := s.state.Replace(next); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "Unable to store the session")
	}
	s.scheduleRefresh(time.Duration(data.ExpiresIn) * time.Second)
	return nil
}

// Logout cancels the refresh timer, notifies the server side without waiting, clears durable
// state, resets the session and navigates to the goodbye screen.
func (s *AuthService) Logout(ctx context.Context) {
	s.timer.Cancel()

	user := s.state.User()
	refreshToken := s.tokens.RefreshToken(ctx)

	s.tasks.Go(ctx, "logout.notify", func(ctx context.Context) error {
		return s.notifyLogout(ctx, refreshToken)
	})

	if err := s.tokens.ClearTokens(ctx); err != nil {
		s.logger.WarnContext(ctx, "logout: clearing tokens failed", "error", err)
	}
	if err := s.users.Clear(ctx); err != nil {
		s.logger.WarnContext(ctx, "logout: clearing cached user failed", "error", err)
	}
	s.state.Reset("")

	if user != nil {
		s.audit.RecordAuth(ctx, AuditActionLogout, user)
	}
	s.emit(metrics.OpLogout, metrics.ResultSuccess, 0, nil)
	s.logger.InfoContext(ctx, "logged out")

	s.navigate(ctx, s.paths.Goodbye)
}

func (s *AuthService) notifyLogout(ctx context.Context, refreshToken string) error {
	var g errgroup.Group
	var gatewayErr, messagingErr error
	if refreshToken != "" {
		g.Go(func() error {
			if err := s.gateway.Logout(ctx, refreshToken); err != nil {
				gatewayErr = fmt.Errorf("gateway logout: %w", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		if err := s.gateway.MessagingLogout(ctx); err != nil {
			messagingErr = fmt.Errorf("messaging logout: %w", err)
		}
		return nil
	})
	_ = g.Wait()
	return errors.Join(gatewayErr, messagingErr)
}

// HandleAuthError returns the single displayable message for err.
func (s *AuthService) HandleAuthError(err error) string {
	if err == nil {
		return ""
	}
	return NormalizeAuthError(err).Message
}

// NextRefresh reports the armed refresh delay and deadline.
func (s *AuthService) NextRefresh() (time.Duration, time.Time, bool) {
	return s.timer.Pending()
}

// Close stops the refresh timer and waits for detached work to finish.
func (s *AuthService) Close() {
	s.timer.Cancel()
	s.tasks.Wait()
	s.audit.Wait()
}

func (s *AuthService) scheduleRefresh(expiresIn time.Duration) {
	delay := RefreshDelay(expiresIn, s.lead, s.minDelay)
	s.timer.Arm(delay, s.clock.Now(), func() {
		ctx := context.Background()
		if err := s.Refresh(ctx); err != nil {
			s.logger.WarnContext(ctx, "scheduled refresh failed", "error", err)
		}
	})
	s.logger.Debug("refresh scheduled", "delay", delay)
}

func (s *AuthService) navigate(ctx context.Context, path string) {
	if s.nav == nil {
		return
	}
	s.nav.Navigate(ctx, path)
}

func (s *AuthService) emit(op, result string, d time.Duration, err error) {
	metrics.EmitSessionTransition(s.metrics, metrics.SessionMetric{
		Operation: op,
		Result:    result,
		Duration:  d,
		Err:       err,
	})
}

// rejectedEnvelope converts an unsuccessful envelope into a 401-class error carrying the server message.
func rejectedEnvelope(resp *domainauth.AuthResponse) error {
	if resp == nil {
		return newAuthFailure(http.StatusUnauthorized, "")
	}
	if !resp.Success {
		return newAuthFailure(http.StatusUnauthorized, resp.Message)
	}
	if resp.Data == nil {
		return apperrors.Internal("Authentication response did not include token data")
	}
	return nil
}
