package oidc

// Package oidc implements ports.Gateway against an OpenID Connect identity provider
// using the resource-owner password grant.

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	domainauth "github.com/target/aquaops-console/internal/domain/auth"
	"github.com/target/aquaops-console/internal/ports"
	"golang.org/x/oauth2"
)

// defaultTokenLifetime is assumed when the token response carries no expiry.
const defaultTokenLifetime = time.Hour

// Provider implements the Gateway interface using OIDC/OAuth2.
type Provider struct {
	config         *oauth2.Config
	logoutURL      string
	httpClient     *http.Client
	roles          ports.RoleMapper
	organizationID string
	now            func() time.Time
	logger         *slog.Logger

	// go-oidc provider and verifier
	oidcProvider *gooidc.Provider
	verifier     *gooidc.IDTokenVerifier
}

var _ ports.Gateway = (*Provider)(nil)

// ProviderConfig holds configuration for the OIDC provider.
type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	Scope        string
	DiscoveryURL string
	// LogoutURL overrides the discovered revocation endpoint used on logout.
	LogoutURL string
	// OrganizationID is used when the id_token carries no organization claim.
	OrganizationID string
	Roles          ports.RoleMapper // Required
	HTTPClient     *http.Client     // Optional, defaults to a 30s client
	Logger         *slog.Logger
}

// DiscoveryDocument represents the OIDC discovery document.
type DiscoveryDocument struct {
	Issuer                string `json:"issuer"`
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
	UserinfoEndpoint      string `json:"userinfo_endpoint"`
	JwksURI               string `json:"jwks_uri"`
	RevocationEndpoint    string `json:"revocation_endpoint,omitempty"`
}

// NewProvider creates a new OIDC provider. Discovery runs once, bounded by ctx.
func NewProvider(ctx context.Context, config ProviderConfig) (*Provider, error) {
	if config.ClientID == "" {
		return nil, errors.New("client ID is required")
	}
	if config.DiscoveryURL == "" {
		return nil, errors.New("discovery URL is required")
	}
	if config.Roles == nil {
		return nil, errors.New("role mapper is required")
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	p := &Provider{
		logoutURL:      config.LogoutURL,
		httpClient:     httpClient,
		roles:          config.Roles,
		organizationID: config.OrganizationID,
		now:            time.Now,
		logger:         logger.With("component", "oidc_gateway"),
	}

	// Initialize go-oidc provider and verifier (single discovery fetch)
	issuer := strings.TrimSuffix(config.DiscoveryURL, "/")
	issuer = strings.TrimSuffix(issuer, "/.well-known/openid-configuration")
	op, err := gooidc.NewProvider(p.clientContext(ctx), issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc new provider: %w", err)
	}
	p.oidcProvider = op
	p.verifier = op.Verifier(&gooidc.Config{ClientID: config.ClientID})

	if p.logoutURL == "" {
		var extra struct {
			Revocation string `json:"revocation_endpoint"`
		}
		if claimsErr := op.Claims(&extra); claimsErr == nil {
			p.logoutURL = extra.Revocation
		}
	}

	p.config = &oauth2.Config{
		ClientID:     config.ClientID,
		ClientSecret: config.ClientSecret,
		Scopes:       strings.Fields(config.Scope),
		Endpoint:     op.Endpoint(),
	}

	return p, nil
}

func (p *Provider) clientContext(ctx context.Context) context.Context {
	return gooidc.ClientContext(ctx, p.httpClient)
}

// Login runs the password grant. Rejected credentials come back as an unsuccessful envelope
// carrying the provider's description; other provider errors are returned as errors.
func (p *Provider) Login(ctx context.Context, creds domainauth.Credentials) (*domainauth.AuthResponse, error) {
	tok, err := p.config.PasswordCredentialsToken(p.clientContext(ctx), creds.Username, creds.Password)
	if err != nil {
		if msg, rejected := rejectedGrant(err); rejected {
			return &domainauth.AuthResponse{Success: false, Message: msg}, nil
		}
		return nil, tokenFailure("password grant", err)
	}

	user, err := p.identity(ctx, tok)
	if err != nil {
		return nil, err
	}
	if user.Username == "" {
		user.Username = creds.Username
	}
	return p.envelope(tok, user), nil
}

// Refresh exchanges refreshToken at the token endpoint. The user is returned when the
// provider re-issues an id_token.
func (p *Provider) Refresh(ctx context.Context, refreshToken string) (*domainauth.AuthResponse, error) {
	if refreshToken == "" {
		return nil, errors.New("refresh token is required")
	}
	src := p.config.TokenSource(p.clientContext(ctx), &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		if msg, rejected := rejectedGrant(err); rejected {
			return &domainauth.AuthResponse{Success: false, Message: msg}, nil
		}
		return nil, tokenFailure("refresh grant", err)
	}

	var user *domainauth.User
	if _, ok := tok.Extra("id_token").(string); ok {
		u, idErr := p.identity(ctx, tok)
		if idErr != nil {
			return nil, idErr
		}
		user = u
	}
	return p.envelope(tok, user), nil
}

// Logout revokes refreshToken at the revocation endpoint, when one is known.
func (p *Provider) Logout(ctx context.Context, refreshToken string) error {
	if p.logoutURL == "" || refreshToken == "" {
		return nil
	}
	form := url.Values{}
	form.Set("token", refreshToken)
	form.Set("token_type_hint", "refresh_token")
	form.Set("client_id", p.config.ClientID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.logoutURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build revocation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if p.config.ClientSecret != "" {
		req.SetBasicAuth(url.QueryEscape(p.config.ClientID), url.QueryEscape(p.config.ClientSecret))
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("revoke refresh token: status %d", resp.StatusCode)
	}
	return nil
}

// MessagingLogout is a no-op: identity providers hold no messaging session.
func (p *Provider) MessagingLogout(context.Context) error {
	return nil
}

func (p *Provider) envelope(tok *oauth2.Token, user *domainauth.User) *domainauth.AuthResponse {
	expiresIn := int64(defaultTokenLifetime / time.Second)
	if !tok.Expiry.IsZero() {
		expiresIn = max(int64(tok.Expiry.Sub(p.now())/time.Second), 0)
	}
	tokenType := tok.Type()
	return &domainauth.AuthResponse{
		Success: true,
		Data: &domainauth.AuthData{
			AccessToken:  tok.AccessToken,
			RefreshToken: tok.RefreshToken,
			TokenType:    tokenType,
			ExpiresIn:    expiresIn,
			UserInfo:     user,
		},
		Timestamp: p.now().UTC().Format(time.RFC3339),
	}
}

// identity verifies the id_token and fills gaps from the userinfo endpoint.
func (p *Provider) identity(ctx context.Context, tok *oauth2.Token) (*domainauth.User, error) {
	var f idFields
	if p.hasOpenIDScope() {
		rawID, err := getIDTokenFromToken(tok)
		if err != nil {
			return nil, err
		}
		idTok, err := p.verifier.Verify(p.clientContext(ctx), rawID)
		if err != nil {
			return nil, fmt.Errorf("verify id_token: %w", err)
		}
		var claims idTokenClaims
		if claimsErr := idTok.Claims(&claims); claimsErr != nil {
			return nil, fmt.Errorf("parse id_token claims: %w", claimsErr)
		}
		f = mapIDTokenClaims(claims)
	}

	if f.userID == "" || f.email == "" {
		ui, err := p.oidcProvider.UserInfo(p.clientContext(ctx), oauth2.StaticTokenSource(tok))
		if err != nil {
			if f.userID == "" {
				return nil, fmt.Errorf("fetch user info: %w", err)
			}
			p.logger.WarnContext(ctx, "userinfo lookup failed; using id_token claims only", "error", err)
		} else {
			var claims idTokenClaims
			if claimsErr := ui.Claims(&claims); claimsErr != nil {
				return nil, fmt.Errorf("decode user info: %w", claimsErr)
			}
			fillFromClaims(&f, mapIDTokenClaims(claims))
		}
	}

	if f.organizationID == "" {
		f.organizationID = p.organizationID
	}
	return &domainauth.User{
		UserID:         f.userID,
		Username:       f.username,
		Email:          f.email,
		FirstName:      f.givenName,
		LastName:       f.familyName,
		OrganizationID: f.organizationID,
		Roles:          p.roles.Map(f.groups),
		LastLogin:      p.now().UTC(),
	}, nil
}

type idFields struct {
	userID         string
	username       string
	email          string
	givenName      string
	familyName     string
	organizationID string
	groups         []string
}

// idTokenClaims is a superset of standard OIDC and AD/ADFS claim shapes.
type idTokenClaims struct {
	Sub               string   `json:"sub"`
	PreferredUsername string   `json:"preferred_username"`
	SamAccountName    string   `json:"samaccountname"`
	GivenName         string   `json:"given_name"`
	FamilyName        string   `json:"family_name"`
	FirstName         string   `json:"firstname"`
	LastName          string   `json:"lastname"`
	Email             string   `json:"email"`
	Mail              string   `json:"mail"`
	Groups            []string `json:"groups"`
	MemberOf          []string `json:"memberof"`
	OrganizationID    string   `json:"organization_id"`
}

// mapIDTokenClaims maps raw claims into idFields, preferring standard claims over AD ones.
func mapIDTokenClaims(c idTokenClaims) idFields {
	groups := c.Groups
	if len(groups) == 0 {
		groups = c.MemberOf
	}
	return idFields{
		userID:         firstNonEmpty(c.SamAccountName, c.Sub),
		username:       firstNonEmpty(c.PreferredUsername, c.SamAccountName),
		email:          firstNonEmpty(c.Email, c.Mail),
		givenName:      firstNonEmpty(c.GivenName, c.FirstName),
		familyName:     firstNonEmpty(c.FamilyName, c.LastName),
		organizationID: c.OrganizationID,
		groups:         groups,
	}
}

// fillFromClaims fills only the fields f is missing.
func fillFromClaims(f *idFields, src idFields) {
	f.userID = firstNonEmpty(f.userID, src.userID)
	f.username = firstNonEmpty(f.username, src.username)
	f.email = firstNonEmpty(f.email, src.email)
	f.givenName = firstNonEmpty(f.givenName, src.givenName)
	f.familyName = firstNonEmpty(f.familyName, src.familyName)
	f.organizationID = firstNonEmpty(f.organizationID, src.organizationID)
	if len(f.groups) == 0 {
		f.groups = src.groups
	}
}

// firstNonEmpty returns the first non-empty string from vals, or empty string if none.
func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// hasOpenIDScope reports whether the configured scopes include "openid".
func (p *Provider) hasOpenIDScope() bool {
	for _, sc := range p.config.Scopes {
		if sc == "openid" {
			return true
		}
	}
	return false
}

// getIDTokenFromToken extracts the id_token from oauth2.Token.
func getIDTokenFromToken(tok *oauth2.Token) (string, error) {
	if tok == nil {
		return "", errors.New("nil token")
	}
	raw := tok.Extra("id_token")
	s, ok := raw.(string)
	if !ok || s == "" {
		return "", errors.New("missing id_token in token response")
	}
	return s, nil
}

// rejectedGrant reports whether err is the provider refusing the credentials or refresh token.
func rejectedGrant(err error) (string, bool) {
	var re *oauth2.RetrieveError
	if !errors.As(err, &re) || re.ErrorCode != "invalid_grant" {
		return "", false
	}
	return re.ErrorDescription, true
}

// TokenError carries a token endpoint failure with its HTTP status and body.
type TokenError struct {
	op     string
	status int
	body   []byte
	err    error
}

func tokenFailure(op string, err error) error {
	te := &TokenError{op: op, err: err}
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		te.body = re.Body
		if re.Response != nil {
			te.status = re.Response.StatusCode
		}
	}
	return te
}

func (e *TokenError) Error() string        { return fmt.Sprintf("oidc %s: %v", e.op, e.err) }
func (e *TokenError) Unwrap() error        { return e.err }
func (e *TokenError) HTTPStatus() int      { return e.status }
func (e *TokenError) ResponseBody() []byte { return e.body }
