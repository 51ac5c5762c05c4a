package oidc

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/aquaops-console/internal/adapters/authroles"
	domainauth "github.com/target/aquaops-console/internal/domain/auth"
	"github.com/target/aquaops-console/internal/service"
	"golang.org/x/oauth2"
)

const testClientID = "aquaops-console"

// testIdP is a minimal OpenID provider: discovery, JWKS, token, userinfo and revocation.
type testIdP struct {
	*httptest.Server
	key *rsa.PrivateKey

	mu       sync.Mutex
	revoked  []string
	userinfo map[string]any
	idClaims jwt.MapClaims
}

func newTestIdP(t *testing.T) *testIdP {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	idp := &testIdP{key: key}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /.well-known/openid-configuration", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, DiscoveryDocument{
			Issuer:                idp.URL,
			AuthorizationEndpoint: idp.URL + "/auth",
			TokenEndpoint:         idp.URL + "/token",
			UserinfoEndpoint:      idp.URL + "/userinfo",
			JwksURI:               idp.URL + "/jwks",
			RevocationEndpoint:    idp.URL + "/revoke",
		})
	})
	mux.HandleFunc("GET /jwks", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"keys": []map[string]string{{
			"kty": "RSA",
			"kid": "k1",
			"alg": "RS256",
			"use": "sig",
			"n":   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
		}}})
	})
	mux.HandleFunc("POST /token", idp.token)
	mux.HandleFunc("GET /userinfo", func(w http.ResponseWriter, _ *http.Request) {
		idp.mu.Lock()
		defer idp.mu.Unlock()
		writeJSON(w, http.StatusOK, idp.userinfo)
	})
	mux.HandleFunc("POST /revoke", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		idp.mu.Lock()
		idp.revoked = append(idp.revoked, r.PostForm.Get("token"))
		idp.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	})

	idp.Server = httptest.NewServer(mux)
	t.Cleanup(idp.Close)

	idp.idClaims = jwt.MapClaims{
		"sub":                "sub-1",
		"preferred_username": "op",
		"email":              "operator@example.com",
		"given_name":         "Olive",
		"family_name":        "Operator",
		"groups":             []string{"operators", "unrelated"},
		"organization_id":    "org-7",
	}
	idp.userinfo = map[string]any{"sub": "sub-1"}
	return idp
}

func (idp *testIdP) signIDToken() (string, error) {
	idp.mu.Lock()
	claims := jwt.MapClaims{}
	for k, v := range idp.idClaims {
		claims[k] = v
	}
	idp.mu.Unlock()

	now := time.Now()
	claims["iss"] = idp.URL
	claims["aud"] = testClientID
	claims["iat"] = now.Unix()
	claims["exp"] = now.Add(time.Hour).Unix()

	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = "k1"
	return tok.SignedString(idp.key)
}

func (idp *testIdP) token(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_request"})
		return
	}
	switch r.PostForm.Get("grant_type") {
	case "password":
		switch {
		case r.PostForm.Get("username") == "boom":
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "temporarily_unavailable"})
		case r.PostForm.Get("username") != "op" || r.PostForm.Get("password") != "pw":
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error":             "invalid_grant",
				"error_description": "Invalid user credentials",
			})
		default:
			idToken, err := idp.signIDToken()
			if err != nil {
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "server_error"})
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{
				"access_token":  "at-1",
				"token_type":    "Bearer",
				"refresh_token": "rt-1",
				"expires_in":    3600,
				"id_token":      idToken,
			})
		}
	case "refresh_token":
		if r.PostForm.Get("refresh_token") != "rt-1" {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error":             "invalid_grant",
				"error_description": "Token is not active",
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"access_token":  "at-2",
			"token_type":    "Bearer",
			"refresh_token": "rt-2",
			"expires_in":    1800,
		})
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unsupported_grant_type"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func testRoles() authroles.StaticRoleMapper {
	return authroles.StaticRoleMapper{AdminGroup: "admins", OperatorGroup: "operators"}
}

func newTestProvider(t *testing.T, idp *testIdP) *Provider {
	t.Helper()
	p, err := NewProvider(context.Background(), ProviderConfig{
		ClientID:       testClientID,
		ClientSecret:   "secret",
		Scope:          "openid profile email groups offline_access",
		DiscoveryURL:   idp.URL + "/.well-known/openid-configuration",
		OrganizationID: "org-default",
		Roles:          testRoles(),
	})
	require.NoError(t, err)
	return p
}

func TestNewProvider_Discovery(t *testing.T) {
	idp := newTestIdP(t)
	p := newTestProvider(t, idp)

	assert.Equal(t, idp.URL+"/token", p.config.Endpoint.TokenURL)
	assert.Equal(t, idp.URL+"/revoke", p.logoutURL)
	assert.Equal(t, []string{"openid", "profile", "email", "groups", "offline_access"}, p.config.Scopes)
}

func TestNewProvider_ValidationErrors(t *testing.T) {
	tests := []struct {
		name   string
		config ProviderConfig
		errMsg string
	}{
		{
			name:   "missing client ID",
			config: ProviderConfig{DiscoveryURL: "http://example.com", Roles: testRoles()},
			errMsg: "client ID is required",
		},
		{
			name:   "missing discovery URL",
			config: ProviderConfig{ClientID: "client", Roles: testRoles()},
			errMsg: "discovery URL is required",
		},
		{
			name:   "missing role mapper",
			config: ProviderConfig{ClientID: "client", DiscoveryURL: "http://example.com"},
			errMsg: "role mapper is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewProvider(context.Background(), tt.config)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestProvider_LoginSuccess(t *testing.T) {
	idp := newTestIdP(t)
	p := newTestProvider(t, idp)

	resp, err := p.Login(context.Background(), domainauth.Credentials{Username: "op", Password: "pw"})
	require.NoError(t, err)
	require.True(t, resp.Success)
	require.NotNil(t, resp.Data)

	assert.Equal(t, "at-1", resp.Data.AccessToken)
	assert.Equal(t, "rt-1", resp.Data.RefreshToken)
	assert.Equal(t, "Bearer", resp.Data.TokenType)
	assert.InDelta(t, 3600, resp.Data.ExpiresIn, 5)

	u := resp.Data.UserInfo
	require.NotNil(t, u)
	assert.Equal(t, "sub-1", u.UserID)
	assert.Equal(t, "op", u.Username)
	assert.Equal(t, "operator@example.com", u.Email)
	assert.Equal(t, "Olive", u.FirstName)
	assert.Equal(t, "Operator", u.LastName)
	assert.Equal(t, "org-7", u.OrganizationID)
	assert.Equal(t, []domainauth.Role{domainauth.RoleOperator}, u.Roles)
}

func TestProvider_LoginFillsFromUserInfo(t *testing.T) {
	idp := newTestIdP(t)
	idp.idClaims = jwt.MapClaims{"sub": "sub-2"}
	idp.userinfo = map[string]any{
		"sub":      "sub-2",
		"mail":     "analyst@example.com",
		"memberof": []string{"admins"},
	}
	p := newTestProvider(t, idp)

	resp, err := p.Login(context.Background(), domainauth.Credentials{Username: "op", Password: "pw"})
	require.NoError(t, err)

	u := resp.Data.UserInfo
	require.NotNil(t, u)
	assert.Equal(t, "sub-2", u.UserID)
	assert.Equal(t, "op", u.Username, "falls back to the submitted username")
	assert.Equal(t, "analyst@example.com", u.Email)
	assert.Equal(t, "org-default", u.OrganizationID)
	assert.Equal(t, []domainauth.Role{domainauth.RoleAdmin}, u.Roles)
}

func TestProvider_LoginRejected(t *testing.T) {
	idp := newTestIdP(t)
	p := newTestProvider(t, idp)

	resp, err := p.Login(context.Background(), domainauth.Credentials{Username: "op", Password: "wrong"})
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Equal(t, "Invalid user credentials", resp.Message)
}

func TestProvider_LoginProviderError(t *testing.T) {
	idp := newTestIdP(t)
	p := newTestProvider(t, idp)

	_, err := p.Login(context.Background(), domainauth.Credentials{Username: "boom", Password: "pw"})
	require.Error(t, err)

	var te *TokenError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, http.StatusInternalServerError, te.HTTPStatus())

	appErr := service.NormalizeAuthError(err)
	assert.Equal(t, "temporarily_unavailable", appErr.Message)
}

func TestProvider_Refresh(t *testing.T) {
	idp := newTestIdP(t)
	p := newTestProvider(t, idp)

	resp, err := p.Refresh(context.Background(), "rt-1")
	require.NoError(t, err)
	require.True(t, resp.Success)
	assert.Equal(t, "at-2", resp.Data.AccessToken)
	assert.Equal(t, "rt-2", resp.Data.RefreshToken)
	assert.InDelta(t, 1800, resp.Data.ExpiresIn, 5)
	assert.Nil(t, resp.Data.UserInfo, "no id_token on refresh means no user")
}

func TestProvider_RefreshRejected(t *testing.T) {
	idp := newTestIdP(t)
	p := newTestProvider(t, idp)

	resp, err := p.Refresh(context.Background(), "stale")
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Equal(t, "Token is not active", resp.Message)

	_, err = p.Refresh(context.Background(), "")
	assert.Error(t, err)
}

func TestProvider_LogoutRevokes(t *testing.T) {
	idp := newTestIdP(t)
	p := newTestProvider(t, idp)

	require.NoError(t, p.Logout(context.Background(), "rt-1"))
	require.NoError(t, p.Logout(context.Background(), ""))
	require.NoError(t, p.MessagingLogout(context.Background()))

	idp.mu.Lock()
	defer idp.mu.Unlock()
	assert.Equal(t, []string{"rt-1"}, idp.revoked)
}

func TestGetIDTokenFromToken(t *testing.T) {
	tok := (&oauth2.Token{}).WithExtra(map[string]any{"id_token": "abc.def.ghi"})
	idTok, err := getIDTokenFromToken(tok)
	require.NoError(t, err)
	assert.Equal(t, "abc.def.ghi", idTok)

	_, err = getIDTokenFromToken((&oauth2.Token{}).WithExtra(map[string]any{"not_id": "x"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing id_token")

	_, err = getIDTokenFromToken(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nil token")
}

func Test_mapIDTokenClaims(t *testing.T) {
	tests := []struct {
		name   string
		claims idTokenClaims
		want   idFields
	}{
		{
			name: "standard claims",
			claims: idTokenClaims{
				Sub: "sub-1", PreferredUsername: "op", Email: "a@example.com",
				GivenName: "A", FamilyName: "B", Groups: []string{"operators"},
			},
			want: idFields{
				userID: "sub-1", username: "op", email: "a@example.com",
				givenName: "A", familyName: "B", groups: []string{"operators"},
			},
		},
		{
			name: "AD shape",
			claims: idTokenClaims{
				Sub: "sub-1", SamAccountName: "sammy", Mail: "mail@example.com",
				FirstName: "First", LastName: "Last", MemberOf: []string{"CN=admins"},
			},
			want: idFields{
				userID: "sammy", username: "sammy", email: "mail@example.com",
				givenName: "First", familyName: "Last", groups: []string{"CN=admins"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, mapIDTokenClaims(tt.claims))
		})
	}
}

func Test_fillFromClaims_KeepsExisting(t *testing.T) {
	f := idFields{userID: "keep", email: "keep@example.com", groups: []string{"x"}}
	fillFromClaims(&f, idFields{userID: "other", email: "other@example.com", givenName: "G", groups: []string{"y"}})

	assert.Equal(t, "keep", f.userID)
	assert.Equal(t, "keep@example.com", f.email)
	assert.Equal(t, "G", f.givenName)
	assert.Equal(t, []string{"x"}, f.groups)
}
