package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	domainauth "github.com/target/aquaops-console/internal/domain/auth"
	"github.com/target/aquaops-console/internal/ports"
)

// DefaultExpiringSoonWindow is the lead window used by IsTokenExpiringSoon.
const DefaultExpiringSoonWindow = 5 * time.Minute

// TokenStoreConfig holds optional tuning for TokenStore.
type TokenStoreConfig struct {
	Clock              TimeProvider
	ExpiringSoonWindow time.Duration
}

// TokenStoreOptions groups dependencies for TokenStore.
type TokenStoreOptions struct {
	Store  ports.KeyValueStore // Required
	Config TokenStoreConfig
	Logger *slog.Logger
}

// TokenStore persists the access/refresh token pair plus absolute expiry and answers validity queries.
type TokenStore struct {
	store  ports.KeyValueStore
	clock  TimeProvider
	window time.Duration
	logger *slog.Logger
}

// NewTokenStore constructs a TokenStore. It panics if Store is nil.
func NewTokenStore(opts TokenStoreOptions) *TokenStore {
	if opts.Store == nil {
		panic("service: TokenStore requires a KeyValueStore")
	}
	clock := opts.Config.Clock
	if clock == nil {
		clock = RealTimeProvider{}
	}
	window := opts.Config.ExpiringSoonWindow
	if window <= 0 {
		window = DefaultExpiringSoonWindow
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &TokenStore{
		store:  opts.Store,
		clock:  clock,
		window: window,
		logger: logger.With("component", "token_store"),
	}
}

// SetTokens writes both tokens and the absolute expiry (now + expiresIn seconds, epoch ms).
func (t *TokenStore) SetTokens(ctx context.Context, access, refresh string, expiresIn int64) error {
	expiry := t.clock.Now().Add(time.Duration(expiresIn) * time.Second)

	if err := t.store.Set(ctx, domainauth.KeyAccessToken, access); err != nil {
		return fmt.Errorf("store access token: %w", err)
	}
	if err := t.store.Set(ctx, domainauth.KeyRefreshToken, refresh); err != nil {
		return fmt.Errorf("store refresh token: %w", err)
	}
	if err := t.store.Set(ctx, domainauth.KeyTokenExpiry, strconv.FormatInt(expiry.UnixMilli(), 10)); err != nil {
		return fmt.Errorf("store token expiry: %w", err)
	}
	return nil
}

// AccessToken returns the stored access token, or "" when absent.
func (t *TokenStore) AccessToken(ctx context.Context) string {
	return t.get(ctx, domainauth.KeyAccessToken)
}

// RefreshToken returns the stored refresh token, or "" when absent.
func (t *TokenStore) RefreshToken(ctx context.Context) string {
	return t.get(ctx, domainauth.KeyRefreshToken)
}

// Expiry returns the stored absolute expiry.
func (t *TokenStore) Expiry(ctx context.Context) (time.Time, bool) {
	raw := t.get(ctx, domainauth.KeyTokenExpiry)
	if raw == "" {
		return time.Time{}, false
	}
	ms, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		t.logger.WarnContext(ctx, "ignoring malformed token expiry", "error", err)
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}

// Record returns the persisted token triple.
func (t *TokenStore) Record(ctx context.Context) domainauth.TokenRecord {
	expiry, _ := t.Expiry(ctx)
	return domainauth.TokenRecord{
		AccessToken:  t.AccessToken(ctx),
		RefreshToken: t.RefreshToken(ctx),
		ExpiresAt:    expiry,
	}
}

// HasValidToken reports whether an access token and expiry are stored and now < expiry.
func (t *TokenStore) HasValidToken(ctx context.Context) bool {
	if t.AccessToken(ctx) == "" {
		return false
	}
	expiry, ok := t.Expiry(ctx)
	if !ok {
		return false
	}
	return t.clock.Now().Before(expiry)
}

// IsTokenExpiringSoon reports whether no expiry is stored or expiry falls within the lead window.
func (t *TokenStore) IsTokenExpiringSoon(ctx context.Context) bool {
	expiry, ok := t.Expiry(ctx)
	if !ok {
		return true
	}
	return expiry.Sub(t.clock.Now()) < t.window
}

// Remaining returns the time until expiry, clamped at zero.
func (t *TokenStore) Remaining(ctx context.Context) time.Duration {
	expiry, ok := t.Expiry(ctx)
	if !ok {
		return 0
	}
	return domainauth.TokenRecord{ExpiresAt: expiry}.Remaining(t.clock.Now())
}

// RemainingTime returns whole seconds until expiry, floored at 0.
func (t *TokenStore) RemainingTime(ctx context.Context) int64 {
	return int64(t.Remaining(ctx) / time.Second)
}

// ClearTokens removes the three token keys.
func (t *TokenStore) ClearTokens(ctx context.Context) error {
	if err := t.store.Delete(ctx, domainauth.KeyAccessToken, domainauth.KeyRefreshToken, domainauth.KeyTokenExpiry); err != nil {
		return fmt.Errorf("clear tokens: %w", err)
	}
	return nil
}

func (t *TokenStore) get(ctx context.Context, key string) string {
	v, err := t.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ports.ErrKeyNotFound) {
			t.logger.WarnContext(ctx, "token store read failed", "key", key, "error", err)
		}
		return ""
	}
	return v
}

var segmentDecoder = jwt.NewParser(jwt.WithPaddingAllowed())

// DecodeToken returns the claims of the token's payload segment without verifying the signature.
// It returns nil for any malformed input.
func DecodeToken(token string) jwt.MapClaims {
	parts := strings.Split(token, ".")
	if len(parts) < 2 || parts[1] == "" {
		return nil
	}
	payload, err := segmentDecoder.DecodeSegment(parts[1])
	if err != nil {
		return nil
	}
	var claims jwt.MapClaims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil
	}
	return claims
}

// DecodeToken decodes token and logs (without surfacing) failures.
func (t *TokenStore) DecodeToken(ctx context.Context, token string) jwt.MapClaims {
	claims := DecodeToken(token)
	if claims == nil && token != "" {
		t.logger.DebugContext(ctx, "access token payload could not be decoded")
	}
	return claims
}
