package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	domainauth "github.com/target/aquaops-console/internal/domain/auth"
	"github.com/target/aquaops-console/internal/ports"
)

// UserCache mirrors the session user into durable storage under user_info for rehydration.
type UserCache struct {
	store  ports.KeyValueStore
	logger *slog.Logger
}

// NewUserCache constructs a UserCache. It panics if store is nil.
func NewUserCache(store ports.KeyValueStore, logger *slog.Logger) *UserCache {
	if store == nil {
		panic("service: UserCache requires a KeyValueStore")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &UserCache{store: store, logger: logger.With("component", "user_cache")}
}

// Save serialises u under user_info.
func (c *UserCache) Save(ctx context.Context, u *domainauth.User) error {
	if u == nil {
		return errors.New("user is required")
	}
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	if err := c.store.Set(ctx, domainauth.KeyUserInfo, string(data)); err != nil {
		return fmt.Errorf("store user info: %w", err)
	}
	return nil
}

// Load returns the cached user, or nil when absent or unreadable.
func (c *UserCache) Load(ctx context.Context) *domainauth.User {
	raw, err := c.store.Get(ctx, domainauth.KeyUserInfo)
	if err != nil {
		if !errors.Is(err, ports.ErrKeyNotFound) {
			c.logger.WarnContext(ctx, "user cache read failed", "error", err)
		}
		return nil
	}
	var u domainauth.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		c.logger.WarnContext(ctx, "discarding malformed cached user", "error", err)
		return nil
	}
	if u.UserID == "" {
		return nil
	}
	return &u
}

// Clear removes user_info.
func (c *UserCache) Clear(ctx context.Context) error {
	if err := c.store.Delete(ctx, domainauth.KeyUserInfo); err != nil {
		return fmt.Errorf("clear user info: %w", err)
	}
	return nil
}
