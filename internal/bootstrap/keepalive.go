package bootstrap

import (
	"context"
	"errors"
	"log/slog"
)

// KeepaliveOptions contains dependencies for RunKeepalive.
type KeepaliveOptions struct {
	Session *Session // Required
	Logger  *slog.Logger
}

// RunKeepalive restores the stored session and keeps it refreshed until ctx is done.
// The refresh timer armed by Restore, Login and Refresh does the work; this loop only owns its lifetime.
func RunKeepalive(ctx context.Context, opts KeepaliveOptions) error {
	if opts.Session == nil || opts.Session.Auth == nil {
		return errors.New("keepalive requires a session")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "keepalive")

	if opts.Session.Auth.Restore(ctx) {
		delay, deadline, _ := opts.Session.Auth.NextRefresh()
		logger.InfoContext(ctx, "stored session resumed", "next_refresh_in", delay, "next_refresh_at", deadline)
	} else {
		logger.InfoContext(ctx, "no stored session; waiting for login")
	}

	<-ctx.Done()
	return nil
}
