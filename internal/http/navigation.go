package httpx

import (
	"context"
	"log/slog"
	"sync"

	"github.com/target/aquaops-console/internal/ports"
)

type navigationKey struct{}

// NavigationRecorder captures the navigation requested while serving one HTTP request.
type NavigationRecorder struct {
	mu     sync.Mutex
	target string
}

// Target returns the last requested destination, or "".
func (n *NavigationRecorder) Target() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.target
}

func (n *NavigationRecorder) set(path string) {
	n.mu.Lock()
	n.target = path
	n.mu.Unlock()
}

// WithNavigation returns a context whose navigations are captured by the returned recorder.
func WithNavigation(ctx context.Context) (context.Context, *NavigationRecorder) {
	rec := &NavigationRecorder{}
	return context.WithValue(ctx, navigationKey{}, rec), rec
}

// ContextNavigator turns navigation side effects into redirects of the request in ctx.
// Navigations with no request behind them (timer-driven logout) are only logged.
type ContextNavigator struct {
	Logger *slog.Logger
}

var _ ports.Navigator = ContextNavigator{}

func (c ContextNavigator) Navigate(ctx context.Context, path string) {
	if rec, ok := ctx.Value(navigationKey{}).(*NavigationRecorder); ok {
		rec.set(path)
		return
	}
	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "navigation outside a request", "path", path)
}
