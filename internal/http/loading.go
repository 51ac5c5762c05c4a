package httpx

import (
	"net/http"
	"strings"
	"sync"

	"github.com/target/aquaops-console/internal/observability/metrics"
	"github.com/target/aquaops-console/internal/observability/statsd"
)

// SkipLoadingHeader opts a request out of the loading indicator. It is stripped before sending.
const SkipLoadingHeader = "skip-loading"

// LoadingTrackerOptions configures a LoadingTracker.
type LoadingTrackerOptions struct {
	// OnChange is called with the new busy flag on every 0<->1 transition.
	OnChange func(busy bool)
	Metrics  statsd.Sink
}

// LoadingTracker counts in-flight gateway requests and exposes a busy flag.
type LoadingTracker struct {
	mu       sync.Mutex
	inFlight int64
	busy     bool
	onChange func(bool)
	metrics  statsd.Sink
}

// NewLoadingTracker creates an idle tracker.
func NewLoadingTracker(opts LoadingTrackerOptions) *LoadingTracker {
	return &LoadingTracker{onChange: opts.OnChange, metrics: opts.Metrics}
}

// Busy reports whether any tracked request is in flight.
func (l *LoadingTracker) Busy() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.busy
}

// InFlight returns the number of tracked requests in flight.
func (l *LoadingTracker) InFlight() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inFlight
}

func (l *LoadingTracker) begin() {
	l.adjust(1)
}

func (l *LoadingTracker) end() {
	l.adjust(-1)
}

func (l *LoadingTracker) adjust(delta int64) {
	l.mu.Lock()
	l.inFlight = max(l.inFlight+delta, 0)
	n := l.inFlight
	changed := l.busy != (n > 0)
	l.busy = n > 0
	busy := l.busy
	l.mu.Unlock()

	metrics.EmitInFlight(l.metrics, n)
	if changed && l.onChange != nil {
		l.onChange(busy)
	}
}

// Loading counts every request except opted-out ones and the refresh/audit endpoints.
// The count is released when the round trip returns, whatever its outcome.
func Loading(tracker *LoadingTracker, paths EndpointPaths) Interceptor {
	quiet := paths.quietEndpoints()
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			skip := strings.EqualFold(strings.TrimSpace(r.Header.Get(SkipLoadingHeader)), "true")
			if r.Header.Get(SkipLoadingHeader) != "" {
				r = r.Clone(r.Context())
				r.Header.Del(SkipLoadingHeader)
			}
			if tracker == nil || skip || matchesEndpoint(r, quiet) {
				return next.RoundTrip(r)
			}

			tracker.begin()
			defer tracker.end()
			return next.RoundTrip(r)
		})
	}
}
