package httpx

import (
	"context"
	"net/http"
	"strings"

	"github.com/target/aquaops-console/internal/observability/statsd"
)

// Interceptor wraps a RoundTripper with one request/response transform.
type Interceptor func(next http.RoundTripper) http.RoundTripper

// RoundTripperFunc adapts a function to http.RoundTripper.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// Chain composes interceptors around base. The first interceptor sees the request first
// and the response last.
func Chain(base http.RoundTripper, interceptors ...Interceptor) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	rt := base
	for i := len(interceptors) - 1; i >= 0; i-- {
		if interceptors[i] != nil {
			rt = interceptors[i](rt)
		}
	}
	return rt
}

// TokenSource supplies the bearer token for outgoing requests.
type TokenSource interface {
	HasValidToken(ctx context.Context) bool
	AccessToken(ctx context.Context) string
}

// OrganizationSource supplies the current user's organization.
type OrganizationSource interface {
	OrganizationID() string
}

// EndpointPaths names the gateway endpoints the pipeline treats specially.
type EndpointPaths struct {
	Login    string
	Refresh  string
	Register string
	Audit    string
}

// DefaultEndpointPaths returns the gateway's standard auth and audit paths.
func DefaultEndpointPaths() EndpointPaths {
	return EndpointPaths{
		Login:    "/auth/login",
		Refresh:  "/auth/refresh",
		Register: "/auth/register",
		Audit:    "/audit/log",
	}
}

// authEndpoints never carry credentials or organization context.
func (p EndpointPaths) authEndpoints() []string {
	return []string{p.Login, p.Refresh, p.Register}
}

// quietEndpoints do not count towards the loading indicator.
func (p EndpointPaths) quietEndpoints() []string {
	return []string{p.Refresh, p.Audit}
}

// matchesEndpoint reports whether the request path ends with one of paths. Gateway base
// URLs carry their own prefix (for example /api), so only the suffix is compared.
func matchesEndpoint(r *http.Request, paths []string) bool {
	p := strings.TrimRight(r.URL.Path, "/")
	for _, candidate := range paths {
		if candidate != "" && strings.HasSuffix(p, candidate) {
			return true
		}
	}
	return false
}

// PipelineDeps groups the session collaborators read by the pipeline.
type PipelineDeps struct {
	Tokens  TokenSource        // Optional: nil disables bearer attachment
	Session OrganizationSource // Optional: nil disables the organization header
	Loading *LoadingTracker    // Optional
}

// PipelineConfig holds pipeline behaviour switches.
type PipelineConfig struct {
	Paths      EndpointPaths
	Production bool
	Metrics    statsd.Sink
}

// PipelineOptions groups dependencies for NewPipeline.
type PipelineOptions struct {
	Base   http.RoundTripper
	Deps   PipelineDeps
	Config PipelineConfig
}

// NewPipeline builds the outgoing gateway transport. The session stages run in a fixed order:
// loading indicator, bearer token, organization header, response sanitisation, error translation.
// Request ids and gateway metrics wrap the chain.
func NewPipeline(opts PipelineOptions) http.RoundTripper {
	paths := opts.Config.Paths
	if paths == (EndpointPaths{}) {
		paths = DefaultEndpointPaths()
	}
	return Chain(opts.Base,
		RequestID(),
		GatewayMetrics(opts.Config.Metrics),
		Loading(opts.Deps.Loading, paths),
		BearerToken(opts.Deps.Tokens, paths),
		OrganizationHeader(opts.Deps.Session, paths),
		Sanitize(opts.Config.Production),
		TranslateErrors(),
	)
}
