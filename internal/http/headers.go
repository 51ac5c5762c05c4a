package httpx

import (
	"net/http"

	"github.com/google/uuid"
)

// Header names attached to outgoing gateway requests.
const (
	HeaderAuthorization  = "Authorization"
	HeaderOrganizationID = "X-Organization-Id"
	HeaderRequestID      = "X-Request-Id"
)

// BearerToken attaches the stored access token while it is still valid.
// Auth endpoints are sent untouched.
func BearerToken(tokens TokenSource, paths EndpointPaths) Interceptor {
	skip := paths.authEndpoints()
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			if tokens == nil || matchesEndpoint(r, skip) {
				return next.RoundTrip(r)
			}
			ctx := r.Context()
			if !tokens.HasValidToken(ctx) {
				return next.RoundTrip(r)
			}
			token := tokens.AccessToken(ctx)
			if token == "" {
				return next.RoundTrip(r)
			}
			r = r.Clone(ctx)
			r.Header.Set(HeaderAuthorization, "Bearer "+token)
			return next.RoundTrip(r)
		})
	}
}

// OrganizationHeader attaches the session user's organization id when known.
func OrganizationHeader(session OrganizationSource, paths EndpointPaths) Interceptor {
	skip := paths.authEndpoints()
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			if session == nil || matchesEndpoint(r, skip) {
				return next.RoundTrip(r)
			}
			org := session.OrganizationID()
			if org == "" {
				return next.RoundTrip(r)
			}
			r = r.Clone(r.Context())
			r.Header.Set(HeaderOrganizationID, org)
			return next.RoundTrip(r)
		})
	}
}

// RequestID sets X-Request-Id when the caller did not.
func RequestID() Interceptor {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			if r.Header.Get(HeaderRequestID) != "" {
				return next.RoundTrip(r)
			}
			r = r.Clone(r.Context())
			r.Header.Set(HeaderRequestID, uuid.NewString())
			return next.RoundTrip(r)
		})
	}
}
