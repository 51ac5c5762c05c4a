package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
)

// GatewayProxyOptions configures NewGatewayProxy.
type GatewayProxyOptions struct {
	Target    *url.URL          // Required
	Transport http.RoundTripper // Usually the session pipeline
	Logger    *slog.Logger
}

// NewGatewayProxy forwards console /api requests to the gateway through the session pipeline.
// The inbound prefix must already be stripped. Inbound credentials are dropped so the session's
// own bearer token is the only one sent.
func NewGatewayProxy(opts GatewayProxyOptions) *httputil.ReverseProxy {
	if opts.Target == nil {
		panic("httpx: gateway proxy requires a target URL")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	target := opts.Target
	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.SetXForwarded()
			pr.Out.Header.Del(HeaderAuthorization)
			pr.Out.Header.Del("Cookie")
		},
		Transport: opts.Transport,
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			var rerr *ResponseError
			switch {
			case errors.As(err, &rerr):
				if ct := rerr.Header.Get("Content-Type"); ct != "" {
					w.Header().Set("Content-Type", ct)
				}
				w.WriteHeader(rerr.StatusCode)
				_, _ = w.Write(rerr.Body)
			case errors.Is(err, context.Canceled):
				logger.DebugContext(r.Context(), "proxy request cancelled", "path", r.URL.Path)
			default:
				logger.WarnContext(r.Context(), "gateway unreachable", "path", r.URL.Path, "error", err)
				WriteError(w, ErrorParams{
					Code:    http.StatusBadGateway,
					ErrCode: "network",
					Message: "Unable to connect to the server. Check your network connection",
				})
			}
		},
	}
}
