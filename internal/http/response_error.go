package httpx

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/target/aquaops-console/internal/observability/metrics"
	"github.com/target/aquaops-console/internal/observability/statsd"
)

// maxErrorBody caps how much of a failed response is retained.
const maxErrorBody = 64 << 10

// ResponseError is returned by the pipeline for every non-2xx gateway response.
type ResponseError struct {
	StatusCode int
	Body       []byte
	Header     http.Header
	Method     string
	URL        string
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("%s %s: status %d", e.Method, e.URL, e.StatusCode)
}

// HTTPStatus returns the gateway status code.
func (e *ResponseError) HTTPStatus() int { return e.StatusCode }

// ResponseBody returns the retained response body.
func (e *ResponseError) ResponseBody() []byte { return e.Body }

// TranslateErrors turns non-2xx responses into *ResponseError. The body is drained and closed.
// Transport errors pass through unchanged.
func TranslateErrors() Interceptor {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			resp, err := next.RoundTrip(r)
			if err != nil {
				return nil, err
			}
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				return resp, nil
			}
			defer resp.Body.Close()
			body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
			_, _ = io.Copy(io.Discard, resp.Body)
			rerr := &ResponseError{
				StatusCode: resp.StatusCode,
				Body:       body,
				Header:     resp.Header.Clone(),
				Method:     r.Method,
				URL:        r.URL.Redacted(),
			}
			if readErr != nil {
				return nil, errors.Join(rerr, fmt.Errorf("read error body: %w", readErr))
			}
			return nil, rerr
		})
	}
}

// GatewayMetrics counts gateway responses by status class and records latency.
func GatewayMetrics(sink statsd.Sink) Interceptor {
	return func(next http.RoundTripper) http.RoundTripper {
		if sink == nil {
			return next
		}
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			start := time.Now()
			resp, err := next.RoundTrip(r)
			status := 0
			var rerr *ResponseError
			switch {
			case resp != nil:
				status = resp.StatusCode
			case errors.As(err, &rerr):
				status = rerr.StatusCode
			}
			metrics.EmitGatewayResponse(sink, r.Method, status, time.Since(start))
			return resp, err
		})
	}
}
