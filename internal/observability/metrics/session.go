package metrics

import (
	"time"

	obserrors "github.com/target/aquaops-console/internal/observability/errors"
	"github.com/target/aquaops-console/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultNoop    = "noop"
)

// Session operations.
const (
	OpLogin   = "login"
	OpRefresh = "refresh"
	OpLogout  = "logout"
	OpRestore = "restore"
)

// SessionMetric captures one session lifecycle operation for metric emission.
type SessionMetric struct {
	Operation string
	Result    string
	Duration  time.Duration
	Err       error
}

// EmitSessionTransition emits standardised session lifecycle metrics.
func EmitSessionTransition(sink statsd.Sink, in SessionMetric) {
	if sink == nil {
		return
	}

	tags := map[string]string{
		"operation": in.Operation,
		"result":    in.Result,
	}

	if in.Err != nil && in.Result == ResultError {
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}

	sink.Count("session.transition", 1, tags)

	if in.Duration > 0 {
		sink.Timing("session.duration", in.Duration, CloneTags(tags))
	}
}

// EmitInFlight records the request pipeline's in-flight gauge.
func EmitInFlight(sink statsd.Sink, inFlight int64) {
	if sink == nil {
		return
	}
	sink.Gauge("pipeline.in_flight", float64(inFlight), nil)
}

// EmitGatewayResponse counts gateway responses by status class.
func EmitGatewayResponse(sink statsd.Sink, method string, status int, d time.Duration) {
	if sink == nil {
		return
	}
	tags := map[string]string{"method": method, "status_class": statusClass(status)}
	sink.Count("gateway.response", 1, tags)
	if d > 0 {
		sink.Timing("gateway.latency", d, CloneTags(tags))
	}
}

func statusClass(status int) string {
	switch {
	case status <= 0:
		return "network"
	case status < 300:
		return "2xx"
	case status < 400:
		return "3xx"
	case status < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

// CloneTags creates a shallow copy of a tag map.
func CloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
