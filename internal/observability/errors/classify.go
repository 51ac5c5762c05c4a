package errors

import (
	"context"
	goerrors "errors"
	"net"
	"reflect"
	"strconv"
	"strings"

	apperrors "github.com/target/aquaops-console/internal/errors"
)

// statusCarrier matches transport errors that expose the gateway status.
type statusCarrier interface {
	HTTPStatus() int
}

// Classify returns a low-cardinality error class suitable for tagging metrics/logs.
// Precedence: a gateway status ("http_401", "http_5xx"), context cancellation or timeout,
// an application error code, then the innermost concrete type name in snake_case.
func Classify(err error) string {
	if err == nil {
		return ""
	}

	var sc statusCarrier
	if goerrors.As(err, &sc) && sc.HTTPStatus() > 0 {
		return statusClass(sc.HTTPStatus())
	}

	switch {
	case goerrors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case goerrors.Is(err, context.Canceled):
		return "canceled"
	}
	var netErr net.Error
	if goerrors.As(err, &netErr) {
		if netErr.Timeout() {
			return "timeout"
		}
		return "network"
	}

	var appErr *apperrors.AppError
	if goerrors.As(err, &appErr) && appErr.Code != "" {
		return string(appErr.Code)
	}

	return typeName(err)
}

// statusClass keeps common auth statuses exact and buckets the rest.
func statusClass(status int) string {
	switch status {
	case 400, 401, 403, 404:
		return "http_" + strconv.Itoa(status)
	}
	return "http_" + strconv.Itoa(status/100) + "xx"
}

func typeName(err error) string {
	// Unwrap to the innermost error for better signal.
	for {
		unwrapped := goerrors.Unwrap(err)
		if unwrapped == nil {
			break
		}
		err = unwrapped
	}

	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return "unknown"
	}

	name := strings.ToLower(strings.ReplaceAll(t.String(), "*", ""))
	name = strings.ReplaceAll(name, ".", "_")
	if name == "" {
		return "unknown"
	}
	return name
}
