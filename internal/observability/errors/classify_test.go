package errors

import (
	"context"
	goerrors "errors"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	apperrors "github.com/target/aquaops-console/internal/errors"
)

type statusErr struct{ status int }

func (e statusErr) Error() string   { return fmt.Sprintf("status %d", e.status) }
func (e statusErr) HTTPStatus() int { return e.status }

type customErr struct{}

func (*customErr) Error() string { return "custom" }

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: ""},
		{name: "unauthorized status", err: statusErr{status: 401}, want: "http_401"},
		{name: "wrapped status", err: fmt.Errorf("login: %w", statusErr{status: 403}), want: "http_403"},
		{name: "server error bucket", err: statusErr{status: 503}, want: "http_5xx"},
		{name: "other client error bucket", err: statusErr{status: 429}, want: "http_4xx"},
		{name: "deadline", err: fmt.Errorf("refresh: %w", context.DeadlineExceeded), want: "timeout"},
		{name: "canceled", err: context.Canceled, want: "canceled"},
		{name: "dial failure", err: &net.OpError{Op: "dial", Err: goerrors.New("connection refused")}, want: "network"},
		{name: "app error code", err: apperrors.Unauthorized("No refresh token available"), want: "unauthorized"},
		{
			name: "app error wrapping status prefers status",
			err:  apperrors.FromStatus(401, "Invalid username or password", statusErr{status: 401}),
			want: "http_401",
		},
		{name: "type name fallback", err: fmt.Errorf("wrap: %w", &customErr{}), want: "errors_customerr"},
		{name: "plain errors.New", err: goerrors.New("x"), want: "errors_errorstring"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}
