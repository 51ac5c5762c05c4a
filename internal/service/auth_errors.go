package service

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	jmespath "github.com/jmespath-community/go-jmespath"
	apperrors "github.com/target/aquaops-console/internal/errors"
)

// StatusError is implemented by transport errors that carry a gateway response.
type StatusError interface {
	error
	HTTPStatus() int
	ResponseBody() []byte
}

// authFailure is the synthesised error for a login/refresh envelope with success=false.
type authFailure struct {
	status int
	body   []byte
}

func newAuthFailure(status int, message string) *authFailure {
	body, _ := json.Marshal(map[string]string{"message": message})
	return &authFailure{status: status, body: body}
}

func (e *authFailure) Error() string        { return fmt.Sprintf("authentication failed (status %d)", e.status) }
func (e *authFailure) HTTPStatus() int      { return e.status }
func (e *authFailure) ResponseBody() []byte { return e.body }

// messageExtractor pulls a display message out of a decoded error body.
type messageExtractor func(body any) string

// Ordered by priority. Only the first non-empty result is used.
var errorBodyExtractors = []messageExtractor{
	fieldExtractor("message"),
	fieldExtractor("error"),
	fieldExtractor("details"),
	rawStringExtractor,
}

func fieldExtractor(expr string) messageExtractor {
	if _, err := jmespath.Compile(expr); err != nil {
		panic(fmt.Sprintf("service: invalid error extractor %q: %v", expr, err))
	}
	return func(body any) string {
		if _, ok := body.(map[string]any); !ok {
			return ""
		}
		v, err := jmespath.Search(expr, body)
		if err != nil {
			return ""
		}
		s, _ := v.(string)
		return strings.TrimSpace(s)
	}
}

func rawStringExtractor(body any) string {
	s, _ := body.(string)
	return strings.TrimSpace(s)
}

var fallbackMessages = map[int]string{
	http.StatusUnauthorized:        "Invalid username or password",
	http.StatusForbidden:           "You do not have permission to access this resource",
	http.StatusNotFound:            "Authentication service not found",
	http.StatusInternalServerError: "Internal server error. Please try again later",
}

const networkFailureMessage = "Unable to connect to the server. Check your network connection"

func fallbackMessage(status int) string {
	if status == 0 {
		return networkFailureMessage
	}
	if msg, ok := fallbackMessages[status]; ok {
		return msg
	}
	return fmt.Sprintf("Unexpected error (status %d)", status)
}

// NormalizeAuthError turns any login/refresh error into an AppError carrying one displayable message.
// A body that is not JSON is used verbatim; only an empty body falls through to the status table.
func NormalizeAuthError(err error) *apperrors.AppError {
	if err == nil {
		return nil
	}

	status := 0
	var body []byte
	var se StatusError
	if errors.As(err, &se) {
		status = se.HTTPStatus()
		body = se.ResponseBody()
	} else {
		// Locally raised errors already carry their message.
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return appErr
		}
	}

	msg := ""
	if decoded, ok := decodeBody(body); ok {
		for _, extract := range errorBodyExtractors {
			if msg = extract(decoded); msg != "" {
				break
			}
		}
	}
	if msg == "" {
		msg = fallbackMessage(status)
	}
	return apperrors.FromStatus(status, msg, err)
}

// decodeBody returns the JSON value of body, or its trimmed text when body is not JSON.
func decodeBody(body []byte) (any, bool) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, false
	}
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return string(body), true
	}
	return v, true
}
