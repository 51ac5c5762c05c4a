package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// RedactionMarker replaces token values in sanitised payloads.
const RedactionMarker = "[PROTECTED]"

type rawResponseKey struct{}

// WithRawResponse exempts requests made under ctx from response sanitisation. The gateway
// adapter uses it for the login and refresh calls whose tokens it must persist.
func WithRawResponse(ctx context.Context) context.Context {
	return context.WithValue(ctx, rawResponseKey{}, true)
}

func isRawResponse(ctx context.Context) bool {
	raw, _ := ctx.Value(rawResponseKey{}).(bool)
	return raw
}

// Sanitize redacts tokens and masks contact details in {success, data} envelopes.
// Outside production it is a no-op.
func Sanitize(production bool) Interceptor {
	return func(next http.RoundTripper) http.RoundTripper {
		if !production {
			return next
		}
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			resp, err := next.RoundTrip(r)
			if err != nil || resp == nil || isRawResponse(r.Context()) {
				return resp, err
			}
			body, err := io.ReadAll(resp.Body)
			_ = resp.Body.Close()
			if err != nil {
				return nil, fmt.Errorf("read response body: %w", err)
			}
			if sanitized, changed := SanitizePayload(body); changed {
				body = sanitized
				resp.Header.Del("Content-Length")
				resp.ContentLength = int64(len(body))
			}
			resp.Body = io.NopCloser(bytes.NewReader(body))
			return resp, nil
		})
	}
}

// SanitizePayload rewrites an auth envelope. It reports false, returning body unchanged,
// when body is not an envelope carrying tokens or user info.
func SanitizePayload(body []byte) ([]byte, bool) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var envelope map[string]any
	if err := dec.Decode(&envelope); err != nil {
		return body, false
	}
	if _, ok := envelope["success"]; !ok {
		return body, false
	}
	data, ok := envelope["data"].(map[string]any)
	if !ok {
		return body, false
	}

	changed := false
	for _, key := range []string{"accessToken", "refreshToken"} {
		if _, ok := data[key]; ok {
			data[key] = RedactionMarker
			changed = true
		}
	}
	if user, ok := data["userInfo"].(map[string]any); ok {
		changed = true
		if email, ok := user["email"].(string); ok && email != "" {
			user["email"] = MaskEmail(email)
		}
		if phone, ok := user["phone"].(string); ok && phone != "" {
			user["phone"] = MaskPhone(phone)
		}
	}
	if !changed {
		return body, false
	}

	var out bytes.Buffer
	enc := json.NewEncoder(&out)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(envelope); err != nil {
		return body, false
	}
	return bytes.TrimSuffix(out.Bytes(), []byte("\n")), true
}

// MaskEmail keeps the first three characters and the domain: "operator@utility.org" -> "ope***@utility.org".
func MaskEmail(email string) string {
	runes := []rune(email)
	prefix := string(runes[:min(3, len(runes))])
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return prefix + "***"
	}
	return prefix + "***@" + email[at+1:]
}

// MaskPhone keeps the last four characters: "+1 (555) 010-4477" -> "****4477".
func MaskPhone(phone string) string {
	runes := []rune(strings.TrimSpace(phone))
	return "****" + string(runes[max(0, len(runes)-4):])
}

