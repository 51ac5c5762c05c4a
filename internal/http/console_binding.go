package httpx

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ConsoleCookieName is the cookie that binds a browser to the console session.
const ConsoleCookieName = "aquaops_console"

// ConsoleBinding ties the process-wide session to the one browser that logged in.
// The secret lives only in memory: a restart, a rotation or a revoke unbinds every cookie.
type ConsoleBinding struct {
	mu     sync.Mutex
	secret string
	domain string
}

// ConsoleBindingOptions configures a ConsoleBinding.
type ConsoleBindingOptions struct {
	CookieDomain string
}

// NewConsoleBinding returns a binding with no bound browser.
func NewConsoleBinding(opts ConsoleBindingOptions) *ConsoleBinding {
	return &ConsoleBinding{domain: opts.CookieDomain}
}

// Issue rotates the secret and writes it as an HttpOnly, SameSite=Strict cookie.
// A nil binding issues nothing.
func (b *ConsoleBinding) Issue(w http.ResponseWriter, r *http.Request) {
	if b == nil {
		return
	}
	secret := uuid.NewString() + uuid.NewString()

	b.mu.Lock()
	b.secret = secret
	b.mu.Unlock()

	http.SetCookie(w, &http.Cookie{
		Name:     ConsoleCookieName,
		Value:    secret,
		Path:     "/",
		Domain:   b.domain,
		HttpOnly: true,
		Secure:   isSecureRequest(r),
		SameSite: http.SameSiteStrictMode,
	})
}

// Revoke unbinds the current browser and expires its cookie.
func (b *ConsoleBinding) Revoke(w http.ResponseWriter, r *http.Request) {
	if b == nil {
		return
	}
	b.mu.Lock()
	b.secret = ""
	b.mu.Unlock()

	http.SetCookie(w, &http.Cookie{
		Name:     ConsoleCookieName,
		Value:    "",
		Path:     "/",
		Domain:   b.domain,
		HttpOnly: true,
		Secure:   isSecureRequest(r),
		MaxAge:   -1,
		Expires:  time.Unix(0, 0).UTC(),
		SameSite: http.SameSiteStrictMode,
	})
}

// Bound reports whether r carries the cookie of the current secret.
func (b *ConsoleBinding) Bound(r *http.Request) bool {
	if b == nil {
		return false
	}
	c, err := r.Cookie(ConsoleCookieName)
	if err != nil || c.Value == "" {
		return false
	}
	b.mu.Lock()
	secret := b.secret
	b.mu.Unlock()
	if secret == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(c.Value), []byte(secret)) == 1
}

type boundKey struct{}

// BindConsole records on the request context whether the caller holds the console cookie.
func BindConsole(b *ConsoleBinding) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), boundKey{}, b.Bound(r))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IsConsoleBound reports whether BindConsole accepted the request's cookie.
// Requests that never passed BindConsole are not bound.
func IsConsoleBound(ctx context.Context) bool {
	bound, _ := ctx.Value(boundKey{}).(bool)
	return bound
}

func isSecureRequest(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	proto, _, _ := strings.Cut(r.Header.Get("X-Forwarded-Proto"), ",")
	return strings.EqualFold(strings.TrimSpace(proto), "https")
}
