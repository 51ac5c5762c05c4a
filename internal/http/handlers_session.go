package httpx

import (
	"context"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	domainauth "github.com/target/aquaops-console/internal/domain/auth"
	"github.com/target/aquaops-console/internal/service"
)

// SessionService is the part of service.AuthService the console handlers drive.
type SessionService interface {
	State() domainauth.SessionState
	Paths() service.NavigationPaths
	Login(ctx context.Context, creds domainauth.Credentials) error
	Logout(ctx context.Context)
	NextRefresh() (time.Duration, time.Time, bool)
}

var _ SessionService = (*service.AuthService)(nil)

// SessionHandlers serves the login, logout and status endpoints.
// Only the browser bound through Binding sees or ends the session.
type SessionHandlers struct {
	Svc     SessionService
	Binding *ConsoleBinding
	Logger  *slog.Logger
}

func (h *SessionHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

type loginView struct {
	Authenticated bool   `json:"authenticated"`
	Loading       bool   `json:"loading"`
	Error         string `json:"error,omitempty"`
	ReturnURL     string `json:"returnUrl,omitempty"`
}

// LoginPage describes the login form state.
// GET /auth/login?returnUrl=<optional>.
func (h *SessionHandlers) LoginPage(w http.ResponseWriter, r *http.Request) {
	returnURL := safeRedirectPath(r.URL.Query().Get(service.ReturnURLParam))
	st := h.Svc.State()
	if !IsConsoleBound(r.Context()) && st.IsAuthenticated {
		WriteJSON(w, http.StatusOK, loginView{ReturnURL: returnURL})
		return
	}
	if st.IsAuthenticated {
		target := returnURL
		if target == "" {
			target = h.Svc.Paths().Welcome
		}
		http.Redirect(w, r, target, http.StatusSeeOther)
		return
	}
	WriteJSON(w, http.StatusOK, loginView{
		Loading:   st.Loading,
		Error:     st.Error,
		ReturnURL: returnURL,
	})
}

type loginRequest struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	RememberMe bool   `json:"rememberMe"`
	ReturnURL  string `json:"returnUrl"`
}

type loginResult struct {
	Redirect string           `json:"redirect"`
	User     *domainauth.User `json:"user"`
}

// Login authenticates the operator.
// POST /auth/login (JSON or form encoded).
func (h *SessionHandlers) Login(w http.ResponseWriter, r *http.Request) {
	asJSON := isJSONRequest(r)
	var in loginRequest
	if asJSON {
		if !DecodeJSON(w, r, &in) {
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_form", Message: "Request body is not a valid form"})
			return
		}
		in = loginRequest{
			Username:   r.PostForm.Get("username"),
			Password:   r.PostForm.Get("password"),
			RememberMe: r.PostForm.Get("rememberMe") == "true" || r.PostForm.Get("rememberMe") == "on",
			ReturnURL:  r.PostForm.Get(service.ReturnURLParam),
		}
	}
	if in.ReturnURL == "" {
		in.ReturnURL = r.URL.Query().Get(service.ReturnURLParam)
	}

	ctx, nav := WithNavigation(r.Context())
	err := h.Svc.Login(ctx, domainauth.Credentials{
		Username:   in.Username,
		Password:   in.Password,
		RememberMe: in.RememberMe,
	})
	if err != nil {
		WriteAppError(w, err)
		return
	}
	h.Binding.Issue(w, r)

	target := safeRedirectPath(in.ReturnURL)
	if target == "" {
		target = nav.Target()
	}
	if target == "" {
		target = h.Svc.Paths().Welcome
	}
	if asJSON {
		WriteJSON(w, http.StatusOK, loginResult{Redirect: target, User: h.Svc.State().User})
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// Logout ends the session. Callers that are not bound are sent to goodbye and the session is left alone.
// POST /auth/logout.
func (h *SessionHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	if !IsConsoleBound(r.Context()) {
		h.logger().WarnContext(r.Context(), "logout from unbound client ignored")
		http.Redirect(w, r, h.Svc.Paths().Goodbye, http.StatusSeeOther)
		return
	}

	ctx, nav := WithNavigation(r.Context())
	h.Svc.Logout(ctx)
	h.Binding.Revoke(w, r)

	target := nav.Target()
	if target == "" {
		target = h.Svc.Paths().Goodbye
	}
	h.logger().InfoContext(r.Context(), "console logout", "redirect", target)
	http.Redirect(w, r, target, http.StatusSeeOther)
}

type statusView struct {
	Authenticated bool             `json:"authenticated"`
	Phase         domainauth.Phase `json:"phase"`
	Loading       bool             `json:"loading"`
	Error         string           `json:"error,omitempty"`
	User          *domainauth.User `json:"user,omitempty"`
	NextRefreshAt *time.Time       `json:"nextRefreshAt,omitempty"`
	NextRefreshIn string           `json:"nextRefreshIn,omitempty"`
}

// Status reports the session without exposing tokens. Unbound callers see an anonymous session.
// GET /auth/status.
func (h *SessionHandlers) Status(w http.ResponseWriter, r *http.Request) {
	if !IsConsoleBound(r.Context()) {
		WriteJSON(w, http.StatusOK, statusView{Phase: domainauth.PhaseAnonymous})
		return
	}
	st := h.Svc.State()
	view := statusView{
		Authenticated: st.IsAuthenticated,
		Phase:         st.Phase,
		Loading:       st.Loading,
		Error:         st.Error,
		User:          st.User,
	}
	if delay, deadline, ok := h.Svc.NextRefresh(); ok {
		at := deadline.UTC()
		view.NextRefreshAt = &at
		view.NextRefreshIn = delay.String()
	}
	WriteJSON(w, http.StatusOK, view)
}

func isJSONRequest(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "application/json"
}

// safeRedirectPath returns candidate when it is a local absolute path, otherwise "".
func safeRedirectPath(candidate string) string {
	if candidate == "" {
		return ""
	}
	u, err := url.Parse(candidate)
	if err != nil || u.IsAbs() || u.Host != "" || !strings.HasPrefix(u.Path, "/") || strings.HasPrefix(candidate, "//") {
		return ""
	}
	return candidate
}
