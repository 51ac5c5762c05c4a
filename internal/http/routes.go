package httpx

import (
	"log/slog"
	"net/http"
	"strings"
)

// RouterServices holds everything the console router serves.
type RouterServices struct {
	Auth   SessionService // Required
	Guard  RouteChecker   // Required
	Proxy  http.Handler   // Optional: gateway forwarding under /api/

	// Binding ties the session to the browser that logged in. Defaults to a fresh binding.
	Binding *ConsoleBinding
	Logger  *slog.Logger
}

// NewRouter wires the console routes behind request id, audit context, logging and panic recovery.
func NewRouter(services RouterServices) http.Handler {
	if services.Auth == nil || services.Guard == nil {
		panic("httpx: router requires Auth and Guard")
	}
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}

	binding := services.Binding
	if binding == nil {
		binding = NewConsoleBinding(ConsoleBindingOptions{})
	}

	mux := http.NewServeMux()
	paths := services.Auth.Paths()
	session := &SessionHandlers{Svc: services.Auth, Binding: binding, Logger: logger}
	console := &ConsoleHandlers{Svc: services.Auth}
	authenticated := RequireRoute(services.Guard)

	mux.Handle("GET /healthz", healthHandler(services.Auth.State))
	mux.Handle("HEAD /healthz", healthHandler(services.Auth.State))

	mux.HandleFunc("GET "+paths.Login, session.LoginPage)
	mux.HandleFunc("POST "+paths.Login, session.Login)
	mux.HandleFunc("POST /auth/logout", session.Logout)
	mux.HandleFunc("GET /auth/status", session.Status)

	mux.HandleFunc("GET "+paths.Goodbye, console.Goodbye)
	mux.Handle("GET "+paths.Welcome, authenticated(http.HandlerFunc(console.Welcome)))
	mux.Handle("GET "+paths.RoleSelector, RequireRoute(services.Guard)(http.HandlerFunc(console.RoleSelector)))
	mux.Handle("GET /profile", authenticated(http.HandlerFunc(console.Profile)))

	for _, area := range FeatureAreas() {
		pattern := "GET " + area.Path
		if strings.HasSuffix(area.Path, "/") {
			pattern += "{rest...}"
		}
		mux.Handle(pattern, RequireRoute(services.Guard, area.Roles...)(console.Area(area)))
	}

	if services.Proxy != nil {
		mux.Handle("/api/", authenticated(http.StripPrefix("/api", services.Proxy)))
	}

	var handler http.Handler = mux
	handler = BindConsole(binding)(handler)
	handler = AuditContext()(handler)
	handler = Logging(logger)(handler)
	handler = Recover(logger)(handler)
	handler = InboundRequestID()(handler)
	return handler
}
