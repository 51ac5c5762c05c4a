package service

import (
	"context"
	"net/url"

	domainauth "github.com/target/aquaops-console/internal/domain/auth"
)

// ReturnURLParam is the login query parameter carrying the originally requested path.
const ReturnURLParam = "returnUrl"

// RouteRequest is a navigation attempt to a protected view.
type RouteRequest struct {
	// Path is matched against the role selector; it carries no query string.
	Path string
	// ReturnTo is sent back as returnUrl when the caller must log in. Defaults to Path.
	ReturnTo      string
	RequiredRoles []domainauth.Role

	// Anonymous marks a caller that does not own the session, whatever its state.
	Anonymous bool
}

// Decision is the guard verdict. Redirect is set whenever Allow is false.
type Decision struct {
	Allow    bool
	Redirect string
}

// sessionReader is the subset of SessionHolder the guard reads.
type sessionReader interface {
	Snapshot() domainauth.SessionState
}

// logoutFunc performs the forced logout for corrupted sessions.
type logoutFunc func(ctx context.Context)

// RouteGuard decides whether a view may be activated.
type RouteGuard struct {
	state        sessionReader
	logout       logoutFunc
	loginPath    string
	roleSelector string
}

// NewRouteGuard builds a guard over the auth service's session and navigation paths.
func NewRouteGuard(auth *AuthService) *RouteGuard {
	if auth == nil {
		panic("service: RouteGuard requires an AuthService")
	}
	paths := auth.Paths()
	return &RouteGuard{
		state:        auth.state,
		logout:       auth.Logout,
		loginPath:    paths.Login,
		roleSelector: paths.RoleSelector,
	}
}

// Check evaluates req against the current session:
//  1. the role selector is always allowed;
//  2. anonymous callers go to login with the requested path as returnUrl;
//  3. no required roles means allow;
//  4. holding none of the required roles sends users with some role to the role selector,
//     and users with no roles at all through a forced logout to login;
//  5. otherwise allow.
func (g *RouteGuard) Check(ctx context.Context, req RouteRequest) Decision {
	if req.Path == g.roleSelector {
		return Decision{Allow: true}
	}

	st := g.state.Snapshot()
	if req.Anonymous || !st.IsAuthenticated || st.User == nil {
		returnTo := req.ReturnTo
		if returnTo == "" {
			returnTo = req.Path
		}
		return Decision{Redirect: g.loginRedirect(returnTo)}
	}

	if len(req.RequiredRoles) == 0 {
		return Decision{Allow: true}
	}

	if !st.User.HasAnyRole(req.RequiredRoles...) {
		if len(st.User.Roles) > 0 {
			return Decision{Redirect: g.roleSelector}
		}
		g.logout(ctx)
		return Decision{Redirect: g.loginPath}
	}

	return Decision{Allow: true}
}

func (g *RouteGuard) loginRedirect(returnTo string) string {
	if returnTo == "" {
		return g.loginPath
	}
	q := url.Values{}
	q.Set(ReturnURLParam, returnTo)
	return g.loginPath + "?" + q.Encode()
}
