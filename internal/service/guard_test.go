package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	domainauth "github.com/target/aquaops-console/internal/domain/auth"
)

func TestRouteGuard_Check(t *testing.T) {
	tests := []struct {
		name       string
		loggedIn   bool
		roles      []domainauth.Role
		req        RouteRequest
		want       Decision
		wantLogout bool
	}{
		{
			name: "role selector always allowed",
			req:  RouteRequest{Path: "/role-selector", RequiredRoles: []domainauth.Role{domainauth.RoleAdmin}},
			want: Decision{Allow: true},
		},
		{
			name: "role selector with query string allowed",
			req: RouteRequest{
				Path:      "/role-selector",
				ReturnTo:  "/role-selector?from=zones",
				Anonymous: true,
			},
			want: Decision{Allow: true},
		},
		{
			name:     "caller without the session treated as anonymous",
			loggedIn: true,
			roles:    []domainauth.Role{domainauth.RoleOperator},
			req:      RouteRequest{Path: "/zones/north", ReturnTo: "/zones/north?tab=pumps", Anonymous: true},
			want:     Decision{Redirect: "/auth/login?returnUrl=%2Fzones%2Fnorth%3Ftab%3Dpumps"},
		},
		{
			name: "anonymous redirected with return url",
			req:  RouteRequest{Path: "/monitoring/flow?zone=north"},
			want: Decision{Redirect: "/auth/login?returnUrl=%2Fmonitoring%2Fflow%3Fzone%3Dnorth"},
		},
		{
			name:     "no required roles",
			loggedIn: true,
			roles:    []domainauth.Role{domainauth.RoleClient},
			req:      RouteRequest{Path: "/profile"},
			want:     Decision{Allow: true},
		},
		{
			name:     "missing role goes to selector",
			loggedIn: true,
			roles:    []domainauth.Role{domainauth.RoleClient},
			req:      RouteRequest{Path: "/admin/users", RequiredRoles: []domainauth.Role{domainauth.RoleAdmin}},
			want:     Decision{Redirect: "/role-selector"},
		},
		{
			name:       "roleless user is logged out",
			loggedIn:   true,
			roles:      []domainauth.Role{},
			req:        RouteRequest{Path: "/admin/users", RequiredRoles: []domainauth.Role{domainauth.RoleAdmin}},
			want:       Decision{Redirect: "/auth/login"},
			wantLogout: true,
		},
		{
			name:     "any matching role allows",
			loggedIn: true,
			roles:    []domainauth.Role{domainauth.RoleAnalyst},
			req: RouteRequest{
				Path:          "/reports",
				RequiredRoles: []domainauth.Role{domainauth.RoleAdmin, domainauth.RoleAnalyst},
			},
			want: Decision{Allow: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newAuthHarness(t)
			if tt.loggedIn {
				h.gw.User.Roles = tt.roles
				h.login(t)
			}
			navBefore := len(h.nav.Paths())

			got := NewRouteGuard(h.svc).Check(context.Background(), tt.req)

			assert.Equal(t, tt.want, got)
			if tt.wantLogout {
				assert.False(t, h.svc.State().IsAuthenticated)
				assert.Equal(t, "/goodbye", h.nav.Last())
			} else {
				assert.Len(t, h.nav.Paths(), navBefore)
			}
		})
	}
}

func TestNewRouteGuard_PanicsWithoutService(t *testing.T) {
	assert.Panics(t, func() { NewRouteGuard(nil) })
}
