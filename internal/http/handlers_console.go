package httpx

import (
	"net/http"

	domainauth "github.com/target/aquaops-console/internal/domain/auth"
)

// FeatureArea is a role-gated section of the console.
type FeatureArea struct {
	Name  string            `json:"name"`
	Path  string            `json:"path"`
	Roles []domainauth.Role `json:"roles"`
}

// FeatureAreas lists the console sections and the roles allowed into each.
func FeatureAreas() []FeatureArea {
	return []FeatureArea{
		{Name: "admin-dashboard", Path: "/admin/dashboard", Roles: []domainauth.Role{domainauth.RoleAdmin}},
		{Name: "water-quality", Path: "/water-quality/", Roles: []domainauth.Role{domainauth.RoleAdmin, domainauth.RoleOperator, domainauth.RoleAnalyst}},
		{Name: "chlorine", Path: "/chlorine/", Roles: []domainauth.Role{domainauth.RoleAdmin, domainauth.RoleOperator}},
		{Name: "testing-points", Path: "/testing-points/", Roles: []domainauth.Role{domainauth.RoleAdmin, domainauth.RoleOperator}},
		{Name: "zones", Path: "/zones/", Roles: []domainauth.Role{domainauth.RoleAdmin, domainauth.RoleOperator}},
		{Name: "tariffs", Path: "/tariffs/", Roles: []domainauth.Role{domainauth.RoleAdmin, domainauth.RoleClient}},
	}
}

// ConsoleHandlers serves the navigation targets of the session subsystem.
type ConsoleHandlers struct {
	Svc SessionService
}

type messageView struct {
	Message string           `json:"message"`
	User    *domainauth.User `json:"user,omitempty"`
	Next    string           `json:"next,omitempty"`
}

// Welcome greets the operator after login.
func (h *ConsoleHandlers) Welcome(w http.ResponseWriter, _ *http.Request) {
	user := h.Svc.State().User
	WriteJSON(w, http.StatusOK, messageView{Message: "Welcome, " + user.DisplayName(), User: user})
}

// Goodbye is shown after logout.
func (h *ConsoleHandlers) Goodbye(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, messageView{Message: "You have been signed out.", Next: h.Svc.Paths().Login})
}

type roleSelectorView struct {
	Roles []domainauth.Role `json:"roles"`
	Areas []FeatureArea     `json:"areas"`
}

// RoleSelector lists the sections the current user may open. Unbound callers get an empty list.
func (h *ConsoleHandlers) RoleSelector(w http.ResponseWriter, r *http.Request) {
	var user *domainauth.User
	if IsConsoleBound(r.Context()) {
		user = h.Svc.State().User
	}
	view := roleSelectorView{Roles: []domainauth.Role{}, Areas: []FeatureArea{}}
	if user != nil {
		view.Roles = append(view.Roles, user.Roles...)
		for _, area := range FeatureAreas() {
			if user.HasAnyRole(area.Roles...) {
				view.Areas = append(view.Areas, area)
			}
		}
	}
	WriteJSON(w, http.StatusOK, view)
}

// Profile returns the signed-in user.
func (h *ConsoleHandlers) Profile(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, h.Svc.State().User)
}

// Area serves the placeholder of a feature section.
func (h *ConsoleHandlers) Area(area FeatureArea) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]any{
			"area":  area.Name,
			"path":  r.URL.Path,
			"roles": area.Roles,
		})
	}
}
