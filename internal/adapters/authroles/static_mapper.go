package authroles

import (
	"strings"

	domainauth "github.com/target/aquaops-console/internal/domain/auth"
	"github.com/target/aquaops-console/internal/ports"
)

// StaticRoleMapper maps identity provider groups onto console roles by exact group name.
// A user in several mapped groups receives every matching role.
type StaticRoleMapper struct {
	AdminGroup    string
	OperatorGroup string
	AnalystGroup  string
	ClientGroup   string
}

var _ ports.RoleMapper = StaticRoleMapper{}

// Map returns the roles granted by groups in a stable order (admin, operator, analyst, client).
// Unknown groups are ignored; no mapped group yields an empty role set.
func (m StaticRoleMapper) Map(groups []string) []domainauth.Role {
	held := make(map[string]bool, len(groups))
	for _, g := range groups {
		if g = strings.TrimSpace(g); g != "" {
			held[g] = true
		}
	}

	rules := []struct {
		group string
		role  domainauth.Role
	}{
		{m.AdminGroup, domainauth.RoleAdmin},
		{m.OperatorGroup, domainauth.RoleOperator},
		{m.AnalystGroup, domainauth.RoleAnalyst},
		{m.ClientGroup, domainauth.RoleClient},
	}

	roles := make([]domainauth.Role, 0, len(rules))
	for _, r := range rules {
		if r.group != "" && held[r.group] {
			roles = append(roles, r.role)
		}
	}
	return roles
}
