package authroles

import (
	"github.com/peoplehub/portal-api/internal/domain/model"
)

// StaticRoleMapper maps IdP groups to portal roles by exact string
// membership. Precedence runs from most to least privileged so a user
// in several groups gets the strongest role.
type StaticRoleMapper struct {
	AdminGroup    string
	MentorGroup   string
	TeamLeadGroup string
	DefaultRole   model.Role // role when no group matches; RoleStaff when zero
}

func (m StaticRoleMapper) Map(groups []string) model.Role {
	ordered := []struct {
		group string
		role  model.Role
	}{
		{m.AdminGroup, model.RoleAdmin},
		{m.MentorGroup, model.RoleMentor},
		{m.TeamLeadGroup, model.RoleTeamLead},
	}
	for _, entry := range ordered {
		if entry.group == "" {
			continue
		}
		for _, g := range groups {
			if g == entry.group {
				return entry.role
			}
		}
	}
	if m.DefaultRole != "" {
		return m.DefaultRole
	}
	return model.RoleStaff
}
