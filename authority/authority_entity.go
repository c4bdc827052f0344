package authority

import (
	"strings"
	"taskflow/domain"

	"github.com/fundwit/go-commons/types"
)

type Permissions []string

func (c Permissions) HasRole(role string) bool {
	for _, v := range c {
		if strings.EqualFold(v, role) {
			return true
		}
	}
	return false
}

func (c Permissions) HasGlobalViewRole() bool {
	for _, v := range c {
		if strings.HasPrefix(strings.ToLower(v), "system:") {
			return true
		}
	}
	return false
}

func (c Permissions) HasRolePrefix(prefix string) bool {
	for _, v := range c {
		if strings.HasPrefix(strings.ToLower(v), strings.ToLower(prefix)) {
			return true
		}
	}
	return false
}

func (c Permissions) HasRoleSuffix(suffix string) bool {
	for _, v := range c {
		if strings.HasSuffix(strings.ToLower(v), strings.ToLower(suffix)) {
			return true
		}
	}
	return false
}

func (c Permissions) HasProjectViewPerm(projectId types.ID) bool {
	return c.HasGlobalViewRole() || c.HasRoleSuffix("_"+projectId.String())
}

// HasProjectRole reports whether the exact role is held on the project.
func (c Permissions) HasProjectRole(role string, projectId types.ID) bool {
	return c.HasRole(role + "_" + projectId.String())
}

type ProjectRoles []domain.ProjectRole

func (c ProjectRoles) HasProject(projectId types.ID) bool {
	for _, v := range c {
		if v.ProjectID == projectId {
			return true
		}
	}
	return false
}

// ProjectIdsOfRole collects the projects on which the given role is held.
func (c ProjectRoles) ProjectIdsOfRole(role string) []types.ID {
	ids := []types.ID{}
	for _, v := range c {
		if strings.EqualFold(v.Role, role) {
			ids = append(ids, v.ProjectID)
		}
	}
	return ids
}
