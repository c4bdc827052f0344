package session

import (
	"context"
	"strings"
	"taskflow/authority"
	"time"

	"github.com/fundwit/go-commons/types"
)

type Identity struct {
	ID       types.ID `json:"id"`
	Name     string   `json:"name"`
	Nickname string   `json:"nickname"`
}

// Session carries the acting user's identity and permissions; it is passed
// explicitly into every core operation, never read from ambient state.
type Session struct {
	Token        string                 `json:"token"`
	Identity     Identity               `json:"identity"`
	Perms        authority.Permissions  `json:"perms"`
	ProjectRoles authority.ProjectRoles `json:"projectRoles"`

	SigningTime time.Time `json:"-"`

	Context context.Context `json:"-"`
}

func (s *Session) Clone() Session {
	c := *s
	return c
}

// VisibleProjects parse visible project ids from Session.Perms
func (s *Session) VisibleProjects() []types.ID {
	var projectIds []types.ID
	for _, v := range s.Perms {
		pairs := strings.Split(v, "_")
		if len(pairs) == 2 {
			id, err := types.ParseID(pairs[1])
			if err != nil {
				continue
			}
			projectIds = append(projectIds, id)
		}
	}
	if projectIds == nil {
		return []types.ID{}
	}
	return projectIds
}

func (s *Session) HasRole(role string) bool {
	return s.Perms.HasRole(role)
}

func (s *Session) HasRoleSuffix(suffix string) bool {
	return s.Perms.HasRoleSuffix(suffix)
}

func (s *Session) HasProjectViewPerm(projectId types.ID) bool {
	return s.Perms.HasProjectViewPerm(projectId)
}

func (s *Session) HasProjectRole(role string, projectId types.ID) bool {
	return s.Perms.HasProjectRole(role, projectId)
}
