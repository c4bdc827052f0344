package domain

import (
	"github.com/fundwit/go-commons/types"
)

type ProjectStatus string

const (
	ProjectStatusPending    = ProjectStatus("PENDING")
	ProjectStatusInProgress = ProjectStatus("IN_PROGRESS")
	ProjectStatusPaused     = ProjectStatus("PAUSED")
	ProjectStatusCompleted  = ProjectStatus("COMPLETED")
	ProjectStatusArchived   = ProjectStatus("ARCHIVED")
)

func (s ProjectStatus) IsValid() bool {
	switch s {
	case ProjectStatusPending, ProjectStatusInProgress, ProjectStatusPaused,
		ProjectStatusCompleted, ProjectStatusArchived:
		return true
	}
	return false
}

type Project struct {
	ID types.ID `json:"id" gorm:"primary_key"`

	Identifier string `json:"identifier" gorm:"unique_index:identifier_unique"`
	Name       string `json:"name" gorm:"unique_index:name_idx"`

	Status ProjectStatus `json:"status"`

	CreateTime types.Timestamp `json:"createTime" sql:"type:DATETIME(6) NOT NULL"`
	Creator    types.ID        `json:"creator"`
}

const ProjectRoleManager = "manager"
const ProjectRoleWorker = "worker"
const ProjectRoleClient = "client"

type ProjectMember struct {
	ID types.ID `json:"id" gorm:"primary_key"`

	ProjectId types.ID `json:"projectId" gorm:"unique_index:uni_project_member"`
	MemberId  types.ID `json:"memberId" gorm:"unique_index:uni_project_member"`
	Role      string   `json:"role"`

	CreateTime types.Timestamp `json:"createTime" sql:"type:DATETIME(6) NOT NULL"`
}

type ProjectRole struct {
	ProjectID         types.ID `json:"projectId"`
	ProjectName       string   `json:"projectName"`
	ProjectIdentifier string   `json:"projectIdentifier"`
	Role              string   `json:"role"`
}
