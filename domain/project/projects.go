package project

import (
	"errors"
	"fmt"
	"taskflow/account"
	"taskflow/bizerror"
	"taskflow/domain"
	"taskflow/event"
	"taskflow/idgen"
	"taskflow/persistence"
	"taskflow/session"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
	"github.com/sony/sonyflake"
)

var (
	projectIdWorker = sonyflake.NewSonyflake(sonyflake.Settings{})
	memberIdWorker  = sonyflake.NewSonyflake(sonyflake.Settings{})

	CreateProjectFunc       = CreateProject
	QueryProjectsFunc       = QueryProjects
	DetailProjectFunc       = DetailProject
	UpdateProjectStatusFunc = UpdateProjectStatus
)

type ProjectCreation struct {
	Identifier string `json:"identifier" binding:"required,lte=60"`
	Name       string `json:"name" binding:"required,lte=300"`
}

type ProjectStatusUpdating struct {
	Status domain.ProjectStatus `json:"status" binding:"required"`
}

type ProjectDetail struct {
	domain.Project

	Members []domain.ProjectMember `json:"members" gorm:"-"`
}

// CreateProject creates the project and binds the creator as its manager.
func CreateProject(c *ProjectCreation, s *session.Session) (*domain.Project, error) {
	if !s.Perms.HasRole(account.SystemAdminPermission.ID) {
		return nil, bizerror.ErrForbidden
	}

	p := domain.Project{
		ID:         idgen.NextID(projectIdWorker),
		Identifier: c.Identifier,
		Name:       c.Name,
		Status:     domain.ProjectStatusPending,
		CreateTime: types.CurrentTimestamp(),
		Creator:    s.Identity.ID,
	}

	var ev *event.EventRecord
	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&p).Error; err != nil {
			return err
		}
		member := domain.ProjectMember{ID: idgen.NextID(memberIdWorker), ProjectId: p.ID,
			MemberId: s.Identity.ID, Role: domain.ProjectRoleManager, CreateTime: p.CreateTime}
		if err := tx.Create(&member).Error; err != nil {
			return err
		}
		var err error
		ev, err = event.CreateEvent(event.SourceTypeProject, p.ID, p.Name, p.ID,
			event.EventCategoryCreated, nil, &s.Identity, tx)
		return err
	})
	if err != nil {
		return nil, err
	}

	event.InvokeHandlersFunc(ev)
	return &p, nil
}

// QueryProjects lists the projects visible to the session.
func QueryProjects(s *session.Session) ([]domain.Project, error) {
	projects := []domain.Project{}
	visibleIds := s.VisibleProjects()
	if len(visibleIds) == 0 {
		return projects, nil
	}
	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	if err := db.Where("id IN (?)", visibleIds).Order("create_time DESC").Find(&projects).Error; err != nil {
		return nil, err
	}
	return projects, nil
}

func DetailProject(id types.ID, s *session.Session) (*ProjectDetail, error) {
	if !s.Perms.HasProjectViewPerm(id) {
		return nil, bizerror.ErrForbidden
	}
	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	detail := ProjectDetail{Project: domain.Project{ID: id}}
	if err := db.Where(&detail.Project).First(&detail.Project).Error; err != nil {
		return nil, err
	}
	detail.Members = []domain.ProjectMember{}
	if err := db.Where(&domain.ProjectMember{ProjectId: id}).Find(&detail.Members).Error; err != nil {
		return nil, err
	}
	return &detail, nil
}

// UpdateProjectStatus moves the project lifecycle status. Task level work is
// only allowed while the project stays IN_PROGRESS.
func UpdateProjectStatus(id types.ID, u *ProjectStatusUpdating, s *session.Session) error {
	if !u.Status.IsValid() {
		return &bizerror.ErrBadParam{Cause: fmt.Errorf("unknown project status %s", u.Status)}
	}
	if !s.Perms.HasRole(account.SystemAdminPermission.ID) &&
		!s.Perms.HasProjectRole(domain.ProjectRoleManager, id) {
		return bizerror.ErrForbidden
	}

	var ev *event.EventRecord
	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	err := db.Transaction(func(tx *gorm.DB) error {
		p := domain.Project{ID: id}
		if err := tx.Where(&p).First(&p).Error; err != nil {
			return err
		}
		if p.Status == u.Status {
			return nil
		}
		if err := tx.Model(&domain.Project{ID: id}).Update("status", u.Status).Error; err != nil {
			return err
		}
		var err error
		ev, err = event.CreateEvent(event.SourceTypeProject, p.ID, p.Name, p.ID,
			event.EventCategoryStatusUpdated, []event.UpdatedProperty{{
				PropertyName: "status", PropertyDesc: "status",
				OldValue: string(p.Status), OldValueDesc: string(p.Status),
				NewValue: string(u.Status), NewValueDesc: string(u.Status),
			}}, &s.Identity, tx)
		return err
	})
	if err != nil {
		return err
	}

	event.InvokeHandlersFunc(ev)
	return nil
}

// CheckProjectActive loads the project inside the caller's transaction and
// fails unless it is IN_PROGRESS.
func CheckProjectActive(tx *gorm.DB, projectId types.ID) (*domain.Project, error) {
	p := domain.Project{ID: projectId}
	if err := tx.Where(&p).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, bizerror.ErrNotFound
		}
		return nil, err
	}
	if p.Status != domain.ProjectStatusInProgress {
		return nil, bizerror.ErrProjectNotActive
	}
	return &p, nil
}
