package project

import (
	"fmt"
	"taskflow/bizerror"
	"taskflow/domain"
	"taskflow/domain/state"
	"taskflow/event"
	"taskflow/idgen"
	"taskflow/persistence"
	"taskflow/session"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
	"github.com/sony/sonyflake"
)

var (
	stepIdWorker = sonyflake.NewSonyflake(sonyflake.Settings{})
	taskIdWorker = sonyflake.NewSonyflake(sonyflake.Settings{})

	CreateWorkingStepFunc = CreateWorkingStep
	QueryWorkingStepsFunc = QueryWorkingSteps
	QueryTasksFunc        = QueryTasks
	DetailTaskFunc        = DetailTask
)

type TaskCreation struct {
	Name           string                `json:"name" binding:"required,lte=300"`
	Order          int                   `json:"order"`
	IsRequired     bool                  `json:"isRequired"`
	ClientInteract domain.ClientInteract `json:"clientInteract" binding:"omitempty,oneof=read_only comment upload"`
	MultipleFiles  bool                  `json:"multipleFiles"`
	DueTime        types.Timestamp       `json:"dueTime"`
}

type WorkingStepCreation struct {
	ProjectID types.ID       `json:"projectId" binding:"required"`
	Name      string         `json:"name" binding:"required,lte=300"`
	Order     int            `json:"order"`
	Tasks     []TaskCreation `json:"tasks" binding:"omitempty,dive"`
}

type TaskQuery struct {
	ProjectID types.ID `json:"projectId" form:"projectId" binding:"required"`
	StepID    types.ID `json:"stepId" form:"stepId"`
}

// CreateWorkingStep creates a step with its tasks in one shot. New tasks
// start in DRAFT.
func CreateWorkingStep(c *WorkingStepCreation, s *session.Session) (*domain.WorkingStep, error) {
	if !s.Perms.HasProjectRole(domain.ProjectRoleManager, c.ProjectID) {
		return nil, bizerror.ErrForbidden
	}

	now := types.CurrentTimestamp()
	step := domain.WorkingStep{
		ID:         idgen.NextID(stepIdWorker),
		ProjectID:  c.ProjectID,
		Name:       c.Name,
		Order:      c.Order,
		CreateTime: now,
	}

	events := []*event.EventRecord{}
	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	err := db.Transaction(func(tx *gorm.DB) error {
		if _, err := CheckProjectActive(tx, c.ProjectID); err != nil {
			return err
		}
		if err := tx.Create(&step).Error; err != nil {
			return err
		}
		for _, t := range c.Tasks {
			interact := t.ClientInteract
			if interact == "" {
				interact = domain.ClientInteractReadOnly
			}
			if !interact.IsValid() {
				return &bizerror.ErrBadParam{Cause: fmt.Errorf("unknown client interact %s", interact)}
			}
			task := domain.Task{
				ID:              idgen.NextID(taskIdWorker),
				StepID:          step.ID,
				ProjectID:       c.ProjectID,
				Name:            t.Name,
				Order:           t.Order,
				IsRequired:      t.IsRequired,
				ClientInteract:  interact,
				MultipleFiles:   t.MultipleFiles,
				Status:          state.StateDraft.Name,
				StatusBeginTime: now,
				DueTime:         t.DueTime,
				CreateTime:      now,
			}
			if err := tx.Create(&task).Error; err != nil {
				return err
			}
			ev, err := event.CreateEvent(event.SourceTypeTask, task.ID, task.Name, c.ProjectID,
				event.EventCategoryCreated, nil, &s.Identity, tx)
			if err != nil {
				return err
			}
			events = append(events, ev)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, ev := range events {
		event.InvokeHandlersFunc(ev)
	}
	return &step, nil
}

func QueryWorkingSteps(projectId types.ID, s *session.Session) ([]domain.WorkingStep, error) {
	if !s.Perms.HasProjectViewPerm(projectId) {
		return nil, bizerror.ErrForbidden
	}
	steps := []domain.WorkingStep{}
	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	if err := db.Where(&domain.WorkingStep{ProjectID: projectId}).Order("orders ASC").Find(&steps).Error; err != nil {
		return nil, err
	}
	return steps, nil
}

// QueryTasks lists tasks of a project with resolved completion status.
func QueryTasks(q *TaskQuery, s *session.Session) ([]domain.TaskDetail, error) {
	if !s.Perms.HasProjectViewPerm(q.ProjectID) {
		return nil, bizerror.ErrForbidden
	}
	tasks := []domain.Task{}
	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	query := db.Where(&domain.Task{ProjectID: q.ProjectID, StepID: q.StepID})
	if err := query.Order("orders ASC").Find(&tasks).Error; err != nil {
		return nil, err
	}

	details := []domain.TaskDetail{}
	for _, t := range tasks {
		st, _ := state.TaskStateMachine.FindState(t.Status)
		details = append(details, domain.TaskDetail{Task: t, State: st, Completion: t.CompletionStatus()})
	}
	return details, nil
}

// DetailTask loads one task with its latest assignment attached.
func DetailTask(id types.ID, s *session.Session) (*domain.TaskDetail, error) {
	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	task := domain.Task{ID: id}
	if err := db.Where(&task).First(&task).Error; err != nil {
		return nil, err
	}
	if !s.Perms.HasProjectViewPerm(task.ProjectID) {
		return nil, bizerror.ErrForbidden
	}

	st, found := state.TaskStateMachine.FindState(task.Status)
	if !found {
		return nil, bizerror.ErrUnknownState
	}
	detail := domain.TaskDetail{Task: task, State: st, Completion: task.CompletionStatus()}
	if task.LatestAssignmentID != 0 {
		latest := domain.Assignment{ID: task.LatestAssignmentID}
		if err := db.Where(&latest).First(&latest).Error; err != nil {
			return nil, err
		}
		detail.LatestAssignment = &latest
	}
	return &detail, nil
}
