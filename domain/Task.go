package domain

import (
	"taskflow/domain/state"

	"github.com/fundwit/go-commons/types"
)

// ClientInteract controls what the external client may do on a task.
type ClientInteract string

const (
	ClientInteractReadOnly = ClientInteract("read_only")
	ClientInteractComment  = ClientInteract("comment")
	ClientInteractUpload   = ClientInteract("upload")
)

func (c ClientInteract) IsValid() bool {
	switch c {
	case ClientInteractReadOnly, ClientInteractComment, ClientInteractUpload:
		return true
	}
	return false
}

type CompletionStatus string

const (
	CompletionPending    = CompletionStatus("pending")
	CompletionInProgress = CompletionStatus("in_progress")
	CompletionCompleted  = CompletionStatus("completed")
)

// WorkingStep is an ordered phase of a project containing a sequence of tasks.
type WorkingStep struct {
	ID types.ID `json:"id" gorm:"primary_key"`

	ProjectID types.ID `json:"projectId" gorm:"index:idx_step_project"`
	Name      string   `json:"name"`
	Order     int      `json:"order" gorm:"column:orders"`

	CreateTime types.Timestamp `json:"createTime" sql:"type:DATETIME(6) NOT NULL"`
}

type Task struct {
	ID types.ID `json:"id" gorm:"primary_key"`

	StepID    types.ID `json:"stepId" gorm:"index:idx_task_step"`
	ProjectID types.ID `json:"projectId" gorm:"index:idx_task_project"`

	Name           string         `json:"name"`
	Order          int            `json:"order" gorm:"column:orders"`
	IsRequired     bool           `json:"isRequired"`
	ClientInteract ClientInteract `json:"clientInteract"`
	MultipleFiles  bool           `json:"multipleFiles"`

	Status          string          `json:"status"`
	StatusBeginTime types.Timestamp `json:"statusBeginTime" sql:"type:DATETIME(6)"`

	// latest assignment is the only one eligible for further mutation
	LatestAssignmentID types.ID `json:"latestAssignmentId"`

	DueTime    types.Timestamp `json:"dueTime" sql:"type:DATETIME(6)"`
	CreateTime types.Timestamp `json:"createTime" sql:"type:DATETIME(6) NOT NULL"`
}

func (t Task) CompletionStatus() CompletionStatus {
	s, found := state.TaskStateMachine.FindState(t.Status)
	if !found {
		return CompletionPending
	}
	switch s.Category {
	case state.Done:
		return CompletionCompleted
	case state.InProgress:
		return CompletionInProgress
	}
	return CompletionPending
}

// TaskDetail appends the resolved state and latest assignment view.
type TaskDetail struct {
	Task

	State            state.State      `json:"state" gorm:"-"`
	Completion       CompletionStatus `json:"completionStatus" gorm:"-"`
	LatestAssignment *Assignment      `json:"latestAssignment,omitempty" gorm:"-"`
}
