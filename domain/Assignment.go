package domain

import (
	"github.com/fundwit/go-commons/types"
)

// ReplyState makes the one-shot client reply explicit.
type ReplyState string

const (
	ReplyStateNone    = ReplyState("NONE")
	ReplyStateReplied = ReplyState("REPLIED")
)

// Assignment is one submission attempt against a task. Assignments are
// append-only; only the latest one of a task is ever mutated in place.
type Assignment struct {
	ID types.ID `json:"id" gorm:"primary_key"`

	TaskID    types.ID `json:"taskId" gorm:"index:idx_assignment_task"`
	ProjectID types.ID `json:"projectId"`
	WorkerID  types.ID `json:"workerId"`

	Notes            string `json:"notes" sql:"type:TEXT"`
	RejectionComment string `json:"rejectionComment" sql:"type:TEXT"`
	ReuploadComment  string `json:"reuploadComment" sql:"type:TEXT"`

	ClientComment string     `json:"clientComment" sql:"type:TEXT"`
	ReplyState    ReplyState `json:"replyState"`

	Approved bool `json:"approved"`

	// per-assignment snapshot of the task status
	Status string `json:"status"`

	CreateTime types.Timestamp `json:"createTime" sql:"type:DATETIME(6) NOT NULL"`
}

const (
	DocOriginWorker = "WORKER"
	DocOriginClient = "CLIENT"
)

// AssignmentDoc is an uploaded document attached to an assignment; rows are
// never mutated, only superseded by a new assignment.
type AssignmentDoc struct {
	ID types.ID `json:"id" gorm:"primary_key"`

	AssignmentID types.ID `json:"assignmentId" gorm:"index:idx_doc_assignment"`
	Label        string   `json:"label"`
	Path         string   `json:"path"`
	Origin       string   `json:"origin"`

	UploadTime types.Timestamp `json:"uploadTime" sql:"type:DATETIME(6) NOT NULL"`
}

// FulfillmentState makes the one-shot document fulfillment explicit.
type FulfillmentState string

const (
	FulfillmentUnfulfilled = FulfillmentState("UNFULFILLED")
	FulfillmentFulfilled   = FulfillmentState("FULFILLED")
)

// ClientDocRequest is a named document asked from the client on one
// assignment, independently fulfilled or pending.
type ClientDocRequest struct {
	ID types.ID `json:"id" gorm:"primary_key"`

	AssignmentID types.ID `json:"assignmentId" gorm:"index:idx_request_assignment"`
	TaskID       types.ID `json:"taskId"`
	ProjectID    types.ID `json:"projectId"`

	Name        string `json:"name"`
	Description string `json:"description"`

	State      FulfillmentState `json:"state"`
	FilePath   string           `json:"filePath"`
	UploadTime types.Timestamp  `json:"uploadTime" sql:"type:DATETIME(6)"`
}

// AssignmentDetail appends documents and client document requests.
type AssignmentDetail struct {
	Assignment

	Docs        []AssignmentDoc    `json:"docs" gorm:"-"`
	DocRequests []ClientDocRequest `json:"docRequests" gorm:"-"`
}
