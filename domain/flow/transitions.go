package flow

import (
	"errors"
	"fmt"
	"strings"
	"taskflow/account"
	"taskflow/bizerror"
	"taskflow/domain"
	"taskflow/domain/assignment"
	"taskflow/domain/clientdoc"
	"taskflow/domain/project"
	"taskflow/domain/state"
	"taskflow/event"
	"taskflow/notification"
	"taskflow/persistence"
	"taskflow/session"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
	"github.com/sirupsen/logrus"
)

var (
	TransitTaskFunc          = TransitTask
	AvailableTransitionsFunc = AvailableTransitions
)

type TransitionCreation struct {
	TaskID types.ID `json:"taskId" binding:"required"`
	Action string   `json:"action" binding:"required"`

	Comment string `json:"comment" binding:"lte=10000"`

	// submit only
	Assignment *assignment.AssignmentCreation `json:"assignment"`

	// client-reply only, documents uploaded alongside the comment
	Files []assignment.FileCreation `json:"files" binding:"omitempty,dive"`
}

// notices computed inside the transaction, dispatched after commit
type pendingNotice struct {
	targets []types.ID
	notice  notification.Notice
}

type transitResult struct {
	event   *event.EventRecord
	notices []pendingNotice
}

// TransitTask applies one workflow action to a task. Status moves are
// conditional updates keyed on the expected from states, a concurrent move
// surfaces as an invalid state error instead of a lost update.
func TransitTask(c *TransitionCreation, s *session.Session) (*domain.TaskDetail, error) {
	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	task := domain.Task{ID: c.TaskID}
	if err := db.Where(&task).First(&task).Error; err != nil {
		return nil, err
	}
	if !s.Perms.HasProjectViewPerm(task.ProjectID) {
		return nil, bizerror.ErrForbidden
	}

	var result *transitResult
	err := db.Transaction(func(tx *gorm.DB) error {
		if _, err := project.CheckProjectActive(tx, task.ProjectID); err != nil {
			return err
		}

		var err error
		switch c.Action {
		case state.ActionSubmit:
			result, err = submit(tx, &task, c, s)
		case state.ActionStartReview:
			result, err = startReview(tx, &task, s)
		case state.ActionApprove:
			result, err = approve(tx, &task, s)
		case state.ActionReject:
			result, err = reject(tx, &task, c.Comment, s)
		case state.ActionClientReply:
			result, err = clientReply(tx, &task, c, s)
		case state.ActionAcceptClientDocuments:
			result, err = acceptClientDocuments(tx, &task, s)
		case state.ActionRequestReupload:
			result, err = requestReupload(tx, &task, c.Comment, s)
		default:
			err = bizerror.ErrUnknownAction
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	event.InvokeHandlersFunc(result.event)
	for _, p := range result.notices {
		notification.DispatchFunc(p.targets, p.notice, s)
	}

	return project.DetailTaskFunc(task.ID, s)
}

// AvailableTransitions lists the transitions the session user may currently
// trigger on the task, derived from the user's project roles.
func AvailableTransitions(taskId types.ID, s *session.Session) ([]state.Transition, error) {
	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	task := domain.Task{ID: taskId}
	if err := db.Where(&task).First(&task).Error; err != nil {
		return nil, err
	}
	if !s.Perms.HasProjectViewPerm(task.ProjectID) {
		return nil, bizerror.ErrForbidden
	}

	r := []state.Transition{}
	for _, actor := range []string{state.ActorWorker, state.ActorApprover, state.ActorClient} {
		if s.Perms.HasProjectRole(actor, task.ProjectID) {
			r = append(r, state.TaskStateMachine.AvailableTransitions(task.Status, actor, "")...)
		}
	}
	return r, nil
}

func checkActor(s *session.Session, projectId types.ID, actor string) error {
	if !s.Perms.HasProjectRole(actor, projectId) {
		return bizerror.ErrForbidden
	}
	return nil
}

// moveStatus is the guarded status update every transition goes through.
func moveStatus(tx *gorm.DB, taskId types.ID, fromStates []string, to state.State,
	extra map[string]interface{}) error {

	updates := map[string]interface{}{
		"status":            to.Name,
		"status_begin_time": types.CurrentTimestamp(),
	}
	for k, v := range extra {
		updates[k] = v
	}
	db := tx.Model(&domain.Task{}).Where("id = ? AND status IN (?)", taskId, fromStates).Updates(updates)
	if db.Error != nil {
		return db.Error
	}
	if db.RowsAffected != 1 {
		return bizerror.ErrInvalidState
	}
	return nil
}

func statusEvent(tx *gorm.DB, task *domain.Task, to state.State, s *session.Session) (*event.EventRecord, error) {
	return event.CreateEvent(event.SourceTypeTask, task.ID, task.Name, task.ProjectID,
		event.EventCategoryStatusUpdated, []event.UpdatedProperty{{
			PropertyName: "status", PropertyDesc: "status",
			OldValue: task.Status, OldValueDesc: task.Status,
			NewValue: to.Name, NewValueDesc: to.Name,
		}}, &s.Identity, tx)
}

func roleNotice(tx *gorm.DB, projectId types.ID, role string, n notification.Notice) pendingNotice {
	targets, err := account.QueryMemberIDsFunc(tx, projectId, role)
	if err != nil {
		logrus.Warnf("failed to resolve %s targets of project %d: %v\n", role, projectId, err)
		targets = nil
	}
	return pendingNotice{targets: targets, notice: n}
}

func taskURL(taskId types.ID) string {
	return fmt.Sprintf("/tasks/%d", taskId)
}

func latestAssignment(tx *gorm.DB, task *domain.Task) (*domain.Assignment, error) {
	if task.LatestAssignmentID == 0 {
		return nil, bizerror.ErrInvalidState
	}
	latest := domain.Assignment{ID: task.LatestAssignmentID}
	if err := tx.Where(&latest).First(&latest).Error; err != nil {
		return nil, err
	}
	return &latest, nil
}

func submit(tx *gorm.DB, task *domain.Task, c *TransitionCreation, s *session.Session) (*transitResult, error) {
	if err := checkActor(s, task.ProjectID, state.ActorWorker); err != nil {
		return nil, err
	}
	if c.Assignment == nil {
		return nil, &bizerror.ErrBadParam{Cause: errors.New("submit requires an assignment")}
	}

	record, err := assignment.CreateAssignment(tx, task, c.Assignment, state.StateSubmitted.Name, s)
	if err != nil {
		return nil, err
	}
	fromStates := []string{state.StateDraft.Name, state.StateReturnedForRevision.Name}
	if err := moveStatus(tx, task.ID, fromStates, state.StateSubmitted,
		map[string]interface{}{"latest_assignment_id": record.ID}); err != nil {
		return nil, err
	}
	ev, err := statusEvent(tx, task, state.StateSubmitted, s)
	if err != nil {
		return nil, err
	}

	return &transitResult{event: ev, notices: []pendingNotice{
		roleNotice(tx, task.ProjectID, domain.ProjectRoleManager, notification.Notice{
			Type:    notification.TypeApproval,
			Title:   "Submission awaiting review",
			Message: fmt.Sprintf("%s submitted work on task %q", s.Identity.Name, task.Name),
			URL:     taskURL(task.ID),
		}),
	}}, nil
}

func startReview(tx *gorm.DB, task *domain.Task, s *session.Session) (*transitResult, error) {
	if err := checkActor(s, task.ProjectID, state.ActorApprover); err != nil {
		return nil, err
	}
	latest, err := latestAssignment(tx, task)
	if err != nil {
		return nil, err
	}

	if err := moveStatus(tx, task.ID, []string{state.StateSubmitted.Name}, state.StateUnderReview, nil); err != nil {
		return nil, err
	}
	if err := assignment.SetStatus(tx, latest.ID, state.StateUnderReview.Name); err != nil {
		return nil, err
	}
	ev, err := statusEvent(tx, task, state.StateUnderReview, s)
	if err != nil {
		return nil, err
	}
	return &transitResult{event: ev}, nil
}

func approve(tx *gorm.DB, task *domain.Task, s *session.Session) (*transitResult, error) {
	if err := checkActor(s, task.ProjectID, state.ActorApprover); err != nil {
		return nil, err
	}
	latest, err := latestAssignment(tx, task)
	if err != nil {
		return nil, err
	}

	// route to the client when there is anything for the client to act on
	requests, err := clientdoc.LoadRequests(tx, latest.ID)
	if err != nil {
		return nil, err
	}
	to := state.StateApproved
	if len(requests) > 0 && task.ClientInteract != domain.ClientInteractReadOnly {
		to = state.StateSubmittedToClient
	}

	fromStates := []string{state.StateSubmitted.Name, state.StateUnderReview.Name}
	if err := moveStatus(tx, task.ID, fromStates, to, nil); err != nil {
		return nil, err
	}
	if err := assignment.MarkApproved(tx, latest.ID, to.Name); err != nil {
		return nil, err
	}
	ev, err := statusEvent(tx, task, to, s)
	if err != nil {
		return nil, err
	}

	notices := []pendingNotice{{
		targets: []types.ID{latest.WorkerID},
		notice: notification.Notice{
			Type:    notification.TypeApproval,
			Title:   "Submission approved",
			Message: fmt.Sprintf("your work on task %q was approved", task.Name),
			URL:     taskURL(task.ID),
		},
	}}
	if to == state.StateSubmittedToClient {
		notices = append(notices, roleNotice(tx, task.ProjectID, domain.ProjectRoleClient, notification.Notice{
			Type:    notification.TypeClientTask,
			Title:   "Documents requested",
			Message: fmt.Sprintf("task %q awaits your documents", task.Name),
			URL:     taskURL(task.ID),
		}))
	}
	return &transitResult{event: ev, notices: notices}, nil
}

func reject(tx *gorm.DB, task *domain.Task, comment string, s *session.Session) (*transitResult, error) {
	if err := checkActor(s, task.ProjectID, state.ActorApprover); err != nil {
		return nil, err
	}
	if strings.TrimSpace(comment) == "" {
		return nil, &bizerror.ErrBadParam{Cause: errors.New("reject requires a non-blank comment")}
	}
	latest, err := latestAssignment(tx, task)
	if err != nil {
		return nil, err
	}

	fromStates := []string{state.StateSubmitted.Name, state.StateUnderReview.Name}
	if err := moveStatus(tx, task.ID, fromStates, state.StateReturnedForRevision, nil); err != nil {
		return nil, err
	}
	if err := assignment.MarkRejected(tx, latest.ID, comment, state.StateReturnedForRevision.Name); err != nil {
		return nil, err
	}
	ev, err := statusEvent(tx, task, state.StateReturnedForRevision, s)
	if err != nil {
		return nil, err
	}

	return &transitResult{event: ev, notices: []pendingNotice{{
		targets: []types.ID{latest.WorkerID},
		notice: notification.Notice{
			Type:    notification.TypeAssignment,
			Title:   "Submission returned",
			Message: fmt.Sprintf("your work on task %q was returned for revision: %s", task.Name, comment),
			URL:     taskURL(task.ID),
		},
	}}}, nil
}

func clientReply(tx *gorm.DB, task *domain.Task, c *TransitionCreation, s *session.Session) (*transitResult, error) {
	if err := checkActor(s, task.ProjectID, state.ActorClient); err != nil {
		return nil, err
	}
	if task.ClientInteract == domain.ClientInteractReadOnly {
		return nil, bizerror.ErrForbidden
	}
	if strings.TrimSpace(c.Comment) == "" {
		return nil, &bizerror.ErrBadParam{Cause: errors.New("client reply requires a non-blank comment")}
	}
	latest, err := latestAssignment(tx, task)
	if err != nil {
		return nil, err
	}

	if err := moveStatus(tx, task.ID, []string{state.StateSubmittedToClient.Name}, state.StateClientReply, nil); err != nil {
		return nil, err
	}
	if err := assignment.AppendClientReply(tx, latest.ID, c.Comment); err != nil {
		return nil, err
	}
	if err := assignment.AttachClientDocs(tx, latest.ID, c.Files); err != nil {
		return nil, err
	}
	if err := assignment.SetStatus(tx, latest.ID, state.StateClientReply.Name); err != nil {
		return nil, err
	}
	ev, err := statusEvent(tx, task, state.StateClientReply, s)
	if err != nil {
		return nil, err
	}

	return &transitResult{event: ev, notices: []pendingNotice{
		roleNotice(tx, task.ProjectID, domain.ProjectRoleManager, notification.Notice{
			Type:    notification.TypeApproval,
			Title:   "Client replied",
			Message: fmt.Sprintf("%s replied on task %q", s.Identity.Name, task.Name),
			URL:     taskURL(task.ID),
		}),
	}}, nil
}

func acceptClientDocuments(tx *gorm.DB, task *domain.Task, s *session.Session) (*transitResult, error) {
	if err := checkActor(s, task.ProjectID, state.ActorApprover); err != nil {
		return nil, err
	}
	latest, err := latestAssignment(tx, task)
	if err != nil {
		return nil, err
	}

	fulfilled, err := clientdoc.AllFulfilled(tx, latest.ID)
	if err != nil {
		return nil, err
	}
	if !fulfilled {
		return nil, bizerror.ErrInvalidState
	}

	if err := moveStatus(tx, task.ID, []string{state.StateClientReply.Name}, state.StateCompleted, nil); err != nil {
		return nil, err
	}
	if err := assignment.SetStatus(tx, latest.ID, state.StateCompleted.Name); err != nil {
		return nil, err
	}
	ev, err := statusEvent(tx, task, state.StateCompleted, s)
	if err != nil {
		return nil, err
	}

	return &transitResult{event: ev, notices: []pendingNotice{
		{
			targets: []types.ID{latest.WorkerID},
			notice: notification.Notice{
				Type:    notification.TypeActivity,
				Title:   "Task completed",
				Message: fmt.Sprintf("task %q was completed", task.Name),
				URL:     taskURL(task.ID),
			},
		},
		roleNotice(tx, task.ProjectID, domain.ProjectRoleClient, notification.Notice{
			Type:    notification.TypeActivity,
			Title:   "Task completed",
			Message: fmt.Sprintf("task %q was completed", task.Name),
			URL:     taskURL(task.ID),
		}),
	}}, nil
}

func requestReupload(tx *gorm.DB, task *domain.Task, comment string, s *session.Session) (*transitResult, error) {
	if err := checkActor(s, task.ProjectID, state.ActorApprover); err != nil {
		return nil, err
	}
	if strings.TrimSpace(comment) == "" {
		return nil, &bizerror.ErrBadParam{Cause: errors.New("reupload request requires a non-blank comment")}
	}
	latest, err := latestAssignment(tx, task)
	if err != nil {
		return nil, err
	}

	if err := moveStatus(tx, task.ID, []string{state.StateClientReply.Name}, state.StateSubmittedToClient, nil); err != nil {
		return nil, err
	}
	if err := assignment.MarkReuploadRequested(tx, latest.ID, comment, state.StateSubmittedToClient.Name); err != nil {
		return nil, err
	}
	if err := clientdoc.ResetRequests(tx, latest.ID); err != nil {
		return nil, err
	}
	ev, err := statusEvent(tx, task, state.StateSubmittedToClient, s)
	if err != nil {
		return nil, err
	}

	return &transitResult{event: ev, notices: []pendingNotice{
		roleNotice(tx, task.ProjectID, domain.ProjectRoleClient, notification.Notice{
			Type:    notification.TypeDocumentRequest,
			Title:   "Reupload requested",
			Message: fmt.Sprintf("task %q needs new documents: %s", task.Name, comment),
			URL:     taskURL(task.ID),
		}),
	}}, nil
}
