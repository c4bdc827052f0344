package flow_test

import (
	"context"
	"taskflow/account"
	"taskflow/bizerror"
	"taskflow/domain"
	"taskflow/domain/assignment"
	"taskflow/domain/clientdoc"
	"taskflow/domain/flow"
	"taskflow/domain/state"
	"taskflow/event"
	"taskflow/notification"
	"taskflow/persistence"
	"taskflow/session"
	"taskflow/testinfra"
	"testing"

	. "github.com/onsi/gomega"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
)

type dispatched struct {
	targets []types.ID
	notice  notification.Notice
}

var (
	managerSession = testinfra.BuildSession(100, domain.ProjectRoleManager+"_1")
	workerSession  = testinfra.BuildSession(200, domain.ProjectRoleWorker+"_1")
	clientSession  = testinfra.BuildSession(300, domain.ProjectRoleClient+"_1")
)

func setup(t *testing.T, testDatabase **testinfra.TestDatabase, interact domain.ClientInteract) (
	*domain.Task, *[]event.EventRecord, *[]dispatched) {

	db := testinfra.StartMysqlTestDatabase("taskflow")
	*testDatabase = db
	Expect(db.DS.GormDB(context.TODO()).AutoMigrate(&domain.Project{}, &domain.ProjectMember{},
		&domain.Task{}, &domain.Assignment{}, &domain.AssignmentDoc{}, &domain.ClientDocRequest{}).Error).To(BeNil())
	persistence.ActiveDataSourceManager = db.DS

	gormDB := db.DS.GormDB(context.TODO())
	Expect(gormDB.Save(&domain.Project{ID: 1, Identifier: "PR1", Name: "project 1",
		Status: domain.ProjectStatusInProgress, CreateTime: types.CurrentTimestamp()}).Error).To(BeNil())

	task := domain.Task{ID: 10, ProjectID: 1, Name: "task 1", ClientInteract: interact,
		MultipleFiles: true, Status: state.StateDraft.Name, StatusBeginTime: types.CurrentTimestamp(),
		CreateTime: types.CurrentTimestamp()}
	Expect(gormDB.Save(&task).Error).To(BeNil())

	persistedEvents := []event.EventRecord{}
	event.EventPersistCreateFunc = func(record *event.EventRecord, db *gorm.DB) error {
		persistedEvents = append(persistedEvents, *record)
		return nil
	}
	event.InvokeHandlersFunc = func(record *event.EventRecord) []event.EventHandleResult { return nil }

	account.QueryMemberIDsFunc = func(db *gorm.DB, projectId types.ID, role string) ([]types.ID, error) {
		switch role {
		case domain.ProjectRoleManager:
			return []types.ID{100}, nil
		case domain.ProjectRoleWorker:
			return []types.ID{200}, nil
		default:
			return []types.ID{300}, nil
		}
	}

	notices := []dispatched{}
	notification.DispatchFunc = func(targets []types.ID, n notification.Notice, s *session.Session) {
		notices = append(notices, dispatched{targets: targets, notice: n})
	}

	return &task, &persistedEvents, &notices
}

func teardown(t *testing.T, testDatabase *testinfra.TestDatabase) {
	if testDatabase != nil {
		testinfra.StopMysqlTestDatabase(testDatabase)
	}
}

func submitTask(task *domain.Task, requests []clientdoc.RequestCreation) (*domain.TaskDetail, error) {
	return flow.TransitTask(&flow.TransitionCreation{
		TaskID: task.ID, Action: state.ActionSubmit,
		Assignment: &assignment.AssignmentCreation{TaskID: task.ID, Notes: "work done",
			Files:       []assignment.FileCreation{{Label: "report", Path: "uploads/x/report.pdf"}},
			DocRequests: requests},
	}, workerSession)
}

func TestSubmit(t *testing.T) {
	RegisterTestingT(t)
	var testDatabase *testinfra.TestDatabase

	t.Run("should forbid submit without worker role", func(t *testing.T) {
		defer teardown(t, testDatabase)
		task, _, _ := setup(t, &testDatabase, domain.ClientInteractComment)

		detail, err := flow.TransitTask(&flow.TransitionCreation{
			TaskID: task.ID, Action: state.ActionSubmit,
			Assignment: &assignment.AssignmentCreation{TaskID: task.ID, Notes: "work done"},
		}, managerSession)
		Expect(detail).To(BeNil())
		Expect(err).To(Equal(bizerror.ErrForbidden))
	})

	t.Run("should require an assignment payload", func(t *testing.T) {
		defer teardown(t, testDatabase)
		task, _, _ := setup(t, &testDatabase, domain.ClientInteractComment)

		detail, err := flow.TransitTask(&flow.TransitionCreation{TaskID: task.ID, Action: state.ActionSubmit}, workerSession)
		Expect(detail).To(BeNil())
		_, ok := err.(*bizerror.ErrBadParam)
		Expect(ok).To(BeTrue())
	})

	t.Run("should fail when project is not active", func(t *testing.T) {
		defer teardown(t, testDatabase)
		task, _, _ := setup(t, &testDatabase, domain.ClientInteractComment)
		db := testDatabase.DS.GormDB(context.TODO())
		Expect(db.Model(&domain.Project{ID: 1}).Update("status", domain.ProjectStatusPaused).Error).To(BeNil())

		detail, err := submitTask(task, nil)
		Expect(detail).To(BeNil())
		Expect(err).To(Equal(bizerror.ErrProjectNotActive))
	})

	t.Run("should refuse upload task submission without document requests", func(t *testing.T) {
		defer teardown(t, testDatabase)
		task, persistedEvents, notices := setup(t, &testDatabase, domain.ClientInteractUpload)
		db := testDatabase.DS.GormDB(context.TODO())

		detail, err := submitTask(task, nil)
		Expect(detail).To(BeNil())
		_, ok := err.(*bizerror.ErrBadParam)
		Expect(ok).To(BeTrue())

		// nothing was mutated
		saved := domain.Task{ID: task.ID}
		Expect(db.Where(&saved).First(&saved).Error).To(BeNil())
		Expect(saved.Status).To(Equal(state.StateDraft.Name))
		count := 0
		Expect(db.Model(&domain.Assignment{}).Count(&count).Error).To(BeNil())
		Expect(count).To(BeZero())
		Expect(len(*persistedEvents)).To(BeZero())
		Expect(len(*notices)).To(BeZero())
	})

	t.Run("should submit and notify approvers", func(t *testing.T) {
		defer teardown(t, testDatabase)
		task, persistedEvents, notices := setup(t, &testDatabase, domain.ClientInteractComment)

		detail, err := submitTask(task, nil)
		Expect(err).To(BeNil())
		Expect(detail.Status).To(Equal(state.StateSubmitted.Name))
		Expect(detail.State).To(Equal(state.StateSubmitted))
		Expect(detail.Completion).To(Equal(domain.CompletionInProgress))
		Expect(detail.LatestAssignment).ToNot(BeNil())
		Expect(detail.LatestAssignment.Status).To(Equal(state.StateSubmitted.Name))
		Expect(detail.LatestAssignment.WorkerID).To(Equal(types.ID(200)))

		Expect(len(*persistedEvents)).To(Equal(1))
		Expect((*persistedEvents)[0].UpdatedProperties[0].NewValue).To(Equal(state.StateSubmitted.Name))

		Expect(len(*notices)).To(Equal(1))
		Expect((*notices)[0].targets).To(Equal([]types.ID{100}))
		Expect((*notices)[0].notice.Type).To(Equal(notification.TypeApproval))
	})

	t.Run("should refuse a second submit while under review", func(t *testing.T) {
		defer teardown(t, testDatabase)
		task, _, _ := setup(t, &testDatabase, domain.ClientInteractComment)

		_, err := submitTask(task, nil)
		Expect(err).To(BeNil())

		detail, err := submitTask(task, nil)
		Expect(detail).To(BeNil())
		Expect(err).To(Equal(bizerror.ErrInvalidState))
	})
}

func TestStartReview(t *testing.T) {
	RegisterTestingT(t)
	var testDatabase *testinfra.TestDatabase

	t.Run("should move submitted task under review", func(t *testing.T) {
		defer teardown(t, testDatabase)
		task, _, _ := setup(t, &testDatabase, domain.ClientInteractComment)
		_, err := submitTask(task, nil)
		Expect(err).To(BeNil())

		detail, err := flow.TransitTask(&flow.TransitionCreation{TaskID: task.ID, Action: state.ActionStartReview}, managerSession)
		Expect(err).To(BeNil())
		Expect(detail.Status).To(Equal(state.StateUnderReview.Name))
		Expect(detail.LatestAssignment.Status).To(Equal(state.StateUnderReview.Name))
	})

	t.Run("should fail from draft", func(t *testing.T) {
		defer teardown(t, testDatabase)
		task, _, _ := setup(t, &testDatabase, domain.ClientInteractComment)

		detail, err := flow.TransitTask(&flow.TransitionCreation{TaskID: task.ID, Action: state.ActionStartReview}, managerSession)
		Expect(detail).To(BeNil())
		Expect(err).To(Equal(bizerror.ErrInvalidState))
	})
}

func TestApprove(t *testing.T) {
	RegisterTestingT(t)
	var testDatabase *testinfra.TestDatabase

	t.Run("should approve to terminal state when nothing awaits the client", func(t *testing.T) {
		defer teardown(t, testDatabase)
		task, _, notices := setup(t, &testDatabase, domain.ClientInteractReadOnly)
		_, err := submitTask(task, nil)
		Expect(err).To(BeNil())

		detail, err := flow.TransitTask(&flow.TransitionCreation{TaskID: task.ID, Action: state.ActionApprove}, managerSession)
		Expect(err).To(BeNil())
		Expect(detail.Status).To(Equal(state.StateApproved.Name))
		Expect(detail.Completion).To(Equal(domain.CompletionCompleted))
		Expect(detail.LatestAssignment.Approved).To(BeTrue())

		// submit notice to manager, approval notice to the worker
		Expect(len(*notices)).To(Equal(2))
		Expect((*notices)[1].targets).To(Equal([]types.ID{200}))
		Expect((*notices)[1].notice.Type).To(Equal(notification.TypeApproval))
	})

	t.Run("should route to the client when document requests exist", func(t *testing.T) {
		defer teardown(t, testDatabase)
		task, _, notices := setup(t, &testDatabase, domain.ClientInteractUpload)
		_, err := submitTask(task, []clientdoc.RequestCreation{{Name: "ID card"}})
		Expect(err).To(BeNil())

		detail, err := flow.TransitTask(&flow.TransitionCreation{TaskID: task.ID, Action: state.ActionApprove}, managerSession)
		Expect(err).To(BeNil())
		Expect(detail.Status).To(Equal(state.StateSubmittedToClient.Name))
		Expect(detail.Completion).To(Equal(domain.CompletionInProgress))

		Expect(len(*notices)).To(Equal(3))
		Expect((*notices)[2].targets).To(Equal([]types.ID{300}))
		Expect((*notices)[2].notice.Type).To(Equal(notification.TypeClientTask))
	})

	t.Run("should route comment tasks with document requests to the client", func(t *testing.T) {
		defer teardown(t, testDatabase)
		task, _, notices := setup(t, &testDatabase, domain.ClientInteractComment)
		_, err := submitTask(task, []clientdoc.RequestCreation{{Name: "signed contract"}})
		Expect(err).To(BeNil())

		detail, err := flow.TransitTask(&flow.TransitionCreation{TaskID: task.ID, Action: state.ActionApprove}, managerSession)
		Expect(err).To(BeNil())
		Expect(detail.Status).To(Equal(state.StateSubmittedToClient.Name))

		last := (*notices)[len(*notices)-1]
		Expect(last.targets).To(Equal([]types.ID{300}))
		Expect(last.notice.Type).To(Equal(notification.TypeClientTask))
	})

	t.Run("should keep read only tasks away from the client", func(t *testing.T) {
		defer teardown(t, testDatabase)
		task, _, _ := setup(t, &testDatabase, domain.ClientInteractReadOnly)
		db := testDatabase.DS.GormDB(context.TODO())

		_, err := submitTask(task, nil)
		Expect(err).To(BeNil())
		// a leftover ledger row must not route a read only task to the client
		saved := domain.Task{ID: task.ID}
		Expect(db.Where(&saved).First(&saved).Error).To(BeNil())
		_, err = clientdoc.CreateRequests(db, saved.LatestAssignmentID, task.ID, 1,
			[]clientdoc.RequestCreation{{Name: "ID card"}})
		Expect(err).To(BeNil())

		detail, err := flow.TransitTask(&flow.TransitionCreation{TaskID: task.ID, Action: state.ActionApprove}, managerSession)
		Expect(err).To(BeNil())
		Expect(detail.Status).To(Equal(state.StateApproved.Name))
	})
}

func TestReject(t *testing.T) {
	RegisterTestingT(t)
	var testDatabase *testinfra.TestDatabase

	t.Run("should require a non-blank comment and leave no trace otherwise", func(t *testing.T) {
		defer teardown(t, testDatabase)
		task, persistedEvents, _ := setup(t, &testDatabase, domain.ClientInteractComment)
		db := testDatabase.DS.GormDB(context.TODO())

		_, err := submitTask(task, nil)
		Expect(err).To(BeNil())
		eventsAfterSubmit := len(*persistedEvents)

		detail, err := flow.TransitTask(&flow.TransitionCreation{
			TaskID: task.ID, Action: state.ActionReject, Comment: "   "}, managerSession)
		Expect(detail).To(BeNil())
		_, ok := err.(*bizerror.ErrBadParam)
		Expect(ok).To(BeTrue())

		saved := domain.Task{ID: task.ID}
		Expect(db.Where(&saved).First(&saved).Error).To(BeNil())
		Expect(saved.Status).To(Equal(state.StateSubmitted.Name))
		Expect(len(*persistedEvents)).To(Equal(eventsAfterSubmit))
	})

	t.Run("should return the task for revision and allow resubmission", func(t *testing.T) {
		defer teardown(t, testDatabase)
		task, _, notices := setup(t, &testDatabase, domain.ClientInteractComment)

		_, err := submitTask(task, nil)
		Expect(err).To(BeNil())

		detail, err := flow.TransitTask(&flow.TransitionCreation{
			TaskID: task.ID, Action: state.ActionReject, Comment: "missing numbers"}, managerSession)
		Expect(err).To(BeNil())
		Expect(detail.Status).To(Equal(state.StateReturnedForRevision.Name))
		Expect(detail.LatestAssignment.RejectionComment).To(Equal("missing numbers"))
		Expect((*notices)[1].targets).To(Equal([]types.ID{200}))

		firstAssignmentId := detail.LatestAssignment.ID
		detail, err = submitTask(task, nil)
		Expect(err).To(BeNil())
		Expect(detail.Status).To(Equal(state.StateSubmitted.Name))
		Expect(detail.LatestAssignment.ID).ToNot(Equal(firstAssignmentId))

		history, err := assignment.AssignmentHistory(task.ID, workerSession)
		Expect(err).To(BeNil())
		Expect(len(history)).To(Equal(2))
	})
}

func TestClientReply(t *testing.T) {
	RegisterTestingT(t)
	var testDatabase *testinfra.TestDatabase

	prepareSubmittedToClient := func(task *domain.Task) {
		_, err := submitTask(task, []clientdoc.RequestCreation{{Name: "ID card"}})
		Expect(err).To(BeNil())
		_, err = flow.TransitTask(&flow.TransitionCreation{TaskID: task.ID, Action: state.ActionApprove}, managerSession)
		Expect(err).To(BeNil())
	}

	t.Run("should forbid reply from non-client roles", func(t *testing.T) {
		defer teardown(t, testDatabase)
		task, _, _ := setup(t, &testDatabase, domain.ClientInteractUpload)
		prepareSubmittedToClient(task)

		detail, err := flow.TransitTask(&flow.TransitionCreation{
			TaskID: task.ID, Action: state.ActionClientReply, Comment: "fine"}, workerSession)
		Expect(detail).To(BeNil())
		Expect(err).To(Equal(bizerror.ErrForbidden))
	})

	t.Run("should require a non-blank comment", func(t *testing.T) {
		defer teardown(t, testDatabase)
		task, _, _ := setup(t, &testDatabase, domain.ClientInteractUpload)
		prepareSubmittedToClient(task)

		detail, err := flow.TransitTask(&flow.TransitionCreation{
			TaskID: task.ID, Action: state.ActionClientReply, Comment: " "}, clientSession)
		Expect(detail).To(BeNil())
		_, ok := err.(*bizerror.ErrBadParam)
		Expect(ok).To(BeTrue())
	})

	t.Run("should record the reply once and notify approvers", func(t *testing.T) {
		defer teardown(t, testDatabase)
		task, _, notices := setup(t, &testDatabase, domain.ClientInteractUpload)
		prepareSubmittedToClient(task)

		detail, err := flow.TransitTask(&flow.TransitionCreation{
			TaskID: task.ID, Action: state.ActionClientReply, Comment: "all uploaded"}, clientSession)
		Expect(err).To(BeNil())
		Expect(detail.Status).To(Equal(state.StateClientReply.Name))
		Expect(detail.LatestAssignment.ClientComment).To(Equal("all uploaded"))
		Expect(detail.LatestAssignment.ReplyState).To(Equal(domain.ReplyStateReplied))

		last := (*notices)[len(*notices)-1]
		Expect(last.targets).To(Equal([]types.ID{100}))
		Expect(last.notice.Type).To(Equal(notification.TypeApproval))

		// the state already moved on, a second reply is rejected
		detail, err = flow.TransitTask(&flow.TransitionCreation{
			TaskID: task.ID, Action: state.ActionClientReply, Comment: "one more"}, clientSession)
		Expect(detail).To(BeNil())
		Expect(err).To(Equal(bizerror.ErrInvalidState))
	})

	t.Run("should attach documents uploaded alongside the reply", func(t *testing.T) {
		defer teardown(t, testDatabase)
		task, _, _ := setup(t, &testDatabase, domain.ClientInteractComment)
		db := testDatabase.DS.GormDB(context.TODO())
		prepareSubmittedToClient(task)

		detail, err := flow.TransitTask(&flow.TransitionCreation{
			TaskID: task.ID, Action: state.ActionClientReply, Comment: "see the attached scan",
			Files: []assignment.FileCreation{{Label: "ID card scan", Path: "uploads/y/id-card.pdf"}},
		}, clientSession)
		Expect(err).To(BeNil())
		Expect(detail.Status).To(Equal(state.StateClientReply.Name))

		docs, err := assignment.LoadDocs(db, detail.LatestAssignment.ID)
		Expect(err).To(BeNil())
		Expect(len(docs)).To(Equal(2))
		Expect(docs[0].Origin).To(Equal(domain.DocOriginWorker))
		Expect(docs[1].Origin).To(Equal(domain.DocOriginClient))
		Expect(docs[1].Label).To(Equal("ID card scan"))
		Expect(docs[1].Path).To(Equal("uploads/y/id-card.pdf"))

		// the ledger still gates completion until the request is fulfilled
		_, err = flow.TransitTask(&flow.TransitionCreation{
			TaskID: task.ID, Action: state.ActionAcceptClientDocuments}, managerSession)
		Expect(err).To(Equal(bizerror.ErrInvalidState))

		requests, err := clientdoc.LoadRequests(db, detail.LatestAssignment.ID)
		Expect(err).To(BeNil())
		Expect(clientdoc.MarkFulfilled(db, requests[0].ID, "uploads/y/id-card.pdf")).To(BeNil())
		completed, err := flow.TransitTask(&flow.TransitionCreation{
			TaskID: task.ID, Action: state.ActionAcceptClientDocuments}, managerSession)
		Expect(err).To(BeNil())
		Expect(completed.Status).To(Equal(state.StateCompleted.Name))
	})
}

func TestAcceptClientDocuments(t *testing.T) {
	RegisterTestingT(t)
	var testDatabase *testinfra.TestDatabase

	prepareClientReply := func(task *domain.Task) *domain.TaskDetail {
		_, err := submitTask(task, []clientdoc.RequestCreation{{Name: "ID card"}})
		Expect(err).To(BeNil())
		_, err = flow.TransitTask(&flow.TransitionCreation{TaskID: task.ID, Action: state.ActionApprove}, managerSession)
		Expect(err).To(BeNil())
		detail, err := flow.TransitTask(&flow.TransitionCreation{
			TaskID: task.ID, Action: state.ActionClientReply, Comment: "done"}, clientSession)
		Expect(err).To(BeNil())
		return detail
	}

	t.Run("should refuse completion while requests are unfulfilled", func(t *testing.T) {
		defer teardown(t, testDatabase)
		task, _, _ := setup(t, &testDatabase, domain.ClientInteractUpload)
		prepareClientReply(task)

		detail, err := flow.TransitTask(&flow.TransitionCreation{
			TaskID: task.ID, Action: state.ActionAcceptClientDocuments}, managerSession)
		Expect(detail).To(BeNil())
		Expect(err).To(Equal(bizerror.ErrInvalidState))
	})

	t.Run("should complete the task when the ledger is fulfilled", func(t *testing.T) {
		defer teardown(t, testDatabase)
		task, _, notices := setup(t, &testDatabase, domain.ClientInteractUpload)
		replied := prepareClientReply(task)
		db := testDatabase.DS.GormDB(context.TODO())

		requests, err := clientdoc.LoadRequests(db, replied.LatestAssignment.ID)
		Expect(err).To(BeNil())
		Expect(clientdoc.MarkFulfilled(db, requests[0].ID, "assignments/x/id.pdf")).To(BeNil())

		detail, err := flow.TransitTask(&flow.TransitionCreation{
			TaskID: task.ID, Action: state.ActionAcceptClientDocuments}, managerSession)
		Expect(err).To(BeNil())
		Expect(detail.Status).To(Equal(state.StateCompleted.Name))
		Expect(detail.Completion).To(Equal(domain.CompletionCompleted))

		// worker and client both learn about the completion
		last2 := (*notices)[len(*notices)-2:]
		Expect(last2[0].targets).To(Equal([]types.ID{200}))
		Expect(last2[1].targets).To(Equal([]types.ID{300}))
		Expect(last2[0].notice.Type).To(Equal(notification.TypeActivity))
	})
}

func TestRequestReupload(t *testing.T) {
	RegisterTestingT(t)
	var testDatabase *testinfra.TestDatabase

	t.Run("should reopen the ledger and the client reply", func(t *testing.T) {
		defer teardown(t, testDatabase)
		task, _, notices := setup(t, &testDatabase, domain.ClientInteractUpload)
		db := testDatabase.DS.GormDB(context.TODO())

		_, err := submitTask(task, []clientdoc.RequestCreation{{Name: "ID card"}})
		Expect(err).To(BeNil())
		_, err = flow.TransitTask(&flow.TransitionCreation{TaskID: task.ID, Action: state.ActionApprove}, managerSession)
		Expect(err).To(BeNil())
		replied, err := flow.TransitTask(&flow.TransitionCreation{
			TaskID: task.ID, Action: state.ActionClientReply, Comment: "done"}, clientSession)
		Expect(err).To(BeNil())
		requests, err := clientdoc.LoadRequests(db, replied.LatestAssignment.ID)
		Expect(err).To(BeNil())
		Expect(clientdoc.MarkFulfilled(db, requests[0].ID, "assignments/x/id.pdf")).To(BeNil())

		detail, err := flow.TransitTask(&flow.TransitionCreation{
			TaskID: task.ID, Action: state.ActionRequestReupload, Comment: "file unreadable"}, managerSession)
		Expect(err).To(BeNil())
		Expect(detail.Status).To(Equal(state.StateSubmittedToClient.Name))
		Expect(detail.LatestAssignment.ReuploadComment).To(Equal("file unreadable"))
		Expect(detail.LatestAssignment.ReplyState).To(Equal(domain.ReplyStateNone))

		saved, err := clientdoc.LoadRequests(db, replied.LatestAssignment.ID)
		Expect(err).To(BeNil())
		Expect(saved[0].State).To(Equal(domain.FulfillmentUnfulfilled))

		last := (*notices)[len(*notices)-1]
		Expect(last.targets).To(Equal([]types.ID{300}))
		Expect(last.notice.Type).To(Equal(notification.TypeDocumentRequest))

		// the client can reply again after the reupload request
		detail, err = flow.TransitTask(&flow.TransitionCreation{
			TaskID: task.ID, Action: state.ActionClientReply, Comment: "re-uploaded"}, clientSession)
		Expect(err).To(BeNil())
		Expect(detail.LatestAssignment.ReplyState).To(Equal(domain.ReplyStateReplied))
	})

	t.Run("should require a non-blank comment", func(t *testing.T) {
		defer teardown(t, testDatabase)
		task, _, _ := setup(t, &testDatabase, domain.ClientInteractUpload)

		_, err := submitTask(task, []clientdoc.RequestCreation{{Name: "ID card"}})
		Expect(err).To(BeNil())
		_, err = flow.TransitTask(&flow.TransitionCreation{TaskID: task.ID, Action: state.ActionApprove}, managerSession)
		Expect(err).To(BeNil())
		_, err = flow.TransitTask(&flow.TransitionCreation{
			TaskID: task.ID, Action: state.ActionClientReply, Comment: "done"}, clientSession)
		Expect(err).To(BeNil())

		detail, err := flow.TransitTask(&flow.TransitionCreation{
			TaskID: task.ID, Action: state.ActionRequestReupload, Comment: ""}, managerSession)
		Expect(detail).To(BeNil())
		_, ok := err.(*bizerror.ErrBadParam)
		Expect(ok).To(BeTrue())
	})
}

func TestUnknownAction(t *testing.T) {
	RegisterTestingT(t)
	var testDatabase *testinfra.TestDatabase

	t.Run("should reject unknown actions", func(t *testing.T) {
		defer teardown(t, testDatabase)
		task, _, _ := setup(t, &testDatabase, domain.ClientInteractComment)

		detail, err := flow.TransitTask(&flow.TransitionCreation{TaskID: task.ID, Action: "explode"}, managerSession)
		Expect(detail).To(BeNil())
		Expect(err).To(Equal(bizerror.ErrUnknownAction))
	})
}

func TestAvailableTransitions(t *testing.T) {
	RegisterTestingT(t)
	var testDatabase *testinfra.TestDatabase

	t.Run("should derive transitions from the session's project roles", func(t *testing.T) {
		defer teardown(t, testDatabase)
		task, _, _ := setup(t, &testDatabase, domain.ClientInteractComment)

		transitions, err := flow.AvailableTransitions(task.ID, workerSession)
		Expect(err).To(BeNil())
		Expect(len(transitions)).To(Equal(1))
		Expect(transitions[0].Action).To(Equal(state.ActionSubmit))

		transitions, err = flow.AvailableTransitions(task.ID, managerSession)
		Expect(err).To(BeNil())
		Expect(transitions).To(BeEmpty())

		_, err = submitTask(task, nil)
		Expect(err).To(BeNil())
		transitions, err = flow.AvailableTransitions(task.ID, managerSession)
		Expect(err).To(BeNil())
		// start review, approve to either target, reject
		Expect(len(transitions)).To(Equal(4))
	})
}
