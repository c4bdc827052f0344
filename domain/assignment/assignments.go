package assignment

import (
	"errors"
	"strings"
	"taskflow/bizerror"
	"taskflow/domain"
	"taskflow/domain/clientdoc"
	"taskflow/idgen"
	"taskflow/persistence"
	"taskflow/session"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
	"github.com/sony/sonyflake"
)

var (
	assignmentIdWorker = sonyflake.NewSonyflake(sonyflake.Settings{})
	docIdWorker        = sonyflake.NewSonyflake(sonyflake.Settings{})

	AssignmentHistoryFunc = AssignmentHistory
	DetailAssignmentFunc  = DetailAssignment
)

type FileCreation struct {
	Label string `json:"label" binding:"required,lte=300"`
	Path  string `json:"path" binding:"required,lte=500"`
}

type AssignmentCreation struct {
	TaskID types.ID `json:"taskId" binding:"required"`
	Notes  string   `json:"notes" binding:"lte=10000"`

	Files       []FileCreation              `json:"files" binding:"omitempty,dive"`
	DocRequests []clientdoc.RequestCreation `json:"docRequests" binding:"omitempty,dive"`
}

// ValidateCreation enforces the content rules of a submission against its
// task configuration.
func ValidateCreation(task *domain.Task, c *AssignmentCreation) error {
	if len(c.Files) == 0 && len(c.DocRequests) == 0 && strings.TrimSpace(c.Notes) == "" {
		return &bizerror.ErrBadParam{Cause: errors.New("assignment must carry files, client document requests or non-blank notes")}
	}
	if !task.MultipleFiles && len(c.Files) > 1 {
		return &bizerror.ErrBadParam{Cause: errors.New("task accepts a single file only")}
	}
	if task.ClientInteract == domain.ClientInteractUpload && len(c.DocRequests) == 0 {
		return &bizerror.ErrBadParam{Cause: errors.New("upload task requires at least one client document request")}
	}
	if task.ClientInteract == domain.ClientInteractReadOnly && len(c.DocRequests) > 0 {
		return &bizerror.ErrBadParam{Cause: errors.New("client document requests are not allowed on read only tasks")}
	}
	return nil
}

// CreateAssignment persists a new submission with its documents and client
// document requests inside the caller's transaction. The status argument is
// the task status snapshot the assignment starts in.
func CreateAssignment(tx *gorm.DB, task *domain.Task, c *AssignmentCreation, status string,
	s *session.Session) (*domain.Assignment, error) {

	if err := ValidateCreation(task, c); err != nil {
		return nil, err
	}

	now := types.CurrentTimestamp()
	record := domain.Assignment{
		ID:         idgen.NextID(assignmentIdWorker),
		TaskID:     task.ID,
		ProjectID:  task.ProjectID,
		WorkerID:   s.Identity.ID,
		Notes:      c.Notes,
		ReplyState: domain.ReplyStateNone,
		Status:     status,
		CreateTime: now,
	}
	if err := tx.Create(&record).Error; err != nil {
		return nil, err
	}

	for _, f := range c.Files {
		doc := domain.AssignmentDoc{
			ID:           idgen.NextID(docIdWorker),
			AssignmentID: record.ID,
			Label:        f.Label,
			Path:         f.Path,
			Origin:       domain.DocOriginWorker,
			UploadTime:   now,
		}
		if err := tx.Create(&doc).Error; err != nil {
			return nil, err
		}
	}

	if _, err := clientdoc.CreateRequests(tx, record.ID, task.ID, task.ProjectID, c.DocRequests); err != nil {
		return nil, err
	}
	return &record, nil
}

// AttachClientDocs stores documents the client uploaded alongside a reply.
func AttachClientDocs(tx *gorm.DB, assignmentId types.ID, files []FileCreation) error {
	now := types.CurrentTimestamp()
	for _, f := range files {
		doc := domain.AssignmentDoc{
			ID:           idgen.NextID(docIdWorker),
			AssignmentID: assignmentId,
			Label:        f.Label,
			Path:         f.Path,
			Origin:       domain.DocOriginClient,
			UploadTime:   now,
		}
		if err := tx.Create(&doc).Error; err != nil {
			return err
		}
	}
	return nil
}

// AppendClientReply records the client's one-shot comment on the assignment.
// The conditional update fails when the client already replied.
func AppendClientReply(tx *gorm.DB, assignmentId types.ID, comment string) error {
	db := tx.Model(&domain.Assignment{}).
		Where("id = ? AND reply_state = ?", assignmentId, domain.ReplyStateNone).
		Updates(map[string]interface{}{
			"client_comment": comment,
			"reply_state":    domain.ReplyStateReplied,
		})
	if db.Error != nil {
		return db.Error
	}
	if db.RowsAffected != 1 {
		return bizerror.ErrInvalidState
	}
	return nil
}

// SetStatus moves the assignment's task status snapshot.
func SetStatus(tx *gorm.DB, assignmentId types.ID, status string) error {
	return tx.Model(&domain.Assignment{ID: assignmentId}).Update("status", status).Error
}

func MarkApproved(tx *gorm.DB, assignmentId types.ID, status string) error {
	return tx.Model(&domain.Assignment{ID: assignmentId}).
		Updates(map[string]interface{}{"approved": true, "status": status}).Error
}

func MarkRejected(tx *gorm.DB, assignmentId types.ID, comment, status string) error {
	return tx.Model(&domain.Assignment{ID: assignmentId}).
		Updates(map[string]interface{}{"rejection_comment": comment, "status": status}).Error
}

// MarkReuploadRequested records the approver's comment and reopens the reply
// so the client can answer again after re-uploading.
func MarkReuploadRequested(tx *gorm.DB, assignmentId types.ID, comment, status string) error {
	return tx.Model(&domain.Assignment{ID: assignmentId}).
		Updates(map[string]interface{}{
			"reupload_comment": comment,
			"reply_state":      domain.ReplyStateNone,
			"status":           status,
		}).Error
}

func LoadDocs(tx *gorm.DB, assignmentId types.ID) ([]domain.AssignmentDoc, error) {
	docs := []domain.AssignmentDoc{}
	if err := tx.Where(&domain.AssignmentDoc{AssignmentID: assignmentId}).
		Order("id ASC").Find(&docs).Error; err != nil {
		return nil, err
	}
	return docs, nil
}

func loadDetail(tx *gorm.DB, record domain.Assignment) (*domain.AssignmentDetail, error) {
	docs, err := LoadDocs(tx, record.ID)
	if err != nil {
		return nil, err
	}
	requests, err := clientdoc.LoadRequests(tx, record.ID)
	if err != nil {
		return nil, err
	}
	return &domain.AssignmentDetail{Assignment: record, Docs: docs, DocRequests: requests}, nil
}

// AssignmentHistory lists all submission attempts of a task, most recent
// first, each with its documents and document requests.
func AssignmentHistory(taskId types.ID, s *session.Session) ([]domain.AssignmentDetail, error) {
	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	task := domain.Task{ID: taskId}
	if err := db.Where(&task).First(&task).Error; err != nil {
		return nil, err
	}
	if !s.Perms.HasProjectViewPerm(task.ProjectID) {
		return nil, bizerror.ErrForbidden
	}

	records := []domain.Assignment{}
	if err := db.Where(&domain.Assignment{TaskID: taskId}).
		Order("create_time DESC").Find(&records).Error; err != nil {
		return nil, err
	}

	details := []domain.AssignmentDetail{}
	for _, record := range records {
		detail, err := loadDetail(db, record)
		if err != nil {
			return nil, err
		}
		details = append(details, *detail)
	}
	return details, nil
}

func DetailAssignment(id types.ID, s *session.Session) (*domain.AssignmentDetail, error) {
	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	record := domain.Assignment{ID: id}
	if err := db.Where(&record).First(&record).Error; err != nil {
		return nil, err
	}
	if !s.Perms.HasProjectViewPerm(record.ProjectID) {
		return nil, bizerror.ErrForbidden
	}
	return loadDetail(db, record)
}
