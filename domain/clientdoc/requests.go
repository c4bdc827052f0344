package clientdoc

import (
	"errors"
	"strings"
	"taskflow/bizerror"
	"taskflow/domain"
	"taskflow/idgen"
	"taskflow/persistence"
	"taskflow/session"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
	"github.com/sony/sonyflake"
)

var (
	requestIdWorker = sonyflake.NewSonyflake(sonyflake.Settings{})

	QueryRequestsFunc = QueryRequests
)

type RequestCreation struct {
	Name        string `json:"name" binding:"required,lte=300"`
	Description string `json:"description" binding:"lte=1000"`
}

// CreateRequests appends the document requests of a new assignment inside
// the caller's transaction. All requests start UNFULFILLED.
func CreateRequests(tx *gorm.DB, assignmentId, taskId, projectId types.ID,
	creations []RequestCreation) ([]domain.ClientDocRequest, error) {

	records := []domain.ClientDocRequest{}
	for _, c := range creations {
		if strings.TrimSpace(c.Name) == "" {
			return nil, &bizerror.ErrBadParam{Cause: errors.New("document request name must not be blank")}
		}
		record := domain.ClientDocRequest{
			ID:           idgen.NextID(requestIdWorker),
			AssignmentID: assignmentId,
			TaskID:       taskId,
			ProjectID:    projectId,
			Name:         c.Name,
			Description:  c.Description,
			State:        domain.FulfillmentUnfulfilled,
		}
		if err := tx.Create(&record).Error; err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

// MarkFulfilled records the uploaded file on an UNFULFILLED request. The
// conditional update makes fulfillment one-shot, a second upload against the
// same request fails with an invalid state error.
func MarkFulfilled(tx *gorm.DB, requestId types.ID, filePath string) error {
	db := tx.Model(&domain.ClientDocRequest{}).
		Where("id = ? AND state = ?", requestId, domain.FulfillmentUnfulfilled).
		Updates(map[string]interface{}{
			"state":       domain.FulfillmentFulfilled,
			"file_path":   filePath,
			"upload_time": types.CurrentTimestamp(),
		})
	if db.Error != nil {
		return db.Error
	}
	if db.RowsAffected != 1 {
		return bizerror.ErrInvalidState
	}
	return nil
}

// ResetRequests puts all requests of the assignment back to UNFULFILLED so
// the client can upload replacements after a reupload request.
func ResetRequests(tx *gorm.DB, assignmentId types.ID) error {
	return tx.Model(&domain.ClientDocRequest{}).
		Where(&domain.ClientDocRequest{AssignmentID: assignmentId}).
		Updates(map[string]interface{}{
			"state":     domain.FulfillmentUnfulfilled,
			"file_path": "",
		}).Error
}

// AllFulfilled reports whether no request of the assignment is still
// UNFULFILLED.
func AllFulfilled(tx *gorm.DB, assignmentId types.ID) (bool, error) {
	count := 0
	if err := tx.Model(&domain.ClientDocRequest{}).
		Where(&domain.ClientDocRequest{AssignmentID: assignmentId, State: domain.FulfillmentUnfulfilled}).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count == 0, nil
}

func LoadRequests(tx *gorm.DB, assignmentId types.ID) ([]domain.ClientDocRequest, error) {
	records := []domain.ClientDocRequest{}
	if err := tx.Where(&domain.ClientDocRequest{AssignmentID: assignmentId}).
		Order("id ASC").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func QueryRequests(assignmentId types.ID, s *session.Session) ([]domain.ClientDocRequest, error) {
	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	a := domain.Assignment{ID: assignmentId}
	if err := db.Where(&a).First(&a).Error; err != nil {
		return nil, err
	}
	if !s.Perms.HasProjectViewPerm(a.ProjectID) {
		return nil, bizerror.ErrForbidden
	}
	return LoadRequests(db, assignmentId)
}
