package clientdoc

import (
	"fmt"
	"io"
	"taskflow/account"
	"taskflow/bizerror"
	"taskflow/client/s3"
	"taskflow/domain"
	"taskflow/domain/state"
	"taskflow/event"
	"taskflow/idgen"
	"taskflow/notification"
	"taskflow/persistence"
	"taskflow/session"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
	"github.com/sirupsen/logrus"
	"github.com/sony/sonyflake"
)

var (
	docIdWorker = sonyflake.NewSonyflake(sonyflake.Settings{})

	FulfillRequestFunc = FulfillRequest
)

// FulfillRequest uploads the client's file for an UNFULFILLED request of the
// latest assignment while the task awaits the client. Fulfillment is
// one-shot per request.
func FulfillRequest(requestId types.ID, fileName string, content io.Reader, s *session.Session) (*domain.ClientDocRequest, error) {
	db := persistence.ActiveDataSourceManager.GormDB(s.Context)

	record := domain.ClientDocRequest{ID: requestId}
	if err := db.Where(&record).First(&record).Error; err != nil {
		return nil, err
	}
	if !s.Perms.HasProjectRole(domain.ProjectRoleClient, record.ProjectID) {
		return nil, bizerror.ErrForbidden
	}

	task := domain.Task{ID: record.TaskID}
	if err := db.Where(&task).First(&task).Error; err != nil {
		return nil, err
	}
	if task.Status != state.StateSubmittedToClient.Name {
		return nil, bizerror.ErrInvalidState
	}
	if task.LatestAssignmentID != record.AssignmentID {
		return nil, bizerror.ErrInvalidState
	}
	if record.State != domain.FulfillmentUnfulfilled {
		return nil, bizerror.ErrInvalidState
	}

	objectKey := s3.DocumentObjectKey(record.AssignmentID, fileName)
	if err := s3.PutObjectFunc(objectKey, content, s); err != nil {
		return nil, err
	}

	var ev *event.EventRecord
	err := db.Transaction(func(tx *gorm.DB) error {
		p := domain.Project{ID: record.ProjectID}
		if err := tx.Where(&p).First(&p).Error; err != nil {
			return err
		}
		if p.Status != domain.ProjectStatusInProgress {
			return bizerror.ErrProjectNotActive
		}

		if err := MarkFulfilled(tx, requestId, objectKey); err != nil {
			return err
		}
		doc := domain.AssignmentDoc{
			ID:           idgen.NextID(docIdWorker),
			AssignmentID: record.AssignmentID,
			Label:        record.Name,
			Path:         objectKey,
			Origin:       domain.DocOriginClient,
			UploadTime:   types.CurrentTimestamp(),
		}
		if err := tx.Create(&doc).Error; err != nil {
			return err
		}

		var err error
		ev, err = event.CreateEvent(event.SourceTypeClientDocRequest, record.ID, record.Name,
			record.ProjectID, event.EventCategoryPropertyUpdated, []event.UpdatedProperty{{
				PropertyName: "state", PropertyDesc: "state",
				OldValue: string(domain.FulfillmentUnfulfilled), OldValueDesc: string(domain.FulfillmentUnfulfilled),
				NewValue: string(domain.FulfillmentFulfilled), NewValueDesc: string(domain.FulfillmentFulfilled),
			}}, &s.Identity, tx)
		return err
	})
	if err != nil {
		return nil, err
	}

	event.InvokeHandlersFunc(ev)

	managers, err := account.QueryMemberIDsFunc(db, record.ProjectID, domain.ProjectRoleManager)
	if err != nil {
		logrus.Warnf("failed to resolve notify targets of project %d: %v\n", record.ProjectID, err)
	} else {
		notification.DispatchFunc(managers, notification.Notice{
			Type:    notification.TypeDocumentRequest,
			Title:   "Document uploaded",
			Message: fmt.Sprintf("%s uploaded the requested document %q", s.Identity.Name, record.Name),
			URL:     fmt.Sprintf("/tasks/%d", record.TaskID),
		}, s)
	}

	if err := db.Where(&domain.ClientDocRequest{ID: requestId}).First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}
