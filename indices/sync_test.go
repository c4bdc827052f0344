package indices_test

import (
	"errors"
	"taskflow/account"
	"taskflow/bizerror"
	"taskflow/client/es"
	"taskflow/event"
	"taskflow/indices"
	"taskflow/session"
	"taskflow/testinfra"
	"testing"

	. "github.com/onsi/gomega"

	"github.com/fundwit/go-commons/types"
)

func TestScheduleNewSyncRun(t *testing.T) {
	RegisterTestingT(t)

	t.Run("should be admin only", func(t *testing.T) {
		Expect(indices.ScheduleNewSyncRun(testinfra.BuildSession(10))).To(Equal(bizerror.ErrForbidden))
	})

	t.Run("should allow a single active run", func(t *testing.T) {
		admin := testinfra.BuildSession(1, account.SystemAdminPermission.ID)

		es.DropIndexFunc = func(index string, s *session.Session) error { return nil }
		release := make(chan struct{})
		event.LoadEventsFunc = func(page, size int) ([]event.EventRecord, error) {
			<-release
			return nil, nil
		}

		Expect(indices.ScheduleNewSyncRun(admin)).To(BeNil())
		Expect(indices.ScheduleNewSyncRun(admin)).To(Equal(bizerror.ErrInvalidState))

		close(release)
		Eventually(func() error { return indices.ScheduleNewSyncRun(admin) }).Should(BeNil())
	})
}

func TestSyncAllActivities(t *testing.T) {
	RegisterTestingT(t)

	t.Run("should index every stored event and survive single failures", func(t *testing.T) {
		dropped := []string{}
		es.DropIndexFunc = func(index string, s *session.Session) error {
			dropped = append(dropped, index)
			return nil
		}
		event.LoadEventsFunc = func(page, size int) ([]event.EventRecord, error) {
			if page > 1 {
				return nil, nil
			}
			return []event.EventRecord{{ID: 1}, {ID: 2}, {ID: 3}}, nil
		}

		indexed := []types.ID{}
		indices.IndexActivityFunc = func(record *event.EventRecord) error {
			if record.ID == 2 {
				return errors.New("es down")
			}
			indexed = append(indexed, record.ID)
			return nil
		}

		indices.SyncAllActivities()
		Expect(indexed).To(Equal([]types.ID{1, 3}))
		Expect(dropped).To(Equal([]string{indices.ActivityIndexName}))
	})

	t.Run("should abort when loading fails", func(t *testing.T) {
		// a failed index drop is only logged, the sync still proceeds
		es.DropIndexFunc = func(index string, s *session.Session) error {
			return errors.New("no such index")
		}
		event.LoadEventsFunc = func(page, size int) ([]event.EventRecord, error) {
			return nil, errors.New("db gone")
		}
		indices.IndexActivityFunc = func(record *event.EventRecord) error {
			t.Fatal("should not index anything")
			return nil
		}

		indices.SyncAllActivities()
	})
}
