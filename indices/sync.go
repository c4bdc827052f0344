package indices

import (
	"context"
	"sync/atomic"
	"taskflow/account"
	"taskflow/bizerror"
	"taskflow/client/es"
	"taskflow/event"
	"taskflow/session"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const syncPageSize = 500

var (
	ScheduleNewSyncRunFunc = ScheduleNewSyncRun

	syncRunning int32

	// keep full sync from starving the live index traffic
	syncRateLimiter = rate.NewLimiter(rate.Limit(50), 50)
)

// ScheduleNewSyncRun rebuilds the activity index from the stored events in
// the background. Only one run may be active at a time.
func ScheduleNewSyncRun(s *session.Session) error {
	if !s.Perms.HasRole(account.SystemAdminPermission.ID) {
		return bizerror.ErrForbidden
	}
	if !atomic.CompareAndSwapInt32(&syncRunning, 0, 1) {
		return bizerror.ErrInvalidState
	}

	go func() {
		defer atomic.StoreInt32(&syncRunning, 0)
		SyncAllActivities()
	}()
	return nil
}

func SyncAllActivities() {
	// a full rebuild starts from an empty index; a missing index is fine
	if err := es.DropIndexFunc(ActivityIndexName, &session.Session{Context: context.Background()}); err != nil {
		logrus.Warnf("failed to drop activity index before sync: %v\n", err)
	}

	indexed := 0
	for page := 1; ; page++ {
		records, err := event.LoadEventsFunc(page, syncPageSize)
		if err != nil {
			logrus.Errorf("activity sync aborted on page %d: %v\n", page, err)
			return
		}
		if len(records) == 0 {
			break
		}
		for i := range records {
			if err := syncRateLimiter.Wait(context.Background()); err != nil {
				logrus.Errorf("activity sync aborted: %v\n", err)
				return
			}
			if err := IndexActivityFunc(&records[i]); err != nil {
				logrus.Warnf("failed to index activity %d: %v\n", records[i].ID, err)
				continue
			}
			indexed++
		}
		if len(records) < syncPageSize {
			break
		}
	}
	logrus.Infof("activity sync finished, %d records indexed\n", indexed)
}
