package notification

import (
	"taskflow/bizerror"
	"taskflow/client/push"
	"taskflow/idgen"
	"taskflow/persistence"
	"taskflow/session"

	"github.com/fundwit/go-commons/types"
	"github.com/sirupsen/logrus"
	"github.com/sony/sonyflake"
)

var (
	notificationIdWorker = sonyflake.NewSonyflake(sonyflake.Settings{})

	DispatchFunc    = Dispatch
	ListForUserFunc = ListForUser
	MarkReadFunc    = MarkRead
	MarkAllReadFunc = MarkAllRead
)

// Dispatch persists one notification per target user and publishes a copy on
// each user's push channel. Dispatching is best-effort: failures are logged
// and never surfaced to the caller, the triggering operation has already
// committed.
func Dispatch(targets []types.ID, n Notice, s *session.Session) {
	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	seen := map[types.ID]bool{}
	for _, userId := range targets {
		if userId == 0 || seen[userId] {
			continue
		}
		seen[userId] = true

		record := Notification{
			ID:         idgen.NextID(notificationIdWorker),
			UserID:     userId,
			Type:       n.Type,
			Title:      n.Title,
			Message:    n.Message,
			URL:        n.URL,
			ReadState:  ReadStateUnread,
			CreateTime: types.CurrentTimestamp(),
		}
		if err := db.Create(&record).Error; err != nil {
			logrus.Warnf("failed to persist notification for user %d: %v\n", userId, err)
			continue
		}

		msg := push.Message{ID: record.ID, Type: record.Type, Title: record.Title,
			Message: record.Message, URL: record.URL, CreateTime: record.CreateTime}
		if err := push.PublishFunc(userId, msg, s); err != nil {
			logrus.Warnf("failed to publish notification %d to user %d: %v\n", record.ID, userId, err)
		}
	}
}

// ListForUser returns the session user's notifications, newest first, with
// the unread count.
func ListForUser(s *session.Session) (*NotificationList, error) {
	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	list := NotificationList{Records: []Notification{}}
	if err := db.Where(&Notification{UserID: s.Identity.ID}).
		Order("create_time DESC").Find(&list.Records).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&Notification{}).
		Where(&Notification{UserID: s.Identity.ID, ReadState: ReadStateUnread}).
		Count(&list.UnreadCount).Error; err != nil {
		return nil, err
	}
	return &list, nil
}

// MarkRead marks one of the session user's notifications as read; marking an
// already read notification is a no-op.
func MarkRead(id types.ID, s *session.Session) error {
	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	record := Notification{ID: id}
	if err := db.Where(&record).First(&record).Error; err != nil {
		return err
	}
	if record.UserID != s.Identity.ID {
		return bizerror.ErrForbidden
	}
	if record.ReadState == ReadStateRead {
		return nil
	}
	return db.Model(&Notification{ID: id}).Where(&Notification{ReadState: ReadStateUnread}).
		Updates(map[string]interface{}{"read_state": ReadStateRead, "read_time": types.CurrentTimestamp()}).Error
}

func MarkAllRead(s *session.Session) error {
	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	return db.Model(&Notification{}).
		Where(&Notification{UserID: s.Identity.ID, ReadState: ReadStateUnread}).
		Updates(map[string]interface{}{"read_state": ReadStateRead, "read_time": types.CurrentTimestamp()}).Error
}
