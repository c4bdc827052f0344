package notification

import (
	"github.com/fundwit/go-commons/types"
)

// Notice types group notifications by the kind of attention they ask for.
const (
	TypeApproval        = "approval"
	TypeAssignment      = "assignment"
	TypeActivity        = "activity"
	TypeClientTask      = "client_task"
	TypeDocumentRequest = "document_request"
)

type ReadState string

const (
	ReadStateUnread = ReadState("UNREAD")
	ReadStateRead   = ReadState("READ")
)

// Notification is the persisted copy of a notice, one row per target user.
// The push channel only carries a best-effort duplicate.
type Notification struct {
	ID     types.ID `json:"id" gorm:"primary_key"`
	UserID types.ID `json:"userId" gorm:"index:idx_notification_user"`

	Type    string `json:"type"`
	Title   string `json:"title"`
	Message string `json:"message" sql:"type:TEXT"`
	URL     string `json:"url"`

	ReadState ReadState       `json:"readState"`
	ReadTime  types.Timestamp `json:"readTime" sql:"type:DATETIME(6)"`

	CreateTime types.Timestamp `json:"createTime" sql:"type:DATETIME(6) NOT NULL"`
}

// Notice is the user independent content of a notification.
type Notice struct {
	Type    string `json:"type"`
	Title   string `json:"title"`
	Message string `json:"message"`
	URL     string `json:"url"`
}

type NotificationList struct {
	Records     []Notification `json:"records"`
	UnreadCount int            `json:"unreadCount"`
}
