package indices

import (
	"context"
	"taskflow/client/es"
	"taskflow/event"
	"taskflow/session"

	"github.com/fundwit/go-commons/types"
)

const ActivityIndexName = "activities"

var IndexActivityFunc = IndexActivity

// ActivityDocument is the searchable projection of one audit event.
type ActivityDocument struct {
	ID types.ID `json:"id"`

	SourceId   types.ID `json:"sourceId"`
	SourceType string   `json:"sourceType"`
	SourceDesc string   `json:"sourceDesc"`

	ProjectId types.ID `json:"projectId"`

	CreatorId   types.ID `json:"creatorId"`
	CreatorName string   `json:"creatorName"`

	EventCategory event.EventCategory     `json:"eventCategory"`
	Updates       event.UpdatedProperties `json:"updates"`

	Timestamp types.Timestamp `json:"timestamp"`
}

func BuildActivityDocument(record *event.EventRecord) *ActivityDocument {
	return &ActivityDocument{
		ID:            record.ID,
		SourceId:      record.SourceId,
		SourceType:    record.SourceType,
		SourceDesc:    record.SourceDesc,
		ProjectId:     record.ProjectId,
		CreatorId:     record.CreatorId,
		CreatorName:   record.CreatorName,
		EventCategory: record.EventCategory,
		Updates:       record.UpdatedProperties,
		Timestamp:     record.Timestamp,
	}
}

func IndexActivity(record *event.EventRecord) error {
	doc := BuildActivityDocument(record)
	s := session.Session{
		Identity: session.Identity{ID: record.CreatorId, Name: record.CreatorName},
		Context:  context.Background(),
	}
	return es.IndexFunc(ActivityIndexName, doc.ID, doc, &s)
}

// ActivityIndexEventHandle feeds every committed audit event into the
// activity index. Registered on the event handler chain at bootstrap.
func ActivityIndexEventHandle(record *event.EventRecord) *event.EventHandleResult {
	result := event.EventHandleResult{Success: true, HandlerIdentifier: "activityIndex"}
	if err := IndexActivityFunc(record); err != nil {
		result.Success = false
		result.Message = err.Error()
	}
	return &result
}
