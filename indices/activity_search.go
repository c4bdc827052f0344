package indices

import (
	"encoding/json"
	"taskflow/bizerror"
	"taskflow/client/es"
	"taskflow/session"

	"github.com/fundwit/go-commons/types"
)

var SearchActivitiesFunc = SearchActivities

type ActivityQuery struct {
	ProjectID types.ID `json:"projectId" form:"projectId" binding:"required"`
	Keyword   string   `json:"keyword" form:"keyword"`

	Page int `json:"page" form:"page"`
	Size int `json:"size" form:"size"`
}

type ActivityList struct {
	Records []ActivityDocument `json:"records"`
	Total   int                `json:"total"`
}

// SearchActivities queries the activity index of one visible project,
// newest first.
func SearchActivities(q *ActivityQuery, s *session.Session) (*ActivityList, error) {
	if !s.Perms.HasProjectViewPerm(q.ProjectID) {
		return nil, bizerror.ErrForbidden
	}
	if q.Size <= 0 {
		q.Size = 20
	}
	if q.Page <= 0 {
		q.Page = 1
	}

	must := []es.H{
		{"term": es.H{"projectId": q.ProjectID}},
	}
	if q.Keyword != "" {
		must = append(must, es.H{"multi_match": es.H{
			"query":  q.Keyword,
			"fields": []string{"sourceDesc", "creatorName"},
		}})
	}
	query := es.H{
		"query": es.H{"bool": es.H{"must": must}},
		"sort":  []es.H{{"timestamp": es.H{"order": "desc"}}},
		"from":  (q.Page - 1) * q.Size,
		"size":  q.Size,
	}

	result, err := es.SearchFunc(ActivityIndexName, query, s)
	if err != nil {
		return nil, err
	}

	list := ActivityList{Records: []ActivityDocument{}, Total: result.Hits.Total.Value}
	for _, hit := range result.Hits.Hits {
		doc := ActivityDocument{}
		if err := json.Unmarshal([]byte(hit.Source), &doc); err != nil {
			return nil, err
		}
		list.Records = append(list.Records, doc)
	}
	return &list, nil
}
