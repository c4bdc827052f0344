package dashboard

import (
	"taskflow/domain"
	"taskflow/domain/state"
	"taskflow/event"
	"taskflow/persistence"
	"taskflow/session"
	"time"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
)

const recentActivityLimit = 10

var SummarizeFunc = Summarize

// Summary is computed fresh on every call, nothing here is cached or stored.
type Summary struct {
	PendingApprovals  int `json:"pendingApprovals"`
	ActiveAssignments int `json:"activeAssignments"`
	ClientActions     int `json:"clientActions"`
	CompletedToday    int `json:"completedToday"`
	OverdueTasks      int `json:"overdueTasks"`
	ProjectsCount     int `json:"projectsCount"`

	RecentActivities []event.EventRecord `json:"recentActivities"`

	LastUpdated types.Timestamp `json:"lastUpdated"`
}

func doneStateNames() []string {
	names := []string{}
	for _, st := range state.TaskStateMachine.States {
		if st.Category == state.Done {
			names = append(names, st.Name)
		}
	}
	return names
}

func countTasks(db *gorm.DB, projectIds []types.ID, statuses []string) (int, error) {
	if len(projectIds) == 0 {
		return 0, nil
	}
	count := 0
	err := db.Model(&domain.Task{}).
		Where("project_id IN (?) AND status IN (?)", projectIds, statuses).
		Count(&count).Error
	return count, err
}

// Summarize builds the role-aware dashboard of the session user. The
// attention counters follow the user's roles, the rest spans all projects
// visible to the user.
func Summarize(s *session.Session) (*Summary, error) {
	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	summary := Summary{RecentActivities: []event.EventRecord{}, LastUpdated: types.CurrentTimestamp()}

	var err error
	managed := s.ProjectRoles.ProjectIdsOfRole(domain.ProjectRoleManager)
	if summary.PendingApprovals, err = countTasks(db, managed,
		[]string{state.StateSubmitted.Name, state.StateUnderReview.Name, state.StateClientReply.Name}); err != nil {
		return nil, err
	}

	working := s.ProjectRoles.ProjectIdsOfRole(domain.ProjectRoleWorker)
	if summary.ActiveAssignments, err = countTasks(db, working,
		[]string{state.StateDraft.Name, state.StateReturnedForRevision.Name}); err != nil {
		return nil, err
	}

	clientOf := s.ProjectRoles.ProjectIdsOfRole(domain.ProjectRoleClient)
	if summary.ClientActions, err = countTasks(db, clientOf,
		[]string{state.StateSubmittedToClient.Name}); err != nil {
		return nil, err
	}

	visible := s.VisibleProjects()
	summary.ProjectsCount = len(visible)
	if len(visible) > 0 {
		now := time.Now()
		dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		if err := db.Model(&domain.Task{}).
			Where("project_id IN (?) AND status IN (?) AND status_begin_time >= ?",
				visible, doneStateNames(), types.Timestamp(dayStart)).
			Count(&summary.CompletedToday).Error; err != nil {
			return nil, err
		}

		// a zero timestamp is the "no due date" sentinel, the same value the
		// timestamp serializer writes for unset columns
		if err := db.Model(&domain.Task{}).
			Where("project_id IN (?) AND status NOT IN (?) AND due_time > ? AND due_time < ?",
				visible, doneStateNames(), types.Timestamp{}, types.Timestamp(now)).
			Count(&summary.OverdueTasks).Error; err != nil {
			return nil, err
		}

		if summary.RecentActivities, err = event.RecentEvents(db, visible, recentActivityLimit); err != nil {
			return nil, err
		}
	}

	return &summary, nil
}
