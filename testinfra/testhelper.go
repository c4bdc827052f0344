package testinfra

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"taskflow/domain"
	"taskflow/session"

	"github.com/fundwit/go-commons/types"
	"github.com/gin-gonic/gin"
)

// BuildSession builds a session from role_projectId style perms, the way
// the permission loader emits them.
func BuildSession(uid types.ID, perms ...string) *session.Session {
	projectRoles := []domain.ProjectRole{}
	for _, perm := range perms {
		idx := strings.Index(perm, "_")
		if idx > 0 {
			role := perm[0:idx]
			projectId, err := types.ParseID(perm[idx+1:])
			if err != nil {
				continue
			}
			projectRoles = append(projectRoles, domain.ProjectRole{ProjectID: projectId, Role: role})
		}
	}

	return &session.Session{Token: "test-token", Identity: session.Identity{ID: uid, Name: "user-" + uid.String()},
		Perms: perms, ProjectRoles: projectRoles}
}

// ExecuteRequest drives the router with the request and captures the result.
func ExecuteRequest(req *http.Request, router *gin.Engine) (int, string, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w.Code, w.Body.String(), w
}
