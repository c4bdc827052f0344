package dashboard

import (
	"net/http"
	"taskflow/session"

	"github.com/gin-gonic/gin"
)

var PathDashboard = "/v1/dashboard"

func RegisterDashboardRestAPI(r *gin.Engine, middleWares ...gin.HandlerFunc) {
	g := r.Group(PathDashboard, middleWares...)
	g.GET("", handleSummarize)
}

func handleSummarize(c *gin.Context) {
	record, err := SummarizeFunc(session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, record)
}
