package indices

import (
	"net/http"
	"taskflow/bizerror"
	"taskflow/session"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

var (
	PathActivities = "/v1/activities"
	PathIndexSyncs = "/v1/index-syncs"
)

func RegisterIndicesRestAPI(r *gin.Engine, middleWares ...gin.HandlerFunc) {
	g := r.Group(PathActivities, middleWares...)
	g.GET("", handleSearchActivities)

	m := r.Group(PathIndexSyncs, middleWares...)
	m.POST("", handleScheduleNewSyncRun)
}

func handleSearchActivities(c *gin.Context) {
	query := ActivityQuery{}
	if err := c.MustBindWith(&query, binding.Query); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	records, err := SearchActivitiesFunc(&query, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, records)
}

func handleScheduleNewSyncRun(c *gin.Context) {
	if err := ScheduleNewSyncRunFunc(session.ExtractSessionFromGinContext(c)); err != nil {
		panic(err)
	}
	c.AbortWithStatus(http.StatusAccepted)
}
