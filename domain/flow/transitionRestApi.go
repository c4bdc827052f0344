package flow

import (
	"net/http"
	"taskflow/bizerror"
	"taskflow/session"

	"github.com/fundwit/go-commons/types"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

var PathTaskTransitions = "/v1/task-transitions"

func RegisterTaskTransitionsRestAPI(r *gin.Engine, middleWares ...gin.HandlerFunc) {
	g := r.Group(PathTaskTransitions, middleWares...)
	g.POST("", handleTransitTask)
	g.GET("", handleAvailableTransitions)
}

func handleTransitTask(c *gin.Context) {
	creation := TransitionCreation{}
	if err := c.ShouldBindBodyWith(&creation, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	record, err := TransitTaskFunc(&creation, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, record)
}

type transitionQuery struct {
	TaskID types.ID `binding:"required" json:"taskId" form:"taskId"`
}

func handleAvailableTransitions(c *gin.Context) {
	query := transitionQuery{}
	if err := c.MustBindWith(&query, binding.Query); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	records, err := AvailableTransitionsFunc(query.TaskID, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, records)
}
