package clientdoc

import (
	"net/http"
	"taskflow/bizerror"
	"taskflow/session"

	"github.com/fundwit/go-commons/types"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

var PathClientDocRequests = "/v1/client-doc-requests"

func RegisterClientDocRequestsRestAPI(r *gin.Engine, middleWares ...gin.HandlerFunc) {
	g := r.Group(PathClientDocRequests, middleWares...)
	g.GET("", handleQueryRequests)
	g.POST("/:id/fulfillment", handleFulfillRequest)
}

type requestQuery struct {
	AssignmentID types.ID `binding:"required" json:"assignmentId" form:"assignmentId"`
}

func handleQueryRequests(c *gin.Context) {
	query := requestQuery{}
	if err := c.MustBindWith(&query, binding.Query); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	records, err := QueryRequestsFunc(query.AssignmentID, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, records)
}

func handleFulfillRequest(c *gin.Context) {
	id, err := types.ParseID(c.Param("id"))
	if err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	file, err := fileHeader.Open()
	if err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	defer file.Close()

	record, err := FulfillRequestFunc(id, fileHeader.Filename, file, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, record)
}
