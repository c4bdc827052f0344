package assignment

import (
	"io"
	"net/http"
	"taskflow/bizerror"
	"taskflow/session"

	"github.com/fundwit/go-commons/types"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

var (
	PathAssignments = "/v1/assignments"
	PathDocuments   = "/v1/documents"
)

func RegisterAssignmentsRestAPI(r *gin.Engine, middleWares ...gin.HandlerFunc) {
	g := r.Group(PathAssignments, middleWares...)
	g.GET("", handleAssignmentHistory)
	g.GET("/:id", handleDetailAssignment)

	d := r.Group(PathDocuments, middleWares...)
	d.POST("", handleUploadDocument)
	d.GET("/content", handleDownloadDocument)
}

type historyQuery struct {
	TaskID types.ID `binding:"required" json:"taskId" form:"taskId"`
}

func handleAssignmentHistory(c *gin.Context) {
	query := historyQuery{}
	if err := c.MustBindWith(&query, binding.Query); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	records, err := AssignmentHistoryFunc(query.TaskID, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, records)
}

func handleDetailAssignment(c *gin.Context) {
	id, err := types.ParseID(c.Param("id"))
	if err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	record, err := DetailAssignmentFunc(id, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, record)
}

func handleUploadDocument(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	file, err := fileHeader.Open()
	if err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	defer file.Close()

	objectKey, err := UploadDocumentFunc(fileHeader.Filename, file, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, gin.H{"path": objectKey})
}

type documentQuery struct {
	Path string `binding:"required" json:"path" form:"path"`
}

func handleDownloadDocument(c *gin.Context) {
	query := documentQuery{}
	if err := c.MustBindWith(&query, binding.Query); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	reader, err := DownloadDocumentFunc(query.Path, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	defer reader.Close()

	c.Status(http.StatusOK)
	c.Header("Content-Type", "application/octet-stream")
	if _, err := io.Copy(c.Writer, reader); err != nil {
		panic(err)
	}
}
