package assignment

import (
	"fmt"
	"io"
	"taskflow/client/s3"
	"taskflow/session"

	"github.com/google/uuid"
)

var (
	UploadDocumentFunc   = UploadDocument
	DownloadDocumentFunc = DownloadDocument
)

// UploadDocument stores a file ahead of assignment creation and returns the
// object key the submission will reference as the document path.
func UploadDocument(fileName string, content io.Reader, s *session.Session) (string, error) {
	objectKey := fmt.Sprintf("uploads/%s/%s", uuid.New().String(), fileName)
	if err := s3.PutObjectFunc(objectKey, content, s); err != nil {
		return "", err
	}
	return objectKey, nil
}

func DownloadDocument(objectKey string, s *session.Session) (io.ReadCloser, error) {
	return s3.GetObjectFunc(objectKey, s)
}
