package api

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/dutchcoders/go-clamd"
	"github.com/gin-gonic/gin"
	"github.com/minio/minio-go/v7"

	"jobtrail/internal/api/middleware"
	"jobtrail/internal/database"
)

// uploadStorage is the slice of the storage client the application handlers
// use; tests substitute a fake.
type uploadStorage interface {
	UploadFile(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) (*minio.UploadInfo, error)
	GeneratePresignedURL(ctx context.Context, objectKey string, duration time.Duration) (string, error)
	GeneratePresignedURLWithParams(ctx context.Context, objectKey string, duration time.Duration, params map[string]string) (string, error)
	OpenObject(ctx context.Context, objectKey string) (io.ReadCloser, error)
	DeletePrefix(ctx context.Context, prefix string) error
}

// File categories accepted by the upload endpoint.
const (
	fileCategoryResume      = "resume"
	fileCategoryCoverLetter = "coverLetter"
)

// ApplicationFileHandler accepts resume and cover letter uploads for an
// application and records the resulting storage key on it.
type ApplicationFileHandler struct {
	apps      *ApplicationHandler
	storage   uploadStorage
	clamdAddr string
	maxBytes  int64
}

// NewApplicationFileHandler constructs an ApplicationFileHandler. An empty
// clamdAddr disables virus scanning.
func NewApplicationFileHandler(apps *ApplicationHandler, storageClient uploadStorage, clamdAddr string, maxBytes int64) *ApplicationFileHandler {
	return &ApplicationFileHandler{
		apps:      apps,
		storage:   storageClient,
		clamdAddr: clamdAddr,
		maxBytes:  maxBytes,
	}
}

// applicationObjectPrefix is the storage namespace for one application's
// uploads; deleting the application deletes the prefix.
func applicationObjectPrefix(userID, applicationID uint) string {
	return fmt.Sprintf("applications/%d/%d/", userID, applicationID)
}

// applicationObjectKey derives the deterministic storage key: re-uploading
// the same filename for the same category replaces the previous object.
func applicationObjectKey(userID, applicationID uint, category, filename string) string {
	base := filepath.Base(strings.TrimSpace(filename))
	if base == "" || base == "." || base == string(filepath.Separator) {
		base = "document"
	}
	return fmt.Sprintf("%s%s/%s", applicationObjectPrefix(userID, applicationID), category, base)
}

// UploadFile handles a multipart {file, type} upload for an owned
// application. Exactly one field (resumeUsed or coverLetter) is mutated per
// call; an Application is never created here.
func (h *ApplicationFileHandler) UploadFile(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	application, err := h.apps.getApplicationForUser(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		h.apps.respondLookupError(c, err)
		return
	}

	category := strings.TrimSpace(c.PostForm("type"))
	if category != fileCategoryResume && category != fileCategoryCoverLetter {
		BadRequest(c, "type must be resume or coverLetter")
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		BadRequest(c, "missing file")
		return
	}
	if h.maxBytes > 0 && file.Size > h.maxBytes {
		BadRequest(c, "file too large")
		return
	}

	logger := middleware.LoggerFromContext(c)

	if h.clamdAddr != "" {
		infected, err := h.scanFile(file)
		if err != nil {
			logger.Error("scan file failed", slog.Any("error", err))
			Internal(c, "failed to scan file")
			return
		}
		if infected {
			BadRequest(c, "malicious file detected")
			return
		}
	}

	reader, err := file.Open()
	if err != nil {
		Internal(c, "failed to open file")
		return
	}
	defer reader.Close()

	contentType := file.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	ctx := c.Request.Context()
	objectKey := applicationObjectKey(userID, application.ID, category, file.Filename)
	if _, err := h.storage.UploadFile(ctx, objectKey, reader, file.Size, contentType); err != nil {
		logger.Error("upload file failed", slog.String("objectKey", objectKey), slog.Any("error", err))
		Internal(c, "failed to upload file")
		return
	}

	column := "resume_used"
	if category == fileCategoryCoverLetter {
		column = "cover_letter"
	}
	if err := h.apps.db.WithContext(ctx).
		Model(&database.JobApplication{}).
		Where("id = ?", application.ID).
		Update(column, objectKey).Error; err != nil {
		Internal(c, "failed to record file")
		return
	}

	signedURL, err := h.storage.GeneratePresignedURL(ctx, objectKey, 15*time.Minute)
	if err != nil {
		logger.Error("generate presigned url failed", slog.Any("error", err))
		Internal(c, "failed to generate url")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"url": signedURL, "objectKey": objectKey})
}

// GetFileLink returns a fresh presigned URL for a previously uploaded file.
func (h *ApplicationFileHandler) GetFileLink(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	application, err := h.apps.getApplicationForUser(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		h.apps.respondLookupError(c, err)
		return
	}

	category := strings.TrimSpace(c.Query("type"))
	var objectKey string
	switch category {
	case fileCategoryResume:
		objectKey = application.ResumeUsed
	case fileCategoryCoverLetter:
		objectKey = application.CoverLetter
	default:
		BadRequest(c, "type must be resume or coverLetter")
		return
	}

	if !strings.HasPrefix(objectKey, applicationObjectPrefix(userID, application.ID)) {
		// Field holds free text, not a storage key.
		NotFound(c, "no uploaded file for this application")
		return
	}

	signedURL, err := h.storage.GeneratePresignedURLWithParams(c.Request.Context(), objectKey, 15*time.Minute, map[string]string{
		"response-content-disposition": fmt.Sprintf("attachment; filename=%q", filepath.Base(objectKey)),
	})
	if err != nil {
		middleware.LoggerFromContext(c).Error("generate presigned url failed", slog.Any("error", err))
		Internal(c, "failed to generate url")
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": signedURL})
}

func (h *ApplicationFileHandler) scanFile(file *multipart.FileHeader) (bool, error) {
	reader, err := file.Open()
	if err != nil {
		return false, err
	}
	defer reader.Close()

	clamdClient := clamd.NewClamd(h.clamdAddr)
	abortChan := make(chan bool)
	defer close(abortChan)

	scanChan, err := clamdClient.ScanStream(reader, abortChan)
	if err != nil {
		return false, err
	}

	for result := range scanChan {
		if result.Status != clamd.RES_OK {
			return true, nil
		}
	}
	return false, nil
}
