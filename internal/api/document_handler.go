package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"gorm.io/gorm"

	"jobtrail/internal/api/middleware"
	"jobtrail/internal/docgen"
	"jobtrail/internal/tasks"
)

// documentGenerator is the capability slice the handler needs from the
// document generator; tests substitute a fake so no browser is launched.
type documentGenerator interface {
	Generate(ctx context.Context, kind docgen.Kind, data docgen.DocumentData, tmplText string) ([]byte, error)
}

// DocumentHandler serves synchronous PDF downloads and the queued resume
// rendering pipeline.
type DocumentHandler struct {
	db          *gorm.DB
	generator   documentGenerator
	storage     uploadStorage
	apps        *ApplicationHandler
	asynqClient *asynq.Client
}

// NewDocumentHandler constructs a DocumentHandler. asynqClient may be nil
// when the queue is not deployed; the async endpoints then report 503.
func NewDocumentHandler(db *gorm.DB, generator documentGenerator, storageClient uploadStorage, apps *ApplicationHandler, asynqClient *asynq.Client) *DocumentHandler {
	return &DocumentHandler{
		db:          db,
		generator:   generator,
		storage:     storageClient,
		apps:        apps,
		asynqClient: asynqClient,
	}
}

func respondPDF(c *gin.Context, filename string, pdfBytes []byte) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/pdf", pdfBytes)
}

// DownloadCoverLetter renders an application's cover letter as a PDF. The
// stored field is either the letter text itself or a storage key pointing at
// an uploaded document's extracted text.
func (h *DocumentHandler) DownloadCoverLetter(c *gin.Context) {
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

	ctx := c.Request.Context()
	logger := middleware.LoggerFromContext(c)

	letterText := application.CoverLetter
	if strings.HasPrefix(letterText, applicationObjectPrefix(userID, application.ID)) {
		obj, err := h.storage.OpenObject(ctx, letterText)
		if err != nil {
			logger.Error("load cover letter object failed", slog.Any("error", err))
			Internal(c, "failed to load cover letter")
			return
		}
		raw, err := io.ReadAll(obj)
		obj.Close()
		if err != nil {
			logger.Error("read cover letter object failed", slog.Any("error", err))
			Internal(c, "failed to load cover letter")
			return
		}
		letterText = string(raw)
	}
	if strings.TrimSpace(letterText) == "" {
		NotFound(c, "application has no cover letter")
		return
	}

	profile, err := loadProfileForUser(ctx, h.db, userID)
	if err != nil {
		Internal(c, "failed to load profile")
		return
	}

	data := docgen.FromProfile(*profile)
	data.Body = docgen.SplitLines(letterText)
	data.JobTitle = application.Job.Title
	data.JobCompany = application.Job.Company
	data.Date = time.Now().Format("January 2, 2006")

	pdfBytes, err := h.generator.Generate(ctx, docgen.KindCoverLetter, data, "")
	if err != nil {
		h.respondGenerateError(c, err)
		return
	}

	respondPDF(c, fmt.Sprintf("cover-letter-%d.pdf", application.ID), pdfBytes)
}

type tailorResumeRequest struct {
	JobDescription string `json:"jobDescription"`
}

// TailorResume builds a resume PDF from the caller's stored profile with the
// target job description folded into the fixed template.
func (h *DocumentHandler) TailorResume(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var req tailorResumeRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.JobDescription) == "" {
		BadRequest(c, "jobDescription is required")
		return
	}

	ctx := c.Request.Context()
	profile, err := loadProfileForUser(ctx, h.db, userID)
	if err != nil {
		Internal(c, "failed to load profile")
		return
	}

	data := docgen.FromProfile(*profile)
	data.JobDescription = req.JobDescription

	pdfBytes, err := h.generator.Generate(ctx, docgen.KindResume, data, "")
	if err != nil {
		h.respondGenerateError(c, err)
		return
	}

	respondPDF(c, "resume.pdf", pdfBytes)
}

func (h *DocumentHandler) respondGenerateError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, docgen.ErrValidation):
		BadRequest(c, err.Error())
	case errors.Is(err, docgen.ErrTemplate):
		BadRequest(c, "document template is malformed")
	default:
		// Render detail stays in the server log.
		middleware.LoggerFromContext(c).Error("generate document failed", slog.Any("error", err))
		Internal(c, "failed to generate document")
	}
}

// EnqueueResumePDF queues background rendering of the caller's profile
// resume and returns 202 immediately; completion is pushed over the notify
// channel.
func (h *DocumentHandler) EnqueueResumePDF(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	if h.asynqClient == nil {
		Error(c, http.StatusServiceUnavailable, "document queue is not available")
		return
	}

	correlationID := middleware.GetCorrelationID(c)
	task, err := tasks.NewResumePDFTask(userID, correlationID)
	if err != nil {
		Internal(c, "failed to create task")
		return
	}

	info, err := h.asynqClient.Enqueue(task, asynq.MaxRetry(5))
	if err != nil {
		Internal(c, "failed to enqueue resume rendering")
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"message": "resume rendering accepted",
		"task_id": info.ID,
	})
}

// GetResumePDFLink returns a presigned link to the most recently rendered
// resume PDF, or 409 while none has been produced yet.
func (h *DocumentHandler) GetResumePDFLink(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	ctx := c.Request.Context()
	profile, err := loadProfileForUser(ctx, h.db, userID)
	if err != nil {
		Internal(c, "failed to load profile")
		return
	}

	if profile.ResumePDFKey == "" {
		Conflict(c, "pdf not ready")
		return
	}

	signedURL, err := h.storage.GeneratePresignedURL(ctx, profile.ResumePDFKey, 5*time.Minute)
	if err != nil {
		middleware.LoggerFromContext(c).Error("generate download link failed", slog.Any("error", err))
		Internal(c, "failed to generate download link")
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": signedURL})
}
