package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"jobtrail/internal/api/middleware"
	"jobtrail/internal/database"
)

// ApplicationHandler serves the application lifecycle endpoints.
type ApplicationHandler struct {
	db      *gorm.DB
	storage uploadStorage
}

// NewApplicationHandler constructs an ApplicationHandler.
func NewApplicationHandler(db *gorm.DB, storageClient uploadStorage) *ApplicationHandler {
	return &ApplicationHandler{db: db, storage: storageClient}
}

var errInvalidApplicationID = errors.New("invalid application id")

// getApplicationForUser loads an application filtered by both id and owner.
// A wrong owner and a missing row are the same ErrRecordNotFound, so callers
// cannot probe for other users' applications.
func (h *ApplicationHandler) getApplicationForUser(ctx context.Context, idParam string, userID uint) (*database.JobApplication, error) {
	appID, err := strconv.ParseUint(idParam, 10, 64)
	if err != nil {
		return nil, errInvalidApplicationID
	}

	var application database.JobApplication
	if err := h.db.WithContext(ctx).
		Preload("Job").
		Where("id = ? AND user_id = ?", uint(appID), userID).
		First(&application).Error; err != nil {
		return nil, err
	}

	return &application, nil
}

func (h *ApplicationHandler) respondLookupError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, errInvalidApplicationID):
		BadRequest(c, "invalid application id")
	case errors.Is(err, gorm.ErrRecordNotFound):
		NotFound(c, "application not found")
	default:
		Internal(c, "failed to query application")
	}
}

type createApplicationRequest struct {
	JobID  uint   `json:"jobId"`
	Status string `json:"status"`
	Notes  string `json:"notes"`
}

type applicationResponse struct {
	ID          uint        `json:"id"`
	Job         jobResponse `json:"job"`
	Status      string      `json:"status"`
	Notes       string      `json:"notes,omitempty"`
	ResumeUsed  string      `json:"resumeUsed,omitempty"`
	CoverLetter string      `json:"coverLetter,omitempty"`
	AppliedAt   *time.Time  `json:"appliedAt,omitempty"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

func newApplicationResponse(app database.JobApplication) applicationResponse {
	return applicationResponse{
		ID:          app.ID,
		Job:         newJobResponse(app.Job),
		Status:      app.Status,
		Notes:       app.Notes,
		ResumeUsed:  app.ResumeUsed,
		CoverLetter: app.CoverLetter,
		AppliedAt:   app.AppliedAt,
		CreatedAt:   app.CreatedAt,
		UpdatedAt:   app.UpdatedAt,
	}
}

// CreateApplication starts tracking a job for the caller. The job must
// already exist; applying marks the applied timestamp.
func (h *ApplicationHandler) CreateApplication(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var req createApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.JobID == 0 {
		BadRequest(c, "jobId is required")
		return
	}

	status := req.Status
	if status == "" {
		status = database.StatusNotYetStarted
	}
	if !database.ValidApplicationStatus(status) {
		BadRequest(c, "invalid status")
		return
	}

	ctx := c.Request.Context()

	var job database.Job
	if err := h.db.WithContext(ctx).First(&job, req.JobID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "job not found")
			return
		}
		Internal(c, "failed to query job")
		return
	}

	application := database.JobApplication{
		UserID: userID,
		JobID:  req.JobID,
		Status: status,
		Notes:  req.Notes,
	}
	if status == database.StatusApplied {
		now := time.Now()
		application.AppliedAt = &now
	}

	if err := h.db.WithContext(ctx).Create(&application).Error; err != nil {
		Internal(c, "failed to create application")
		return
	}
	application.Job = job

	c.JSON(http.StatusCreated, newApplicationResponse(application))
}

// GetApplication returns one owned application.
func (h *ApplicationHandler) GetApplication(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	application, err := h.getApplicationForUser(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		h.respondLookupError(c, err)
		return
	}

	c.JSON(http.StatusOK, newApplicationResponse(*application))
}

// Patch fields are pointers so the handler can tell "absent" from "set to
// empty": absent fields keep their stored value, present ones are applied
// verbatim, including explicit clears.
type updateApplicationRequest struct {
	Status      *string `json:"status"`
	Notes       *string `json:"notes"`
	ResumeUsed  *string `json:"resumeUsed"`
	CoverLetter *string `json:"coverLetter"`
}

// UpdateApplication applies a partial patch to an owned application.
func (h *ApplicationHandler) UpdateApplication(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var req updateApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	application, err := h.getApplicationForUser(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		h.respondLookupError(c, err)
		return
	}

	updates := map[string]any{}
	if req.Status != nil {
		if !database.ValidApplicationStatus(*req.Status) {
			BadRequest(c, "invalid status")
			return
		}
		updates["status"] = *req.Status
		if *req.Status == database.StatusApplied && application.AppliedAt == nil {
			updates["applied_at"] = time.Now()
		}
	}
	if req.Notes != nil {
		updates["notes"] = *req.Notes
	}
	if req.ResumeUsed != nil {
		updates["resume_used"] = *req.ResumeUsed
	}
	if req.CoverLetter != nil {
		updates["cover_letter"] = *req.CoverLetter
	}

	ctx := c.Request.Context()
	if len(updates) > 0 {
		if err := h.db.WithContext(ctx).Model(application).Updates(updates).Error; err != nil {
			Internal(c, "failed to update application")
			return
		}
		if err := h.db.WithContext(ctx).Preload("Job").First(application, application.ID).Error; err != nil {
			Internal(c, "failed to reload application")
			return
		}
	}

	c.JSON(http.StatusOK, newApplicationResponse(*application))
}

// DeleteApplication hard-deletes an owned application and its uploads.
func (h *ApplicationHandler) DeleteApplication(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	application, err := h.getApplicationForUser(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		h.respondLookupError(c, err)
		return
	}

	ctx := c.Request.Context()
	if err := h.db.WithContext(ctx).Unscoped().Delete(&database.JobApplication{}, application.ID).Error; err != nil {
		Internal(c, "failed to delete application")
		return
	}

	// Best effort: orphaned uploads are not worth failing the delete over.
	if h.storage != nil {
		prefix := applicationObjectPrefix(userID, application.ID)
		if err := h.storage.DeletePrefix(ctx, prefix); err != nil {
			middleware.LoggerFromContext(c).Warn("delete application uploads failed",
				slog.String("prefix", prefix),
				slog.Any("error", err),
			)
		}
	}

	c.Status(http.StatusNoContent)
}

type applicationGroup struct {
	Status string                `json:"status"`
	Items  []applicationResponse `json:"items"`
}

// ListApplications returns the caller's applications, optionally filtered by
// status and a case-insensitive search over job title and company, ordered
// by applied date descending and grouped by status for presentation.
func (h *ApplicationHandler) ListApplications(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	status := strings.TrimSpace(c.Query("status"))
	if status != "" && !database.ValidApplicationStatus(status) {
		BadRequest(c, "invalid status")
		return
	}
	search := strings.TrimSpace(c.Query("search"))

	query := h.db.WithContext(c.Request.Context()).
		Preload("Job").
		Joins("JOIN jobs ON jobs.id = job_applications.job_id").
		Where("job_applications.user_id = ?", userID)
	if status != "" {
		query = query.Where("job_applications.status = ?", status)
	}
	if search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(jobs.title) LIKE ? OR LOWER(jobs.company) LIKE ?", pattern, pattern)
	}

	var applications []database.JobApplication
	if err := query.
		Order("job_applications.applied_at DESC NULLS LAST").
		Order("job_applications.created_at DESC").
		Find(&applications).Error; err != nil {
		Internal(c, "failed to list applications")
		return
	}

	byStatus := make(map[string][]applicationResponse)
	for _, app := range applications {
		byStatus[app.Status] = append(byStatus[app.Status], newApplicationResponse(app))
	}

	groups := make([]applicationGroup, 0, len(byStatus))
	for _, s := range database.ApplicationStatuses {
		if items, ok := byStatus[s]; ok {
			groups = append(groups, applicationGroup{Status: s, Items: items})
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"total":  len(applications),
		"groups": groups,
	})
}
