package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"jobtrail/internal/api/middleware"
	"jobtrail/internal/database"
)

// JobHandler serves external job upserts and save/unsave.
type JobHandler struct {
	db *gorm.DB
}

// NewJobHandler constructs a JobHandler.
func NewJobHandler(db *gorm.DB) *JobHandler {
	return &JobHandler{db: db}
}

// jobURLTemplates is the closed platform → canonical URL mapping. Unknown
// platforms fall through to a generic placeholder.
var jobURLTemplates = map[string]func(externalID string) string{
	"linkedin": func(id string) string {
		return "https://www.linkedin.com/jobs/view/" + url.PathEscape(id)
	},
	"indeed": func(id string) string {
		return "https://www.indeed.com/viewjob?jk=" + url.QueryEscape(id)
	},
	"glassdoor": func(id string) string {
		return "https://www.glassdoor.com/job-listing/" + url.PathEscape(id)
	},
}

func canonicalJobURL(platform, externalID string) string {
	if build, ok := jobURLTemplates[strings.ToLower(platform)]; ok {
		return build(externalID)
	}
	return fmt.Sprintf("https://jobs.example.com/%s/%s", url.PathEscape(strings.ToLower(platform)), url.PathEscape(externalID))
}

func wellFormedURL(raw string) bool {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return (parsed.Scheme == "http" || parsed.Scheme == "https") && parsed.Host != ""
}

type upsertExternalJobRequest struct {
	Platform    string     `json:"platform"`
	ExternalID  string     `json:"externalId"`
	Title       string     `json:"title"`
	Company     string     `json:"company"`
	Description string     `json:"description"`
	Location    string     `json:"location"`
	Salary      string     `json:"salary"`
	JobType     string     `json:"jobType"`
	URL         string     `json:"url"`
	PostedAt    *time.Time `json:"postedAt"`
}

func (r *upsertExternalJobRequest) validate() string {
	switch {
	case strings.TrimSpace(r.Platform) == "":
		return "platform is required"
	case strings.TrimSpace(r.ExternalID) == "":
		return "externalId is required"
	case strings.TrimSpace(r.Title) == "":
		return "title is required"
	case strings.TrimSpace(r.Company) == "":
		return "company is required"
	case strings.TrimSpace(r.Description) == "":
		return "description is required"
	}
	return ""
}

type jobResponse struct {
	ID          uint       `json:"id"`
	Platform    string     `json:"platform,omitempty"`
	ExternalID  string     `json:"externalId,omitempty"`
	Title       string     `json:"title"`
	Company     string     `json:"company"`
	Location    string     `json:"location,omitempty"`
	Description string     `json:"description"`
	Salary      string     `json:"salary,omitempty"`
	JobType     string     `json:"jobType,omitempty"`
	URL         string     `json:"url"`
	PostedAt    *time.Time `json:"postedAt,omitempty"`
	IsExternal  bool       `json:"isExternal"`
}

func newJobResponse(job database.Job) jobResponse {
	return jobResponse{
		ID:          job.ID,
		Platform:    job.Platform,
		ExternalID:  job.ExternalID,
		Title:       job.Title,
		Company:     job.Company,
		Location:    job.Location,
		Description: job.Description,
		Salary:      job.Salary,
		JobType:     job.JobType,
		URL:         job.URL,
		PostedAt:    job.PostedAt,
		IsExternal:  job.IsExternal,
	}
}

// UpsertExternalJob creates or enriches a job keyed by (platform, externalId).
// Scraped payloads arrive repeatedly and in varying quality, so existing
// fields are only replaced by strictly richer data.
func (h *JobHandler) UpsertExternalJob(c *gin.Context) {
	if _, ok := userIDFromContext(c); !ok {
		AbortUnauthorized(c)
		return
	}

	var req upsertExternalJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	if msg := req.validate(); msg != "" {
		BadRequest(c, msg)
		return
	}

	req.Platform = strings.ToLower(strings.TrimSpace(req.Platform))
	req.ExternalID = strings.TrimSpace(req.ExternalID)
	if !wellFormedURL(req.URL) {
		req.URL = canonicalJobURL(req.Platform, req.ExternalID)
	}

	ctx := c.Request.Context()
	logger := middleware.LoggerFromContext(c)

	var job database.Job
	err := h.db.WithContext(ctx).
		Where("platform = ? AND external_id = ?", req.Platform, req.ExternalID).
		First(&job).Error
	switch {
	case err == nil:
		updates := mergeJobUpdates(job, req)
		if len(updates) > 0 {
			if err := h.db.WithContext(ctx).Model(&job).Updates(updates).Error; err != nil {
				logger.Error("update external job failed", slog.Any("error", err))
				Internal(c, "failed to update job")
				return
			}
			if err := h.db.WithContext(ctx).First(&job, job.ID).Error; err != nil {
				logger.Error("reload external job failed", slog.Any("error", err))
				Internal(c, "failed to reload job")
				return
			}
		}
		c.JSON(http.StatusOK, newJobResponse(job))
	case errors.Is(err, gorm.ErrRecordNotFound):
		job = database.Job{
			Platform:    req.Platform,
			ExternalID:  req.ExternalID,
			Title:       req.Title,
			Company:     req.Company,
			Location:    req.Location,
			Description: req.Description,
			Salary:      req.Salary,
			JobType:     req.JobType,
			URL:         req.URL,
			PostedAt:    req.PostedAt,
			IsExternal:  true,
		}
		if err := h.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:     []clause.Column{{Name: "platform"}, {Name: "external_id"}},
			TargetWhere: clause.Where{Exprs: []clause.Expression{clause.Expr{SQL: "is_external"}}},
			DoNothing:   true,
		}).Create(&job).Error; err != nil {
			logger.Error("create external job failed", slog.Any("error", err))
			Internal(c, "failed to create job")
			return
		}
		if job.ID == 0 {
			// Lost a concurrent upsert race; the winner's row is the record.
			if err := h.db.WithContext(ctx).
				Where("platform = ? AND external_id = ?", req.Platform, req.ExternalID).
				First(&job).Error; err != nil {
				logger.Error("reload external job after conflict failed", slog.Any("error", err))
				Internal(c, "failed to load job")
				return
			}
		}
		c.JSON(http.StatusOK, newJobResponse(job))
	default:
		logger.Error("query external job failed", slog.Any("error", err))
		Internal(c, "failed to query job")
	}
}

// mergeJobUpdates applies the enrich-only merge policy: fill fields that are
// still empty, and replace the description only with a strictly longer one.
func mergeJobUpdates(existing database.Job, req upsertExternalJobRequest) map[string]any {
	updates := map[string]any{}

	fill := func(column, current, incoming string) {
		if current == "" && strings.TrimSpace(incoming) != "" {
			updates[column] = incoming
		}
	}

	fill("title", existing.Title, req.Title)
	fill("company", existing.Company, req.Company)
	fill("location", existing.Location, req.Location)
	fill("salary", existing.Salary, req.Salary)
	fill("job_type", existing.JobType, req.JobType)
	fill("url", existing.URL, req.URL)

	if len(req.Description) > len(existing.Description) {
		updates["description"] = req.Description
	}
	if existing.PostedAt == nil && req.PostedAt != nil {
		updates["posted_at"] = req.PostedAt
	}

	return updates
}

type saveJobRequest struct {
	JobID uint `json:"jobId"`
}

// SaveJob marks a job as saved for the caller. Saving twice is a no-op.
func (h *JobHandler) SaveJob(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var req saveJobRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.JobID == 0 {
		BadRequest(c, "jobId is required")
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

	saved := database.SavedJob{UserID: userID, JobID: req.JobID}
	if err := h.db.WithContext(ctx).
		Where(database.SavedJob{UserID: userID, JobID: req.JobID}).
		FirstOrCreate(&saved).Error; err != nil {
		Internal(c, "failed to save job")
		return
	}

	c.JSON(http.StatusOK, gin.H{"saved": true, "jobId": req.JobID})
}

// UnsaveJob removes a saved-job row; a missing row is 404.
func (h *JobHandler) UnsaveJob(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var req saveJobRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.JobID == 0 {
		BadRequest(c, "jobId is required")
		return
	}

	result := h.db.WithContext(c.Request.Context()).
		Where("user_id = ? AND job_id = ?", userID, req.JobID).
		Delete(&database.SavedJob{})
	if result.Error != nil {
		Internal(c, "failed to unsave job")
		return
	}
	if result.RowsAffected == 0 {
		NotFound(c, "saved job not found")
		return
	}

	c.Status(http.StatusNoContent)
}

// ListSavedJobs returns the caller's saved jobs, newest first.
func (h *JobHandler) ListSavedJobs(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var saved []database.SavedJob
	if err := h.db.WithContext(c.Request.Context()).
		Preload("Job").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&saved).Error; err != nil {
		Internal(c, "failed to list saved jobs")
		return
	}

	items := make([]jobResponse, 0, len(saved))
	for _, s := range saved {
		items = append(items, newJobResponse(s.Job))
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}
