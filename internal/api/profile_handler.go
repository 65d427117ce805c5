package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"jobtrail/internal/api/middleware"
	"jobtrail/internal/database"
	"jobtrail/internal/enrich"
)

const enrichRateLimitKeyPrefix = "enrich:rate:"

// enricher is the narrow capability the profile handler needs from the
// enrichment client; tests substitute a fake.
type enricher interface {
	Enrich(ctx context.Context, profileURL string) (*enrich.Result, error)
}

// ProfileHandler serves profile reads, contact updates, the resume
// collections and enrichment.
type ProfileHandler struct {
	db              *gorm.DB
	enricher        enricher
	redis           redisRateCounter
	rateLimitPerDay int
}

// NewProfileHandler constructs a ProfileHandler.
func NewProfileHandler(db *gorm.DB, enrichClient enricher, redisClient redisRateCounter, rateLimitPerDay int) *ProfileHandler {
	return &ProfileHandler{
		db:              db,
		enricher:        enrichClient,
		redis:           redisClient,
		rateLimitPerDay: rateLimitPerDay,
	}
}

// profileForUser loads the caller's profile with its collections, creating
// the empty 1:1 row the first time the profile is touched.
func (h *ProfileHandler) profileForUser(ctx context.Context, userID uint) (*database.Profile, error) {
	return loadProfileForUser(ctx, h.db, userID)
}

func loadProfileForUser(ctx context.Context, db *gorm.DB, userID uint) (*database.Profile, error) {
	var profile database.Profile
	err := db.WithContext(ctx).
		Preload("Skills", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Experience", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Education", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("user_id = ?", userID).
		First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		profile = database.Profile{UserID: userID}
		if err := db.WithContext(ctx).Create(&profile).Error; err != nil {
			return nil, err
		}
		return &profile, nil
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

type skillItem struct {
	Name     string `json:"name"`
	Category string `json:"category"`
}

type experienceItem struct {
	Title        string `json:"title"`
	Company      string `json:"company"`
	Location     string `json:"location,omitempty"`
	StartDate    string `json:"startDate,omitempty"`
	EndDate      string `json:"endDate,omitempty"`
	Achievements string `json:"achievements,omitempty"`
}

type educationItem struct {
	School    string `json:"school"`
	Degree    string `json:"degree,omitempty"`
	Field     string `json:"field,omitempty"`
	StartDate string `json:"startDate,omitempty"`
	EndDate   string `json:"endDate,omitempty"`
}

type profileResponse struct {
	Name        string           `json:"name"`
	Email       string           `json:"email"`
	Phone       string           `json:"phone,omitempty"`
	Location    string           `json:"location,omitempty"`
	LinkedInURL string           `json:"linkedinUrl,omitempty"`
	GitHubURL   string           `json:"githubUrl,omitempty"`
	Summary     string           `json:"summary,omitempty"`
	Skills      []skillItem      `json:"skills"`
	Experience  []experienceItem `json:"experience"`
	Education   []educationItem  `json:"education"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

func newProfileResponse(profile database.Profile) profileResponse {
	resp := profileResponse{
		Name:        profile.Name,
		Email:       profile.Email,
		Phone:       profile.Phone,
		Location:    profile.Location,
		LinkedInURL: profile.LinkedInURL,
		GitHubURL:   profile.GitHubURL,
		Summary:     profile.Summary,
		Skills:      make([]skillItem, 0, len(profile.Skills)),
		Experience:  make([]experienceItem, 0, len(profile.Experience)),
		Education:   make([]educationItem, 0, len(profile.Education)),
		UpdatedAt:   profile.UpdatedAt,
	}
	for _, s := range profile.Skills {
		resp.Skills = append(resp.Skills, skillItem{Name: s.Name, Category: s.Category})
	}
	for _, e := range profile.Experience {
		resp.Experience = append(resp.Experience, experienceItem{
			Title:        e.Title,
			Company:      e.Company,
			Location:     e.Location,
			StartDate:    e.StartDate,
			EndDate:      e.EndDate,
			Achievements: e.Achievements,
		})
	}
	for _, e := range profile.Education {
		resp.Education = append(resp.Education, educationItem{
			School:    e.School,
			Degree:    e.Degree,
			Field:     e.Field,
			StartDate: e.StartDate,
			EndDate:   e.EndDate,
		})
	}
	return resp
}

// GetProfile returns the caller's profile.
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	profile, err := h.profileForUser(c.Request.Context(), userID)
	if err != nil {
		Internal(c, "failed to load profile")
		return
	}

	c.JSON(http.StatusOK, newProfileResponse(*profile))
}

// Optional fields are pointers: an absent field keeps its stored value.
type updateContactRequest struct {
	Name        string          `json:"name"`
	Email       string          `json:"email"`
	Phone       *string         `json:"phone"`
	Location    *string         `json:"location"`
	LinkedInURL *string         `json:"linkedinUrl"`
	GitHubURL   *string         `json:"githubUrl"`
	Summary     *string         `json:"summary"`
	Enrichment  json.RawMessage `json:"enrichment"`
}

// UpdateContact replaces the required contact fields and any optional fields
// present in the request. When the client applies an enrichment result it
// posts the raw snapshot back here for audit.
func (h *ProfileHandler) UpdateContact(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var req updateContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	if req.Name == "" {
		BadRequest(c, "name is required")
		return
	}
	if req.Email == "" {
		BadRequest(c, "email is required")
		return
	}

	ctx := c.Request.Context()
	profile, err := h.profileForUser(ctx, userID)
	if err != nil {
		Internal(c, "failed to load profile")
		return
	}

	updates := map[string]any{
		"name":  req.Name,
		"email": req.Email,
	}
	if req.Phone != nil {
		updates["phone"] = *req.Phone
	}
	if req.Location != nil {
		updates["location"] = *req.Location
	}
	if req.LinkedInURL != nil {
		updates["linked_in_url"] = *req.LinkedInURL
	}
	if req.GitHubURL != nil {
		updates["git_hub_url"] = *req.GitHubURL
	}
	if req.Summary != nil {
		updates["summary"] = *req.Summary
	}
	if len(req.Enrichment) > 0 {
		updates["enrichment_raw"] = datatypes.JSON(req.Enrichment)
	}

	if err := h.db.WithContext(ctx).Model(profile).Updates(updates).Error; err != nil {
		Internal(c, "failed to update profile")
		return
	}
	if err := h.db.WithContext(ctx).First(profile, profile.ID).Error; err != nil {
		Internal(c, "failed to reload profile")
		return
	}

	c.JSON(http.StatusOK, newProfileResponse(*profile))
}

type replaceSkillsRequest struct {
	Skills []skillItem `json:"skills"`
}

// ReplaceSkills replaces the ordered skill list wholesale; positions follow
// the request order.
func (h *ProfileHandler) ReplaceSkills(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var req replaceSkillsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	for _, s := range req.Skills {
		if s.Name == "" {
			BadRequest(c, "skill name is required")
			return
		}
		if s.Category != database.SkillTechnical && s.Category != database.SkillSoft {
			BadRequest(c, "skill category must be technical or soft")
			return
		}
	}

	ctx := c.Request.Context()
	profile, err := h.profileForUser(ctx, userID)
	if err != nil {
		Internal(c, "failed to load profile")
		return
	}

	err = h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("profile_id = ?", profile.ID).Unscoped().Delete(&database.Skill{}).Error; err != nil {
			return err
		}
		for i, s := range req.Skills {
			skill := database.Skill{
				ProfileID: profile.ID,
				Name:      s.Name,
				Category:  s.Category,
				Position:  i,
			}
			if err := tx.Create(&skill).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		Internal(c, "failed to replace skills")
		return
	}

	c.Status(http.StatusNoContent)
}

type replaceExperienceRequest struct {
	Experience []experienceItem `json:"experience"`
}

// ReplaceExperience replaces the ordered experience list wholesale.
func (h *ProfileHandler) ReplaceExperience(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var req replaceExperienceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	for _, e := range req.Experience {
		if e.Title == "" || e.Company == "" {
			BadRequest(c, "experience title and company are required")
			return
		}
	}

	ctx := c.Request.Context()
	profile, err := h.profileForUser(ctx, userID)
	if err != nil {
		Internal(c, "failed to load profile")
		return
	}

	err = h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("profile_id = ?", profile.ID).Unscoped().Delete(&database.Experience{}).Error; err != nil {
			return err
		}
		for i, e := range req.Experience {
			entry := database.Experience{
				ProfileID:    profile.ID,
				Title:        e.Title,
				Company:      e.Company,
				Location:     e.Location,
				StartDate:    e.StartDate,
				EndDate:      e.EndDate,
				Achievements: e.Achievements,
				Position:     i,
			}
			if err := tx.Create(&entry).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		Internal(c, "failed to replace experience")
		return
	}

	c.Status(http.StatusNoContent)
}

type replaceEducationRequest struct {
	Education []educationItem `json:"education"`
}

// ReplaceEducation replaces the ordered education list wholesale.
func (h *ProfileHandler) ReplaceEducation(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var req replaceEducationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	for _, e := range req.Education {
		if e.School == "" {
			BadRequest(c, "education school is required")
			return
		}
	}

	ctx := c.Request.Context()
	profile, err := h.profileForUser(ctx, userID)
	if err != nil {
		Internal(c, "failed to load profile")
		return
	}

	err = h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("profile_id = ?", profile.ID).Unscoped().Delete(&database.Education{}).Error; err != nil {
			return err
		}
		for i, e := range req.Education {
			entry := database.Education{
				ProfileID: profile.ID,
				School:    e.School,
				Degree:    e.Degree,
				Field:     e.Field,
				StartDate: e.StartDate,
				EndDate:   e.EndDate,
				Position:  i,
			}
			if err := tx.Create(&entry).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		Internal(c, "failed to replace education")
		return
	}

	c.Status(http.StatusNoContent)
}

type enrichRequest struct {
	ProfileURL string `json:"profileUrl"`
}

// EnrichProfile fetches advisory fields from an external profile URL. The
// result is returned to the caller, never persisted here; applying it goes
// through UpdateContact.
func (h *ProfileHandler) EnrichProfile(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var req enrichRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ProfileURL == "" {
		BadRequest(c, "profileUrl is required")
		return
	}

	ctx := c.Request.Context()
	logger := middleware.LoggerFromContext(c)

	if h.redis != nil && h.rateLimitPerDay > 0 {
		key := fmt.Sprintf("%s%d", enrichRateLimitKeyPrefix, userID)
		count, err := incrWithTTL(ctx, h.redis, key, 24*time.Hour)
		if err != nil {
			logger.Warn("enrich rate counter unavailable", slog.Any("error", err))
		} else if count > int64(h.rateLimitPerDay) {
			TooMany(c, "enrichment limit reached, try again later")
			return
		}
	}

	result, err := h.enricher.Enrich(ctx, req.ProfileURL)
	if err != nil {
		switch {
		case errors.Is(err, enrich.ErrUnrecognizedURL):
			BadRequest(c, "unrecognized profile url")
		default:
			// Upstream detail stays in the server log.
			logger.Error("enrichment failed", slog.Any("error", err))
			Internal(c, "enrichment failed")
		}
		return
	}

	c.JSON(http.StatusOK, result)
}
