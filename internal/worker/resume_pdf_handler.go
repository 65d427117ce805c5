package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"jobtrail/internal/database"
	"jobtrail/internal/docgen"
	"jobtrail/internal/errcode"
	"jobtrail/internal/storage"
	"jobtrail/internal/tasks"
)

// ResumePDFHandler consumes resume PDF render tasks.
type ResumePDFHandler struct {
	db          *gorm.DB
	generator   *docgen.Generator
	storage     *storage.Client
	redisClient *redis.Client
	logger      *slog.Logger
}

// NewResumePDFHandler creates the task handler.
func NewResumePDFHandler(
	db *gorm.DB,
	generator *docgen.Generator,
	storage *storage.Client,
	redisClient *redis.Client,
	logger *slog.Logger,
) *ResumePDFHandler {
	return &ResumePDFHandler{
		db:          db,
		generator:   generator,
		storage:     storage,
		redisClient: redisClient,
		logger:      logger,
	}
}

// ProcessTask implements asynq.Handler.
func (h *ResumePDFHandler) ProcessTask(ctx context.Context, t *asynq.Task) (retErr error) {
	log := h.logger

	var payload tasks.ResumePDFPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		log.Error("unmarshal task payload failed", slog.Any("error", err))
		return err
	}

	log = log.With(
		slog.String("correlation_id", payload.CorrelationID),
		slog.Uint64("user_id", uint64(payload.UserID)),
	)
	log.Info("Starting resume PDF generation task...")

	var profile database.Profile
	err := h.db.WithContext(ctx).
		Preload("Skills", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Experience", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Education", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("user_id = ?", payload.UserID).
		First(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn("profile not found, skipping task")
			return nil
		}
		log.Error("query profile failed", slog.Any("error", err))
		return err
	}

	defer func() {
		if retErr == nil {
			return
		}
		if !isFinalAsynqAttempt(ctx) {
			return
		}

		notify := ResumePDFNotifyMessage{
			Status:        "error",
			CorrelationID: payload.CorrelationID,
			ErrorCode:     errcode.SystemError,
			ErrorMessage:  strings.TrimSpace(retErr.Error()),
		}
		if err := h.publishNotify(ctx, payload.UserID, notify); err != nil {
			log.Error("publish pdf error notification failed", slog.Any("error", err))
		}
	}()

	data := docgen.FromProfile(profile)
	pdfBytes, err := h.generator.Generate(ctx, docgen.KindResume, data, "")
	if err != nil {
		log.Error("generate resume pdf failed", slog.Any("error", err))
		return err
	}

	objectName := fmt.Sprintf("documents/%d/resume-%s.pdf", payload.UserID, uuid.NewString())
	pdfReader := bytes.NewReader(pdfBytes)
	if _, err := h.storage.UploadFile(ctx, objectName, pdfReader, int64(len(pdfBytes)), "application/pdf"); err != nil {
		log.Error("upload pdf to minio failed", slog.Any("error", err))
		return err
	}

	update := map[string]any{
		"resume_pdf_key": objectName,
	}
	if err := h.db.WithContext(ctx).Model(&profile).Updates(update).Error; err != nil {
		log.Error("update profile failed", slog.Any("error", err))
		return err
	}

	notify := ResumePDFNotifyMessage{
		Status:        "completed",
		CorrelationID: payload.CorrelationID,
		ErrorCode:     errcode.OK,
		ObjectKey:     objectName,
	}
	if err := h.publishNotify(ctx, payload.UserID, notify); err != nil {
		log.Error("publish redis notification failed", slog.Any("error", err))
		return err
	}

	log.Info("Resume PDF generation task completed successfully.")
	return nil
}

func (h *ResumePDFHandler) publishNotify(ctx context.Context, userID uint, notify ResumePDFNotifyMessage) error {
	data, err := json.Marshal(notify)
	if err != nil {
		return fmt.Errorf("marshal notification payload: %w", err)
	}
	channel := fmt.Sprintf("user_notify:%d", userID)
	if err := h.redisClient.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("publish redis notification to %q: %w", channel, err)
	}
	return nil
}

func isFinalAsynqAttempt(ctx context.Context) bool {
	retryCount, ok1 := asynq.GetRetryCount(ctx)
	maxRetry, ok2 := asynq.GetMaxRetry(ctx)
	if !ok1 || !ok2 {
		return false
	}
	return retryCount >= maxRetry
}
