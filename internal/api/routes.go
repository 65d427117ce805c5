package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"jobtrail/internal/api/middleware"
	"jobtrail/internal/auth"
	"jobtrail/internal/config"
	"jobtrail/internal/docgen"
	"jobtrail/internal/enrich"
	"jobtrail/internal/storage"
)

// RegisterRoutes registers the API routes under /v1.
func RegisterRoutes(
	router *gin.Engine,
	cfg *config.Config,
	db *gorm.DB,
	asynqClient *asynq.Client,
	verifier *auth.Verifier,
	redisClient *redis.Client,
	logger *slog.Logger,
	storageClient *storage.Client,
	generator *docgen.Generator,
) {
	jobHandler := NewJobHandler(db)
	applicationHandler := NewApplicationHandler(db, storageClient)
	fileHandler := NewApplicationFileHandler(applicationHandler, storageClient, cfg.Upload.ClamdAddr, cfg.Upload.MaxBytes)
	profileHandler := NewProfileHandler(db, enrich.NewClient(cfg.Enrich), redisClient, cfg.Enrich.RateLimitPerDay)
	chatHandler := NewChatHandler(db)
	documentHandler := NewDocumentHandler(db, generator, storageClient, applicationHandler, asynqClient)
	wsHandler := NewWsHandler(redisClient, verifier, db, logger, cfg.API.AllowedOrigins)
	authMiddleware := middleware.AuthMiddleware(verifier, db)

	v1 := router.Group("/v1")
	{
		v1.GET("/ws", wsHandler.HandleConnection)

		jobGroup := v1.Group("/jobs")
		jobGroup.Use(authMiddleware)
		{
			jobGroup.POST("/external", jobHandler.UpsertExternalJob)
			jobGroup.POST("/save", jobHandler.SaveJob)
			jobGroup.DELETE("/save", jobHandler.UnsaveJob)
			jobGroup.GET("/saved", jobHandler.ListSavedJobs)
		}

		appGroup := v1.Group("/applications")
		appGroup.Use(authMiddleware)
		{
			appGroup.POST("", applicationHandler.CreateApplication)
			appGroup.GET("", applicationHandler.ListApplications)
			appGroup.GET("/:id", applicationHandler.GetApplication)
			appGroup.PATCH("/:id", applicationHandler.UpdateApplication)
			appGroup.DELETE("/:id", applicationHandler.DeleteApplication)
			appGroup.POST("/:id/files", fileHandler.UploadFile)
			appGroup.GET("/:id/files/link", fileHandler.GetFileLink)
		}

		profileGroup := v1.Group("/profile")
		profileGroup.Use(authMiddleware)
		{
			profileGroup.GET("", profileHandler.GetProfile)
			profileGroup.PUT("/contact", profileHandler.UpdateContact)
			profileGroup.PUT("/skills", profileHandler.ReplaceSkills)
			profileGroup.PUT("/experience", profileHandler.ReplaceExperience)
			profileGroup.PUT("/education", profileHandler.ReplaceEducation)
			profileGroup.POST("/enrich", profileHandler.EnrichProfile)
		}

		chatGroup := v1.Group("/chat")
		chatGroup.Use(authMiddleware)
		{
			chatGroup.POST("/conversations", chatHandler.CreateConversation)
			chatGroup.GET("/conversations", chatHandler.ListConversations)
			chatGroup.POST("/conversations/:id/messages", chatHandler.AppendMessage)
			chatGroup.GET("/conversations/:id/messages", chatHandler.ListMessages)
		}

		downloadGroup := v1.Group("/download")
		downloadGroup.Use(authMiddleware)
		{
			downloadGroup.GET("/cover-letter/:id", documentHandler.DownloadCoverLetter)
		}

		tailoringGroup := v1.Group("/tailoring")
		tailoringGroup.Use(authMiddleware)
		{
			tailoringGroup.POST("/resume", documentHandler.TailorResume)
		}

		documentGroup := v1.Group("/documents")
		documentGroup.Use(authMiddleware)
		{
			documentGroup.POST("/resume", documentHandler.EnqueueResumePDF)
			documentGroup.GET("/resume/link", documentHandler.GetResumePDFLink)
		}
	}
}
