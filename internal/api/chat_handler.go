package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"jobtrail/internal/database"
)

const defaultConversationTitle = "Untitled"

// ChatHandler stores and replays assistant conversations.
type ChatHandler struct {
	db *gorm.DB
}

// NewChatHandler constructs a ChatHandler.
func NewChatHandler(db *gorm.DB) *ChatHandler {
	return &ChatHandler{db: db}
}

var errInvalidConversationID = errors.New("invalid conversation id")

func (h *ChatHandler) getConversationForUser(ctx context.Context, idParam string, userID uint) (*database.ChatConversation, error) {
	conversationID, err := strconv.ParseUint(idParam, 10, 64)
	if err != nil {
		return nil, errInvalidConversationID
	}

	var conversation database.ChatConversation
	if err := h.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", uint(conversationID), userID).
		First(&conversation).Error; err != nil {
		return nil, err
	}

	return &conversation, nil
}

type createConversationRequest struct {
	JobID *uint  `json:"jobId"`
	Title string `json:"title"`
}

type conversationResponse struct {
	ID        uint      `json:"id"`
	JobID     *uint     `json:"jobId,omitempty"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func newConversationResponse(conversation database.ChatConversation) conversationResponse {
	return conversationResponse{
		ID:        conversation.ID,
		JobID:     conversation.JobID,
		Title:     conversation.Title,
		CreatedAt: conversation.CreatedAt,
		UpdatedAt: conversation.UpdatedAt,
	}
}

// CreateConversation starts a conversation, optionally tagged with a job
// listing. A missing title defaults to "Untitled".
func (h *ChatHandler) CreateConversation(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var req createConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()

	if req.JobID != nil {
		var job database.Job
		if err := h.db.WithContext(ctx).First(&job, *req.JobID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				NotFound(c, "job not found")
				return
			}
			Internal(c, "failed to query job")
			return
		}
	}

	title := req.Title
	if title == "" {
		title = defaultConversationTitle
	}

	conversation := database.ChatConversation{
		UserID: userID,
		JobID:  req.JobID,
		Title:  title,
	}
	if err := h.db.WithContext(ctx).Create(&conversation).Error; err != nil {
		Internal(c, "failed to create conversation")
		return
	}

	c.JSON(http.StatusCreated, newConversationResponse(conversation))
}

// ListConversations returns the caller's conversations, most recently
// updated first.
func (h *ChatHandler) ListConversations(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var conversations []database.ChatConversation
	if err := h.db.WithContext(c.Request.Context()).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Find(&conversations).Error; err != nil {
		Internal(c, "failed to list conversations")
		return
	}

	items := make([]conversationResponse, 0, len(conversations))
	for _, conversation := range conversations {
		items = append(items, newConversationResponse(conversation))
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

type appendMessageRequest struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messageResponse struct {
	ID        uint      `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// AppendMessage adds one turn to an owned conversation. The timestamp is
// assigned at write time by the persistence layer.
func (h *ChatHandler) AppendMessage(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var req appendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	if !database.ValidChatRole(req.Role) {
		BadRequest(c, "role must be user, assistant or system")
		return
	}
	if req.Content == "" {
		BadRequest(c, "content is required")
		return
	}

	conversation, err := h.getConversationForUser(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		switch {
		case errors.Is(err, errInvalidConversationID):
			BadRequest(c, "invalid conversation id")
		case errors.Is(err, gorm.ErrRecordNotFound):
			NotFound(c, "conversation not found")
		default:
			Internal(c, "failed to query conversation")
		}
		return
	}

	ctx := c.Request.Context()
	message := database.ChatMessage{
		ConversationID: conversation.ID,
		Role:           req.Role,
		Content:        req.Content,
	}
	if err := h.db.WithContext(ctx).Create(&message).Error; err != nil {
		Internal(c, "failed to append message")
		return
	}

	// Bump the conversation so the list stays ordered by activity.
	_ = h.db.WithContext(ctx).Model(conversation).Update("updated_at", time.Now()).Error

	c.JSON(http.StatusCreated, messageResponse{
		ID:        message.ID,
		Role:      message.Role,
		Content:   message.Content,
		CreatedAt: message.CreatedAt,
	})
}

// ListMessages replays a conversation in chronological order.
func (h *ChatHandler) ListMessages(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	conversation, err := h.getConversationForUser(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		switch {
		case errors.Is(err, errInvalidConversationID):
			BadRequest(c, "invalid conversation id")
		case errors.Is(err, gorm.ErrRecordNotFound):
			NotFound(c, "conversation not found")
		default:
			Internal(c, "failed to query conversation")
		}
		return
	}

	var messages []database.ChatMessage
	if err := h.db.WithContext(c.Request.Context()).
		Where("conversation_id = ?", conversation.ID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&messages).Error; err != nil {
		Internal(c, "failed to list messages")
		return
	}

	items := make([]messageResponse, 0, len(messages))
	for _, m := range messages {
		items = append(items, messageResponse{
			ID:        m.ID,
			Role:      m.Role,
			Content:   m.Content,
			CreatedAt: m.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"conversation": newConversationResponse(*conversation),
		"items":        items,
	})
}
