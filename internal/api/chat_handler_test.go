package api

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"jobtrail/internal/database"
)

func seedConversation(t *testing.T, db *gorm.DB, userID uint) database.ChatConversation {
	t.Helper()
	conversation := database.ChatConversation{UserID: userID, Title: "Interview prep"}
	if err := db.Create(&conversation).Error; err != nil {
		t.Fatalf("seed conversation: %v", err)
	}
	return conversation
}

func TestCreateConversation_DefaultTitle(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newTestDB(t)
	user := seedUser(t, db, "chat-default-title")
	h := NewChatHandler(db)

	w := httptest.NewRecorder()
	c := testContext(w, http.MethodPost, "/v1/chat/conversations", jsonBody(t, map[string]any{}), user.ID)
	h.CreateConversation(c)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d body=%s", w.Code, w.Body.String())
	}
	var resp conversationResponse
	decodeJSON(t, w, &resp)
	if resp.Title != "Untitled" {
		t.Fatalf("expected default title, got %q", resp.Title)
	}
	if resp.JobID != nil {
		t.Fatalf("jobId set without reference")
	}
}

func TestCreateConversation_UnknownJob(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newTestDB(t)
	user := seedUser(t, db, "chat-unknown-job")
	h := NewChatHandler(db)

	w := httptest.NewRecorder()
	c := testContext(w, http.MethodPost, "/v1/chat/conversations", jsonBody(t, map[string]any{
		"jobId": 123456,
		"title": "About that role",
	}), user.ID)
	h.CreateConversation(c)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d body=%s", w.Code, w.Body.String())
	}
}

func TestAppendMessage_RoleValidation(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newTestDB(t)
	user := seedUser(t, db, "chat-role")
	conversation := seedConversation(t, db, user.ID)
	h := NewChatHandler(db)

	w := httptest.NewRecorder()
	c := testContext(w, http.MethodPost, "/v1/chat/conversations/"+strconv.Itoa(int(conversation.ID))+"/messages", jsonBody(t, map[string]any{
		"role":    "moderator",
		"content": "hello",
	}), user.ID)
	withIDParam(c, conversation.ID)
	h.AppendMessage(c)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d body=%s", w.Code, w.Body.String())
	}
}

func TestAppendMessage_CrossUserIsNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newTestDB(t)
	owner := seedUser(t, db, "chat-owner")
	other := seedUser(t, db, "chat-other")
	conversation := seedConversation(t, db, owner.ID)
	h := NewChatHandler(db)

	w := httptest.NewRecorder()
	c := testContext(w, http.MethodPost, "/v1/chat/conversations/"+strconv.Itoa(int(conversation.ID))+"/messages", jsonBody(t, map[string]any{
		"role":    database.RoleUser,
		"content": "hello",
	}), other.ID)
	withIDParam(c, conversation.ID)
	h.AppendMessage(c)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for other user's conversation, got %d", w.Code)
	}
}

func TestListMessages_ChronologicalOrder(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newTestDB(t)
	user := seedUser(t, db, "chat-order")
	conversation := seedConversation(t, db, user.ID)
	h := NewChatHandler(db)

	turns := []struct {
		role    string
		content string
	}{
		{database.RoleUser, "How should I open the cover letter?"},
		{database.RoleAssistant, "Lead with the migration project."},
		{database.RoleUser, "And the close?"},
	}
	for _, turn := range turns {
		w := httptest.NewRecorder()
		c := testContext(w, http.MethodPost, "/v1/chat/conversations/"+strconv.Itoa(int(conversation.ID))+"/messages", jsonBody(t, map[string]any{
			"role":    turn.role,
			"content": turn.content,
		}), user.ID)
		withIDParam(c, conversation.ID)
		h.AppendMessage(c)
		if w.Code != http.StatusCreated {
			t.Fatalf("append %q: expected 201 got %d body=%s", turn.content, w.Code, w.Body.String())
		}
	}

	w := httptest.NewRecorder()
	c := testContext(w, http.MethodGet, "/v1/chat/conversations/"+strconv.Itoa(int(conversation.ID))+"/messages", nil, user.ID)
	withIDParam(c, conversation.ID)
	h.ListMessages(c)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", w.Code, w.Body.String())
	}
	var resp struct {
		Conversation conversationResponse `json:"conversation"`
		Items        []messageResponse    `json:"items"`
	}
	decodeJSON(t, w, &resp)
	if len(resp.Items) != len(turns) {
		t.Fatalf("expected %d messages, got %d", len(turns), len(resp.Items))
	}
	for i, turn := range turns {
		if resp.Items[i].Content != turn.content {
			t.Fatalf("message %d out of order: %q", i, resp.Items[i].Content)
		}
	}
}
