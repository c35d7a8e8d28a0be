package handler

import (
	"context"
	"net/http"

	"housing-assistant/internal/model"

	"github.com/gin-gonic/gin"
)

// ConversationService is the session surface the chat handler drives
type ConversationService interface {
	Start(ctx context.Context) (*model.Session, error)
	Get(ctx context.Context, id string) (*model.Session, error)
	Reset(ctx context.Context, id string) (*model.Session, error)
	End(ctx context.Context, id string) error
	HandleMessage(ctx context.Context, id, text string) (*model.TurnResult, error)
}

// ChatHandler handles conversation HTTP requests
type ChatHandler struct {
	conversation ConversationService
}

// NewChatHandler creates a new chat handler
func NewChatHandler(conversation ConversationService) *ChatHandler {
	return &ChatHandler{conversation: conversation}
}

// StartSession handles POST /api/v1/sessions
func (h *ChatHandler) StartSession(c *gin.Context) {
	session, err := h.conversation.Start(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, model.NewSessionResponse(session))
}

// GetSession handles GET /api/v1/sessions/:id
func (h *ChatHandler) GetSession(c *gin.Context) {
	session, err := h.conversation.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.NewSessionResponse(session))
}

// SendMessage handles POST /api/v1/sessions/:id/messages
func (h *ChatHandler) SendMessage(c *gin.Context) {
	var req model.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	result, err := h.conversation.HandleMessage(c.Request.Context(), c.Param("id"), req.Message)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ResetSession handles POST /api/v1/sessions/:id/reset
func (h *ChatHandler) ResetSession(c *gin.Context) {
	session, err := h.conversation.Reset(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.NewSessionResponse(session))
}

// EndSession handles DELETE /api/v1/sessions/:id
func (h *ChatHandler) EndSession(c *gin.Context) {
	if err := h.conversation.End(c.Request.Context(), c.Param("id")); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
