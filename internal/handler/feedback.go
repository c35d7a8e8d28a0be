package handler

import (
	"context"
	"net/http"

	"housing-assistant/internal/logger"
	"housing-assistant/internal/model"

	"github.com/gin-gonic/gin"
)

// FeedbackRecorder stores user actions on recommended listings
type FeedbackRecorder interface {
	LogFeedback(ctx context.Context, sessionID string, listingID int64, action string) error
}

// SessionReader loads sessions so feedback can be checked against their candidates
type SessionReader interface {
	Get(ctx context.Context, id string) (*model.Session, error)
}

var validActions = map[string]bool{
	"click":     true,
	"contact":   true,
	"shortlist": true,
}

// FeedbackHandler handles feedback-related HTTP requests
type FeedbackHandler struct {
	sessions SessionReader
	recorder FeedbackRecorder
	log      *logger.Logger
}

// NewFeedbackHandler creates a new feedback handler. A nil recorder only logs feedback.
func NewFeedbackHandler(sessions SessionReader, recorder FeedbackRecorder, log *logger.Logger) *FeedbackHandler {
	return &FeedbackHandler{sessions: sessions, recorder: recorder, log: log}
}

// Submit handles POST /api/v1/feedback
func (h *FeedbackHandler) Submit(c *gin.Context) {
	var req model.FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	if !validActions[req.Action] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid action. Must be one of: click, contact, shortlist"})
		return
	}

	session, err := h.sessions.Get(c.Request.Context(), req.SessionID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	if !recommended(session, req.ListingID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Listing was not recommended in this session"})
		return
	}

	h.log.Info("listing feedback", "session_id", req.SessionID, "listing_id", req.ListingID, "action", req.Action)
	if h.recorder != nil {
		if err := h.recorder.LogFeedback(c.Request.Context(), req.SessionID, req.ListingID, req.Action); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to log feedback: " + err.Error()})
			return
		}
	}

	c.JSON(http.StatusOK, model.FeedbackResponse{
		Success: true,
		Message: "Feedback logged successfully",
	})
}

func recommended(session *model.Session, listingID int64) bool {
	for _, c := range session.Candidates {
		if c.ID == listingID {
			return true
		}
	}
	return false
}
