package handler

import (
	"net/http"

	"couponagent/internal/model"
	"couponagent/internal/service"

	"github.com/gin-gonic/gin"
)

// FeedbackHandler handles feedback on recommended bundles
type FeedbackHandler struct {
	sessions *service.SessionManager
}

// NewFeedbackHandler creates a new feedback handler
func NewFeedbackHandler(sessions *service.SessionManager) *FeedbackHandler {
	return &FeedbackHandler{
		sessions: sessions,
	}
}

// Submit handles POST /api/v1/feedback
func (h *FeedbackHandler) Submit(c *gin.Context) {
	var req model.FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	validActions := map[string]bool{
		"click":   true,
		"order":   true,
		"dismiss": true,
	}

	if !validActions[req.Action] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid action. Must be one of: click, order, dismiss"})
		return
	}

	if err := h.sessions.LogFeedback(c.Request.Context(), &req); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to log feedback: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, model.FeedbackResponse{
		Success: true,
		Message: "Feedback logged successfully",
	})
}
