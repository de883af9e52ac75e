package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"couponagent/internal/model"
	"couponagent/internal/service"

	"github.com/gin-gonic/gin"
)

// TurnHistory returns logged turns of a conversation
type TurnHistory interface {
	RecentTurns(ctx context.Context, sessionID string, limit int) ([]model.TurnRecord, error)
}

// SessionHandler handles conversation-related HTTP requests
type SessionHandler struct {
	sessions *service.SessionManager
	history  TurnHistory
}

// NewSessionHandler creates a new session handler. history may be nil.
func NewSessionHandler(sessions *service.SessionManager, history TurnHistory) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		history:  history,
	}
}

// Create handles POST /api/v1/sessions
func (h *SessionHandler) Create(c *gin.Context) {
	resp := h.sessions.Create(c.Request.Context())
	c.JSON(http.StatusCreated, resp)
}

// Message handles POST /api/v1/sessions/:id/messages
func (h *SessionHandler) Message(c *gin.Context) {
	var req model.MessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	resp, err := h.sessions.Turn(c.Request.Context(), c.Param("id"), req.Message)
	if err != nil {
		respondSessionError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Get handles GET /api/v1/sessions/:id
func (h *SessionHandler) Get(c *gin.Context) {
	snapshot, err := h.sessions.Snapshot(c.Param("id"))
	if err != nil {
		respondSessionError(c, err)
		return
	}

	c.JSON(http.StatusOK, snapshot)
}

// Reset handles POST /api/v1/sessions/:id/reset
func (h *SessionHandler) Reset(c *gin.Context) {
	resp, err := h.sessions.Reset(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondSessionError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Delete handles DELETE /api/v1/sessions/:id
func (h *SessionHandler) Delete(c *gin.Context) {
	if err := h.sessions.Delete(c.Param("id")); err != nil {
		respondSessionError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// History handles GET /api/v1/sessions/:id/history
func (h *SessionHandler) History(c *gin.Context) {
	if h.history == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "Conversation log is disabled"})
		return
	}

	limit := 20
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		limit = min(n, 100)
	}

	turns, err := h.history.RecentTurns(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get history: " + err.Error()})
		return
	}
	if turns == nil {
		turns = []model.TurnRecord{}
	}

	c.JSON(http.StatusOK, gin.H{"session_id": c.Param("id"), "turns": turns})
}

func respondSessionError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrSessionNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
