package handlers

import (
	"errors"
	"net/http"

	"github.com/LeonanFr/FindTheBug/internal/game"
	"github.com/LeonanFr/FindTheBug/internal/models"
	"github.com/LeonanFr/FindTheBug/internal/storage"

	"github.com/gin-gonic/gin"
)

// SessionHandler is the simplified request/response surface: one action in,
// a full state snapshot out. The real-time channel carries the same
// operations with fan-out.
type SessionHandler struct {
	engine *game.Engine
	store  *storage.Store
}

func NewSessionHandler(engine *game.Engine, store *storage.Store) *SessionHandler {
	return &SessionHandler{engine: engine, store: store}
}

type ActionRequest struct {
	PlayerID   string `json:"player_id" binding:"required"`
	ActionType *int   `json:"action_type" binding:"required"`
	TargetID   string `json:"target_id"`
}

type ActionResponse struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	State   *models.GameState `json:"state,omitempty"`
}

func (h *SessionHandler) SubmitAction(c *gin.Context) {
	var req ActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	result := h.engine.ProcessAction(req.PlayerID, models.ActionType(*req.ActionType), req.TargetID, c.Param("id"))

	status := http.StatusOK
	if !result.Success {
		status = http.StatusBadRequest
		if errors.Is(result.Err, game.ErrStorage) {
			status = http.StatusInternalServerError
		}
	}
	c.JSON(status, ActionResponse{
		Success: result.Success,
		Message: result.Message,
		State:   result.State,
	})
}

func (h *SessionHandler) GetState(c *gin.Context) {
	state, err := h.store.GetGameState(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to load session"})
		return
	}
	if state == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "session not found"})
		return
	}

	c.JSON(http.StatusOK, state)
}
