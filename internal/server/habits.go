package server

import (
	"io"

	"github.com/gin-gonic/gin"

	apperrors "github.com/julianstephens/keeprun/internal/errors"
	"github.com/julianstephens/keeprun/internal/habit"
)

type HabitHandler struct {
	engine *habit.Engine
}

func NewHabitHandler(engine *habit.Engine) *HabitHandler {
	return &HabitHandler{engine: engine}
}

// CommandResponse pairs a command outcome with the status that follows it.
type CommandResponse struct {
	Result habit.Outcome `json:"result"`
	Status habit.Status  `json:"status"`
}

// Current serves GET /api/habits/current.
func (h *HabitHandler) Current(c *gin.Context) {
	status, err := h.engine.Current(c.Request.Context(), currentUser(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, status)
}

// Command serves POST /api/habits/commands.
func (h *HabitHandler) Command(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<16))
	if err != nil {
		RespondError(c, apperrors.Wrap(apperrors.KindValidation, err, "failed to read request body"))
		return
	}
	cmd, err := habit.DecodeCommand(body)
	if err != nil {
		RespondError(c, err)
		return
	}

	ctx := c.Request.Context()
	userID := currentUser(c)
	outcome, err := h.engine.Execute(ctx, userID, cmd)
	if err != nil {
		RespondError(c, err)
		return
	}
	status, err := h.engine.Current(ctx, userID)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, CommandResponse{Result: outcome, Status: status})
}

// History serves GET /api/habits/history.
func (h *HabitHandler) History(c *gin.Context) {
	history, err := h.engine.History(c.Request.Context(), currentUser(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"history": history})
}
