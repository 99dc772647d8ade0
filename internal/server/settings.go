package server

import (
	"github.com/gin-gonic/gin"

	"github.com/julianstephens/keeprun/internal/settings"
)

type SettingsHandler struct {
	svc *settings.Service
}

func NewSettingsHandler(svc *settings.Service) *SettingsHandler {
	return &SettingsHandler{svc: svc}
}

func (h *SettingsHandler) Get(c *gin.Context) {
	s, err := h.svc.Get(c.Request.Context(), currentUser(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, s)
}

func (h *SettingsHandler) Update(c *gin.Context) {
	var u settings.Update
	if !bindJSON(c, &u) {
		return
	}
	s, err := h.svc.Update(c.Request.Context(), currentUser(c), u)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, s)
}
