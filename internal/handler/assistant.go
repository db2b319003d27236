package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/HackGT12/app-view-sub000/internal/assistant"
	"github.com/HackGT12/app-view-sub000/internal/feed"
)

// AssistantHandler answers questions about the plays the hub relayed.
type AssistantHandler struct {
	Assistant *assistant.Assistant
	Hub       *feed.Hub
}

func (h *AssistantHandler) Register(r gin.IRouter) {
	r.POST("/assistant", h.ask)
}

type askRequest struct {
	Question string `json:"question"`
}

func (h *AssistantHandler) ask(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Question) == "" {
		Error(c, http.StatusBadRequest, "question required", nil)
		return
	}
	answer, err := h.Assistant.Ask(c.Request.Context(), req.Question, h.Hub.Plays())
	if errors.Is(err, assistant.ErrNotConfigured) {
		Error(c, http.StatusServiceUnavailable, err.Error(), nil)
		return
	}
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, gin.H{"answer": answer}, nil)
}
