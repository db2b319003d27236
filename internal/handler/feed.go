package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/HackGT12/app-view-sub000/internal/auth"
	"github.com/HackGT12/app-view-sub000/internal/feed"
)

// FeedHandler exposes the live websocket feed and the operator endpoints
// that push game state into it.
type FeedHandler struct {
	Hub *feed.Hub
}

// RegisterSocket mounts the public websocket endpoint.
func (h *FeedHandler) RegisterSocket(r gin.IRouter) {
	r.GET("/ws/feed", gin.WrapH(h.Hub))
}

func (h *FeedHandler) Register(r gin.IRouter) {
	group := r.Group("/feed")
	group.GET("/status", h.status)
	group.POST("/score", auth.RequireAdmin(), h.score)
	group.POST("/play", auth.RequireAdmin(), h.play)
	group.POST("/context", auth.RequireAdmin(), h.context)
}

type scoreRequest struct {
	Home *float64 `json:"homeTeamScore"`
	Away *float64 `json:"awayTeamScore"`
}

func (h *FeedHandler) status(c *gin.Context) {
	Ok(c, gin.H{
		"activeMicroBetId": h.Hub.Active(),
		"subscribers":      h.Hub.Subscribers(),
		"dropped":          h.Hub.Dropped(),
	}, nil)
}

func (h *FeedHandler) score(c *gin.Context) {
	var req scoreRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Home == nil || req.Away == nil {
		Error(c, http.StatusBadRequest, "homeTeamScore and awayTeamScore required", nil)
		return
	}
	h.Hub.PublishScore(*req.Home, *req.Away)
	Ok(c, gin.H{"homeTeamScore": *req.Home, "awayTeamScore": *req.Away}, nil)
}

func (h *FeedHandler) play(c *gin.Context) {
	var req feed.PlayUpdate
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Clock) == "" {
		Error(c, http.StatusBadRequest, "clock required", nil)
		return
	}
	h.Hub.PublishPlay(req)
	Ok(c, req, nil)
}

// context relays a free-form play frame that clients keep as assistant
// context.
func (h *FeedHandler) context(c *gin.Context) {
	var req map[string]any
	if err := c.ShouldBindJSON(&req); err != nil || len(req) == 0 {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	h.Hub.PublishRawPlay(req)
	Ok(c, nil, nil)
}
