package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/HackGT12/app-view-sub000/internal/docstore"
	"github.com/HackGT12/app-view-sub000/internal/models"
	"github.com/HackGT12/app-view-sub000/internal/repository"
	"github.com/HackGT12/app-view-sub000/internal/scoring"
	"github.com/HackGT12/app-view-sub000/internal/vote"
)

// TeamHandler serves teams, their group lines and the team leaderboard.
type TeamHandler struct {
	Repo    *repository.Repository
	Votes   *vote.Service
	Scoring *scoring.Service
}

func (h *TeamHandler) Register(r gin.IRouter) {
	teams := r.Group("/teams")
	teams.POST("", h.createTeam)
	teams.GET("/:id", h.getTeam)
	teams.POST("/:id/members", h.join)
	teams.GET("/:id/lines", h.listLines)
	teams.POST("/:id/lines", h.createLine)
	teams.POST("/:id/lines/:lineId/responses", h.respond)
	teams.GET("/:id/leaderboard", h.leaderboard)

	r.GET("/lines/:id", h.getLine)
	r.POST("/lines/:id/resolve", h.resolve)
}

type createTeamRequest struct {
	Name string `json:"name"`
}

type createLineRequest struct {
	Question string  `json:"question"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
}

type respondRequest struct {
	Type string   `json:"type"`
	Line *float64 `json:"line"`
}

type resolveRequest struct {
	Actual *float64 `json:"actual"`
}

func (h *TeamHandler) createTeam(c *gin.Context) {
	claims, ok := player(c)
	if !ok {
		return
	}
	var req createTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	team, err := h.Repo.CreateTeam(c.Request.Context(), req.Name, models.TeamMember{ID: claims.PlayerID, Name: claims.Name})
	if err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, apiResponse{Code: 0, Message: "ok", Data: team})
}

func (h *TeamHandler) getTeam(c *gin.Context) {
	team, err := h.Repo.GetTeam(c.Request.Context(), c.Param("id"))
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, team, nil)
}

func (h *TeamHandler) join(c *gin.Context) {
	claims, ok := player(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	teamID := c.Param("id")
	team, err := h.Repo.GetTeam(ctx, teamID)
	if err != nil {
		Fail(c, err)
		return
	}
	if team.HasMember(claims.PlayerID) {
		Ok(c, team, nil)
		return
	}
	if err := h.Repo.AddTeamMember(ctx, teamID, models.TeamMember{ID: claims.PlayerID, Name: claims.Name}); err != nil {
		Fail(c, err)
		return
	}
	team, err = h.Repo.GetTeam(ctx, teamID)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, team, nil)
}

func (h *TeamHandler) listLines(c *gin.Context) {
	lines, err := h.Repo.ListGroupLines(c.Request.Context(), c.Param("id"))
	if err != nil {
		Fail(c, err)
		return
	}
	if c.Query("active") == "true" {
		kept := lines[:0]
		for _, l := range lines {
			if l.Active {
				kept = append(kept, l)
			}
		}
		lines = kept
	}
	lines, meta := page(c, lines)
	Ok(c, lines, meta)
}

func (h *TeamHandler) createLine(c *gin.Context) {
	claims, ok := player(c)
	if !ok {
		return
	}
	var req createLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	ctx := c.Request.Context()
	teamID := c.Param("id")
	team, err := h.Repo.GetTeam(ctx, teamID)
	if err != nil {
		Fail(c, err)
		return
	}
	if !team.HasMember(claims.PlayerID) {
		Fail(c, vote.ErrNotTeamMember)
		return
	}
	line, err := h.Repo.CreateGroupLine(ctx, repository.NewGroupLine{
		TeamID:    teamID,
		Question:  req.Question,
		Min:       req.Min,
		Max:       req.Max,
		CreatedBy: claims.PlayerID,
	})
	if err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, apiResponse{Code: 0, Message: "ok", Data: line})
}

func (h *TeamHandler) respond(c *gin.Context) {
	claims, ok := player(c)
	if !ok {
		return
	}
	var req respondRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Line == nil {
		Error(c, http.StatusBadRequest, "type and line required", nil)
		return
	}
	err := h.Votes.SubmitResponse(c.Request.Context(), vote.Response{
		TeamID:    c.Param("id"),
		LineID:    c.Param("lineId"),
		PlayerID:  claims.PlayerID,
		Direction: models.Direction(strings.ToLower(strings.TrimSpace(req.Type))),
		Line:      *req.Line,
	})
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, gin.H{"lineId": c.Param("lineId"), "type": req.Type, "line": *req.Line}, nil)
}

func (h *TeamHandler) leaderboard(c *gin.Context) {
	board, err := h.Scoring.ComputeLeaderboard(c.Request.Context(), c.Param("id"))
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, board, nil)
}

func (h *TeamHandler) getLine(c *gin.Context) {
	line, err := h.Repo.GetGroupLine(c.Request.Context(), c.Param("id"))
	if errors.Is(err, docstore.ErrNotFound) {
		Error(c, http.StatusNotFound, "line not found", nil)
		return
	}
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, line, nil)
}

func (h *TeamHandler) resolve(c *gin.Context) {
	claims, ok := player(c)
	if !ok {
		return
	}
	var req resolveRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Actual == nil {
		Error(c, http.StatusBadRequest, "actual required", nil)
		return
	}
	line, err := h.Scoring.ResolveGroupLine(c.Request.Context(), c.Param("id"), *req.Actual, claims.PlayerID)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, line, nil)
}
