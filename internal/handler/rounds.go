package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/HackGT12/app-view-sub000/internal/auth"
	"github.com/HackGT12/app-view-sub000/internal/models"
	"github.com/HackGT12/app-view-sub000/internal/repository"
	"github.com/HackGT12/app-view-sub000/internal/service"
	"github.com/HackGT12/app-view-sub000/internal/vote"
)

type RoundHandler struct {
	Repo   *repository.Repository
	Rounds *service.RoundService
	Votes  *vote.Service
	// Accounts, when set, makes sure the voter has an account so the bet
	// is recorded for stats.
	Accounts *service.AccountService
}

func (h *RoundHandler) Register(r gin.IRouter) {
	group := r.Group("/rounds")
	group.GET("", h.list)
	group.GET("/latest", h.latest)
	group.GET("/:id", h.get)
	group.POST("/:id/votes", h.vote)
	group.POST("", auth.RequireAdmin(), h.create)
	group.POST("/:id/activate", auth.RequireAdmin(), h.activate)
	group.POST("/:id/close", auth.RequireAdmin(), h.close)
}

type createRoundRequest struct {
	Question          string          `json:"question"`
	ActionDescription string          `json:"actionDescription"`
	Options           []models.Option `json:"options"`
	Donation          decimal.Decimal `json:"donation"`
	MaxDonation       decimal.Decimal `json:"maxDonation"`
}

type closeRoundRequest struct {
	Answer string `json:"answer"`
}

type voteRequest struct {
	OptionID string `json:"optionId"`
}

func (h *RoundHandler) list(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	items, err := h.Repo.ListRounds(c.Request.Context())
	if err != nil {
		Fail(c, err)
		return
	}
	if status := strings.TrimSpace(c.Query("status")); status != "" {
		kept := items[:0]
		for _, it := range items {
			if string(it.Status) == status {
				kept = append(kept, it)
			}
		}
		items = kept
	}
	items, meta := page(c, items)
	Ok(c, items, meta)
}

func (h *RoundHandler) latest(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	item, err := h.Repo.LatestRound(c.Request.Context())
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, item, nil)
}

func (h *RoundHandler) get(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	item, err := h.Repo.GetRound(c.Request.Context(), c.Param("id"))
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, item, nil)
}

func (h *RoundHandler) create(c *gin.Context) {
	var req createRoundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	item, err := h.Rounds.CreateRound(c.Request.Context(), repository.NewRound{
		Question:          strings.TrimSpace(req.Question),
		ActionDescription: strings.TrimSpace(req.ActionDescription),
		Options:           req.Options,
		Donation:          req.Donation,
		MaxDonation:       req.MaxDonation,
	})
	if err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, apiResponse{Code: 0, Message: "ok", Data: item})
}

func (h *RoundHandler) activate(c *gin.Context) {
	item, err := h.Rounds.ActivateRound(c.Request.Context(), c.Param("id"))
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, item, nil)
}

func (h *RoundHandler) close(c *gin.Context) {
	var req closeRoundRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Answer) == "" {
		Error(c, http.StatusBadRequest, "answer required", nil)
		return
	}
	item, err := h.Rounds.CloseRound(c.Request.Context(), c.Param("id"), strings.TrimSpace(req.Answer))
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, item, nil)
}

func (h *RoundHandler) vote(c *gin.Context) {
	claims, ok := player(c)
	if !ok {
		return
	}
	var req voteRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.OptionID) == "" {
		Error(c, http.StatusBadRequest, "optionId required", nil)
		return
	}
	roundID := c.Param("id")
	if h.Accounts != nil {
		if _, err := h.Accounts.EnsureAccount(c.Request.Context(), claims.PlayerID, claims.Name); err != nil {
			Fail(c, err)
			return
		}
	}
	if err := h.Votes.SubmitVote(c.Request.Context(), roundID, strings.TrimSpace(req.OptionID), claims.PlayerID); err != nil {
		Fail(c, err)
		return
	}
	Ok(c, gin.H{"roundId": roundID, "optionId": req.OptionID}, nil)
}
