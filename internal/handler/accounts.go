package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/HackGT12/app-view-sub000/internal/auth"
	"github.com/HackGT12/app-view-sub000/internal/models"
	"github.com/HackGT12/app-view-sub000/internal/scoring"
	"github.com/HackGT12/app-view-sub000/internal/service"
)

type AccountHandler struct {
	Accounts *service.AccountService
	Scoring  *scoring.Service
	JWT      *auth.JWT
}

func (h *AccountHandler) Register(r gin.IRouter) {
	r.GET("/me", h.me)
	r.GET("/me/stats", h.stats)
	r.GET("/rewards", h.rewards)
	r.POST("/rewards/:id/claim", h.claim)
	r.POST("/tokens", auth.RequireAdmin(), h.issueToken)
}

type accountView struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Coins          int64    `json:"coins"`
	ClaimedRewards []string `json:"claimedRewards"`
	ActiveBets     int      `json:"activeBets"`
}

func viewAccount(u *models.UserAccount) accountView {
	return accountView{
		ID:             u.ID,
		Name:           u.Name,
		Coins:          u.DisplayCoins(),
		ClaimedRewards: u.ClaimedRewardIDs(),
		ActiveBets:     len(u.ActiveBets),
	}
}

type tokenRequest struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	Role     string `json:"role"`
}

func (h *AccountHandler) me(c *gin.Context) {
	claims, ok := player(c)
	if !ok {
		return
	}
	u, err := h.Accounts.EnsureAccount(c.Request.Context(), claims.PlayerID, claims.Name)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, viewAccount(u), nil)
}

func (h *AccountHandler) stats(c *gin.Context) {
	claims, ok := player(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if _, err := h.Accounts.EnsureAccount(ctx, claims.PlayerID, claims.Name); err != nil {
		Fail(c, err)
		return
	}
	stats, err := h.Scoring.ComputeUserStats(ctx, claims.PlayerID)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, stats, nil)
}

func (h *AccountHandler) rewards(c *gin.Context) {
	items, err := h.Accounts.Rewards(c.Request.Context())
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, items, nil)
}

func (h *AccountHandler) claim(c *gin.Context) {
	claims, ok := player(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if _, err := h.Accounts.EnsureAccount(ctx, claims.PlayerID, claims.Name); err != nil {
		Fail(c, err)
		return
	}
	u, err := h.Accounts.ClaimReward(ctx, claims.PlayerID, c.Param("id"))
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, viewAccount(u), nil)
}

func (h *AccountHandler) issueToken(c *gin.Context) {
	if h.JWT == nil {
		Error(c, http.StatusServiceUnavailable, "token signing disabled", nil)
		return
	}
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.PlayerID) == "" {
		Error(c, http.StatusBadRequest, "playerId required", nil)
		return
	}
	role := auth.RolePlayer
	if req.Role == auth.RoleAdmin {
		role = auth.RoleAdmin
	}
	token, exp, err := h.JWT.Sign(auth.Claims{PlayerID: strings.TrimSpace(req.PlayerID), Name: req.Name, Role: role})
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, gin.H{"token": token, "expiresAt": exp}, nil)
}
