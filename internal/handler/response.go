package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/HackGT12/app-view-sub000/internal/auth"
	"github.com/HackGT12/app-view-sub000/internal/docstore"
	"github.com/HackGT12/app-view-sub000/internal/repository"
	"github.com/HackGT12/app-view-sub000/internal/scoring"
	"github.com/HackGT12/app-view-sub000/internal/service"
	"github.com/HackGT12/app-view-sub000/internal/vote"
)

type apiResponse struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Data    any            `json:"data,omitempty"`
	Meta    map[string]any `json:"meta,omitempty"`
}

func Ok(c *gin.Context, data any, meta map[string]any) {
	c.JSON(http.StatusOK, apiResponse{
		Code:    0,
		Message: "ok",
		Data:    data,
		Meta:    meta,
	})
}

func Error(c *gin.Context, status int, message string, meta map[string]any) {
	c.JSON(status, apiResponse{
		Code:    status,
		Message: message,
		Meta:    meta,
	})
}

// Fail maps a domain error onto a status code. The message stays short
// and readable; unknown errors are reported as a bad gateway.
func Fail(c *gin.Context, err error) {
	Error(c, errorStatus(err), err.Error(), nil)
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, docstore.ErrNotFound),
		errors.Is(err, vote.ErrRoundNotFound),
		errors.Is(err, vote.ErrLineNotFound),
		errors.Is(err, vote.ErrTeamNotFound),
		errors.Is(err, scoring.ErrNotFound),
		errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, scoring.ErrForbidden),
		errors.Is(err, vote.ErrNotTeamMember):
		return http.StatusForbidden
	case errors.Is(err, vote.ErrAlreadyVoted),
		errors.Is(err, vote.ErrAlreadyResponded),
		errors.Is(err, vote.ErrRoundClosed),
		errors.Is(err, vote.ErrLineClosed),
		errors.Is(err, scoring.ErrAlreadyResolved),
		errors.Is(err, service.ErrRoundClosed),
		errors.Is(err, service.ErrAlreadyClaimed):
		return http.StatusConflict
	case errors.Is(err, vote.ErrUnknownOption),
		errors.Is(err, vote.ErrLineOutOfRange),
		errors.Is(err, vote.ErrInvalidDirection),
		errors.Is(err, vote.ErrMissingPlayer),
		errors.Is(err, scoring.ErrInvalidValue),
		errors.Is(err, service.ErrInvalidAnswer),
		errors.Is(err, repository.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrInsufficientCoins):
		return http.StatusPaymentRequired
	case errors.Is(err, vote.ErrWriteFailed):
		return http.StatusServiceUnavailable
	}
	return http.StatusBadGateway
}

// player returns the authenticated caller or writes 401.
func player(c *gin.Context) (auth.Claims, bool) {
	claims, ok := auth.ClaimsFrom(c)
	if !ok || claims.PlayerID == "" {
		Error(c, http.StatusUnauthorized, "not authenticated", nil)
		return auth.Claims{}, false
	}
	return claims, true
}

func intQuery(c *gin.Context, key string, def int) int {
	if val := c.Query(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return def
}

// page slices items by the limit/offset query and returns the page meta.
func page[T any](c *gin.Context, items []T) ([]T, map[string]any) {
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	total := len(items)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return items[offset:end], map[string]any{
		"limit":    limit,
		"offset":   offset,
		"total":    total,
		"has_next": end < total,
	}
}
