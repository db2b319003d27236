// Package vote captures player predictions: one vote per player per round
// on the discrete micro bets and one immutable over/under response per
// player per group line.
package vote

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/HackGT12/app-view-sub000/internal/docstore"
	"github.com/HackGT12/app-view-sub000/internal/guard"
	"github.com/HackGT12/app-view-sub000/internal/models"
	"github.com/HackGT12/app-view-sub000/internal/repository"
)

var (
	ErrMissingPlayer    = errors.New("player id required")
	ErrRoundNotFound    = errors.New("round not found")
	ErrRoundClosed      = errors.New("round is closed")
	ErrUnknownOption    = errors.New("unknown option")
	ErrAlreadyVoted     = errors.New("already voted on this round")
	ErrTeamNotFound     = errors.New("team not found")
	ErrNotTeamMember    = errors.New("player is not on this team")
	ErrLineNotFound     = errors.New("line not found")
	ErrLineClosed       = errors.New("line is closed")
	ErrLineOutOfRange   = errors.New("line value out of range")
	ErrInvalidDirection = errors.New("direction must be over or under")
	ErrAlreadyResponded = errors.New("already responded to this line")
	ErrWriteFailed      = errors.New("failed to submit")
)

// Service validates before it writes; a rejected submission persists
// nothing. Guard is optional: without it the vote-once rule is left to the
// caller.
type Service struct {
	Repo   *repository.Repository
	Guard  guard.Guard
	Logger *zap.Logger
	Clock  func() time.Time
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return time.Now().UTC()
	}
	return s.Clock().UTC()
}

// SubmitVote adds one vote for optionID on an open round. The increment and
// the round status are not checked together, so a vote racing a close may
// still land.
func (s *Service) SubmitVote(ctx context.Context, roundID, optionID, playerID string) error {
	if s == nil || s.Repo == nil {
		return ErrWriteFailed
	}
	playerID = strings.TrimSpace(playerID)
	if playerID == "" {
		return ErrMissingPlayer
	}
	r, err := s.Repo.GetRound(ctx, roundID)
	if errors.Is(err, docstore.ErrNotFound) {
		return ErrRoundNotFound
	}
	if err != nil {
		return fmt.Errorf("load round %s: %w", roundID, err)
	}
	if !r.IsOpen() {
		return ErrRoundClosed
	}
	if !r.HasOption(optionID) {
		return ErrUnknownOption
	}

	key := guard.VoteKey(roundID, playerID)
	if err := s.claim(ctx, key, ErrAlreadyVoted); err != nil {
		return err
	}
	if err := s.Repo.IncrementVote(ctx, roundID, optionID); err != nil {
		s.release(ctx, key)
		s.warn("vote write failed", zap.String("round_id", roundID), zap.String("player_id", playerID), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}

	bet := models.ActiveBet{BetID: roundID, OptionID: optionID, PlacedAt: s.now()}
	if err := s.Repo.RecordActiveBet(ctx, playerID, bet); err != nil {
		// The vote itself is counted; only the personal ledger is missing.
		s.warn("active bet not recorded", zap.String("round_id", roundID), zap.String("player_id", playerID), zap.Error(err))
	}
	return nil
}

type Response struct {
	TeamID    string
	LineID    string
	PlayerID  string
	Direction models.Direction
	Line      float64
}

// SubmitResponse records an over/under prediction. Responses are never
// edited or withdrawn.
func (s *Service) SubmitResponse(ctx context.Context, in Response) error {
	if s == nil || s.Repo == nil {
		return ErrWriteFailed
	}
	in.PlayerID = strings.TrimSpace(in.PlayerID)
	if in.PlayerID == "" {
		return ErrMissingPlayer
	}
	if !in.Direction.Valid() {
		return ErrInvalidDirection
	}
	if math.IsNaN(in.Line) || math.IsInf(in.Line, 0) {
		return ErrLineOutOfRange
	}
	line, err := s.Repo.GetGroupLine(ctx, in.LineID)
	if errors.Is(err, docstore.ErrNotFound) {
		return ErrLineNotFound
	}
	if err != nil {
		return fmt.Errorf("load line %s: %w", in.LineID, err)
	}
	if line.TeamID != in.TeamID {
		return ErrLineNotFound
	}
	if !line.Active || line.Resolved() {
		return ErrLineClosed
	}
	if !line.InRange(in.Line) {
		return fmt.Errorf("%w: %g not in [%g, %g]", ErrLineOutOfRange, in.Line, line.Min, line.Max)
	}
	team, err := s.Repo.GetTeam(ctx, in.TeamID)
	if errors.Is(err, docstore.ErrNotFound) {
		return ErrTeamNotFound
	}
	if err != nil {
		return fmt.Errorf("load team %s: %w", in.TeamID, err)
	}
	if !team.HasMember(in.PlayerID) {
		return ErrNotTeamMember
	}
	if _, ok := team.Response(in.PlayerID, in.LineID); ok {
		return ErrAlreadyResponded
	}

	key := guard.ResponseKey(in.LineID, in.PlayerID)
	if err := s.claim(ctx, key, ErrAlreadyResponded); err != nil {
		return err
	}
	resp := models.PlayerResponse{Type: in.Direction, Line: in.Line, SubmittedAt: s.now()}
	if err := s.Repo.SetPlayerResponse(ctx, in.TeamID, in.PlayerID, in.LineID, resp); err != nil {
		s.release(ctx, key)
		s.warn("response write failed", zap.String("line_id", in.LineID), zap.String("player_id", in.PlayerID), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	return nil
}

func (s *Service) claim(ctx context.Context, key string, taken error) error {
	if s.Guard == nil {
		return nil
	}
	ok, err := s.Guard.Claim(ctx, key)
	if err != nil {
		s.warn("guard claim failed", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	if !ok {
		return taken
	}
	return nil
}

func (s *Service) release(ctx context.Context, key string) {
	if s.Guard == nil {
		return
	}
	if err := s.Guard.Release(ctx, key); err != nil {
		s.warn("guard release failed", zap.String("key", key), zap.Error(err))
	}
}

func (s *Service) warn(msg string, fields ...zap.Field) {
	if s.Logger != nil {
		s.Logger.Warn(msg, fields...)
	}
}
