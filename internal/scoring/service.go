package scoring

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/HackGT12/app-view-sub000/internal/docstore"
	"github.com/HackGT12/app-view-sub000/internal/models"
	"github.com/HackGT12/app-view-sub000/internal/repository"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("only the line creator can resolve it")
	ErrAlreadyResolved = errors.New("line already resolved")
	ErrInvalidValue    = errors.New("actual value must be a finite number")
)

type Service struct {
	Repo   *repository.Repository
	Logger *zap.Logger
	Clock  func() time.Time
	// Location sets the calendar used for daily streaks; nil means UTC.
	Location *time.Location
}

func (s *Service) now() time.Time {
	now := time.Now()
	if s.Clock != nil {
		now = s.Clock()
	}
	loc := s.Location
	if loc == nil {
		loc = time.UTC
	}
	return now.In(loc)
}

// ResolveGroupLine sets the line's actual value. Only its creator may do
// so, and only once.
func (s *Service) ResolveGroupLine(ctx context.Context, lineID string, actual float64, requesterID string) (*models.GroupLine, error) {
	if s == nil || s.Repo == nil {
		return nil, ErrNotFound
	}
	if math.IsNaN(actual) || math.IsInf(actual, 0) {
		return nil, ErrInvalidValue
	}
	line, err := s.Repo.GetGroupLine(ctx, lineID)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, fmt.Errorf("line %s: %w", lineID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if requesterID == "" || line.CreatedBy != requesterID {
		if s.Logger != nil {
			s.Logger.Info("line resolve refused", zap.String("line_id", lineID), zap.String("requester", requesterID))
		}
		return nil, ErrForbidden
	}
	if line.Resolved() {
		return nil, ErrAlreadyResolved
	}
	if err := s.Repo.ResolveGroupLine(ctx, lineID, actual); err != nil {
		return nil, err
	}
	return s.Repo.GetGroupLine(ctx, lineID)
}

func (s *Service) ComputeLeaderboard(ctx context.Context, teamID string) ([]models.Member, error) {
	if s == nil || s.Repo == nil {
		return nil, ErrNotFound
	}
	team, err := s.Repo.GetTeam(ctx, teamID)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, fmt.Errorf("team %s: %w", teamID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	lines, err := s.Repo.ListGroupLines(ctx, teamID)
	if err != nil {
		return nil, err
	}
	return Leaderboard(*team, lines), nil
}

// ComputeUserStats loads the rounds behind the player's bets. Rounds that
// no longer exist are skipped.
func (s *Service) ComputeUserStats(ctx context.Context, userID string) (models.UserStats, error) {
	if s == nil || s.Repo == nil {
		return models.UserStats{}, ErrNotFound
	}
	u, err := s.Repo.GetUser(ctx, userID)
	if errors.Is(err, docstore.ErrNotFound) {
		return models.UserStats{}, fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	if err != nil {
		return models.UserStats{}, err
	}
	bets := u.Bets()
	rounds := make(map[string]models.Round, len(bets))
	for _, b := range bets {
		if _, seen := rounds[b.BetID]; seen {
			continue
		}
		r, err := s.Repo.GetRound(ctx, b.BetID)
		if errors.Is(err, docstore.ErrNotFound) {
			continue
		}
		if err != nil {
			return models.UserStats{}, err
		}
		rounds[b.BetID] = *r
	}
	return UserStats(s.now(), bets, rounds), nil
}
