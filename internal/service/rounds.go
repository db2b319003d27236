package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/HackGT12/app-view-sub000/internal/config"
	"github.com/HackGT12/app-view-sub000/internal/docstore"
	"github.com/HackGT12/app-view-sub000/internal/guard"
	"github.com/HackGT12/app-view-sub000/internal/models"
	"github.com/HackGT12/app-view-sub000/internal/repository"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrRoundClosed   = errors.New("round is closed")
	ErrInvalidAnswer = errors.New("answer is not an option of the round")
)

// Publisher announces round activation on the live feed.
type Publisher interface {
	PublishActivation(roundID *string)
	Active() *string
}

// RoundService is the operator side of the round lifecycle.
//
// Guard serializes closes across processes. Without one, closes are only
// serialized within this process.
type RoundService struct {
	Repo      *repository.Repository
	Publisher Publisher
	Guard     guard.Guard
	Logger    *zap.Logger
	Config    config.RoundConfig
	Clock     func() time.Time

	closing sync.Map
}

func (s *RoundService) now() time.Time {
	if s.Clock == nil {
		return time.Now().UTC()
	}
	return s.Clock().UTC()
}

// CreateRound fills donation bounds from config when the request leaves
// them zero.
func (s *RoundService) CreateRound(ctx context.Context, in repository.NewRound) (*models.Round, error) {
	if s == nil || s.Repo == nil {
		return nil, ErrNotFound
	}
	if in.Donation.IsZero() {
		in.Donation = parseDecimal(s.Config.DefaultDonation)
	}
	if in.MaxDonation.IsZero() {
		in.MaxDonation = parseDecimal(s.Config.MaxDonation)
	}
	if !in.MaxDonation.IsZero() && in.Donation.GreaterThan(in.MaxDonation) {
		in.MaxDonation = in.Donation
	}
	r, err := s.Repo.CreateRound(ctx, in)
	if err != nil {
		return nil, err
	}
	if s.Logger != nil {
		s.Logger.Info("round created", zap.String("round_id", r.ID), zap.String("sponsor", r.Sponsor))
	}
	return r, nil
}

// ActivateRound tells every listener that id is the open round.
func (s *RoundService) ActivateRound(ctx context.Context, id string) (*models.Round, error) {
	r, err := s.getRound(ctx, id)
	if err != nil {
		return nil, err
	}
	if !r.IsOpen() {
		return nil, ErrRoundClosed
	}
	if s.Publisher != nil {
		s.Publisher.PublishActivation(&r.ID)
	}
	if s.Logger != nil {
		s.Logger.Info("round activated", zap.String("round_id", r.ID))
	}
	return r, nil
}

// CloseRound records the answer, credits winners and, when the round is
// the announced one, tells listeners it closed. answer may be
// models.VoidAnswer.
func (s *RoundService) CloseRound(ctx context.Context, id, answer string) (*models.Round, error) {
	r, err := s.getRound(ctx, id)
	if err != nil {
		return nil, err
	}
	if !r.IsOpen() {
		return nil, ErrRoundClosed
	}
	answer = strings.TrimSpace(answer)
	if answer != models.VoidAnswer && !r.HasOption(answer) {
		return nil, ErrInvalidAnswer
	}
	won, err := s.claimClose(ctx, id)
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, ErrRoundClosed
	}
	// Another close may have finished between the read and the claim.
	if r, err = s.getRound(ctx, id); err != nil {
		s.releaseClose(ctx, id)
		return nil, err
	}
	if !r.IsOpen() {
		return nil, ErrRoundClosed
	}
	if err := s.Repo.CloseRound(ctx, id, answer); err != nil {
		s.releaseClose(ctx, id)
		return nil, err
	}
	if s.Publisher != nil {
		if active := s.Publisher.Active(); active != nil && *active == id {
			s.Publisher.PublishActivation(nil)
		}
	}
	credited := 0
	if answer != models.VoidAnswer {
		credited = s.creditWinners(ctx, id, answer)
	}
	if s.Logger != nil {
		s.Logger.Info("round closed",
			zap.String("round_id", id),
			zap.String("answer", answer),
			zap.Int("credited", credited),
		)
	}
	return s.Repo.GetRound(ctx, id)
}

// claimClose reports whether this call may close the round. At most one
// caller wins per round.
func (s *RoundService) claimClose(ctx context.Context, id string) (bool, error) {
	if s.Guard != nil {
		return s.Guard.Claim(ctx, guard.CloseKey(id))
	}
	_, taken := s.closing.LoadOrStore(id, struct{}{})
	return !taken, nil
}

func (s *RoundService) releaseClose(ctx context.Context, id string) {
	if s.Guard == nil {
		s.closing.Delete(id)
		return
	}
	if err := s.Guard.Release(ctx, guard.CloseKey(id)); err != nil && s.Logger != nil {
		s.Logger.Warn("close claim release failed", zap.String("round_id", id), zap.Error(err))
	}
}

func (s *RoundService) creditWinners(ctx context.Context, roundID, answer string) int {
	if s.Config.WinCoins <= 0 {
		return 0
	}
	winners, err := s.Repo.UsersWithBet(ctx, roundID, answer)
	if err != nil {
		if s.Logger != nil {
			s.Logger.Warn("winner lookup failed", zap.String("round_id", roundID), zap.Error(err))
		}
		return 0
	}
	n := 0
	for _, u := range winners {
		if err := s.Repo.AddCoins(ctx, u, s.Config.WinCoins); err != nil {
			if s.Logger != nil {
				s.Logger.Warn("winner credit failed", zap.String("round_id", roundID), zap.String("user_id", u), zap.Error(err))
			}
			continue
		}
		n++
	}
	return n
}

// SweepStale voids rounds left open longer than Config.MaxOpen.
func (s *RoundService) SweepStale(ctx context.Context) (int, error) {
	if s == nil || s.Repo == nil || s.Config.MaxOpen <= 0 {
		return 0, nil
	}
	open, err := s.Repo.ListOpenRounds(ctx)
	if err != nil {
		return 0, err
	}
	cutoff := s.now().Add(-s.Config.MaxOpen)
	closed := 0
	for _, r := range open {
		if ctx.Err() != nil {
			return closed, ctx.Err()
		}
		if !r.CreatedAt.Before(cutoff) {
			continue
		}
		if _, err := s.CloseRound(ctx, r.ID, models.VoidAnswer); err != nil {
			if s.Logger != nil {
				s.Logger.Warn("stale round close failed", zap.String("round_id", r.ID), zap.Error(err))
			}
			continue
		}
		closed++
	}
	return closed, nil
}

func (s *RoundService) getRound(ctx context.Context, id string) (*models.Round, error) {
	if s == nil || s.Repo == nil {
		return nil, ErrNotFound
	}
	r, err := s.Repo.GetRound(ctx, id)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, fmt.Errorf("round %s: %w", id, ErrNotFound)
	}
	return r, err
}

func parseDecimal(raw string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero
	}
	return d
}
