package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/HackGT12/app-view-sub000/internal/config"
	"github.com/HackGT12/app-view-sub000/internal/docstore"
	"github.com/HackGT12/app-view-sub000/internal/guard"
	"github.com/HackGT12/app-view-sub000/internal/models"
	"github.com/HackGT12/app-view-sub000/internal/repository"
)

var (
	ErrInsufficientCoins = errors.New("not enough coins")
	ErrAlreadyClaimed    = errors.New("reward already claimed")
)

// AccountService owns coin balances and the reward catalog.
type AccountService struct {
	Repo          *repository.Repository
	Guard         guard.Guard
	Logger        *zap.Logger
	StartingCoins int64
}

// EnsureAccount creates the account on first sight with the starting
// balance. Later calls return it unchanged.
func (s *AccountService) EnsureAccount(ctx context.Context, userID, name string) (*models.UserAccount, error) {
	if s == nil || s.Repo == nil {
		return nil, ErrNotFound
	}
	coins := s.StartingCoins
	if coins <= 0 {
		coins = models.StartingCoins
	}
	u, created, err := s.Repo.EnsureUser(ctx, userID, name, coins)
	if err != nil {
		return nil, err
	}
	if created && s.Logger != nil {
		s.Logger.Info("account created", zap.String("user_id", userID), zap.Int64("coins", coins))
	}
	return u, nil
}

func (s *AccountService) Account(ctx context.Context, userID string) (*models.UserAccount, error) {
	if s == nil || s.Repo == nil {
		return nil, ErrNotFound
	}
	u, err := s.Repo.GetUser(ctx, userID)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	return u, err
}

// Credit adds coins for gameplay. Negative amounts are rejected; debits go
// through ClaimReward.
func (s *AccountService) Credit(ctx context.Context, userID string, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("%w: credit must be positive", repository.ErrInvalidInput)
	}
	if _, err := s.Account(ctx, userID); err != nil {
		return err
	}
	return s.Repo.AddCoins(ctx, userID, amount)
}

// ClaimReward debits the reward cost and records the claim. Each reward
// can be claimed once per user.
func (s *AccountService) ClaimReward(ctx context.Context, userID, rewardID string) (*models.UserAccount, error) {
	if s == nil || s.Repo == nil {
		return nil, ErrNotFound
	}
	reward, err := s.Repo.GetReward(ctx, rewardID)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, fmt.Errorf("reward %s: %w", rewardID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	u, err := s.Account(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u.HasClaimed(rewardID) {
		return nil, ErrAlreadyClaimed
	}
	if u.Coins < reward.Cost {
		return nil, ErrInsufficientCoins
	}

	key := guard.ClaimKey(rewardID, userID)
	if s.Guard != nil {
		ok, err := s.Guard.Claim(ctx, key)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrAlreadyClaimed
		}
	}
	if err := s.Repo.AddCoins(ctx, userID, -reward.Cost); err != nil {
		s.release(ctx, key)
		return nil, err
	}
	if err := s.Repo.RecordClaim(ctx, userID, rewardID); err != nil {
		if rerr := s.Repo.AddCoins(ctx, userID, reward.Cost); rerr != nil && s.Logger != nil {
			s.Logger.Error("claim refund failed", zap.String("user_id", userID), zap.String("reward_id", rewardID), zap.Error(rerr))
		}
		s.release(ctx, key)
		return nil, err
	}
	if s.Logger != nil {
		s.Logger.Info("reward claimed", zap.String("user_id", userID), zap.String("reward_id", rewardID), zap.Int64("cost", reward.Cost))
	}
	return s.Repo.GetUser(ctx, userID)
}

func (s *AccountService) Rewards(ctx context.Context) ([]models.Reward, error) {
	if s == nil || s.Repo == nil {
		return nil, nil
	}
	return s.Repo.ListRewards(ctx)
}

// SeedRewards upserts the configured catalog.
func (s *AccountService) SeedRewards(ctx context.Context, rewards []config.RewardConfig) error {
	if s == nil || s.Repo == nil {
		return nil
	}
	for _, rc := range rewards {
		rw := models.Reward{
			ID:          strings.TrimSpace(rc.ID),
			Title:       rc.Title,
			Description: rc.Description,
			Cost:        rc.Cost,
		}
		if err := s.Repo.UpsertReward(ctx, rw); err != nil {
			return fmt.Errorf("seed reward %q: %w", rc.ID, err)
		}
	}
	return nil
}

func (s *AccountService) release(ctx context.Context, key string) {
	if s.Guard == nil {
		return
	}
	if err := s.Guard.Release(ctx, key); err != nil && s.Logger != nil {
		s.Logger.Warn("guard release failed", zap.String("key", key), zap.Error(err))
	}
}
