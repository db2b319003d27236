package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/HackGT12/app-view-sub000/internal/docstore"
	"github.com/HackGT12/app-view-sub000/internal/models"
)

func decodeUser(doc docstore.Document) (*models.UserAccount, error) {
	var u models.UserAccount
	if err := doc.Decode(&u); err != nil {
		return nil, fmt.Errorf("decode user %s: %w", doc.ID, err)
	}
	u.ID = doc.ID
	u.CreatedAt = createdAtOr(u.CreatedAt, doc)
	for id, b := range u.ActiveBets {
		if b.BetID == "" {
			b.BetID = id
			u.ActiveBets[id] = b
		}
	}
	return &u, nil
}

func (r *Repository) GetUser(ctx context.Context, id string) (*models.UserAccount, error) {
	doc, err := r.get(ctx, docstore.CollectionUsers, id)
	if err != nil {
		return nil, err
	}
	return decodeUser(doc)
}

// EnsureUser returns the account, creating it with startingCoins on first
// sight. created reports whether this call created it.
func (r *Repository) EnsureUser(ctx context.Context, id, name string, startingCoins int64) (*models.UserAccount, bool, error) {
	if strings.TrimSpace(id) == "" {
		return nil, false, fmt.Errorf("%w: bad user id %q", ErrInvalidInput, id)
	}
	u, err := r.GetUser(ctx, id)
	if err == nil {
		return u, false, nil
	}
	if !errors.Is(err, docstore.ErrNotFound) {
		return nil, false, err
	}
	// Insert never overwrites, so a bet recorded by a concurrent first
	// sight survives.
	body := map[string]any{
		"name":           name,
		"coins":          startingCoins,
		"claimedRewards": map[string]any{},
		"activeBets":     map[string]any{},
		"createdAt":      docstore.FormatTime(r.now()),
	}
	created, err := r.Store.Insert(ctx, docstore.CollectionUsers, id, body)
	if err != nil {
		return nil, false, err
	}
	u, err = r.GetUser(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return u, created, nil
}

// AddCoins applies delta without clamping.
func (r *Repository) AddCoins(ctx context.Context, userID string, delta int64) error {
	return r.Store.UpdateField(ctx, docstore.CollectionUsers, userID, "coins", docstore.Increment(delta))
}

func (r *Repository) RecordClaim(ctx context.Context, userID, rewardID string) error {
	return r.Store.UpdateField(ctx, docstore.CollectionUsers, userID,
		docstore.Path("claimedRewards", rewardID), docstore.FormatTime(r.now()))
}

func (r *Repository) RecordActiveBet(ctx context.Context, userID string, bet models.ActiveBet) error {
	if bet.PlacedAt.IsZero() {
		bet.PlacedAt = r.now()
	}
	return r.Store.UpdateField(ctx, docstore.CollectionUsers, userID,
		docstore.Path("activeBets", bet.BetID), bet)
}

func (r *Repository) GetReward(ctx context.Context, id string) (*models.Reward, error) {
	doc, err := r.get(ctx, docstore.CollectionRewards, id)
	if err != nil {
		return nil, err
	}
	var rw models.Reward
	if err := doc.Decode(&rw); err != nil {
		return nil, fmt.Errorf("decode reward %s: %w", id, err)
	}
	rw.ID = doc.ID
	return &rw, nil
}

// ListRewards returns the catalog cheapest first.
func (r *Repository) ListRewards(ctx context.Context) ([]models.Reward, error) {
	docs, err := r.Store.List(ctx, docstore.CollectionRewards, "cost", docstore.Asc)
	if err != nil {
		return nil, err
	}
	out := make([]models.Reward, 0, len(docs))
	for _, d := range docs {
		var rw models.Reward
		if err := d.Decode(&rw); err != nil {
			return nil, fmt.Errorf("decode reward %s: %w", d.ID, err)
		}
		rw.ID = d.ID
		out = append(out, rw)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Cost < out[j].Cost })
	return out, nil
}

func (r *Repository) UpsertReward(ctx context.Context, rw models.Reward) error {
	if strings.TrimSpace(rw.ID) == "" || rw.Cost < 0 {
		return fmt.Errorf("%w: reward id and non-negative cost required", ErrInvalidInput)
	}
	return r.Store.Set(ctx, docstore.CollectionRewards, rw.ID, rw)
}

// UsersWithBet returns the ids of users whose bet on roundID chose optionID.
func (r *Repository) UsersWithBet(ctx context.Context, roundID, optionID string) ([]string, error) {
	if strings.TrimSpace(roundID) == "" {
		return nil, fmt.Errorf("%w: bad round id %q", ErrInvalidInput, roundID)
	}
	docs, err := r.Store.Query(ctx, docstore.CollectionUsers, docstore.Path("activeBets", roundID, "optionId"), optionID)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.ID)
	}
	return out, nil
}
