package models

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

const StartingCoins int64 = 100

type ActiveBet struct {
	BetID    string    `json:"betId"`
	OptionID string    `json:"optionId"`
	PlacedAt time.Time `json:"placedAt"`
}

// UserAccount balances are mutated additively and never clamped on write.
type UserAccount struct {
	ID             string               `json:"id"`
	Name           string               `json:"name"`
	Coins          int64                `json:"coins"`
	ClaimedRewards map[string]time.Time `json:"claimedRewards"`
	ActiveBets     map[string]ActiveBet `json:"activeBets"`
	CreatedAt      time.Time            `json:"createdAt"`
}

// DisplayCoins is the balance as shown to players.
func (u UserAccount) DisplayCoins() int64 {
	if u.Coins < 0 {
		return 0
	}
	return u.Coins
}

func (u UserAccount) HasClaimed(rewardID string) bool {
	_, ok := u.ClaimedRewards[rewardID]
	return ok
}

func (u UserAccount) ClaimedRewardIDs() []string {
	out := make([]string, 0, len(u.ClaimedRewards))
	for id := range u.ClaimedRewards {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Bets returns the active-bet ledger ordered by placement time.
func (u UserAccount) Bets() []ActiveBet {
	out := make([]ActiveBet, 0, len(u.ActiveBets))
	for id, b := range u.ActiveBets {
		if b.BetID == "" {
			b.BetID = id
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].PlacedAt.Equal(out[j].PlacedAt) {
			return out[i].PlacedAt.Before(out[j].PlacedAt)
		}
		return out[i].BetID < out[j].BetID
	})
	return out
}

type Reward struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Cost        int64  `json:"cost"`
}

type UserStats struct {
	Wins          int             `json:"wins"`
	Considered    int             `json:"considered"`
	WinRate       int             `json:"winRate"`
	CharityRaised decimal.Decimal `json:"charityRaised"`
	DailyStreak   int             `json:"dailyStreak"`
}
