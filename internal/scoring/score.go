// Package scoring resolves group lines and derives leaderboards and player
// stats. Scores are always recomputed from stored state; nothing derived
// is persisted.
package scoring

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/HackGT12/app-view-sub000/internal/models"
)

const (
	MaxPoints = 30
	MinPoints = 5
)

// Correct reports whether a response wins against actual. A tie loses in
// both directions.
func Correct(dir models.Direction, line, actual float64) bool {
	switch dir {
	case models.Over:
		return actual > line
	case models.Under:
		return actual < line
	}
	return false
}

// Points is max(5, 30-|actual-line|) for a correct response, else 0.
func Points(resp models.PlayerResponse, actual *float64) float64 {
	if actual == nil || !Correct(resp.Type, resp.Line, *actual) {
		return 0
	}
	return math.Max(MinPoints, MaxPoints-math.Abs(*actual-resp.Line))
}

// Leaderboard scores every member of team against the resolved lines.
// Members without resolved responses score 0.
func Leaderboard(team models.Team, lines []models.GroupLine) []models.Member {
	byID := make(map[string]models.GroupLine, len(lines))
	for _, l := range lines {
		byID[l.ID] = l
	}
	members := make([]models.Member, 0, len(team.Members))
	for _, m := range team.Members {
		var score float64
		for lineID, resp := range team.PlayerResponses[m.ID] {
			line, ok := byID[lineID]
			if !ok || !line.Resolved() {
				continue
			}
			score += Points(resp, line.Actual)
		}
		members = append(members, models.Member{
			ID:      m.ID,
			Name:    m.Name,
			Score:   score,
			IsOwner: m.ID == team.OwnerID,
		})
	}
	return Rank(members)
}

// Rank orders members by score, highest first. Ties keep input order.
func Rank(members []models.Member) []models.Member {
	out := append([]models.Member(nil), members...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// UserStats derives win rate, charity raised and daily streak from the
// player's bets. Bets on void rounds and on rounds that no longer exist
// are not considered; a bet on a round with no answer yet counts as a
// loss. Every winner is credited the full donation of the round.
func UserStats(now time.Time, bets []models.ActiveBet, rounds map[string]models.Round) models.UserStats {
	stats := models.UserStats{CharityRaised: decimal.Zero}
	days := map[string]struct{}{}
	loc := now.Location()
	for _, bet := range bets {
		r, ok := rounds[bet.BetID]
		if !ok || r.Answer == models.VoidAnswer {
			continue
		}
		stats.Considered++
		days[dayKey(bet.PlacedAt.In(loc))] = struct{}{}
		if bet.OptionID == r.Answer {
			stats.Wins++
			stats.CharityRaised = stats.CharityRaised.Add(r.DisplayDonation())
		}
	}
	if stats.Considered > 0 {
		stats.WinRate = int(math.Round(float64(stats.Wins) / float64(stats.Considered) * 100))
	}
	stats.DailyStreak = Streak(now, days)
	return stats
}

// Streak counts consecutive days with activity ending today.
func Streak(now time.Time, days map[string]struct{}) int {
	n := 0
	day := now
	for {
		if _, ok := days[dayKey(day)]; !ok {
			return n
		}
		n++
		day = day.AddDate(0, 0, -1)
	}
}

func dayKey(t time.Time) string {
	return t.Format("2006-01-02")
}
