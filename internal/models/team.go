package models

import "time"

type TeamMember struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Team stores responses as playerResponses[playerID][lineID].
type Team struct {
	ID              string                               `json:"id"`
	Name            string                               `json:"name"`
	OwnerID         string                               `json:"ownerId"`
	Members         []TeamMember                         `json:"members"`
	PlayerResponses map[string]map[string]PlayerResponse `json:"playerResponses"`
	CreatedAt       time.Time                            `json:"createdAt"`
}

func (t Team) HasMember(id string) bool {
	for _, m := range t.Members {
		if m.ID == id {
			return true
		}
	}
	return false
}

func (t Team) Response(playerID, lineID string) (PlayerResponse, bool) {
	resp, ok := t.PlayerResponses[playerID][lineID]
	return resp, ok
}

// Member is a leaderboard row; Score is derived, never stored.
type Member struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Score   float64 `json:"score"`
	IsOwner bool    `json:"isOwner"`
}
