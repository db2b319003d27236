package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/HackGT12/app-view-sub000/internal/docstore"
	"github.com/HackGT12/app-view-sub000/internal/models"
)

type memberDoc struct {
	Name     string    `json:"name"`
	JoinedAt time.Time `json:"joinedAt"`
}

// Members are keyed by player id so joins are single-field writes; roster
// order is join order.
type teamDoc struct {
	Name            string                                      `json:"name"`
	OwnerID         string                                      `json:"ownerId"`
	Members         map[string]memberDoc                        `json:"members"`
	PlayerResponses map[string]map[string]models.PlayerResponse `json:"playerResponses"`
	CreatedAt       time.Time                                   `json:"createdAt"`
}

func decodeTeam(doc docstore.Document) (*models.Team, error) {
	var td teamDoc
	if err := doc.Decode(&td); err != nil {
		return nil, fmt.Errorf("decode team %s: %w", doc.ID, err)
	}
	ids := make([]string, 0, len(td.Members))
	for id := range td.Members {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := td.Members[ids[i]], td.Members[ids[j]]
		if !a.JoinedAt.Equal(b.JoinedAt) {
			return a.JoinedAt.Before(b.JoinedAt)
		}
		return ids[i] < ids[j]
	})
	members := make([]models.TeamMember, 0, len(ids))
	for _, id := range ids {
		members = append(members, models.TeamMember{ID: id, Name: td.Members[id].Name})
	}
	responses := td.PlayerResponses
	if responses == nil {
		responses = map[string]map[string]models.PlayerResponse{}
	}
	return &models.Team{
		ID:              doc.ID,
		Name:            td.Name,
		OwnerID:         td.OwnerID,
		Members:         members,
		PlayerResponses: responses,
		CreatedAt:       createdAtOr(td.CreatedAt, doc),
	}, nil
}

func (r *Repository) CreateTeam(ctx context.Context, name string, owner models.TeamMember) (*models.Team, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.TrimSpace(owner.ID) == "" {
		return nil, fmt.Errorf("%w: team name and owner required", ErrInvalidInput)
	}
	now := r.now()
	body := map[string]any{
		"name":    name,
		"ownerId": owner.ID,
		"members": map[string]memberDoc{
			owner.ID: {Name: owner.Name, JoinedAt: now},
		},
		"playerResponses": map[string]any{},
		"createdAt":       docstore.FormatTime(now),
	}
	id, err := r.Store.Create(ctx, docstore.CollectionTeams, body)
	if err != nil {
		return nil, err
	}
	return r.GetTeam(ctx, id)
}

func (r *Repository) GetTeam(ctx context.Context, id string) (*models.Team, error) {
	doc, err := r.get(ctx, docstore.CollectionTeams, id)
	if err != nil {
		return nil, err
	}
	return decodeTeam(doc)
}

func (r *Repository) AddTeamMember(ctx context.Context, teamID string, m models.TeamMember) error {
	if strings.TrimSpace(m.ID) == "" {
		return fmt.Errorf("%w: bad member id %q", ErrInvalidInput, m.ID)
	}
	return r.Store.UpdateField(ctx, docstore.CollectionTeams, teamID,
		docstore.Path("members", m.ID), memberDoc{Name: m.Name, JoinedAt: r.now()})
}

func (r *Repository) SetPlayerResponse(ctx context.Context, teamID, playerID, lineID string, resp models.PlayerResponse) error {
	return r.Store.UpdateField(ctx, docstore.CollectionTeams, teamID,
		docstore.Path("playerResponses", playerID, lineID), resp)
}
