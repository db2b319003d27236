package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/HackGT12/app-view-sub000/internal/docstore"
	"github.com/HackGT12/app-view-sub000/internal/models"
	"github.com/HackGT12/app-view-sub000/internal/sponsor"
)

func newTestRepo() (*Repository, *docstore.MemoryStore) {
	store := docstore.NewMemoryStore()
	tick := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		tick = tick.Add(time.Second)
		return tick
	}
	store.WithClock(clock)
	repo := New(store, sponsor.NewRotation([]string{"S1", "S2"}))
	repo.Clock = clock
	return repo, store
}

func twoOptions() []models.Option {
	return []models.Option{{ID: "A", Text: "Run"}, {ID: "B", Text: "Pass"}}
}

func TestCreateRoundAssignsSponsorsRoundRobin(t *testing.T) {
	repo, _ := newTestRepo()
	ctx := context.Background()
	var sponsors []string
	for i := 0; i < 3; i++ {
		r, err := repo.CreateRound(ctx, NewRound{Question: "next play?", Options: twoOptions()})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if r.Status != models.RoundOpen || r.Answer != "" {
			t.Fatalf("new round not open: %+v", r)
		}
		sponsors = append(sponsors, r.Sponsor)
	}
	if sponsors[0] != "S1" || sponsors[1] != "S2" || sponsors[2] != "S1" {
		t.Fatalf("sponsors=%v", sponsors)
	}
	latest, err := repo.LatestRound(ctx)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest.Sponsor != "S1" {
		t.Fatalf("latest sponsor=%s want S1 (third round)", latest.Sponsor)
	}
}

func TestCreateRoundValidation(t *testing.T) {
	repo, _ := newTestRepo()
	ctx := context.Background()
	cases := []NewRound{
		{Question: "", Options: twoOptions()},
		{Question: "q", Options: []models.Option{{ID: "A"}}},
		{Question: "q", Options: []models.Option{{ID: "A"}, {ID: "A"}}},
		{Question: "q", Options: twoOptions(), Donation: decimal.NewFromInt(20), MaxDonation: decimal.NewFromInt(10)},
	}
	for i, in := range cases {
		if _, err := repo.CreateRound(ctx, in); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("case %d: err=%v want ErrInvalidInput", i, err)
		}
	}
}

func TestIncrementVoteAndClose(t *testing.T) {
	repo, _ := newTestRepo()
	ctx := context.Background()
	r, _ := repo.CreateRound(ctx, NewRound{Question: "q", Options: twoOptions()})
	for i := 0; i < 3; i++ {
		if err := repo.IncrementVote(ctx, r.ID, "B"); err != nil {
			t.Fatalf("increment: %v", err)
		}
	}
	if err := repo.CloseRound(ctx, r.ID, "B"); err != nil {
		t.Fatalf("close: %v", err)
	}
	got, err := repo.GetRound(ctx, r.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Options[0].Votes != 0 || got.Options[1].Votes != 3 {
		t.Fatalf("options=%+v", got.Options)
	}
	if got.Status != models.RoundClosed || got.Answer != "B" || got.ClosedAt == nil {
		t.Fatalf("round not closed: %+v", got)
	}
}

func TestDecodeRoundKeyedOptions(t *testing.T) {
	repo, store := newTestRepo()
	ctx := context.Background()
	legacy := map[string]any{
		"question": "legacy",
		"options": map[string]any{
			"y": map[string]any{"text": "Yes", "votes": 2, "order": 1},
			"n": map[string]any{"text": "No", "votes": 5, "order": 2},
		},
		"voteCounts": map[string]any{"y": 1},
		"status":     "open",
	}
	if err := store.Set(ctx, docstore.CollectionRounds, "legacy", legacy); err != nil {
		t.Fatalf("set: %v", err)
	}
	r, err := repo.GetRound(ctx, "legacy")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(r.Options) != 2 || r.Options[0].ID != "y" || r.Options[1].ID != "n" {
		t.Fatalf("options=%+v", r.Options)
	}
	if r.Options[0].Votes != 3 || r.Options[1].Votes != 5 {
		t.Fatalf("votes=%+v", r.Options)
	}
}

func TestTeamMembersKeepJoinOrder(t *testing.T) {
	repo, _ := newTestRepo()
	ctx := context.Background()
	team, err := repo.CreateTeam(ctx, "Hawks", models.TeamMember{ID: "owner", Name: "Olive"})
	if err != nil {
		t.Fatalf("create team: %v", err)
	}
	for _, id := range []string{"zed", "amy"} {
		if err := repo.AddTeamMember(ctx, team.ID, models.TeamMember{ID: id, Name: id}); err != nil {
			t.Fatalf("add member: %v", err)
		}
	}
	got, _ := repo.GetTeam(ctx, team.ID)
	if len(got.Members) != 3 || got.Members[0].ID != "owner" || got.Members[1].ID != "zed" || got.Members[2].ID != "amy" {
		t.Fatalf("members=%+v", got.Members)
	}
}

func TestEnsureUserStartsWithCoins(t *testing.T) {
	repo, _ := newTestRepo()
	ctx := context.Background()
	u, created, err := repo.EnsureUser(ctx, "p1", "Pat", models.StartingCoins)
	if err != nil || !created {
		t.Fatalf("ensure: created=%v err=%v", created, err)
	}
	if u.Coins != 100 {
		t.Fatalf("coins=%d want 100", u.Coins)
	}
	if err := repo.AddCoins(ctx, "p1", -150); err != nil {
		t.Fatalf("add coins: %v", err)
	}
	u, created, _ = repo.EnsureUser(ctx, "p1", "Pat", models.StartingCoins)
	if created {
		t.Fatalf("second ensure created again")
	}
	if u.Coins != -50 || u.DisplayCoins() != 0 {
		t.Fatalf("coins=%d display=%d", u.Coins, u.DisplayCoins())
	}
}

func TestResolveGroupLine(t *testing.T) {
	repo, _ := newTestRepo()
	ctx := context.Background()
	line, err := repo.CreateGroupLine(ctx, NewGroupLine{TeamID: "t", Question: "yards", Min: 0, Max: 10, CreatedBy: "p1"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !line.Active || line.Resolved() {
		t.Fatalf("new line state: %+v", line)
	}
	if err := repo.ResolveGroupLine(ctx, line.ID, 7); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	got, _ := repo.GetGroupLine(ctx, line.ID)
	if got.Active || got.Actual == nil || *got.Actual != 7 {
		t.Fatalf("resolved line: %+v", got)
	}
	lines, _ := repo.ListGroupLines(ctx, "t")
	if len(lines) != 1 {
		t.Fatalf("lines=%d", len(lines))
	}
}

func TestDottedIDsStayOneKey(t *testing.T) {
	repo, _ := newTestRepo()
	ctx := context.Background()
	owner := models.TeamMember{ID: "jo.smith@example.com", Name: "Jo"}
	team, err := repo.CreateTeam(ctx, "Hawks", owner)
	if err != nil {
		t.Fatalf("create team: %v", err)
	}
	if err := repo.AddTeamMember(ctx, team.ID, models.TeamMember{ID: "al.b", Name: "Al"}); err != nil {
		t.Fatalf("add member: %v", err)
	}
	resp := models.PlayerResponse{Type: models.Under, Line: 4}
	if err := repo.SetPlayerResponse(ctx, team.ID, owner.ID, "line.1", resp); err != nil {
		t.Fatalf("respond: %v", err)
	}
	got, _ := repo.GetTeam(ctx, team.ID)
	if len(got.Members) != 2 || got.Members[1].ID != "al.b" {
		t.Fatalf("members=%+v", got.Members)
	}
	if r, ok := got.PlayerResponses[owner.ID]["line.1"]; !ok || r.Line != 4 {
		t.Fatalf("playerResponses=%+v", got.PlayerResponses)
	}

	if _, _, err := repo.EnsureUser(ctx, owner.ID, "Jo", models.StartingCoins); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if err := repo.RecordActiveBet(ctx, owner.ID, models.ActiveBet{BetID: "r.1", OptionID: "A"}); err != nil {
		t.Fatalf("record bet: %v", err)
	}
	ids, err := repo.UsersWithBet(ctx, "r.1", "A")
	if err != nil || len(ids) != 1 || ids[0] != owner.ID {
		t.Fatalf("ids=%v err=%v", ids, err)
	}
}

func TestCloseRoundWritesOnce(t *testing.T) {
	store := &countingStore{MemoryStore: docstore.NewMemoryStore()}
	repo := New(store, sponsor.NewRotation(nil))
	ctx := context.Background()
	r, _ := repo.CreateRound(ctx, NewRound{Question: "q", Options: twoOptions()})
	if err := repo.CloseRound(ctx, r.ID, "A"); err != nil {
		t.Fatalf("close: %v", err)
	}
	if store.writes != 1 {
		t.Fatalf("writes=%d want=1", store.writes)
	}
}

// countingStore counts field writes.
type countingStore struct {
	*docstore.MemoryStore
	writes int
}

func (s *countingStore) UpdateField(ctx context.Context, collection, id, path string, value any) error {
	s.writes++
	return s.MemoryStore.UpdateField(ctx, collection, id, path, value)
}

func (s *countingStore) UpdateFields(ctx context.Context, collection, id string, fields ...docstore.Field) error {
	s.writes++
	return s.MemoryStore.UpdateFields(ctx, collection, id, fields...)
}

// staleStore never sees users, like a read that raced a concurrent create.
type staleStore struct {
	*docstore.MemoryStore
}

func (s staleStore) Get(ctx context.Context, collection, id string) (docstore.Document, error) {
	if collection == docstore.CollectionUsers {
		return docstore.Document{}, docstore.ErrNotFound
	}
	return s.MemoryStore.Get(ctx, collection, id)
}

func TestEnsureUserKeepsConcurrentBet(t *testing.T) {
	mem := docstore.NewMemoryStore()
	ctx := context.Background()
	repo := New(mem, sponsor.NewRotation(nil))
	if _, _, err := repo.EnsureUser(ctx, "p1", "Pat", models.StartingCoins); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if err := repo.RecordActiveBet(ctx, "p1", models.ActiveBet{BetID: "r1", OptionID: "A"}); err != nil {
		t.Fatalf("record bet: %v", err)
	}
	if err := repo.AddCoins(ctx, "p1", 10); err != nil {
		t.Fatalf("add coins: %v", err)
	}

	stale := New(staleStore{mem}, sponsor.NewRotation(nil))
	_, created, err := stale.EnsureUser(ctx, "p1", "Pat", models.StartingCoins)
	if !errors.Is(err, docstore.ErrNotFound) || created {
		t.Fatalf("created=%v err=%v", created, err)
	}
	u, err := repo.GetUser(ctx, "p1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if _, ok := u.ActiveBets["r1"]; !ok || u.Coins != 110 {
		t.Fatalf("user overwritten: %+v", u)
	}
}
