package vote

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/HackGT12/app-view-sub000/internal/docstore"
	"github.com/HackGT12/app-view-sub000/internal/guard"
	"github.com/HackGT12/app-view-sub000/internal/models"
	"github.com/HackGT12/app-view-sub000/internal/repository"
	"github.com/HackGT12/app-view-sub000/internal/sponsor"
)

// flakyStore fails field updates while failing is set.
type flakyStore struct {
	*docstore.MemoryStore
	failing atomic.Bool
}

func (s *flakyStore) UpdateField(ctx context.Context, collection, id, path string, value any) error {
	if s.failing.Load() {
		return errors.New("network down")
	}
	return s.MemoryStore.UpdateField(ctx, collection, id, path, value)
}

func newService() (*Service, *repository.Repository, *flakyStore) {
	store := &flakyStore{MemoryStore: docstore.NewMemoryStore()}
	repo := repository.New(store, sponsor.NewRotation([]string{"S"}))
	return &Service{Repo: repo, Guard: guard.NewMemoryGuard(0)}, repo, store
}

func newRound(t *testing.T, repo *repository.Repository) *models.Round {
	t.Helper()
	r, err := repo.CreateRound(context.Background(), repository.NewRound{
		Question: "next play?",
		Options:  []models.Option{{ID: "A", Text: "Run"}, {ID: "B", Text: "Pass"}},
	})
	if err != nil {
		t.Fatalf("create round: %v", err)
	}
	return r
}

func TestConcurrentVotesAreAllCounted(t *testing.T) {
	svc, repo, _ := newService()
	r := newRound(t, repo)
	ctx := context.Background()
	const n = 100
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := svc.SubmitVote(ctx, r.ID, "A", fmt.Sprintf("p%d", i)); err != nil {
				t.Errorf("vote %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()
	got, _ := repo.GetRound(ctx, r.ID)
	if got.Options[0].Votes != n {
		t.Fatalf("votes=%d want=%d", got.Options[0].Votes, n)
	}
}

func TestVoteOncePerPlayer(t *testing.T) {
	svc, repo, _ := newService()
	r := newRound(t, repo)
	ctx := context.Background()
	_, _, _ = repo.EnsureUser(ctx, "p1", "Pat", models.StartingCoins)
	if err := svc.SubmitVote(ctx, r.ID, "B", "p1"); err != nil {
		t.Fatalf("first vote: %v", err)
	}
	if err := svc.SubmitVote(ctx, r.ID, "A", "p1"); !errors.Is(err, ErrAlreadyVoted) {
		t.Fatalf("second vote err=%v want ErrAlreadyVoted", err)
	}
	got, _ := repo.GetRound(ctx, r.ID)
	if got.TotalVotes() != 1 {
		t.Fatalf("total=%d want 1", got.TotalVotes())
	}
	u, _ := repo.GetUser(ctx, "p1")
	bet, ok := u.ActiveBets[r.ID]
	if !ok || bet.OptionID != "B" {
		t.Fatalf("active bets=%+v", u.ActiveBets)
	}
}

func TestClosedRoundRejectsVotes(t *testing.T) {
	svc, repo, _ := newService()
	r := newRound(t, repo)
	ctx := context.Background()
	_ = svc.SubmitVote(ctx, r.ID, "A", "p1")
	if err := repo.CloseRound(ctx, r.ID, "A"); err != nil {
		t.Fatalf("close: %v", err)
	}
	before, _ := repo.GetRound(ctx, r.ID)
	for i := 0; i < 5; i++ {
		if err := svc.SubmitVote(ctx, r.ID, "B", fmt.Sprintf("late%d", i)); !errors.Is(err, ErrRoundClosed) {
			t.Fatalf("err=%v want ErrRoundClosed", err)
		}
	}
	after, _ := repo.GetRound(ctx, r.ID)
	if after.Answer != before.Answer || after.TotalVotes() != before.TotalVotes() {
		t.Fatalf("closed round changed: before=%+v after=%+v", before, after)
	}
}

func TestVoteValidation(t *testing.T) {
	svc, repo, _ := newService()
	r := newRound(t, repo)
	ctx := context.Background()
	cases := []struct {
		round, option, player string
		want                  error
	}{
		{"missing", "A", "p1", ErrRoundNotFound},
		{r.ID, "Z", "p1", ErrUnknownOption},
		{r.ID, "A", " ", ErrMissingPlayer},
	}
	for _, tc := range cases {
		if err := svc.SubmitVote(ctx, tc.round, tc.option, tc.player); !errors.Is(err, tc.want) {
			t.Fatalf("SubmitVote(%q,%q,%q) err=%v want=%v", tc.round, tc.option, tc.player, err, tc.want)
		}
	}
}

func TestFailedVoteCanBeRetried(t *testing.T) {
	svc, repo, store := newService()
	r := newRound(t, repo)
	ctx := context.Background()
	store.failing.Store(true)
	if err := svc.SubmitVote(ctx, r.ID, "A", "p1"); !errors.Is(err, ErrWriteFailed) {
		t.Fatalf("err=%v want ErrWriteFailed", err)
	}
	store.failing.Store(false)
	if err := svc.SubmitVote(ctx, r.ID, "A", "p1"); err != nil {
		t.Fatalf("retry: %v", err)
	}
	got, _ := repo.GetRound(ctx, r.ID)
	if got.Options[0].Votes != 1 {
		t.Fatalf("votes=%d want 1", got.Options[0].Votes)
	}
}

func newTeamLine(t *testing.T, repo *repository.Repository) (*models.Team, *models.GroupLine) {
	t.Helper()
	ctx := context.Background()
	team, err := repo.CreateTeam(ctx, "Hawks", models.TeamMember{ID: "owner", Name: "Olive"})
	if err != nil {
		t.Fatalf("team: %v", err)
	}
	_ = repo.AddTeamMember(ctx, team.ID, models.TeamMember{ID: "p1", Name: "Pat"})
	line, err := repo.CreateGroupLine(ctx, repository.NewGroupLine{
		TeamID: team.ID, Question: "rushing yards", Min: 0, Max: 10, CreatedBy: "owner",
	})
	if err != nil {
		t.Fatalf("line: %v", err)
	}
	return team, line
}

func TestSubmitResponse(t *testing.T) {
	svc, repo, _ := newService()
	team, line := newTeamLine(t, repo)
	ctx := context.Background()
	in := Response{TeamID: team.ID, LineID: line.ID, PlayerID: "p1", Direction: models.Under, Line: 4}
	if err := svc.SubmitResponse(ctx, in); err != nil {
		t.Fatalf("submit: %v", err)
	}
	in.Direction, in.Line = models.Over, 6
	if err := svc.SubmitResponse(ctx, in); !errors.Is(err, ErrAlreadyResponded) {
		t.Fatalf("resubmit err=%v want ErrAlreadyResponded", err)
	}
	got, _ := repo.GetTeam(ctx, team.ID)
	resp, ok := got.Response("p1", line.ID)
	if !ok || resp.Type != models.Under || resp.Line != 4 {
		t.Fatalf("stored response=%+v ok=%v", resp, ok)
	}
}

func TestSubmitResponseValidation(t *testing.T) {
	svc, repo, _ := newService()
	team, line := newTeamLine(t, repo)
	ctx := context.Background()
	base := Response{TeamID: team.ID, LineID: line.ID, PlayerID: "p1", Direction: models.Over, Line: 5}
	cases := []struct {
		name string
		edit func(*Response)
		want error
	}{
		{"below min", func(r *Response) { r.Line = -1 }, ErrLineOutOfRange},
		{"above max", func(r *Response) { r.Line = 10.5 }, ErrLineOutOfRange},
		{"no direction", func(r *Response) { r.Direction = "" }, ErrInvalidDirection},
		{"unknown line", func(r *Response) { r.LineID = "nope" }, ErrLineNotFound},
		{"other team", func(r *Response) { r.TeamID = "other" }, ErrLineNotFound},
		{"outsider", func(r *Response) { r.PlayerID = "stranger" }, ErrNotTeamMember},
	}
	for _, tc := range cases {
		in := base
		tc.edit(&in)
		if err := svc.SubmitResponse(ctx, in); !errors.Is(err, tc.want) {
			t.Fatalf("%s: err=%v want=%v", tc.name, err, tc.want)
		}
	}
	got, _ := repo.GetTeam(ctx, team.ID)
	if len(got.PlayerResponses) != 0 {
		t.Fatalf("rejected submissions persisted: %+v", got.PlayerResponses)
	}

	if err := repo.ResolveGroupLine(ctx, line.ID, 3); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if err := svc.SubmitResponse(ctx, base); !errors.Is(err, ErrLineClosed) {
		t.Fatalf("closed line err=%v want ErrLineClosed", err)
	}
}

func TestDottedPlayerRespondsOnce(t *testing.T) {
	svc, repo, _ := newService()
	_, line := newTeamLine(t, repo)
	ctx := context.Background()
	player := "jo.smith@example.com"
	if err := repo.AddTeamMember(ctx, line.TeamID, models.TeamMember{ID: player, Name: "Jo"}); err != nil {
		t.Fatalf("add member: %v", err)
	}
	in := Response{TeamID: line.TeamID, LineID: line.ID, PlayerID: player, Direction: models.Under, Line: 4}
	if err := svc.SubmitResponse(ctx, in); err != nil {
		t.Fatalf("submit: %v", err)
	}
	// A fresh guard forces the check against the stored response.
	svc.Guard = guard.NewMemoryGuard(0)
	in.Direction, in.Line = models.Over, 1
	if err := svc.SubmitResponse(ctx, in); !errors.Is(err, ErrAlreadyResponded) {
		t.Fatalf("resubmit err=%v want ErrAlreadyResponded", err)
	}
	team, _ := repo.GetTeam(ctx, line.TeamID)
	resp, ok := team.Response(player, line.ID)
	if !ok || resp.Type != models.Under || resp.Line != 4 {
		t.Fatalf("stored response=%+v ok=%v", resp, ok)
	}
	if _, ok := team.PlayerResponses["jo"]; ok {
		t.Fatalf("dotted id split: %+v", team.PlayerResponses)
	}
}
