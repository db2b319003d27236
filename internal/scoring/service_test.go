package scoring

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/HackGT12/app-view-sub000/internal/docstore"
	"github.com/HackGT12/app-view-sub000/internal/models"
	"github.com/HackGT12/app-view-sub000/internal/repository"
	"github.com/HackGT12/app-view-sub000/internal/sponsor"
)

func newService() (*Service, *repository.Repository) {
	repo := repository.New(docstore.NewMemoryStore(), sponsor.NewRotation(nil))
	return &Service{Repo: repo}, repo
}

func TestResolveGroupLineRequiresCreator(t *testing.T) {
	svc, repo := newService()
	ctx := context.Background()
	line, err := repo.CreateGroupLine(ctx, repository.NewGroupLine{TeamID: "t", Question: "q", Min: 0, Max: 10, CreatedBy: "owner"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.ResolveGroupLine(ctx, line.ID, 3, "intruder"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("err=%v want ErrForbidden", err)
	}
	got, _ := repo.GetGroupLine(ctx, line.ID)
	if !got.Active || got.Actual != nil {
		t.Fatalf("refused resolve changed line: %+v", got)
	}
	if _, err := svc.ResolveGroupLine(ctx, "missing", 3, "owner"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err=%v want ErrNotFound", err)
	}

	resolved, err := svc.ResolveGroupLine(ctx, line.ID, 3, "owner")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.Active || resolved.Actual == nil || *resolved.Actual != 3 {
		t.Fatalf("resolved=%+v", resolved)
	}
	if _, err := svc.ResolveGroupLine(ctx, line.ID, 5, "owner"); !errors.Is(err, ErrAlreadyResolved) {
		t.Fatalf("err=%v want ErrAlreadyResolved", err)
	}
}

func TestComputeLeaderboardFromStore(t *testing.T) {
	svc, repo := newService()
	ctx := context.Background()
	team, _ := repo.CreateTeam(ctx, "Hawks", models.TeamMember{ID: "owner", Name: "Olive"})
	_ = repo.AddTeamMember(ctx, team.ID, models.TeamMember{ID: "p1", Name: "Pat"})
	line, _ := repo.CreateGroupLine(ctx, repository.NewGroupLine{TeamID: team.ID, Question: "q", Min: 0, Max: 10, CreatedBy: "owner"})
	_ = repo.SetPlayerResponse(ctx, team.ID, "p1", line.ID, models.PlayerResponse{Type: models.Over, Line: 4})
	_ = repo.SetPlayerResponse(ctx, team.ID, "owner", line.ID, models.PlayerResponse{Type: models.Under, Line: 4})

	board, err := svc.ComputeLeaderboard(ctx, team.ID)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if board[0].Score != 0 || board[1].Score != 0 {
		t.Fatalf("unresolved line scored: %+v", board)
	}

	if _, err := svc.ResolveGroupLine(ctx, line.ID, 9, "owner"); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	board, _ = svc.ComputeLeaderboard(ctx, team.ID)
	if board[0].ID != "p1" || board[0].Score != 25 || board[1].ID != "owner" || board[1].Score != 0 {
		t.Fatalf("board=%+v", board)
	}
	if _, err := svc.ComputeLeaderboard(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err=%v want ErrNotFound", err)
	}
}

func TestComputeUserStatsFromStore(t *testing.T) {
	svc, repo := newService()
	ctx := context.Background()
	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	svc.Clock = func() time.Time { return now }
	_, _, _ = repo.EnsureUser(ctx, "p1", "Pat", models.StartingCoins)
	r, _ := repo.CreateRound(ctx, repository.NewRound{
		Question: "q",
		Options:  []models.Option{{ID: "A"}, {ID: "B"}},
		Donation: decimal.NewFromInt(10),
	})
	_ = repo.RecordActiveBet(ctx, "p1", models.ActiveBet{BetID: r.ID, OptionID: "A", PlacedAt: now})
	_ = repo.RecordActiveBet(ctx, "p1", models.ActiveBet{BetID: "deleted", OptionID: "A", PlacedAt: now})
	_ = repo.CloseRound(ctx, r.ID, "A")

	stats, err := svc.ComputeUserStats(ctx, "p1")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Wins != 1 || stats.WinRate != 100 || stats.DailyStreak != 1 || !stats.CharityRaised.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("stats=%+v", stats)
	}
}

func TestDottedPlayerIDScoresOnLeaderboard(t *testing.T) {
	svc, repo := newService()
	ctx := context.Background()
	owner := "jo.smith@example.com"
	team, err := repo.CreateTeam(ctx, "Hawks", models.TeamMember{ID: owner, Name: "Jo"})
	if err != nil {
		t.Fatalf("team: %v", err)
	}
	line, _ := repo.CreateGroupLine(ctx, repository.NewGroupLine{TeamID: team.ID, Question: "q", Min: 0, Max: 10, CreatedBy: owner})
	if err := repo.SetPlayerResponse(ctx, team.ID, owner, line.ID, models.PlayerResponse{Type: models.Under, Line: 4}); err != nil {
		t.Fatalf("respond: %v", err)
	}
	got, _ := repo.GetTeam(ctx, team.ID)
	if resp, ok := got.Response(owner, line.ID); !ok || resp.Type != models.Under {
		t.Fatalf("response=%+v ok=%v", resp, ok)
	}
	if _, err := svc.ResolveGroupLine(ctx, line.ID, 3, owner); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	board, err := svc.ComputeLeaderboard(ctx, team.ID)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(board) != 1 || board[0].ID != owner || board[0].Score != 29 {
		t.Fatalf("board=%+v", board)
	}
}
