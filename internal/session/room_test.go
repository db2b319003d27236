package session

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/HackGT12/app-view-sub000/internal/feed"
	"github.com/HackGT12/app-view-sub000/internal/models"
	"github.com/HackGT12/app-view-sub000/internal/round"
)

type stubAPI struct {
	mu      sync.Mutex
	rounds  map[string]*models.Round
	votes   []string
	boards  int
	voteErr error
}

func (a *stubAPI) LatestRound(ctx context.Context) (*models.Round, error) {
	return nil, errors.New("no latest")
}

func (a *stubAPI) GetRound(ctx context.Context, id string) (*models.Round, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	r, ok := a.rounds[id]
	if !ok {
		return nil, errors.New("not found")
	}
	cp := *r
	return &cp, nil
}

func (a *stubAPI) SubmitVote(ctx context.Context, roundID, optionID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.voteErr != nil {
		return a.voteErr
	}
	a.votes = append(a.votes, roundID+":"+optionID)
	return nil
}

func (a *stubAPI) Leaderboard(ctx context.Context, teamID string) ([]models.Member, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.boards++
	return []models.Member{{ID: "p1", Score: 29}}, nil
}

func (a *stubAPI) boardCalls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.boards
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestRoomFollowsFeed(t *testing.T) {
	hub := feed.NewHub(feed.HubOptions{})
	srv := httptest.NewServer(hub)
	defer srv.Close()

	api := &stubAPI{rounds: map[string]*models.Round{
		"r1": {ID: "r1", Status: models.RoundOpen, Options: models.OptionList{{ID: "A"}, {ID: "B"}}},
	}}
	room := NewRoom(api, Options{
		FeedURL:   "ws" + strings.TrimPrefix(srv.URL, "http"),
		TeamID:    "t1",
		Countdown: round.NewCountdownPolicy(time.Hour, 0, nil),
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- room.Run(ctx) }()

	eventually(t, "subscriber", func() bool { return hub.Subscribers() == 1 })
	if err := room.Vote(ctx, "A"); !errors.Is(err, ErrNoRound) {
		t.Fatalf("vote before round err=%v", err)
	}

	id := "r1"
	hub.PublishActivation(&id)
	eventually(t, "round r1", func() bool { return room.Snapshot().Round.CanVote() })

	api.voteErr = errors.New("offline")
	if err := room.Vote(ctx, "B"); err == nil {
		t.Fatalf("failed vote reported success")
	}
	if room.Snapshot().Round.Voted {
		t.Fatalf("voted flag set after failed write")
	}
	api.voteErr = nil
	if err := room.Vote(ctx, "B"); err != nil {
		t.Fatalf("vote: %v", err)
	}
	eventually(t, "voted flag", func() bool { return room.Snapshot().Round.Voted })
	if err := room.Vote(ctx, "A"); !errors.Is(err, ErrAlreadyVoted) {
		t.Fatalf("second vote err=%v", err)
	}

	hub.PublishScore(21, 14)
	hub.PublishPlay(feed.PlayUpdate{Clock: "08:12", Description: "field goal"})
	hub.PublishRawPlay(map[string]any{"yards": 40})
	eventually(t, "score and clock", func() bool {
		s := room.Snapshot()
		return s.HomeScore == 21 && s.AwayScore == 14 && s.Clock == "08:12" && s.Plays == 1
	})
	eventually(t, "leaderboard refresh", func() bool { return api.boardCalls() > 0 && len(room.Leaderboard()) == 1 })

	hub.PublishActivation(nil)
	eventually(t, "resolved", func() bool { return room.Snapshot().Round.Phase == round.Resolved })
	if err := room.Vote(ctx, "A"); !errors.Is(err, ErrNoRound) {
		t.Fatalf("vote after close err=%v", err)
	}

	if err := room.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("room did not stop")
	}
	if room.Snapshot().Status != feed.StatusDisconnected {
		t.Fatalf("status=%s", room.Snapshot().Status)
	}
	if len(api.votes) != 1 || api.votes[0] != "r1:B" {
		t.Fatalf("votes=%v", api.votes)
	}
}
