package round

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/HackGT12/app-view-sub000/internal/models"
)

type stubFetcher struct {
	mu      sync.Mutex
	rounds  map[string]*models.Round
	latest  string
	gates   map[string]chan struct{}
	fetched []string
}

func (f *stubFetcher) LatestRound(ctx context.Context) (*models.Round, error) {
	f.mu.Lock()
	id := f.latest
	f.mu.Unlock()
	return f.GetRound(ctx, id)
}

func (f *stubFetcher) GetRound(ctx context.Context, id string) (*models.Round, error) {
	f.mu.Lock()
	f.fetched = append(f.fetched, id)
	gate := f.gates[id]
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rounds[id]
	if !ok {
		return nil, errors.New("not found")
	}
	cp := *r
	return &cp, nil
}

func waitState(t *testing.T, m *Machine, what string, cond func(State) bool) State {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if s := m.State(); cond(s) {
			return s
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s; state=%+v", what, m.State())
	return State{}
}

func TestMachineSlowFetchDoesNotOverwrite(t *testing.T) {
	f := &stubFetcher{
		rounds: map[string]*models.Round{"X": openRound("X"), "Y": openRound("Y")},
		gates:  map[string]chan struct{}{"X": make(chan struct{})},
	}
	m := NewMachine(f, MachineOptions{Countdown: NewCountdownPolicy(time.Hour, 0, nil)})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = m.Run(ctx) }()

	m.Post(Activated{RoundID: "X"})
	m.Post(Activated{RoundID: "Y"})
	waitState(t, m, "round Y", func(s State) bool { return s.Round != nil && s.Round.ID == "Y" })

	close(f.gates["X"])
	time.Sleep(50 * time.Millisecond)
	if s := m.State(); s.Round == nil || s.Round.ID != "Y" {
		t.Fatalf("slow fetch overwrote round: %+v", s)
	}
}

func TestMachineTimerFetchesLatest(t *testing.T) {
	f := &stubFetcher{rounds: map[string]*models.Round{"r7": openRound("r7")}, latest: "r7"}
	var changes int
	var mu sync.Mutex
	m := NewMachine(f, MachineOptions{
		Countdown: NewCountdownPolicy(100*time.Millisecond, 0, nil),
		OnChange: func(State) {
			mu.Lock()
			changes++
			mu.Unlock()
		},
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = m.Run(ctx) }()

	waitState(t, m, "latest round", func(s State) bool { return s.Round != nil && s.Round.ID == "r7" && s.Phase == AwaitingSelection })
	mu.Lock()
	defer mu.Unlock()
	if changes == 0 {
		t.Fatalf("OnChange never called")
	}
}

func TestMachinePostAfterStopIsNoop(t *testing.T) {
	m := NewMachine(&stubFetcher{}, MachineOptions{Countdown: NewCountdownPolicy(time.Hour, 0, nil)})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = m.Run(ctx)
		close(done)
	}()
	cancel()
	<-done
	posted := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			m.Post(Activated{RoundID: "late"})
		}
		close(posted)
	}()
	select {
	case <-posted:
	case <-time.After(time.Second):
		t.Fatalf("Post blocked after stop")
	}
}
