// Package session is the client-side core of a live room: it feeds the
// event feed into the round machine and keeps the score, clock and play
// context the room displays.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/HackGT12/app-view-sub000/internal/feed"
	"github.com/HackGT12/app-view-sub000/internal/models"
	"github.com/HackGT12/app-view-sub000/internal/round"
)

var (
	ErrNoRound      = errors.New("no round is open")
	ErrAlreadyVoted = errors.New("you already voted on this round")
	ErrRoundClosed  = errors.New("round is closed")
)

// API is the server surface a room needs.
type API interface {
	round.Fetcher
	SubmitVote(ctx context.Context, roundID, optionID string) error
	Leaderboard(ctx context.Context, teamID string) ([]models.Member, error)
}

type Options struct {
	FeedURL   string
	TeamID    string
	Countdown *round.CountdownPolicy
	// OnChange is called after any visible change.
	OnChange      func(Snapshot)
	OnLeaderboard func([]models.Member)
	Logger        *zap.Logger
}

type Snapshot struct {
	Status      feed.Status
	Round       round.State
	HomeScore   float64
	AwayScore   float64
	Clock       string
	Description string
	Plays       int
}

type Room struct {
	api      API
	opts     Options
	machine  *round.Machine
	listener *feed.Listener
	plays    *feed.PlayBuffer

	mu          sync.RWMutex
	ctx         context.Context
	status      feed.Status
	home, away  float64
	clock, desc string
	board       []models.Member
}

func NewRoom(api API, opts Options) *Room {
	r := &Room{
		api:    api,
		opts:   opts,
		plays:  feed.NewPlayBuffer(feed.DefaultPlayBufferSize),
		status: feed.StatusIdle,
		ctx:    context.Background(),
	}
	r.machine = round.NewMachine(api, round.MachineOptions{
		Countdown: opts.Countdown,
		Logger:    opts.Logger,
		OnChange:  func(round.State) { r.changed() },
	})
	r.listener = feed.NewListener(feed.ListenerOptions{
		URL:    opts.FeedURL,
		Logger: opts.Logger,
		OnStatus: func(s feed.Status) {
			r.mu.Lock()
			r.status = s
			r.mu.Unlock()
			r.changed()
		},
	})
	return r
}

// Run drives the room until ctx ends or the feed connection does. The feed
// is not reopened; a new Room is needed for a new connection.
func (r *Room) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	r.mu.Lock()
	r.ctx = ctx
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = r.machine.Run(ctx)
	}()
	err := r.listener.Run(ctx, r.handle)
	cancel()
	<-done
	return err
}

func (r *Room) Close() error {
	return r.listener.Close()
}

func (r *Room) handle(ev feed.Event) {
	switch e := ev.(type) {
	case feed.Activation:
		if e.Active() {
			r.machine.Post(round.Activated{RoundID: *e.RoundID})
		} else {
			r.machine.Post(round.Deactivated{})
		}
	case feed.ScoreUpdate:
		r.mu.Lock()
		r.home, r.away = e.Home, e.Away
		r.mu.Unlock()
		r.changed()
		go r.refreshBoard()
	case feed.PlayUpdate:
		r.mu.Lock()
		r.clock = e.Clock
		if e.Description != "" {
			r.desc = e.Description
		}
		if e.HomePoints != nil {
			r.home = *e.HomePoints
		}
		if e.AwayPoints != nil {
			r.away = *e.AwayPoints
		}
		r.mu.Unlock()
		r.changed()
	case feed.RawPlay:
		r.plays.Add(e.Raw)
	}
}

// Vote submits optionID for the displayed round. The local voted flag only
// flips after the server accepted the vote.
func (r *Room) Vote(ctx context.Context, optionID string) error {
	st := r.machine.State()
	switch {
	case st.Round == nil:
		return ErrNoRound
	case st.Voted:
		return ErrAlreadyVoted
	case st.Closed || !st.Round.IsOpen():
		return ErrRoundClosed
	}
	if err := r.api.SubmitVote(ctx, st.Round.ID, optionID); err != nil {
		return err
	}
	r.machine.Post(round.VoteConfirmed{RoundID: st.Round.ID, OptionID: optionID})
	return nil
}

// RefreshLeaderboard recomputes the team board on the server.
func (r *Room) RefreshLeaderboard(ctx context.Context) ([]models.Member, error) {
	if r.opts.TeamID == "" {
		return nil, nil
	}
	board, err := r.api.Leaderboard(ctx, r.opts.TeamID)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.board = board
	r.mu.Unlock()
	if r.opts.OnLeaderboard != nil {
		r.opts.OnLeaderboard(board)
	}
	return board, nil
}

func (r *Room) refreshBoard() {
	if r.opts.TeamID == "" {
		return
	}
	r.mu.RLock()
	ctx := r.ctx
	r.mu.RUnlock()
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if _, err := r.RefreshLeaderboard(ctx); err != nil && ctx.Err() == nil && r.opts.Logger != nil {
		r.opts.Logger.Warn("leaderboard refresh failed", zap.Error(err))
	}
}

func (r *Room) Leaderboard() []models.Member {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]models.Member(nil), r.board...)
}

func (r *Room) Plays() []json.RawMessage {
	return r.plays.Snapshot()
}

func (r *Room) Snapshot() Snapshot {
	st := r.machine.State()
	r.mu.RLock()
	defer r.mu.RUnlock()
	return Snapshot{
		Status:      r.status,
		Round:       st,
		HomeScore:   r.home,
		AwayScore:   r.away,
		Clock:       r.clock,
		Description: r.desc,
		Plays:       r.plays.Len(),
	}
}

func (r *Room) changed() {
	if r.opts.OnChange != nil {
		r.opts.OnChange(r.Snapshot())
	}
}
