// Package round drives the client-side lifecycle of a micro bet: the local
// countdown, server activations, fetching the round and locking the vote.
//
// Transition is pure. Machine feeds it from the countdown timer and the
// feed, runs the effects it returns, and posts their results back.
package round

import (
	"time"

	"github.com/HackGT12/app-view-sub000/internal/models"
)

type Phase int

const (
	Idle Phase = iota
	Countdown
	Triggered
	AwaitingSelection
	Resolved
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Countdown:
		return "countdown"
	case Triggered:
		return "triggered"
	case AwaitingSelection:
		return "awaiting_selection"
	case Resolved:
		return "resolved"
	default:
		return "unknown"
	}
}

// State is the whole client view of the current round.
type State struct {
	Phase Phase
	Round *models.Round
	// ActiveID is the round the server activated; empty for a timer fetch.
	ActiveID string
	// Pending is the token of the fetch whose result is still wanted; zero
	// when nothing is in flight.
	Pending     uint64
	LastToken   uint64
	Voted       bool
	VotedOption string
	Closed      bool
}

// CanVote reports whether a vote on the displayed round may be submitted.
func (s State) CanVote() bool {
	return s.Phase == AwaitingSelection && s.Round != nil && s.Round.IsOpen() && !s.Voted && !s.Closed
}

func (s State) clone() State {
	if s.Round != nil {
		r := *s.Round
		r.Options = append(models.OptionList(nil), s.Round.Options...)
		s.Round = &r
	}
	return s
}

type Event interface {
	isEvent()
}

type (
	Started      struct{}
	TimerExpired struct{}
	// Activated is the feed naming the open round.
	Activated struct{ RoundID string }
	// Deactivated is the feed announcing the active round closed.
	Deactivated struct{}
	RoundLoaded struct {
		Token uint64
		Round *models.Round
	}
	RoundLoadFailed struct {
		Token uint64
		Err   error
	}
	VoteConfirmed struct {
		RoundID  string
		OptionID string
	}
)

func (Started) isEvent()         {}
func (TimerExpired) isEvent()    {}
func (Activated) isEvent()       {}
func (Deactivated) isEvent()     {}
func (RoundLoaded) isEvent()     {}
func (RoundLoadFailed) isEvent() {}
func (VoteConfirmed) isEvent()   {}

type Effect interface {
	isEffect()
}

type (
	FetchLatest struct{ Token uint64 }
	FetchRound  struct {
		RoundID string
		Token   uint64
	}
	RestartCountdown struct{}
)

func (FetchLatest) isEffect()      {}
func (FetchRound) isEffect()       {}
func (RestartCountdown) isEffect() {}

// Transition applies ev to s. Fetch results are accepted only when their
// token matches s.Pending, so a slow fetch never overwrites a newer round.
func Transition(s State, ev Event) (State, []Effect) {
	switch e := ev.(type) {
	case Started:
		if s.Phase != Idle {
			return s, nil
		}
		s.Phase = Countdown
		return s, []Effect{RestartCountdown{}}

	case TimerExpired:
		if s.Phase == Triggered && s.ActiveID != "" {
			// A server activation is loading; it outranks the local timer.
			return s, []Effect{RestartCountdown{}}
		}
		s = trigger(s, "")
		return s, []Effect{FetchLatest{Token: s.Pending}, RestartCountdown{}}

	case Activated:
		if e.RoundID == "" {
			return Transition(s, Deactivated{})
		}
		s = trigger(s, e.RoundID)
		return s, []Effect{FetchRound{RoundID: e.RoundID, Token: s.Pending}}

	case Deactivated:
		s.Phase = Resolved
		s.Round = nil
		s.ActiveID = ""
		s.Pending = 0
		s.Closed = true
		return s, nil

	case RoundLoaded:
		if e.Token == 0 || e.Token != s.Pending {
			return s, nil
		}
		s.Pending = 0
		if e.Round == nil || (s.ActiveID != "" && e.Round.ID != s.ActiveID) {
			s.Round = nil
			s.Phase = Countdown
			return s, nil
		}
		s.Round = e.Round
		if e.Round.IsOpen() {
			s.Phase = AwaitingSelection
		} else {
			s.Phase = Resolved
			s.Closed = true
		}
		return s, nil

	case RoundLoadFailed:
		if e.Token == 0 || e.Token != s.Pending {
			return s, nil
		}
		s.Pending = 0
		s.Round = nil
		s.Phase = Countdown
		return s, nil

	case VoteConfirmed:
		if s.Phase != AwaitingSelection || s.Round == nil || s.Round.ID != e.RoundID || s.Closed {
			return s, nil
		}
		s.Voted = true
		s.VotedOption = e.OptionID
		return s, nil
	}
	return s, nil
}

func trigger(s State, activeID string) State {
	s.LastToken++
	s.Pending = s.LastToken
	s.Phase = Triggered
	s.ActiveID = activeID
	s.Round = nil
	s.Voted = false
	s.VotedOption = ""
	s.Closed = false
	return s
}

// Elapsed is how long the displayed round has been open, for display.
func (s State) Elapsed(now time.Time) time.Duration {
	if s.Round == nil || s.Round.CreatedAt.IsZero() {
		return 0
	}
	return now.Sub(s.Round.CreatedAt)
}
