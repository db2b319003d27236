// Package feed carries live game events: decoding inbound frames, the
// client-side listener, and the server-side hub that publishes them.
package feed

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMalformed    = errors.New("malformed feed frame")
	ErrUnrecognized = errors.New("unrecognized feed frame")
)

// Event is one decoded frame: ScoreUpdate, PlayUpdate, Activation or RawPlay.
type Event interface {
	kind() string
}

type ScoreUpdate struct {
	Home float64 `json:"homeTeamScore"`
	Away float64 `json:"awayTeamScore"`
}

type PlayUpdate struct {
	Clock       string   `json:"clock"`
	Description string   `json:"description,omitempty"`
	HomePoints  *float64 `json:"home_points,omitempty"`
	AwayPoints  *float64 `json:"away_points,omitempty"`
}

// Activation names the round that is now open. A nil RoundID means the
// previously active round closed.
type Activation struct {
	RoundID *string `json:"activeMicroBetId"`
}

func (a Activation) Active() bool {
	return a.RoundID != nil && *a.RoundID != ""
}

// RawPlay is play context kept for the chat assistant only.
type RawPlay struct {
	Raw json.RawMessage
}

func (ScoreUpdate) kind() string { return "score" }
func (PlayUpdate) kind() string  { return "play_update" }
func (Activation) kind() string  { return "activation" }
func (RawPlay) kind() string     { return "play" }

// Kind names the event type for logging.
func Kind(e Event) string {
	if e == nil {
		return ""
	}
	return e.kind()
}

// Decode returns the first event of a frame. See DecodeAll.
func Decode(raw []byte) (Event, error) {
	events, err := DecodeAll(raw)
	if err != nil {
		return nil, err
	}
	return events[0], nil
}

// DecodeAll turns one JSON text frame into every event it carries, in the
// order activation, score, play update, raw play. A shape that is present
// but malformed is skipped when another shape decodes; otherwise its error
// is returned. Frames that are valid JSON but match no known shape return
// ErrUnrecognized.
func DecodeAll(raw []byte) ([]Event, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	var (
		events   []Event
		firstErr error
	)
	fail := func(err error) {
		if firstErr == nil {
			firstErr = err
		}
	}
	if v, ok := fields["activeMicroBetId"]; ok {
		var id *string
		if err := json.Unmarshal(v, &id); err != nil {
			fail(fmt.Errorf("%w: activeMicroBetId: %v", ErrMalformed, err))
		} else {
			events = append(events, Activation{RoundID: id})
		}
	}
	if h, ok := fields["homeTeamScore"]; ok {
		if ev, err := decodeScore(h, fields["awayTeamScore"]); err != nil {
			fail(err)
		} else {
			events = append(events, ev)
		}
	}
	if p, ok := fields["payload"]; ok {
		var ev PlayUpdate
		if err := json.Unmarshal(p, &ev); err == nil && ev.Clock != "" {
			events = append(events, ev)
		}
	}
	if t, ok := fields["type"]; ok {
		var typ string
		if err := json.Unmarshal(t, &typ); err == nil && strings.EqualFold(typ, "play") {
			events = append(events, RawPlay{Raw: append(json.RawMessage(nil), raw...)})
		}
	}
	if len(events) > 0 {
		return events, nil
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return nil, ErrUnrecognized
}

func decodeScore(home, away json.RawMessage) (ScoreUpdate, error) {
	var ev ScoreUpdate
	if away == nil {
		return ev, fmt.Errorf("%w: score frame without awayTeamScore", ErrUnrecognized)
	}
	if err := json.Unmarshal(home, &ev.Home); err != nil {
		return ev, fmt.Errorf("%w: homeTeamScore: %v", ErrMalformed, err)
	}
	if err := json.Unmarshal(away, &ev.Away); err != nil {
		return ev, fmt.Errorf("%w: awayTeamScore: %v", ErrMalformed, err)
	}
	return ev, nil
}
