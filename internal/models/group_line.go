package models

import "time"

type Direction string

const (
	Over  Direction = "over"
	Under Direction = "under"
)

func (d Direction) Valid() bool {
	return d == Over || d == Under
}

// GroupLine is an over/under bet scoped to a team. Once Actual is set the
// line is inactive for good.
type GroupLine struct {
	ID         string     `json:"id"`
	TeamID     string     `json:"teamId"`
	Question   string     `json:"question"`
	Min        float64    `json:"min"`
	Max        float64    `json:"max"`
	Active     bool       `json:"active"`
	Actual     *float64   `json:"actual,omitempty"`
	CreatedBy  string     `json:"createdBy"`
	CreatedAt  time.Time  `json:"createdAt"`
	ResolvedAt *time.Time `json:"resolvedAt,omitempty"`
}

func (l GroupLine) Resolved() bool {
	return l.Actual != nil
}

func (l GroupLine) InRange(v float64) bool {
	return v >= l.Min && v <= l.Max
}

type PlayerResponse struct {
	Type        Direction `json:"type"`
	Line        float64   `json:"line"`
	SubmittedAt time.Time `json:"submittedAt"`
}
