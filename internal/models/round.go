package models

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

type RoundStatus string

const (
	RoundOpen   RoundStatus = "open"
	RoundClosed RoundStatus = "closed"
)

// VoidAnswer marks a round that closed without a usable outcome. Void
// rounds are skipped by user stats.
const VoidAnswer = "void"

type Option struct {
	ID    string `json:"id"`
	Text  string `json:"text"`
	Votes int64  `json:"votes"`
}

// OptionList decodes both stored shapes of a round's options: an ordered
// array of {id,text,votes} or an object keyed by option id. Keyed options
// are ordered by their "order" field, then by id.
type OptionList []Option

func (l *OptionList) UnmarshalJSON(raw []byte) error {
	var arr []Option
	if err := json.Unmarshal(raw, &arr); err == nil {
		*l = arr
		return nil
	}
	var keyed map[string]struct {
		Text  string  `json:"text"`
		Votes int64   `json:"votes"`
		Order float64 `json:"order"`
	}
	if err := json.Unmarshal(raw, &keyed); err != nil {
		return err
	}
	type ordered struct {
		opt   Option
		order float64
	}
	items := make([]ordered, 0, len(keyed))
	for id, v := range keyed {
		items = append(items, ordered{opt: Option{ID: id, Text: v.Text, Votes: v.Votes}, order: v.Order})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].order != items[j].order {
			return items[i].order < items[j].order
		}
		return items[i].opt.ID < items[j].opt.ID
	})
	out := make([]Option, 0, len(items))
	for _, it := range items {
		out = append(out, it.opt)
	}
	*l = out
	return nil
}

// Round is a single micro bet. Options are fixed at creation; only their
// vote counters change afterwards.
type Round struct {
	ID                string          `json:"id"`
	Question          string          `json:"question"`
	ActionDescription string          `json:"actionDescription"`
	Sponsor           string          `json:"sponsor"`
	Options           OptionList      `json:"options"`
	Donation          decimal.Decimal `json:"donation"`
	MaxDonation       decimal.Decimal `json:"maxDonation"`
	Status            RoundStatus     `json:"status"`
	Answer            string          `json:"answer,omitempty"`
	CreatedAt         time.Time       `json:"createdAt"`
	ClosedAt          *time.Time      `json:"closedAt,omitempty"`
}

func (r Round) IsOpen() bool {
	return r.Status == RoundOpen && r.Answer == ""
}

func (r Round) HasOption(id string) bool {
	for _, o := range r.Options {
		if o.ID == id {
			return true
		}
	}
	return false
}

func (r Round) TotalVotes() int64 {
	var n int64
	for _, o := range r.Options {
		n += o.Votes
	}
	return n
}

// DisplayDonation caps the donation at maxDonation.
func (r Round) DisplayDonation() decimal.Decimal {
	if !r.MaxDonation.IsZero() && r.Donation.GreaterThan(r.MaxDonation) {
		return r.MaxDonation
	}
	return r.Donation
}
