package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/HackGT12/app-view-sub000/internal/docstore"
	"github.com/HackGT12/app-view-sub000/internal/models"
)

const fieldVoteCounts = "voteCounts"

type optionDoc struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// roundDoc is the stored shape. Vote counters live beside the options in
// voteCounts so an increment never rewrites the option list; legacy
// documents that embed votes in options are still read.
type roundDoc struct {
	Question          string             `json:"question"`
	ActionDescription string             `json:"actionDescription"`
	Sponsor           string             `json:"sponsor"`
	Options           models.OptionList  `json:"options"`
	VoteCounts        map[string]float64 `json:"voteCounts,omitempty"`
	Donation          decimal.Decimal    `json:"donation"`
	MaxDonation       decimal.Decimal    `json:"maxDonation"`
	Status            models.RoundStatus `json:"status"`
	Answer            string             `json:"answer,omitempty"`
	CreatedAt         time.Time          `json:"createdAt"`
	ClosedAt          *time.Time         `json:"closedAt,omitempty"`
}

func decodeRound(doc docstore.Document) (*models.Round, error) {
	var rd roundDoc
	if err := doc.Decode(&rd); err != nil {
		return nil, fmt.Errorf("decode round %s: %w", doc.ID, err)
	}
	opts := make(models.OptionList, 0, len(rd.Options))
	for _, o := range rd.Options {
		if n, ok := rd.VoteCounts[o.ID]; ok {
			o.Votes += int64(n)
		}
		opts = append(opts, o)
	}
	status := rd.Status
	if status == "" {
		status = models.RoundOpen
	}
	if rd.Answer != "" {
		status = models.RoundClosed
	}
	return &models.Round{
		ID:                doc.ID,
		Question:          rd.Question,
		ActionDescription: rd.ActionDescription,
		Sponsor:           rd.Sponsor,
		Options:           opts,
		Donation:          rd.Donation,
		MaxDonation:       rd.MaxDonation,
		Status:            status,
		Answer:            rd.Answer,
		CreatedAt:         createdAtOr(rd.CreatedAt, doc),
		ClosedAt:          rd.ClosedAt,
	}, nil
}

func decodeRounds(docs []docstore.Document) ([]models.Round, error) {
	out := make([]models.Round, 0, len(docs))
	for _, d := range docs {
		r, err := decodeRound(d)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, nil
}

type NewRound struct {
	Question          string
	ActionDescription string
	Options           []models.Option
	Donation          decimal.Decimal
	MaxDonation       decimal.Decimal
}

func (r *Repository) CreateRound(ctx context.Context, in NewRound) (*models.Round, error) {
	in.Question = strings.TrimSpace(in.Question)
	if in.Question == "" {
		return nil, fmt.Errorf("%w: question required", ErrInvalidInput)
	}
	if len(in.Options) < 2 {
		return nil, fmt.Errorf("%w: at least two options required", ErrInvalidInput)
	}
	if in.Donation.IsNegative() || in.MaxDonation.IsNegative() {
		return nil, fmt.Errorf("%w: donation must not be negative", ErrInvalidInput)
	}
	if !in.MaxDonation.IsZero() && in.Donation.GreaterThan(in.MaxDonation) {
		return nil, fmt.Errorf("%w: donation exceeds maxDonation", ErrInvalidInput)
	}
	seen := map[string]struct{}{}
	opts := make([]optionDoc, 0, len(in.Options))
	for _, o := range in.Options {
		id := strings.TrimSpace(o.ID)
		if id == "" {
			return nil, fmt.Errorf("%w: bad option id %q", ErrInvalidInput, o.ID)
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("%w: duplicate option id %q", ErrInvalidInput, id)
		}
		seen[id] = struct{}{}
		opts = append(opts, optionDoc{ID: id, Text: o.Text})
	}
	now := r.now()
	body := map[string]any{
		"question":          in.Question,
		"actionDescription": in.ActionDescription,
		"sponsor":           r.Sponsors.Next(),
		"options":           opts,
		fieldVoteCounts:     map[string]int64{},
		"donation":          in.Donation,
		"maxDonation":       in.MaxDonation,
		"status":            models.RoundOpen,
		"createdAt":         docstore.FormatTime(now),
	}
	id, err := r.Store.Create(ctx, docstore.CollectionRounds, body)
	if err != nil {
		return nil, err
	}
	return r.GetRound(ctx, id)
}

func (r *Repository) GetRound(ctx context.Context, id string) (*models.Round, error) {
	doc, err := r.get(ctx, docstore.CollectionRounds, id)
	if err != nil {
		return nil, err
	}
	return decodeRound(doc)
}

// LatestRound returns the most recently created round.
func (r *Repository) LatestRound(ctx context.Context) (*models.Round, error) {
	docs, err := r.Store.List(ctx, docstore.CollectionRounds, docstore.FieldCreatedAt, docstore.Desc)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("latest round: %w", docstore.ErrNotFound)
	}
	return decodeRound(docs[0])
}

// ListRounds returns rounds newest first.
func (r *Repository) ListRounds(ctx context.Context) ([]models.Round, error) {
	docs, err := r.Store.List(ctx, docstore.CollectionRounds, docstore.FieldCreatedAt, docstore.Desc)
	if err != nil {
		return nil, err
	}
	return decodeRounds(docs)
}

func (r *Repository) ListOpenRounds(ctx context.Context) ([]models.Round, error) {
	docs, err := r.Store.Query(ctx, docstore.CollectionRounds, "status", models.RoundOpen)
	if err != nil {
		return nil, err
	}
	return decodeRounds(docs)
}

// IncrementVote adds one vote to the option. It does not check the round
// status; callers validate first and accept that a vote may land after a
// concurrent close.
func (r *Repository) IncrementVote(ctx context.Context, roundID, optionID string) error {
	return r.Store.UpdateField(ctx, docstore.CollectionRounds, roundID,
		docstore.Path(fieldVoteCounts, optionID), docstore.Increment(1))
}

// CloseRound writes status, closedAt and the answer in one update, so a
// reader never sees an answer on an open round or a closed round without
// its answer.
func (r *Repository) CloseRound(ctx context.Context, id, answer string) error {
	fields := []docstore.Field{
		{Path: "status", Value: models.RoundClosed},
		{Path: "closedAt", Value: docstore.FormatTime(r.now())},
	}
	if answer != "" {
		fields = append(fields, docstore.Field{Path: "answer", Value: answer})
	}
	return r.Store.UpdateFields(ctx, docstore.CollectionRounds, id, fields...)
}
