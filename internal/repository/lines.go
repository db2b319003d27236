package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/HackGT12/app-view-sub000/internal/docstore"
	"github.com/HackGT12/app-view-sub000/internal/models"
)

type NewGroupLine struct {
	TeamID    string
	Question  string
	Min       float64
	Max       float64
	CreatedBy string
}

func decodeGroupLine(doc docstore.Document) (*models.GroupLine, error) {
	var line models.GroupLine
	if err := doc.Decode(&line); err != nil {
		return nil, fmt.Errorf("decode group line %s: %w", doc.ID, err)
	}
	line.ID = doc.ID
	line.CreatedAt = createdAtOr(line.CreatedAt, doc)
	if line.Actual != nil {
		line.Active = false
	}
	return &line, nil
}

func (r *Repository) CreateGroupLine(ctx context.Context, in NewGroupLine) (*models.GroupLine, error) {
	in.Question = strings.TrimSpace(in.Question)
	switch {
	case in.Question == "":
		return nil, fmt.Errorf("%w: question required", ErrInvalidInput)
	case in.TeamID == "" || in.CreatedBy == "":
		return nil, fmt.Errorf("%w: team and creator required", ErrInvalidInput)
	case in.Min > in.Max:
		return nil, fmt.Errorf("%w: min %.2f above max %.2f", ErrInvalidInput, in.Min, in.Max)
	}
	body := map[string]any{
		"teamId":    in.TeamID,
		"question":  in.Question,
		"min":       in.Min,
		"max":       in.Max,
		"active":    true,
		"createdBy": in.CreatedBy,
		"createdAt": docstore.FormatTime(r.now()),
	}
	id, err := r.Store.Create(ctx, docstore.CollectionGroupLines, body)
	if err != nil {
		return nil, err
	}
	return r.GetGroupLine(ctx, id)
}

func (r *Repository) GetGroupLine(ctx context.Context, id string) (*models.GroupLine, error) {
	doc, err := r.get(ctx, docstore.CollectionGroupLines, id)
	if err != nil {
		return nil, err
	}
	return decodeGroupLine(doc)
}

func (r *Repository) ListGroupLines(ctx context.Context, teamID string) ([]models.GroupLine, error) {
	docs, err := r.Store.Query(ctx, docstore.CollectionGroupLines, "teamId", teamID)
	if err != nil {
		return nil, err
	}
	out := make([]models.GroupLine, 0, len(docs))
	for _, d := range docs {
		line, err := decodeGroupLine(d)
		if err != nil {
			return nil, err
		}
		out = append(out, *line)
	}
	return out, nil
}

// ResolveGroupLine deactivates the line before recording the actual value.
func (r *Repository) ResolveGroupLine(ctx context.Context, id string, actual float64) error {
	if err := r.Store.UpdateField(ctx, docstore.CollectionGroupLines, id, "active", false); err != nil {
		return err
	}
	if err := r.Store.UpdateField(ctx, docstore.CollectionGroupLines, id, "resolvedAt", docstore.FormatTime(r.now())); err != nil {
		return err
	}
	return r.Store.UpdateField(ctx, docstore.CollectionGroupLines, id, "actual", actual)
}
