// Package repository maps document-store documents onto the betting
// models. It is the only place that knows the stored document shapes.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/HackGT12/app-view-sub000/internal/docstore"
	"github.com/HackGT12/app-view-sub000/internal/sponsor"
)

var ErrInvalidInput = errors.New("invalid input")

type Repository struct {
	Store    docstore.Store
	Sponsors *sponsor.Rotation
	Clock    func() time.Time
}

func New(store docstore.Store, sponsors *sponsor.Rotation) *Repository {
	return &Repository{Store: store, Sponsors: sponsors, Clock: time.Now}
}

func (r *Repository) now() time.Time {
	if r == nil || r.Clock == nil {
		return time.Now().UTC()
	}
	return r.Clock().UTC()
}

func (r *Repository) get(ctx context.Context, collection, id string) (docstore.Document, error) {
	if r == nil || r.Store == nil {
		return docstore.Document{}, docstore.ErrNotFound
	}
	doc, err := r.Store.Get(ctx, collection, id)
	if err != nil {
		return docstore.Document{}, fmt.Errorf("%s %s: %w", collection, id, err)
	}
	return doc, nil
}

func createdAtOr(ts time.Time, doc docstore.Document) time.Time {
	if ts.IsZero() {
		return doc.CreatedAt
	}
	return ts.UTC()
}
