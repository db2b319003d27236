package docstore

import (
	"context"
	"reflect"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memDoc struct {
	data      map[string]any
	createdAt time.Time
}

// MemoryStore keeps documents in process. Every field update runs under one
// lock, which makes Increment atomic.
type MemoryStore struct {
	mu    sync.RWMutex
	cols  map[string]map[string]*memDoc
	clock func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		cols:  map[string]map[string]*memDoc{},
		clock: time.Now,
	}
}

// WithClock replaces the time source used for createdAt stamps.
func (s *MemoryStore) WithClock(clock func() time.Time) *MemoryStore {
	if clock != nil {
		s.clock = clock
	}
	return s
}

func (s *MemoryStore) Get(ctx context.Context, collection, id string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.cols[collection][id]
	if !ok {
		return Document{}, ErrNotFound
	}
	return snapshot(id, doc)
}

func (s *MemoryStore) List(ctx context.Context, collection, orderBy string, dir Direction) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	out, err := s.collect(collection, nil)
	s.mu.RUnlock()
	if err != nil {
		return nil, err
	}
	sortDocuments(out, orderBy, dir)
	return out, nil
}

func (s *MemoryStore) Query(ctx context.Context, collection, field string, equals any) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	want, err := normalizeValue(equals)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	out, err := s.collect(collection, func(data map[string]any) bool {
		got, ok := lookupField(data, field)
		return ok && reflect.DeepEqual(got, want)
	})
	s.mu.RUnlock()
	if err != nil {
		return nil, err
	}
	sortDocuments(out, FieldCreatedAt, Asc)
	return out, nil
}

func (s *MemoryStore) Set(ctx context.Context, collection, id string, data any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := toMap(data)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	createdAt := ensureCreatedAt(body, s.clock())
	s.collection(collection)[id] = &memDoc{data: body, createdAt: createdAt}
	return nil
}

func (s *MemoryStore) Insert(ctx context.Context, collection, id string, data any) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	body, err := toMap(data)
	if err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	col := s.collection(collection)
	if _, ok := col[id]; ok {
		return false, nil
	}
	createdAt := ensureCreatedAt(body, s.clock())
	col[id] = &memDoc{data: body, createdAt: createdAt}
	return true, nil
}

func (s *MemoryStore) Create(ctx context.Context, collection string, data any) (string, error) {
	id := uuid.NewString()
	if err := s.Set(ctx, collection, id, data); err != nil {
		return "", err
	}
	return id, nil
}

func (s *MemoryStore) UpdateField(ctx context.Context, collection, id, fieldPath string, value any) error {
	return s.UpdateFields(ctx, collection, id, Field{Path: fieldPath, Value: value})
}

func (s *MemoryStore) UpdateFields(ctx context.Context, collection, id string, fields ...Field) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.cols[collection][id]
	if !ok {
		return ErrNotFound
	}
	// Apply to a copy so a failed write leaves the document untouched.
	body, err := toMap(doc.data)
	if err != nil {
		return err
	}
	if err := applyFields(body, fields); err != nil {
		return err
	}
	doc.data = body
	return nil
}

func (s *MemoryStore) collection(name string) map[string]*memDoc {
	col, ok := s.cols[name]
	if !ok {
		col = map[string]*memDoc{}
		s.cols[name] = col
	}
	return col
}

func (s *MemoryStore) collect(collection string, keep func(map[string]any) bool) ([]Document, error) {
	col := s.cols[collection]
	ids := make([]string, 0, len(col))
	for id := range col {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]Document, 0, len(ids))
	for _, id := range ids {
		doc := col[id]
		if keep != nil && !keep(doc.data) {
			continue
		}
		d, err := snapshot(id, doc)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

func snapshot(id string, doc *memDoc) (Document, error) {
	body, err := toMap(doc.data)
	if err != nil {
		return Document{}, err
	}
	return Document{ID: id, CreatedAt: doc.createdAt, Data: body}, nil
}
