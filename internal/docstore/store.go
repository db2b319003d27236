// Package docstore is the persistence gateway: a schema-less document API
// with the handful of operations the betting core relies on.
//
// Values are kept JSON-shaped (maps, slices, float64, string, bool, nil).
// Anything written through the store is normalized through encoding/json,
// so callers may pass structs and read back plain maps.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

const (
	CollectionRounds     = "microBets"
	CollectionGroupLines = "groupLines"
	CollectionTeams      = "teams"
	CollectionUsers      = "users"
	CollectionRewards    = "rewards"
)

// FieldCreatedAt is set on every document by Create and Set when absent.
const FieldCreatedAt = "createdAt"

// TimeLayout is fixed width so timestamps order lexicographically.
const TimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

var (
	ErrNotFound    = errors.New("document not found")
	ErrNotNumeric  = errors.New("field is not numeric")
	ErrInvalidPath = errors.New("invalid field path")
	ErrNoStore     = errors.New("document store not configured")
)

type Direction int

const (
	Asc Direction = iota
	Desc
)

// Increment is a field value that atomically adds N to the stored number.
// A missing field counts as zero.
type Increment int64

type Document struct {
	ID        string
	CreatedAt time.Time
	Data      map[string]any
}

// Decode unmarshals the document body into out.
func (d Document) Decode(out any) error {
	raw, err := json.Marshal(d.Data)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

type Store interface {
	Get(ctx context.Context, collection, id string) (Document, error)
	List(ctx context.Context, collection, orderBy string, dir Direction) ([]Document, error)
	Query(ctx context.Context, collection, field string, equals any) ([]Document, error)
	Set(ctx context.Context, collection, id string, data any) error
	UpdateField(ctx context.Context, collection, id, fieldPath string, value any) error
	// UpdateFields applies every field in order as one write. Either all
	// of them land or none do.
	UpdateFields(ctx context.Context, collection, id string, fields ...Field) error
	// Insert writes the document only when id is absent and reports
	// whether it did.
	Insert(ctx context.Context, collection, id string, data any) (bool, error)
	Create(ctx context.Context, collection string, data any) (string, error)
}

// Field is one path/value pair of an UpdateFields call.
type Field struct {
	Path  string
	Value any
}

func applyFields(data map[string]any, fields []Field) error {
	for _, f := range fields {
		if err := applyField(data, f.Path, f.Value); err != nil {
			return err
		}
	}
	return nil
}

func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

var (
	segmentEscaper   = strings.NewReplacer("%", "%25", ".", "%2E")
	segmentUnescaper = strings.NewReplacer("%25", "%", "%2E", ".")
)

// Path joins field path segments. Dots and percent signs inside a segment
// are escaped, so ids such as e-mail addresses stay one key.
func Path(segments ...string) string {
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = segmentEscaper.Replace(s)
	}
	return strings.Join(escaped, ".")
}

func splitPath(path string) ([]string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, ErrInvalidPath
	}
	parts := strings.Split(path, ".")
	for i, p := range parts {
		if p == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPath, path)
		}
		parts[i] = segmentUnescaper.Replace(p)
	}
	return parts, nil
}

// toMap normalizes any JSON-encodable value into a document body.
func toMap(data any) (map[string]any, error) {
	if data == nil {
		return map[string]any{}, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}

func normalizeValue(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// applyField writes value at the dotted path, creating intermediate maps.
func applyField(data map[string]any, path string, value any) error {
	parts, err := splitPath(path)
	if err != nil {
		return err
	}
	cur := data
	for _, p := range parts[:len(parts)-1] {
		next, ok := cur[p].(map[string]any)
		if !ok {
			if cur[p] != nil {
				return fmt.Errorf("%w: %q is not an object", ErrInvalidPath, p)
			}
			next = map[string]any{}
			cur[p] = next
		}
		cur = next
	}
	leaf := parts[len(parts)-1]
	if inc, ok := value.(Increment); ok {
		var base float64
		switch existing := cur[leaf].(type) {
		case nil:
		case float64:
			base = existing
		default:
			return fmt.Errorf("%w: %s", ErrNotNumeric, path)
		}
		cur[leaf] = base + float64(inc)
		return nil
	}
	nv, err := normalizeValue(value)
	if err != nil {
		return err
	}
	cur[leaf] = nv
	return nil
}

func lookupField(data map[string]any, path string) (any, bool) {
	parts, err := splitPath(path)
	if err != nil {
		return nil, false
	}
	var cur any = data
	for _, p := range parts {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[p]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func ensureCreatedAt(data map[string]any, now time.Time) time.Time {
	if raw, ok := data[FieldCreatedAt].(string); ok {
		if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			return ts.UTC()
		}
	}
	data[FieldCreatedAt] = FormatTime(now)
	return now.UTC()
}

// compareValues orders JSON scalars; missing values sort last.
func compareValues(a, b any, aok, bok bool) int {
	switch {
	case !aok && !bok:
		return 0
	case !aok:
		return 1
	case !bok:
		return -1
	}
	switch av := a.(type) {
	case float64:
		if bv, ok := b.(float64); ok {
			switch {
			case av < bv:
				return -1
			case av > bv:
				return 1
			}
			return 0
		}
	case string:
		if bv, ok := b.(string); ok {
			return strings.Compare(av, bv)
		}
	case bool:
		if bv, ok := b.(bool); ok {
			switch {
			case av == bv:
				return 0
			case !av:
				return -1
			}
			return 1
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func sortDocuments(docs []Document, orderBy string, dir Direction) {
	if strings.TrimSpace(orderBy) == "" {
		return
	}
	sort.SliceStable(docs, func(i, j int) bool {
		av, aok := lookupField(docs[i].Data, orderBy)
		bv, bok := lookupField(docs[j].Data, orderBy)
		c := compareValues(av, bv, aok, bok)
		if dir == Desc && aok && bok {
			c = -c
		}
		return c < 0
	})
}
