package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/HackGT12/app-view-sub000/internal/models"
)

// PostgresStore keeps one jsonb row per document. Field updates lock the row
// for the read-modify-write, so concurrent increments never lose updates.
type PostgresStore struct {
	db    *gorm.DB
	clock func() time.Time
}

func NewPostgresStore(db *gorm.DB) *PostgresStore {
	return &PostgresStore{db: db, clock: time.Now}
}

func (s *PostgresStore) Get(ctx context.Context, collection, id string) (Document, error) {
	if s == nil || s.db == nil {
		return Document{}, ErrNotFound
	}
	var row models.Document
	err := s.db.WithContext(ctx).
		Where("collection = ? AND id = ?", collection, id).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, err
	}
	return rowToDocument(row)
}

func (s *PostgresStore) List(ctx context.Context, collection, orderBy string, dir Direction) ([]Document, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.Document{}).Where("collection = ?", collection)
	query = applyDocOrder(query, orderBy, dir)
	var rows []models.Document
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rowsToDocuments(rows)
}

func (s *PostgresStore) Query(ctx context.Context, collection, field string, equals any) ([]Document, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	parts, err := splitPath(field)
	if err != nil {
		return nil, err
	}
	want, err := json.Marshal(equals)
	if err != nil {
		return nil, err
	}
	var rows []models.Document
	if err := s.db.WithContext(ctx).
		Model(&models.Document{}).
		Where("collection = ?", collection).
		Where("data #> ?::text[] = ?::jsonb", pgPath(parts), string(want)).
		Order("created_at asc").
		Order("id asc").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rowsToDocuments(rows)
}

func (s *PostgresStore) Set(ctx context.Context, collection, id string, data any) error {
	if s == nil || s.db == nil {
		return ErrNoStore
	}
	row, err := s.newRow(collection, id, data)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "collection"}, {Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "created_at", "updated_at"}),
	}).Create(row).Error
}

func (s *PostgresStore) Insert(ctx context.Context, collection, id string, data any) (bool, error) {
	if s == nil || s.db == nil {
		return false, ErrNoStore
	}
	row, err := s.newRow(collection, id, data)
	if err != nil {
		return false, err
	}
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "collection"}, {Name: "id"}},
		DoNothing: true,
	}).Create(row)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *PostgresStore) newRow(collection, id string, data any) (*models.Document, error) {
	body, err := toMap(data)
	if err != nil {
		return nil, err
	}
	now := s.clock().UTC()
	createdAt := ensureCreatedAt(body, now)
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	return &models.Document{
		Collection: collection,
		ID:         id,
		Data:       datatypes.JSON(raw),
		CreatedAt:  createdAt,
		UpdatedAt:  now,
	}, nil
}

func (s *PostgresStore) Create(ctx context.Context, collection string, data any) (string, error) {
	if s == nil || s.db == nil {
		return "", ErrNoStore
	}
	id := uuid.NewString()
	if err := s.Set(ctx, collection, id, data); err != nil {
		return "", err
	}
	return id, nil
}

func (s *PostgresStore) UpdateField(ctx context.Context, collection, id, fieldPath string, value any) error {
	return s.UpdateFields(ctx, collection, id, Field{Path: fieldPath, Value: value})
}

func (s *PostgresStore) UpdateFields(ctx context.Context, collection, id string, fields ...Field) error {
	if s == nil || s.db == nil {
		return ErrNoStore
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row models.Document
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("collection = ? AND id = ?", collection, id).
			Take(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		body := map[string]any{}
		if len(row.Data) > 0 {
			if err := json.Unmarshal(row.Data, &body); err != nil {
				return err
			}
		}
		if err := applyFields(body, fields); err != nil {
			return err
		}
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		return tx.Model(&models.Document{}).
			Where("collection = ? AND id = ?", collection, id).
			Updates(map[string]any{
				"data":       datatypes.JSON(raw),
				"updated_at": s.clock().UTC(),
			}).Error
	})
}

func applyDocOrder(query *gorm.DB, orderBy string, dir Direction) *gorm.DB {
	direction := "ASC"
	if dir == Desc {
		direction = "DESC"
	}
	orderBy = strings.TrimSpace(orderBy)
	switch orderBy {
	case "":
	case FieldCreatedAt:
		query = query.Order("created_at " + direction)
	default:
		parts, err := splitPath(orderBy)
		if err != nil {
			break
		}
		// An expression order swallows later column orders, so the id
		// tie-break lives in the same expression.
		return query.Order(clause.OrderBy{Expression: clause.Expr{
			SQL:  "data #> ?::text[] " + direction + " NULLS LAST, id ASC",
			Vars: []any{pgPath(parts)},
		}})
	}
	return query.Order("id asc")
}

// pgPath renders segments as a Postgres text[] literal.
func pgPath(parts []string) string {
	quoted := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ReplaceAll(p, `\`, `\\`)
		p = strings.ReplaceAll(p, `"`, `\"`)
		quoted = append(quoted, `"`+p+`"`)
	}
	return "{" + strings.Join(quoted, ",") + "}"
}

func rowToDocument(row models.Document) (Document, error) {
	body := map[string]any{}
	if len(row.Data) > 0 {
		if err := json.Unmarshal(row.Data, &body); err != nil {
			return Document{}, err
		}
	}
	return Document{ID: row.ID, CreatedAt: row.CreatedAt.UTC(), Data: body}, nil
}

func rowsToDocuments(rows []models.Document) ([]Document, error) {
	out := make([]Document, 0, len(rows))
	for _, row := range rows {
		d, err := rowToDocument(row)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}
