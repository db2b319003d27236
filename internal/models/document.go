package models

import (
	"time"

	"gorm.io/datatypes"
)

// Document is the row backing every collection of the document store.
type Document struct {
	Collection string         `gorm:"primaryKey;type:text;comment:collection name"`
	ID         string         `gorm:"primaryKey;type:text;comment:document id"`
	Data       datatypes.JSON `gorm:"type:jsonb;not null;comment:document body"`
	CreatedAt  time.Time      `gorm:"type:timestamptz;not null;index;comment:creation time"`
	UpdatedAt  time.Time      `gorm:"type:timestamptz;not null;comment:last write time"`
}

func (Document) TableName() string {
	return "documents"
}
