package db

import (
	"github.com/HackGT12/app-view-sub000/internal/models"
)

// Listing and Query both filter by collection and order by created_at.
const collectionIndex = `CREATE INDEX IF NOT EXISTS idx_documents_collection_created
	ON documents (collection, created_at, id)`

func (d *DB) AutoMigrate() error {
	if d == nil || d.Gorm == nil {
		return nil
	}
	if err := d.Gorm.AutoMigrate(&models.Document{}); err != nil {
		return err
	}
	return d.Gorm.Exec(collectionIndex).Error
}
