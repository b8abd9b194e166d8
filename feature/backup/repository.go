package backup

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"guild-backup/core/database"

	"gorm.io/gorm"
)

// Repository persists the backup index.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a Repository on db.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Migrate creates or updates the backups table and verifies its columns.
func (r *Repository) Migrate() error {
	if err := r.db.AutoMigrate(&Record{}); err != nil {
		return fmt.Errorf("failed to migrate backups table: %w", err)
	}
	missing, err := database.MissingColumns(r.db, Record{}.TableName(), recordColumns...)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		return fmt.Errorf("backups table is missing columns: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Insert stores rec.
func (r *Repository) Insert(ctx context.Context, rec *Record) error {
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("failed to insert backup %s: %w", rec.ID, err)
	}
	return nil
}

// Find returns the record with id, or ErrNotFound.
func (r *Repository) Find(ctx context.Context, id string) (*Record, error) {
	var rec Record
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find backup %s: %w", id, err)
	}
	return &rec, nil
}

// List returns the records of guildID, newest first. An empty guildID lists
// every record.
func (r *Repository) List(ctx context.Context, guildID string) ([]Record, error) {
	q := r.db.WithContext(ctx).Order("created_at DESC")
	if guildID != "" {
		q = q.Where("guild_id = ?", guildID)
	}
	var recs []Record
	if err := q.Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to list backups: %w", err)
	}
	return recs, nil
}

// Delete removes the record with id. Deleting a missing record is ErrNotFound.
func (r *Repository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&Record{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete backup %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}
