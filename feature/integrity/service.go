package integrity

import (
	"context"

	"guild-backup/core/storage"
	"guild-backup/feature/backup"
	"guild-backup/feature/integrity/checks"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service handles integrity checks.
type Service struct {
	client  storage.Client
	bucket  string
	backups *backup.Service
	db      *gorm.DB
	logger  *zap.Logger
}

// NewService creates a new integrity service.
func NewService(client storage.Client, bucket string, backups *backup.Service, db *gorm.DB, logger *zap.Logger) *Service {
	return &Service{
		client:  client,
		bucket:  bucket,
		backups: backups,
		db:      db,
		logger:  logger,
	}
}

func (s *Service) index(ctx context.Context) ([]checks.IndexEntry, error) {
	recs, err := s.backups.List(ctx, "")
	if err != nil {
		return nil, err
	}
	entries := make([]checks.IndexEntry, 0, len(recs))
	for _, rec := range recs {
		keys := s.backups.OwnedKeys(rec)
		entries = append(entries, checks.IndexEntry{ID: rec.ID, Snapshot: keys[0], Extra: keys[1:]})
	}
	return entries, nil
}

// CheckObjects compares the backup index with the bucket.
func (s *Service) CheckObjects(ctx context.Context) (*checks.ObjectReport, error) {
	index, err := s.index(ctx)
	if err != nil {
		return nil, err
	}
	return checks.CheckObjects(ctx, s.client, s.bucket, s.backups.Config().ObjectPrefix, index)
}

// RemoveOrphans deletes objects no backup owns.
func (s *Service) RemoveOrphans(ctx context.Context, orphans []string) error {
	return checks.RemoveOrphans(ctx, s.client, s.bucket, s.logger, orphans)
}

// CheckSchema compares the live backups table with the index model.
func (s *Service) CheckSchema() (*checks.SchemaReport, error) {
	return checks.CheckSchema(s.db, &backup.Record{})
}
