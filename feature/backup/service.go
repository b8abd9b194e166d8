package backup

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"
	"time"

	"guild-backup/core/guild"
	"guild-backup/core/reconcile"
	"guild-backup/core/snapshot"
	"guild-backup/core/storage"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

var (
	// ErrNotFound is returned when no backup has the requested id.
	ErrNotFound = errors.New("backup not found")
	// ErrTargetBusy is returned when a load or copy is already running on the
	// target guild.
	ErrTargetBusy = errors.New("a load or copy is already running on this guild")
)

// Params are the collaborators of a Service.
type Params struct {
	Storage   storage.Client
	Bucket    string
	Repo      *Repository
	Guilds    guild.Client
	Sanitizer guild.Sanitizer
	// Recorder receives every reconcile outcome; nil disables it.
	Recorder reconcile.Recorder
	Config   Config
	Logger   *zap.Logger
}

// Service creates, stores, previews and replays guild backups.
type Service struct {
	client     storage.Client
	bucket     string
	repo       *Repository
	builder    *snapshot.Builder
	reconciler *reconcile.Reconciler
	copier     *reconcile.Copier
	cache      *snapshotCache
	cfg        Config
	logger     *zap.Logger
	newID      func() string

	mu      sync.Mutex
	running map[string]bool
}

// NewService creates a Service.
func NewService(p Params) (*Service, error) {
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cache, err := newSnapshotCache(p.Config.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create snapshot cache: %w", err)
	}

	reconciler := reconcile.NewReconciler(p.Guilds, p.Sanitizer, logger)
	copier := reconcile.NewCopier(p.Guilds, p.Sanitizer, logger)
	if p.Recorder != nil {
		reconciler = reconciler.WithRecorder(p.Recorder)
		copier = copier.WithRecorder(p.Recorder)
	}

	return &Service{
		client:     p.Storage,
		bucket:     p.Bucket,
		repo:       p.Repo,
		builder:    snapshot.NewBuilder(p.Guilds, logger),
		reconciler: reconciler,
		copier:     copier,
		cache:      cache,
		cfg:        p.Config,
		logger:     logger,
		newID:      uuid.NewString,
		running:    make(map[string]bool),
	}, nil
}

// Config returns the defaults the service was created with.
func (s *Service) Config() Config {
	return s.cfg
}

// DefaultLoadOptions returns the options of a plain load: every section,
// merged into the target, replaying ReplayDepth messages per channel.
func (s *Service) DefaultLoadOptions() reconcile.Options {
	return reconcile.Options{
		ChatlogDepth: s.cfg.ReplayDepth,
		Sections:     reconcile.AllSections(),
	}
}

func (s *Service) objectKey(name string) string {
	if s.cfg.ObjectPrefix == "" {
		return name
	}
	return path.Join(s.cfg.ObjectPrefix, name)
}

// Create captures guildID and stores the snapshot. A zero depth uses the
// configured chatlog depth.
func (s *Service) Create(ctx context.Context, guildID, creatorID string, depth int) (*CreateResult, error) {
	if depth == 0 {
		depth = s.cfg.ChatlogDepth
	}
	snap, skipped, err := s.builder.Build(ctx, guildID, creatorID, snapshot.Options{ChatlogDepth: depth})
	if err != nil {
		return nil, err
	}
	data, err := snapshot.Marshal(snap)
	if err != nil {
		return nil, err
	}

	id := s.newID()
	rec := &Record{
		ID:        id,
		GuildID:   snap.ID,
		GuildName: snap.Name,
		CreatorID: creatorID,
		ObjectKey: s.objectKey(id + ".json"),
		SizeBytes: int64(len(data)),
		CreatedAt: snap.CreatedAt,
	}

	_, err = s.client.PutObject(ctx, s.bucket, rec.ObjectKey, bytes.NewReader(data), rec.SizeBytes, minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload snapshot: %w", err)
	}
	if err := s.repo.Insert(ctx, rec); err != nil {
		if rmErr := s.client.RemoveObject(context.WithoutCancel(ctx), s.bucket, rec.ObjectKey, minio.RemoveObjectOptions{}); rmErr != nil {
			s.logger.Warn("Failed to remove orphaned snapshot", zap.String("object", rec.ObjectKey), zap.Error(rmErr))
		}
		return nil, err
	}
	s.cache.put(id, snap)

	s.logger.Info("Backup created",
		zap.String("backup_id", id),
		zap.String("guild_id", snap.ID),
		zap.Int64("size_bytes", rec.SizeBytes),
		zap.Int("skipped", len(skipped)),
	)
	return &CreateResult{Record: *rec, Skipped: skipped}, nil
}

// Get returns the record and the decoded snapshot of a backup.
func (s *Service) Get(ctx context.Context, id string) (*Record, *snapshot.Snapshot, error) {
	rec, err := s.repo.Find(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	snap, err := s.cache.getOrLoad(ctx, id, func(ctx context.Context) (*snapshot.Snapshot, error) {
		return s.fetch(ctx, rec.ObjectKey)
	})
	if err != nil {
		return nil, nil, err
	}
	return rec, snap, nil
}

func (s *Service) fetch(ctx context.Context, key string) (*snapshot.Snapshot, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot %s: %w", key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot %s: %w", key, err)
	}
	snap, err := snapshot.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", key, err)
	}
	return snap, nil
}

// Info returns the record of a backup with its summary indicators.
func (s *Service) Info(ctx context.Context, id string) (*Info, error) {
	rec, snap, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Info{Record: *rec, Summary: snap.Summary()}, nil
}

// List returns the backups of guildID, newest first.
func (s *Service) List(ctx context.Context, guildID string) ([]Record, error) {
	return s.repo.List(ctx, guildID)
}

// Delete removes a backup, its member export and its index row.
func (s *Service) Delete(ctx context.Context, id string) error {
	rec, err := s.repo.Find(ctx, id)
	if err != nil {
		return err
	}
	if err := s.client.RemoveObject(ctx, s.bucket, rec.ObjectKey, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to remove snapshot %s: %w", rec.ObjectKey, err)
	}
	if err := s.client.RemoveObject(ctx, s.bucket, s.membersKey(id), minio.RemoveObjectOptions{}); err != nil {
		s.logger.Warn("Failed to remove member export", zap.String("backup_id", id), zap.Error(err))
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.cache.remove(id)
	s.logger.Info("Backup deleted", zap.String("backup_id", id))
	return nil
}

func (s *Service) membersKey(id string) string {
	return s.objectKey(id + "-members.txt")
}

// OwnedKeys returns every object key rec may own. The snapshot key comes
// first; the member export is optional.
func (s *Service) OwnedKeys(rec Record) []string {
	return []string{rec.ObjectKey, s.membersKey(rec.ID)}
}

// ExportMembers writes the member list of a backup as text, one
// "name#discriminator (id)" per line, and returns the object key.
func (s *Service) ExportMembers(ctx context.Context, id string) (string, error) {
	_, snap, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, m := range snap.Members {
		fmt.Fprintf(&b, "%s#%s (%s)\n", m.Name, m.Discriminator, m.ID)
	}

	key := s.membersKey(id)
	data := []byte(b.String())
	_, err = s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "text/plain; charset=utf-8",
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload member export: %w", err)
	}
	return key, nil
}

// acquire marks guildID as the target of a running load or copy.
func (s *Service) acquire(guildID string) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running[guildID] {
		return nil, fmt.Errorf("%w: %s", ErrTargetBusy, guildID)
	}
	s.running[guildID] = true
	return func() {
		s.mu.Lock()
		delete(s.running, guildID)
		s.mu.Unlock()
	}, nil
}

// Load replays a backup into targetGuildID.
func (s *Service) Load(ctx context.Context, id, targetGuildID string, opts reconcile.Options) (*reconcile.Report, error) {
	_, snap, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	release, err := s.acquire(targetGuildID)
	if err != nil {
		return nil, err
	}
	defer release()

	start := time.Now()
	report, err := s.reconciler.Reconcile(ctx, snap, targetGuildID, opts)
	if report != nil {
		s.logger.Info("Backup loaded",
			zap.String("backup_id", id),
			zap.String("target_guild_id", targetGuildID),
			zap.Duration("elapsed", time.Since(start)),
			zap.Int("failed", report.Summary.Failed),
			zap.Error(err),
		)
	}
	return report, err
}

// Copy rebuilds targetGuildID from the live sourceGuildID. A zero depth uses
// the configured copy depth.
func (s *Service) Copy(ctx context.Context, sourceGuildID, targetGuildID string, opts reconcile.CopyOptions) (*reconcile.Report, map[string]string, error) {
	if opts.ChatlogDepth == 0 {
		opts.ChatlogDepth = s.cfg.CopyDepth
	}
	release, err := s.acquire(targetGuildID)
	if err != nil {
		return nil, nil, err
	}
	defer release()

	return s.copier.Copy(ctx, sourceGuildID, targetGuildID, opts)
}
