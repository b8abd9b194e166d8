package cmd

import (
	"context"
	"fmt"

	"guild-backup/core/config"
	"guild-backup/core/database"
	"guild-backup/core/discord"
	"guild-backup/core/logger"
	"guild-backup/core/metrics"
	"guild-backup/core/storage"
	"guild-backup/feature/backup"
	"guild-backup/feature/integrity"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// runtime is the wired application shared by the server and the CLI.
type runtime struct {
	cfg      *config.Config
	logger   *zap.Logger
	registry *prometheus.Registry
	service  *backup.Service
	audit    *integrity.Service
}

// bootstrap loads configuration and wires every collaborator. Without a
// database the backup service is nil unless requireDB is set, in which case
// the failure is returned.
func bootstrap(ctx context.Context, requireDB bool) (*runtime, error) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	l, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	rt := &runtime{cfg: cfg, logger: l, registry: prometheus.NewRegistry()}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		if requireDB {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		l.Warn("Database connection failed; backup routes disabled", zap.Error(err))
		return rt, nil
	}
	repo := backup.NewRepository(db)
	if err := repo.Migrate(); err != nil {
		return nil, err
	}

	store, err := storage.NewClient(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	if err := storage.EnsureBucket(ctx, store, cfg.Storage.Bucket, cfg.Storage.Region); err != nil {
		return nil, err
	}

	client, err := discord.NewClient(cfg.Discord, l.Named("discord"))
	if err != nil {
		return nil, err
	}

	outcomes, err := metrics.NewOutcomes(rt.registry)
	if err != nil {
		return nil, err
	}

	rt.service, err = backup.NewService(backup.Params{
		Storage:   store,
		Bucket:    cfg.Storage.Bucket,
		Repo:      repo,
		Guilds:    client,
		Sanitizer: discord.MentionSanitizer{},
		Recorder:  outcomes,
		Config:    cfg.Backup,
		Logger:    l,
	})
	if err != nil {
		return nil, err
	}
	rt.audit = integrity.NewService(store, cfg.Storage.Bucket, rt.service, db, l.Named("integrity"))
	return rt, nil
}
