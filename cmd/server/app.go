package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"noteflow/internal/aichat"
	"noteflow/internal/backup"
	"noteflow/internal/blob"
	"noteflow/internal/config"
	"noteflow/internal/gateway"
	"noteflow/internal/parser"
	"noteflow/internal/session"
	"noteflow/internal/store"
	"noteflow/internal/store/memstore"
	"noteflow/internal/store/sqlstore"
	"noteflow/internal/transcribe"
)

// app holds every long-lived component of a running server.
type app struct {
	cfg       *config.Config
	log       *zap.Logger
	store     store.Store
	sql       *sqlstore.Store
	media     blob.Storage
	uploads   string
	gw        *gateway.Gateway
	sessions  *session.Manager
	assistant *aichat.Assistant
	backups   *backup.Service
}

func newApp(ctx context.Context, cfg *config.Config, log *zap.Logger) (*app, error) {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	a := &app{cfg: cfg, log: log}

	switch cfg.Store.Driver {
	case "memory":
		log.Warn("using in-memory store, data is lost on exit")
		a.store = memstore.New(log)
	default:
		dsn := sqlstore.DSN(cfg.DataDir, cfg.Store.File)
		log.Info("using database", zap.String("path", filepath.Join(cfg.DataDir, cfg.Store.File)))
		st, err := sqlstore.Open(ctx, dsn, log)
		if err != nil {
			return nil, err
		}
		a.store, a.sql = st, st
	}

	media, err := newMedia(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.media = media
	if local, ok := media.(*blob.Local); ok {
		a.uploads = local.UploadsDir()
	}

	opts := []gateway.Option{
		gateway.WithBlobStorage(media),
		gateway.WithVoiceTimeout(cfg.Transcription.Timeout),
	}
	if cfg.Transcription.URL != "" {
		opts = append(opts, gateway.WithTranscriber(transcribe.New(cfg.Transcription.URL, cfg.Transcription.Timeout, log)))
	}
	a.gw = gateway.New(a.store, log, opts...)
	a.sessions = session.NewManager(a.store, a.gw, log, session.WithIdleTimeout(cfg.Session.IdleTimeout))

	endpoints := aichat.Endpoints{}
	for kind, url := range map[parser.DelimiterKind]string{
		parser.DelimiterBackslash: cfg.AI.OpenAIURL,
		parser.DelimiterSlash:     cfg.AI.AnthropicURL,
		parser.DelimiterBracket:   cfg.AI.PerplexityURL,
	} {
		if url != "" {
			endpoints[kind] = url
		}
	}
	if len(endpoints) > 0 {
		a.assistant = aichat.NewAssistant(aichat.NewClient(endpoints, cfg.AI.Timeout, log), a.gw, log)
	}

	var checkpoint func(context.Context) error
	if a.sql != nil {
		checkpoint = a.sql.Checkpoint
	}
	if a.backups, err = newBackupService(ctx, cfg, checkpoint, log); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func newMedia(ctx context.Context, cfg *config.Config) (blob.Storage, error) {
	if cfg.Media.Backend != "s3" {
		return blob.NewLocal(cfg.DataDir, cfg.Media.URLPrefix)
	}
	s3cfg := blobS3Config(cfg.Media.S3)
	client, err := blob.NewS3Client(ctx, s3cfg)
	if err != nil {
		return nil, err
	}
	return blob.NewS3(client, s3cfg), nil
}

func blobS3Config(c config.S3Config) blob.S3Config {
	return blob.S3Config{
		Endpoint:  c.Endpoint,
		Region:    c.Region,
		Bucket:    c.Bucket,
		AccessKey: c.AccessKey,
		SecretKey: c.SecretKey,
		PublicURL: c.PublicURL,
	}
}

// newBackupService returns nil when no backup target is configured.
func newBackupService(ctx context.Context, cfg *config.Config, checkpoint func(context.Context) error, log *zap.Logger) (*backup.Service, error) {
	var targets []backup.Target
	if w := cfg.Backup.WebDAV; w.Enabled() {
		targets = append(targets, backup.NewWebDAV(w.URL, w.User, w.Password, w.Path))
	}
	if s := cfg.Backup.S3; s.Enabled() {
		client, err := blob.NewS3Client(ctx, blobS3Config(s))
		if err != nil {
			return nil, err
		}
		targets = append(targets, backup.NewS3(client, s.Bucket, s.Prefix))
	}
	if len(targets) == 0 {
		return nil, nil
	}

	dbFile := ""
	if cfg.Store.Driver == "sqlite" {
		dbFile = cfg.Store.File
	}
	var opts []backup.ArchiverOption
	if checkpoint != nil {
		opts = append(opts, backup.WithCheckpoint(checkpoint))
	}
	archiver := backup.NewArchiver(afero.NewOsFs(), cfg.DataDir, dbFile, opts...)
	return backup.NewService(archiver, targets, cfg.Backup.Keep, log), nil
}

func (a *app) Close() {
	if a.sessions != nil {
		a.sessions.CloseAll()
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn("store close failed", zap.Error(err))
		}
	}
}
