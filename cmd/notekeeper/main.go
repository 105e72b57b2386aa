package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"notekeeper/internal/backup"
	"notekeeper/internal/config"
	"notekeeper/internal/credential"
	"notekeeper/internal/repository/sqlite"
	"notekeeper/internal/service"
	"notekeeper/internal/shell"
	"notekeeper/internal/storage"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logger.SetOutput(os.Stderr)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if level, err := logrus.ParseLevel(cfg.Log.Level); err != nil {
		logger.Warnf("unknown log level %q, using info", cfg.Log.Level)
	} else {
		logger.SetLevel(level)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Backup.Enabled {
		runBackup(ctx, cfg, logger)
	}

	db, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		logger.Fatalf("open database %s: %v", cfg.Database.Path, err)
	}
	defer db.Close()

	if err := sqlite.Migrate(ctx, db, logger); err != nil {
		db.Close()
		logger.Fatalf("migrate database %s: %v", cfg.Database.Path, err)
	}

	credentials := service.NewCredentialService(
		sqlite.NewUserRepository(db),
		sqlite.NewLoginAttemptRepository(db),
		credential.NewHasher(cfg.Auth.KDFIterations),
		logger,
	)
	records := service.NewRecordService(sqlite.NewRecordRepository(db), logger)

	sh := shell.New(os.Stdin, os.Stdout, credentials, records, logger)
	if err := serve(ctx, sh, shutdownGrace, logger); err != nil {
		logger.Errorf("shell: %v", err)
	}
}

const shutdownGrace = 5 * time.Second

type runner interface {
	Run(ctx context.Context) error
}

// serve runs the shell until it returns. After ctx is cancelled it gives a
// command in flight up to grace to finish so the store is not closed under it.
// A shell still blocked on terminal input after grace is abandoned.
func serve(ctx context.Context, r runner, grace time.Duration, logger logrus.FieldLogger) error {
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		logger.Info("shutting down...")
	}

	select {
	case err := <-done:
		return err
	case <-time.After(grace):
		logger.Warn("shell did not stop in time, closing anyway")
		return nil
	}
}

// runBackup snapshots the database before it is opened. Failures never stop
// the application.
func runBackup(ctx context.Context, cfg config.Config, logger *logrus.Logger) {
	store, err := buildStorage(ctx, cfg, logger)
	if err != nil {
		logger.Warnf("setup backup storage: %v", err)
	}

	manager := backup.NewManager(backup.Config{
		Dir:  cfg.Backup.Dir,
		Keep: cfg.Backup.Keep,
		UploadOptions: storage.UploadOptions{
			Bucket:    cfg.Storage.Bucket,
			KeyPrefix: cfg.Storage.KeyPrefix,
		},
		Logger: logger,
	}, store)

	if _, err := manager.Run(ctx, cfg.Database.Path); err != nil {
		if errors.Is(err, backup.ErrNoDatabase) {
			logger.Debug("no database yet, skipping backup")
			return
		}
		logger.Warnf("backup database: %v", err)
	}
}

// buildStorage returns nil when no bucket is configured.
func buildStorage(ctx context.Context, cfg config.Config, logger *logrus.Logger) (storage.Service, error) {
	if cfg.Storage.Bucket == "" {
		return nil, nil
	}

	client, err := storage.NewS3Client(ctx, storage.S3Options{
		Region:   cfg.Storage.Region,
		Profile:  cfg.AWS.Profile,
		Endpoint: cfg.Storage.Endpoint,
	})
	if err != nil {
		return nil, err
	}
	logger.Infof("using s3 bucket %s (region %s)", cfg.Storage.Bucket, cfg.Storage.Region)
	return storage.NewS3Service(client), nil
}
