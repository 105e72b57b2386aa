// Package backup takes file-level snapshots of the SQLite database before it is
// opened, keeps a bounded number of them on disk and optionally ships each
// snapshot to object storage.
package backup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"notekeeper/internal/storage"
)

const (
	filePrefix = "backup_"
	fileSuffix = ".db"
	timeLayout = "20060102_150405"
)

// ErrNoDatabase is returned when there is no database file to snapshot yet.
var ErrNoDatabase = errors.New("database file does not exist")

type Config struct {
	Dir  string
	Keep int // 0 keeps every snapshot
	// UploadOptions.Bucket empty disables the offsite copy.
	UploadOptions storage.UploadOptions
	Logger        logrus.FieldLogger
}

type Manager struct {
	cfg     Config
	storage storage.Service
	now     func() time.Time
}

// NewManager builds a backup manager. store may be nil.
func NewManager(cfg Config, store storage.Service) *Manager {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.Keep < 0 {
		cfg.Keep = 0
	}
	return &Manager{
		cfg:     cfg,
		storage: store,
		now:     time.Now,
	}
}

// Run snapshots dbPath, prunes old local snapshots and uploads the new one when
// offsite storage is configured. It returns the local snapshot path.
func (m *Manager) Run(ctx context.Context, dbPath string) (string, error) {
	snapshot, err := m.Snapshot(dbPath)
	if err != nil {
		return "", err
	}
	m.cfg.Logger.WithField("path", snapshot).Info("database backup created")

	removed, err := m.Prune()
	if err != nil {
		m.cfg.Logger.Warnf("prune local backups: %v", err)
	} else if len(removed) > 0 {
		m.cfg.Logger.Infof("pruned %d old backups", len(removed))
	}

	if m.offsiteEnabled() {
		if err := m.Offsite(ctx, snapshot); err != nil {
			return snapshot, err
		}
	}
	return snapshot, nil
}

// Snapshot copies the database file into the backup directory under a
// timestamped name. The source is only opened for reading.
func (m *Manager) Snapshot(dbPath string) (string, error) {
	src, err := os.Open(dbPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNoDatabase
		}
		return "", fmt.Errorf("open database file: %w", err)
	}
	defer src.Close()

	if err := os.MkdirAll(m.cfg.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create backup dir: %w", err)
	}

	dst, target, err := m.createTarget()
	if err != nil {
		return "", err
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(target)
		return "", fmt.Errorf("copy database file: %w", err)
	}
	if err := dst.Sync(); err != nil {
		dst.Close()
		os.Remove(target)
		return "", fmt.Errorf("sync backup file: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(target)
		return "", fmt.Errorf("close backup file: %w", err)
	}
	return target, nil
}

// createTarget creates the snapshot file exclusively. Two snapshots within the
// same second get a random suffix instead of overwriting each other.
func (m *Manager) createTarget() (*os.File, string, error) {
	base := filePrefix + m.now().Format(timeLayout)
	target := filepath.Join(m.cfg.Dir, base+fileSuffix)

	f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if errors.Is(err, os.ErrExist) {
		suffix := strings.SplitN(uuid.NewString(), "-", 2)[0]
		target = filepath.Join(m.cfg.Dir, base+"_"+suffix+fileSuffix)
		f, err = os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	}
	if err != nil {
		return nil, "", fmt.Errorf("create backup file: %w", err)
	}
	return f, target, nil
}

// List returns the snapshot file names in the backup directory, oldest first.
func (m *Manager) List() ([]string, error) {
	entries, err := os.ReadDir(m.cfg.Dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read backup dir: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !isSnapshotName(entry.Name()) {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Prune removes the oldest local snapshots beyond the configured limit and
// returns the removed file names.
func (m *Manager) Prune() ([]string, error) {
	if m.cfg.Keep == 0 {
		return nil, nil
	}
	names, err := m.List()
	if err != nil {
		return nil, err
	}

	stale := expired(names, m.cfg.Keep)
	for i, name := range stale {
		if err := os.Remove(filepath.Join(m.cfg.Dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return stale[:i], fmt.Errorf("remove backup %s: %w", name, err)
		}
	}
	return stale, nil
}

// Offsite uploads a snapshot and trims remote snapshots to the same limit as
// the local ones.
func (m *Manager) Offsite(ctx context.Context, snapshot string) error {
	if !m.offsiteEnabled() {
		return fmt.Errorf("offsite storage is not configured")
	}

	location, err := m.storage.UploadFile(ctx, snapshot, m.cfg.UploadOptions)
	if err != nil {
		return fmt.Errorf("upload backup: %w", err)
	}
	m.cfg.Logger.WithField("location", location).Info("database backup uploaded")

	if m.cfg.Keep == 0 {
		return nil
	}

	prefix := strings.Trim(m.cfg.UploadOptions.KeyPrefix, "/")
	if prefix != "" {
		prefix += "/"
	}
	objects, err := m.storage.ListObjects(ctx, m.cfg.UploadOptions.Bucket, prefix)
	if err != nil {
		return fmt.Errorf("list remote backups: %w", err)
	}

	var keys []string
	for _, obj := range objects {
		if isSnapshotName(path.Base(obj.Key)) {
			keys = append(keys, obj.Key)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return path.Base(keys[i]) < path.Base(keys[j]) })

	stale := expired(keys, m.cfg.Keep)
	if len(stale) == 0 {
		return nil
	}
	if err := m.storage.DeleteObjects(ctx, m.cfg.UploadOptions.Bucket, stale); err != nil {
		return fmt.Errorf("prune remote backups: %w", err)
	}
	m.cfg.Logger.Infof("pruned %d remote backups", len(stale))
	return nil
}

func (m *Manager) offsiteEnabled() bool {
	return m.storage != nil && m.cfg.UploadOptions.Bucket != ""
}

func isSnapshotName(name string) bool {
	return strings.HasPrefix(name, filePrefix) && strings.HasSuffix(name, fileSuffix)
}

// expired returns the leading entries of an oldest-first list that exceed keep.
func expired(sorted []string, keep int) []string {
	if keep <= 0 || len(sorted) <= keep {
		return nil
	}
	return sorted[:len(sorted)-keep]
}
