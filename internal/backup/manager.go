// Package backup keeps rotating snapshots of the ledger database.
package backup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultPrefix names scheduled and manual backups. Only these rotate.
const DefaultPrefix = "moneytrack_backup"

const timestampLayout = "20060102_150405"

var (
	ErrInvalidName = errors.New("invalid backup name")
	ErrNotFound    = errors.New("backup not found")

	customNameRe = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)
	backupFileRe = regexp.MustCompile(`^[A-Za-z0-9_-]+_\d{8}_\d{6}(_\d+)?\.db$`)
)

// Snapshotter writes and restores database snapshots.
type Snapshotter interface {
	BackupTo(ctx context.Context, dest string) error
	RestoreFrom(ctx context.Context, src string) error
}

// Uploader copies a finished backup off the machine.
type Uploader interface {
	Upload(ctx context.Context, name string, path string) error
}

type Config struct {
	Enabled    bool
	Dir        string
	Interval   time.Duration
	MaxBackups int
}

type Info struct {
	Filename string    `json:"filename"`
	Path     string    `json:"path"`
	Size     int64     `json:"size"`
	Created  time.Time `json:"created"`
	SizeMB   float64   `json:"size_mb"`
}

type Status struct {
	Enabled           bool    `json:"enabled"`
	IntervalHours     float64 `json:"interval_hours"`
	MaxBackups        int     `json:"max_backups"`
	BackupDirectory   string  `json:"backup_directory"`
	TotalBackups      int     `json:"total_backups"`
	ThreadRunning     bool    `json:"thread_running"`
	LatestBackup      *Info   `json:"latest_backup"`
	TotalBackupSizeMB float64 `json:"total_backup_size_mb"`
}

type Manager struct {
	cfg      Config
	store    Snapshotter
	uploader Uploader
	now      func() time.Time

	mu      sync.Mutex
	running atomic.Bool
}

// NewManager creates the backup directory. uploader may be nil.
func NewManager(cfg Config, store Snapshotter, uploader Uploader) (*Manager, error) {
	if cfg.Dir == "" {
		cfg.Dir = "backups"
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 24 * time.Hour
	}
	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		return nil, fmt.Errorf("create backup directory: %w", err)
	}
	return &Manager{
		cfg:      cfg,
		store:    store,
		uploader: uploader,
		now:      time.Now,
	}, nil
}

func (m *Manager) Dir() string {
	return m.cfg.Dir
}

// Create writes a new snapshot named <name>_<timestamp>.db, where name is
// customName or DefaultPrefix, then prunes old default backups.
func (m *Manager) Create(ctx context.Context, customName string) (Info, error) {
	name := DefaultPrefix
	if customName != "" {
		if !customNameRe.MatchString(customName) {
			return Info{}, fmt.Errorf("%w: %q", ErrInvalidName, customName)
		}
		name = customName
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	path := m.freePath(name)
	if err := m.store.BackupTo(ctx, path); err != nil {
		_ = os.Remove(path)
		return Info{}, fmt.Errorf("create backup: %w", err)
	}
	info, err := stat(path)
	if err != nil {
		return Info{}, err
	}
	slog.InfoContext(ctx, "Database backup created", "filename", info.Filename, "size", info.Size)

	if err := m.prune(); err != nil {
		slog.WarnContext(ctx, "Failed to prune old backups", "error", err)
	}
	if m.uploader != nil {
		if err := m.uploader.Upload(ctx, info.Filename, info.Path); err != nil {
			slog.WarnContext(ctx, "Failed to upload backup", "filename", info.Filename, "error", err)
		}
	}
	return info, nil
}

func (m *Manager) freePath(name string) string {
	base := name + "_" + m.now().Format(timestampLayout)
	path := filepath.Join(m.cfg.Dir, base+".db")
	for i := 1; ; i++ {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return path
		}
		path = filepath.Join(m.cfg.Dir, fmt.Sprintf("%s_%d.db", base, i))
	}
}

func (m *Manager) prune() error {
	if m.cfg.MaxBackups <= 0 {
		return nil
	}
	all, err := m.List()
	if err != nil {
		return err
	}
	var rotating []Info
	for _, b := range all {
		if strings.HasPrefix(b.Filename, DefaultPrefix+"_") {
			rotating = append(rotating, b)
		}
	}
	var errs []error
	for _, old := range rotating[min(len(rotating), m.cfg.MaxBackups):] {
		if err := os.Remove(old.Path); err != nil {
			errs = append(errs, err)
			continue
		}
		slog.Info("Removed old backup", "filename", old.Filename)
	}
	return errors.Join(errs...)
}

// List returns every backup in the directory, newest first.
func (m *Manager) List() ([]Info, error) {
	entries, err := os.ReadDir(m.cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("read backup directory: %w", err)
	}
	out := []Info{}
	for _, e := range entries {
		if e.IsDir() || !backupFileRe.MatchString(e.Name()) {
			continue
		}
		info, err := stat(filepath.Join(m.cfg.Dir, e.Name()))
		if err != nil {
			continue
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Created.Equal(out[j].Created) {
			return out[i].Created.After(out[j].Created)
		}
		return out[i].Filename > out[j].Filename
	})
	return out, nil
}

func stat(path string) (Info, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return Info{}, fmt.Errorf("stat backup: %w", err)
	}
	return Info{
		Filename: fi.Name(),
		Path:     path,
		Size:     fi.Size(),
		Created:  fi.ModTime(),
		SizeMB:   sizeMB(fi.Size()),
	}, nil
}

func sizeMB(n int64) float64 {
	return math.Round(float64(n)/(1024*1024)*100) / 100
}

// Path resolves a backup filename inside the directory, rejecting anything
// that could escape it.
func (m *Manager) Path(filename string) (string, error) {
	if filename != filepath.Base(filename) || !backupFileRe.MatchString(filename) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, filename)
	}
	path := filepath.Join(m.cfg.Dir, filename)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, filename)
		}
		return "", err
	}
	return path, nil
}

// Restore replaces the database with a backup after saving the current
// state as a pre_restore backup. It returns the pre-restore backup.
func (m *Manager) Restore(ctx context.Context, filename string) (Info, error) {
	path, err := m.Path(filename)
	if err != nil {
		return Info{}, err
	}
	return m.RestoreFile(ctx, path)
}

// RestoreFile restores from an arbitrary snapshot file, such as an upload.
func (m *Manager) RestoreFile(ctx context.Context, path string) (Info, error) {
	pre, err := m.Create(ctx, "pre_restore")
	if err != nil {
		return Info{}, fmt.Errorf("pre-restore backup: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.store.RestoreFrom(ctx, path); err != nil {
		return pre, fmt.Errorf("restore backup: %w", err)
	}
	slog.InfoContext(ctx, "Database restored", "source", filepath.Base(path), "pre_restore", pre.Filename)
	return pre, nil
}

func (m *Manager) Status() (Status, error) {
	backups, err := m.List()
	if err != nil {
		return Status{}, err
	}
	st := Status{
		Enabled:         m.cfg.Enabled,
		IntervalHours:   m.cfg.Interval.Hours(),
		MaxBackups:      m.cfg.MaxBackups,
		BackupDirectory: m.cfg.Dir,
		TotalBackups:    len(backups),
		ThreadRunning:   m.running.Load(),
	}
	if len(backups) > 0 {
		latest := backups[0]
		st.LatestBackup = &latest
	}
	var total int64
	for _, b := range backups {
		total += b.Size
	}
	st.TotalBackupSizeMB = sizeMB(total)
	return st, nil
}

// Run creates a backup every interval until ctx is done. It returns
// immediately when backups are disabled.
func (m *Manager) Run(ctx context.Context) error {
	if !m.cfg.Enabled {
		slog.InfoContext(ctx, "Periodic backups are disabled")
		return nil
	}
	if !m.running.CompareAndSwap(false, true) {
		return errors.New("backup loop already running")
	}
	defer m.running.Store(false)

	slog.InfoContext(ctx, "Periodic backups started", "interval", m.cfg.Interval, "max_backups", m.cfg.MaxBackups)
	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Periodic backups stopped")
			return nil
		case <-ticker.C:
			if _, err := m.Create(ctx, ""); err != nil {
				slog.ErrorContext(ctx, "Periodic backup failed", "error", err)
			}
		}
	}
}
