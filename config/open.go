package config

import (
	"context"
	stdsql "database/sql"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	_ "modernc.org/sqlite"

	"github.com/syssam/sqlassist/dialect"
	"github.com/syssam/sqlassist/dialect/sql"
)

// Open opens the database described by c and returns a driver collecting
// statistics. Slow statements are logged to logger at warn level, and every
// statement at info level when c.Debug is set. A nil logger means
// slog.Default().
func Open(c *Config, logger *slog.Logger) (*sql.StatsDriver, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	db, err := stdsql.Open(c.Driver, c.DSN)
	if err != nil {
		return nil, fmt.Errorf("config: open %s: %w", c.Driver, err)
	}
	if c.MaxOpenConns > 0 {
		db.SetMaxOpenConns(c.MaxOpenConns)
	}
	if c.MaxIdleConns > 0 {
		db.SetMaxIdleConns(c.MaxIdleConns)
	}
	if c.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(c.ConnMaxLifetime)
	}
	var drv dialect.Driver = sql.OpenDB(c.Dialect, db)
	if c.Debug {
		drv = sql.NewDebugDriver(drv, sql.DebugWithLogger(logger))
	}
	return sql.NewStatsDriver(drv, sql.WithSlowThreshold(c.slowThreshold()), sql.WithSlowQueryLog(logger)), nil
}

func (c *Config) slowThreshold() time.Duration {
	if c.SlowThreshold == 0 {
		return sql.DefaultSlowThreshold
	}
	return c.SlowThreshold
}

// Watcher reloads a configuration file when it changes and applies its
// tunables to a running driver. Only the slow threshold can change without
// reopening the database.
type Watcher struct {
	path   string
	drv    *sql.StatsDriver
	logger *slog.Logger
	w      *fsnotify.Watcher
}

// NewWatcher starts watching the file at path. The directory is watched
// so that editors replacing the file are noticed.
func NewWatcher(path string, drv *sql.StatsDriver, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config: watch: %w", err)
	}
	path = filepath.Clean(path)
	if err := w.Add(filepath.Dir(path)); err != nil {
		w.Close()
		return nil, fmt.Errorf("config: watch %s: %w", path, err)
	}
	return &Watcher{path: path, drv: drv, logger: logger, w: w}, nil
}

// Run applies changes until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.w.Close()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.path || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.reload(ctx)
		case err, ok := <-w.w.Errors:
			if !ok {
				return nil
			}
			w.logger.WarnContext(ctx, "config watch error", "path", w.path, "error", err)
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error { return w.w.Close() }

func (w *Watcher) reload(ctx context.Context) {
	c, err := Load(w.path)
	if err != nil {
		// Partial writes show up as decode errors; the next event retries.
		w.logger.WarnContext(ctx, "config reload failed", "path", w.path, "error", err)
		return
	}
	if d := c.slowThreshold(); d != w.drv.SlowThreshold() {
		w.drv.SetSlowThreshold(d)
		w.logger.InfoContext(ctx, "config reloaded", "path", w.path, "slow_threshold", d)
	}
}
