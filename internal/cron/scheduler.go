// Package cron runs scheduled backups of the task database.
package cron

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	cronlib "github.com/robfig/cron/v3"
)

// cronParser parses standard 5-field cron expressions (minute, hour, dom,
// month, dow) and descriptors such as @daily.
var cronParser = cronlib.NewParser(
	cronlib.Minute | cronlib.Hour | cronlib.Dom | cronlib.Month | cronlib.Dow | cronlib.Descriptor,
)

const (
	backupPrefix     = "tasklist-"
	backupSuffix     = ".db"
	backupTimeLayout = "20060102-150405.000"
)

// Backupper writes a consistent copy of the database to a new file.
type Backupper interface {
	Backup(ctx context.Context, destPath string) error
}

type Config struct {
	Store    Backupper
	Logger   *slog.Logger
	Schedule string        // cron expression; required
	Dir      string        // backup directory; required
	Keep     int           // newest backups kept; <=0 keeps all
	Interval time.Duration // tick interval; defaults to 1 minute if zero
	Now      func() time.Time
}

// Scheduler polls the clock and takes a backup whenever the schedule is due.
type Scheduler struct {
	store    Backupper
	logger   *slog.Logger
	schedule cronlib.Schedule
	expr     string
	dir      string
	keep     int
	interval time.Duration
	now      func() time.Time

	mu      sync.Mutex
	nextRun time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewScheduler(cfg Config) (*Scheduler, error) {
	if cfg.Store == nil {
		return nil, errors.New("cron: store is required")
	}
	if cfg.Dir == "" {
		return nil, errors.New("cron: backup dir is required")
	}
	sched, err := cronParser.Parse(cfg.Schedule)
	if err != nil {
		return nil, fmt.Errorf("cron: parse schedule %q: %w", cfg.Schedule, err)
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = 1 * time.Minute
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Scheduler{
		store:    cfg.Store,
		logger:   logger,
		schedule: sched,
		expr:     cfg.Schedule,
		dir:      cfg.Dir,
		keep:     cfg.Keep,
		interval: interval,
		now:      now,
	}, nil
}

// Start begins the scheduler loop in a background goroutine.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Lock()
	s.nextRun = s.schedule.Next(s.now())
	next := s.nextRun
	s.mu.Unlock()

	s.wg.Add(1)
	go s.loop(ctx)
	s.logger.Info("backup scheduler started", "schedule", s.expr, "next_run_at", next)
}

// Stop cancels the scheduler loop and waits for it to exit.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	s.logger.Info("backup scheduler stopped")
}

// NextRun reports when the next backup is due.
func (s *Scheduler) NextRun() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextRun
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	now := s.now()
	s.mu.Lock()
	due := !now.Before(s.nextRun)
	if due {
		s.nextRun = s.schedule.Next(now)
	}
	next := s.nextRun
	s.mu.Unlock()
	if !due {
		return
	}

	path, err := RunBackup(ctx, s.store, s.dir, s.keep, now)
	if err != nil {
		s.logger.Error("cron: scheduled backup failed", "error", err, "next_run_at", next)
		return
	}
	s.logger.Info("cron: scheduled backup written", "path", path, "next_run_at", next)
}

// RunBackup writes a timestamped backup into dir and prunes old ones down
// to keep. It returns the new backup's path.
func RunBackup(ctx context.Context, store Backupper, dir string, keep int, at time.Time) (string, error) {
	path := BackupPath(dir, at)
	if err := store.Backup(ctx, path); err != nil {
		return "", err
	}
	if _, err := Prune(dir, keep); err != nil {
		return path, fmt.Errorf("prune backups: %w", err)
	}
	return path, nil
}

// BackupPath names the backup taken at t.
func BackupPath(dir string, t time.Time) string {
	return filepath.Join(dir, backupPrefix+t.Format(backupTimeLayout)+backupSuffix)
}

// ListBackups returns backup files in dir, oldest first.
func ListBackups(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, backupPrefix) || !strings.HasSuffix(name, backupSuffix) {
			continue
		}
		out = append(out, filepath.Join(dir, name))
	}
	slices.Sort(out)
	return out, nil
}

// Prune removes the oldest backups so that at most keep remain.
func Prune(dir string, keep int) ([]string, error) {
	if keep <= 0 {
		return nil, nil
	}
	backups, err := ListBackups(dir)
	if err != nil || len(backups) <= keep {
		return nil, err
	}
	stale := backups[:len(backups)-keep]
	for _, p := range stale {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return nil, err
		}
	}
	return stale, nil
}

// NextRunTime parses the cron expression and returns the next run time after the given time.
func NextRunTime(cronExpr string, after time.Time) (time.Time, error) {
	sched, err := cronParser.Parse(cronExpr)
	if err != nil {
		return time.Time{}, err
	}
	return sched.Next(after), nil
}
