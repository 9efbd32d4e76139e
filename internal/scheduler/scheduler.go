// Package scheduler runs the recurring jobs: the scheduled scan over the
// configured roots and the nightly retention purge.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/nforsman/scandir/internal/scans"
)

// purgeExpr fires the retention purge nightly, offset from the default
// scan schedule.
const purgeExpr = "30 3 * * *"

// Scheduler wraps robfig/cron and tracks the scan entry so the API can
// report the next run.
type Scheduler struct {
	mu            sync.RWMutex
	c             *cron.Cron
	scanID        cron.EntryID
	expr          string
	paused        bool
	retentionDays int

	manager *scans.Manager
}

// New creates a stopped Scheduler driving the given manager. Call Start
// after registering jobs.
func New(manager *scans.Manager) *Scheduler {
	return &Scheduler{
		c:       cron.New(),
		manager: manager,
	}
}

// ScheduleScan registers the recurring scan at the given cron expression,
// replacing any previously registered scan job. A paused scan job stays on
// the schedule but skips its runs.
func (s *Scheduler) ScheduleScan(expr string, paused bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.scanID != 0 {
		s.c.Remove(s.scanID)
	}
	id, err := s.c.AddFunc(expr, s.runScan)
	if err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	s.scanID = id
	s.expr = expr
	s.paused = paused
	slog.Info("scheduler: scan job set", "cron", expr, "paused", paused)
	return nil
}

// SchedulePurge registers the nightly purge of scans older than
// retentionDays. A non-positive retention disables purging.
func (s *Scheduler) SchedulePurge(retentionDays int) error {
	s.mu.Lock()
	s.retentionDays = retentionDays
	s.mu.Unlock()

	if retentionDays <= 0 {
		slog.Info("scheduler: retention purge disabled")
		return nil
	}
	if _, err := s.c.AddFunc(purgeExpr, s.runPurge); err != nil {
		return fmt.Errorf("add purge job: %w", err)
	}
	slog.Info("scheduler: purge job set", "cron", purgeExpr, "retention_days", retentionDays)
	return nil
}

func (s *Scheduler) runScan() {
	s.mu.RLock()
	paused := s.paused
	s.mu.RUnlock()

	if paused {
		slog.Info("scheduler: scans paused, skipping scheduled scan")
		return
	}
	_, err := s.manager.Start(context.Background(), nil, "scheduler")
	switch {
	case err == nil:
	case errors.Is(err, scans.ErrAlreadyRunning):
		slog.Warn("scheduler: previous scan still running, skipping")
	default:
		slog.Error("scheduler: scheduled scan failed to start", "error", err)
	}
}

func (s *Scheduler) runPurge() {
	s.mu.RLock()
	days := s.retentionDays
	s.mu.RUnlock()

	if err := s.manager.PurgeOld(context.Background(), days); err != nil {
		slog.Error("scheduler: retention purge failed", "error", err)
	}
}

// Start begins the cron loop.
func (s *Scheduler) Start() {
	s.c.Start()
}

// Stop halts the cron loop gracefully.
func (s *Scheduler) Stop() {
	s.c.Stop()
}

// NextScanAt returns the next scheduled scan time, or nil if no scan job
// is set.
func (s *Scheduler) NextScanAt() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.scanID == 0 {
		return nil
	}
	entry := s.c.Entry(s.scanID)
	if entry.ID == 0 {
		return nil
	}
	t := entry.Next
	return &t
}

// ScanExpr returns the scan job's cron expression.
func (s *Scheduler) ScanExpr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expr
}

// Paused reports whether the scan job skips its runs.
func (s *Scheduler) Paused() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.paused
}
