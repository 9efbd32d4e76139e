// Package scans runs engine traversals as recorded sessions: one active
// session at a time, each root persisted to scan_history with its entries
// and errors batched into SQLite while the scan runs.
package scans

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nforsman/scandir"
)

// ErrAlreadyRunning is returned when a session is started while one is in
// progress.
var ErrAlreadyRunning = errors.New("a scan is already in progress")

// ErrNoActiveScan is returned when cancel is called with no session
// running.
var ErrNoActiveScan = errors.New("no scan is currently running")

// ErrNoRoots is returned when a session is started with no roots, neither
// explicit nor configured.
var ErrNoRoots = errors.New("no scan roots configured")

// Progress holds live counters for the running session. All fields are
// atomic so the session goroutine writes and HTTP handlers read without
// locks.
type Progress struct {
	Entries atomic.Int64 // entries persisted so far, across roots
	Errors  atomic.Int64 // traversal errors persisted so far
}

// ActiveScan is a snapshot of the running session. ID and Root follow the
// root currently being walked.
type ActiveScan struct {
	ID          int64
	Root        string
	StartedAt   time.Time
	TriggeredBy string
	Progress    *Progress
}

// Manager enforces a single-active-session invariant over the engine and
// owns persistence. It is safe for concurrent use.
type Manager struct {
	mu    sync.Mutex
	db    *sql.DB
	roots []string
	opts  scandir.Options

	active   *ActiveScan
	cancelFn context.CancelFunc
}

// NewManager creates a Manager. roots are the default session roots; opts
// is the traversal template. Retention is forced off on the engine because
// the session persists every drain as it happens.
func NewManager(db *sql.DB, roots []string, opts *scandir.Options) *Manager {
	if opts == nil {
		opts = scandir.DefaultOptions()
	}
	o := *opts
	o.Store = false
	return &Manager{db: db, roots: roots, opts: o}
}

// Start launches an asynchronous session over the given roots (empty means
// the configured defaults), walking them in order. Every root is validated
// up front so construction failures surface here, not mid-session. Returns
// ErrAlreadyRunning while a session is live.
func (m *Manager) Start(parentCtx context.Context, roots []string, triggeredBy string) (*ActiveScan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active != nil {
		return nil, ErrAlreadyRunning
	}
	if len(roots) == 0 {
		roots = m.roots
	}
	if len(roots) == 0 {
		return nil, ErrNoRoots
	}

	engines := make([]*scandir.Scandir, 0, len(roots))
	for _, root := range roots {
		eng, err := scandir.New(root, &m.opts)
		if err != nil {
			return nil, fmt.Errorf("prepare root: %w", err)
		}
		engines = append(engines, eng)
	}

	// Create the first scan_history record now so the ID is available in
	// the HTTP response before the goroutine begins executing.
	startedAt := time.Now()
	scanID, err := insertScanRecord(m.db, roots[0], startedAt, triggeredBy)
	if err != nil {
		return nil, fmt.Errorf("create scan record: %w", err)
	}

	ctx, cancel := context.WithCancel(parentCtx)
	active := &ActiveScan{
		ID:          scanID,
		Root:        roots[0],
		StartedAt:   startedAt,
		TriggeredBy: triggeredBy,
		Progress:    &Progress{},
	}
	m.active = active
	m.cancelFn = cancel

	go func() {
		defer cancel()
		m.runSession(ctx, scanID, engines, triggeredBy, active.Progress)

		m.mu.Lock()
		m.active = nil
		m.cancelFn = nil
		m.mu.Unlock()
	}()

	snap := *active
	return &snap, nil
}

// Cancel stops the running session: the current root's engine is stopped
// and the remaining roots are skipped. Returns ErrNoActiveScan when idle.
func (m *Manager) Cancel() (*ActiveScan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active == nil {
		return nil, ErrNoActiveScan
	}
	snap := *m.active
	m.cancelFn()
	return &snap, nil
}

// Active returns a snapshot of the running session, or nil when idle.
func (m *Manager) Active() *ActiveScan {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return nil
	}
	snap := *m.active
	return &snap
}

// setCurrent records which root the session is walking, for status
// snapshots.
func (m *Manager) setCurrent(scanID int64, root string) {
	m.mu.Lock()
	if m.active != nil {
		m.active.ID = scanID
		m.active.Root = root
	}
	m.mu.Unlock()
}

// PurgeOld deletes finished scan rows older than retentionDays; the
// foreign-key cascades take their entries and errors with them. Intended
// to be called by the scheduler.
func (m *Manager) PurgeOld(ctx context.Context, retentionDays int) error {
	cutoff := time.Now().AddDate(0, 0, -retentionDays).Unix()
	res, err := m.db.ExecContext(ctx, `
		DELETE FROM scan_history
		WHERE started_at < ? AND status != 'running'`,
		cutoff)
	if err != nil {
		return fmt.Errorf("purge old scans: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		slog.Info("purged old scans", "count", n, "retention_days", retentionDays)
	}
	return nil
}

// MarkStaleFailed marks any scan_history rows still in 'running' state as
// 'failed'. Called once at startup in case a previous process crashed
// mid-session.
func MarkStaleFailed(db *sql.DB) error {
	res, err := db.Exec(`
		UPDATE scan_history
		SET status = 'failed', finished_at = ?
		WHERE status = 'running'`,
		time.Now().Unix())
	if err != nil {
		return fmt.Errorf("mark stale scans failed: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		slog.Warn("marked stale scans as failed", "count", n)
	}
	return nil
}
