package scans

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/nforsman/scandir"
)

// flushInterval is how often the session drains engine results into the
// database while a root is being walked.
const flushInterval = 500 * time.Millisecond

// rootTally accumulates per-root aggregates for the finalize update.
type rootTally struct {
	dirs     int64
	files    int64
	symlinks int64
	others   int64
	errors   int64
	size     int64
}

func (t *rootTally) add(entries []scandir.Entry, errs []scandir.ScanError) {
	for i := range entries {
		switch entries[i].Kind {
		case scandir.KindDir:
			t.dirs++
		case scandir.KindFile:
			t.files++
		case scandir.KindSymlink:
			t.symlinks++
		default:
			t.others++
		}
		if entries[i].Meta != nil {
			t.size += entries[i].Meta.Size
		}
	}
	t.errors += int64(len(errs))
}

// runSession walks each prepared engine in order, persisting results as
// they arrive. The first root's scan_history row already exists; rows for
// later roots are created as the session reaches them.
func (m *Manager) runSession(ctx context.Context, firstID int64, engines []*scandir.Scandir, triggeredBy string, prog *Progress) {
	scanID := firstID
	for i, eng := range engines {
		if i > 0 {
			if ctx.Err() != nil {
				return
			}
			id, err := insertScanRecord(m.db, eng.Root(), time.Now(), triggeredBy)
			if err != nil {
				slog.Error("create scan record", "root", eng.Root(), "error", err)
				return
			}
			scanID = id
		}
		m.setCurrent(scanID, eng.Root())
		if !m.runRoot(ctx, scanID, eng, prog) {
			return
		}
	}
}

// runRoot drives one engine to completion, draining on a ticker. Returns
// false when the session was cancelled and remaining roots should be
// skipped.
func (m *Manager) runRoot(ctx context.Context, scanID int64, eng *scandir.Scandir, prog *Progress) bool {
	startedAt := time.Now()
	if err := eng.Start(); err != nil {
		slog.Error("start scan", "root", eng.Root(), "error", err)
		m.finalize(scanID, "failed", startedAt, &rootTally{})
		return true
	}
	slog.Info("scan started", "scan_id", scanID, "root", eng.Root())

	done := make(chan struct{})
	go func() {
		eng.Join(context.Background())
		close(done)
	}()

	tally := &rootTally{}
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			eng.Stop()
			eng.Join(context.Background())
			// Flush whatever the walker produced before it stopped; the
			// session context is gone, so persist on the background one.
			m.flush(context.Background(), scanID, eng, tally, prog)
			m.finalize(scanID, "cancelled", startedAt, tally)
			slog.Info("scan cancelled", "scan_id", scanID, "root", eng.Root())
			return false
		case <-done:
			m.flush(context.Background(), scanID, eng, tally, prog)
			m.finalize(scanID, "completed", startedAt, tally)
			slog.Info("scan completed", "scan_id", scanID, "root", eng.Root(),
				"files", tally.files, "dirs", tally.dirs, "errors", tally.errors,
				"duration", eng.Duration().Round(time.Millisecond))
			return true
		case <-ticker.C:
			m.flush(ctx, scanID, eng, tally, prog)
		}
	}
}

// flush drains everything new from the engine and writes it in one
// transaction. Drains evict (the engine runs with retention off), so a
// failed write logs and drops the batch rather than wedging the session.
func (m *Manager) flush(ctx context.Context, scanID int64, eng *scandir.Scandir, tally *rootTally, prog *Progress) {
	entries, errs := eng.Results(true)
	if len(entries) == 0 && len(errs) == 0 {
		return
	}
	if err := m.writeBatch(ctx, scanID, entries, errs); err != nil {
		slog.Error("persist scan results", "scan_id", scanID, "error", err)
		return
	}
	tally.add(entries, errs)
	prog.Entries.Add(int64(len(entries)))
	prog.Errors.Add(int64(len(errs)))
}

// writeBatch inserts one drained window of entries and errors atomically.
func (m *Manager) writeBatch(ctx context.Context, scanID int64, entries []scandir.Entry, errs []scandir.ScanError) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	defer tx.Rollback()

	if len(entries) > 0 {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO scan_entries (scan_id, path, kind, size, mtime)
			VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare entry insert: %w", err)
		}
		defer stmt.Close()
		for i := range entries {
			var size, mtime any
			if meta := entries[i].Meta; meta != nil {
				size = meta.Size
				mtime = meta.MTime.Unix()
			}
			if _, err := stmt.ExecContext(ctx, scanID, entries[i].Path, entries[i].Kind.String(), size, mtime); err != nil {
				return fmt.Errorf("insert entry %s: %w", entries[i].Path, err)
			}
		}
	}

	if len(errs) > 0 {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO scan_errors (scan_id, path, message, occurred_at)
			VALUES (?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare error insert: %w", err)
		}
		defer stmt.Close()
		now := time.Now().Unix()
		for i := range errs {
			if _, err := stmt.ExecContext(ctx, scanID, errs[i].Path, errs[i].Message, now); err != nil {
				return fmt.Errorf("insert error %s: %w", errs[i].Path, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

// finalize stamps the scan row with its terminal status and aggregates.
func (m *Manager) finalize(scanID int64, status string, startedAt time.Time, tally *rootTally) {
	_, err := m.db.Exec(`
		UPDATE scan_history
		SET status = ?, finished_at = ?, duration_ms = ?,
		    dirs = ?, files = ?, symlinks = ?, others = ?, errors = ?,
		    total_size = ?
		WHERE id = ?`,
		status, time.Now().Unix(), time.Since(startedAt).Milliseconds(),
		tally.dirs, tally.files, tally.symlinks, tally.others, tally.errors,
		tally.size, scanID)
	if err != nil {
		slog.Error("finalize scan", "scan_id", scanID, "error", err)
	}
}

// insertScanRecord creates a scan_history row in 'running' state and
// returns its ID.
func insertScanRecord(db *sql.DB, root string, startedAt time.Time, triggeredBy string) (int64, error) {
	res, err := db.Exec(`
		INSERT INTO scan_history (root, status, triggered_by, started_at, created_at)
		VALUES (?, 'running', ?, ?, ?)`,
		root, triggeredBy, startedAt.Unix(), time.Now().Unix())
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}
