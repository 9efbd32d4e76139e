package handlers

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/nforsman/scandir/internal/scans"
	"github.com/nforsman/scandir/internal/scheduler"
)

// StatusHandler handles GET /api/status.
type StatusHandler struct {
	DB      *sql.DB
	Manager *scans.Manager
	Sched   *scheduler.Scheduler
	Version string
}

type statusResponse struct {
	Version           string             `json:"version"`
	ActiveScan        *activeScanInfo    `json:"active_scan"`
	Schedule          scheduleInfo       `json:"schedule"`
	LastCompletedScan *completedScanInfo `json:"last_completed_scan"`
}

type activeScanInfo struct {
	ID          int64        `json:"id"`
	Root        string       `json:"root"`
	StartedAt   time.Time    `json:"started_at"`
	TriggeredBy string       `json:"triggered_by"`
	Progress    progressInfo `json:"progress"`
}

type progressInfo struct {
	Entries int64 `json:"entries"`
	Errors  int64 `json:"errors"`
}

type scheduleInfo struct {
	Cron      string     `json:"cron"`
	Paused    bool       `json:"paused"`
	NextRunAt *time.Time `json:"next_run_at"`
}

type completedScanInfo struct {
	ID         int64     `json:"id"`
	Root       string    `json:"root"`
	FinishedAt time.Time `json:"finished_at"`
	Dirs       int64     `json:"dirs"`
	Files      int64     `json:"files"`
	Errors     int64     `json:"errors"`
	TotalSize  int64     `json:"total_size"`
	DurationMs int64     `json:"duration_ms"`
}

// ServeHTTP returns the system status as JSON.
func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		Version:           h.Version,
		ActiveScan:        h.activeScan(),
		LastCompletedScan: h.lastCompletedScan(),
	}
	if h.Sched != nil {
		resp.Schedule = scheduleInfo{
			Cron:      h.Sched.ScanExpr(),
			Paused:    h.Sched.Paused(),
			NextRunAt: h.Sched.NextScanAt(),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// activeScan snapshots the manager directly rather than the database, so
// the progress counters are live.
func (h *StatusHandler) activeScan() *activeScanInfo {
	if h.Manager == nil {
		return nil
	}
	active := h.Manager.Active()
	if active == nil {
		return nil
	}
	return &activeScanInfo{
		ID:          active.ID,
		Root:        active.Root,
		StartedAt:   active.StartedAt.UTC(),
		TriggeredBy: active.TriggeredBy,
		Progress: progressInfo{
			Entries: active.Progress.Entries.Load(),
			Errors:  active.Progress.Errors.Load(),
		},
	}
}

func (h *StatusHandler) lastCompletedScan() *completedScanInfo {
	if h.DB == nil {
		return nil
	}
	row := h.DB.QueryRow(`
		SELECT id, root, finished_at, dirs, files, errors, total_size, duration_ms
		FROM scan_history
		WHERE status = 'completed'
		ORDER BY finished_at DESC
		LIMIT 1`)

	var (
		info       completedScanInfo
		finishedAt int64
	)
	err := row.Scan(&info.ID, &info.Root, &finishedAt, &info.Dirs, &info.Files,
		&info.Errors, &info.TotalSize, &info.DurationMs)
	if err != nil {
		if err != sql.ErrNoRows {
			slog.Error("status: query last scan", "error", err)
		}
		return nil
	}
	info.FinishedAt = time.Unix(finishedAt, 0).UTC()
	return &info
}
