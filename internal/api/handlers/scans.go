package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nforsman/scandir/internal/scans"
)

// ScansHandler handles scan-related API endpoints.
type ScansHandler struct {
	DB      *sql.DB
	Manager *scans.Manager
}

// createRequest is the optional POST /api/scans body. An empty body scans
// the configured roots.
type createRequest struct {
	Root string `json:"root"`
}

// Create handles POST /api/scans. It triggers a manual scan.
func (h *ScansHandler) Create(w http.ResponseWriter, r *http.Request) {
	var roots []string
	body, err := io.ReadAll(io.LimitReader(r.Body, 4096))
	if err == nil && len(body) > 0 {
		var req createRequest
		if err := json.Unmarshal(body, &req); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", "Request body must be JSON")
			return
		}
		if req.Root != "" {
			roots = []string{req.Root}
		}
	}

	active, err := h.Manager.Start(context.Background(), roots, "manual")
	if err != nil {
		switch {
		case errors.Is(err, scans.ErrAlreadyRunning):
			writeError(w, http.StatusConflict, "SCAN_ALREADY_RUNNING", "A scan is already in progress")
		case errors.Is(err, scans.ErrNoRoots):
			writeError(w, http.StatusBadRequest, "NO_ROOTS", "No scan roots configured")
		default:
			slog.Error("scans: start", "error", err)
			writeError(w, http.StatusBadRequest, "INVALID_ROOT", err.Error())
		}
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"id":           active.ID,
		"root":         active.Root,
		"status":       "running",
		"started_at":   active.StartedAt.UTC().Format(time.RFC3339),
		"triggered_by": active.TriggeredBy,
	})
}

// Cancel handles DELETE /api/scans/current.
func (h *ScansHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	snap, err := h.Manager.Cancel()
	if err != nil {
		if errors.Is(err, scans.ErrNoActiveScan) {
			writeError(w, http.StatusNotFound, "NO_ACTIVE_SCAN", "No scan is currently running")
			return
		}
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":         snap.ID,
		"root":       snap.Root,
		"status":     "cancelled",
		"started_at": snap.StartedAt.UTC().Format(time.RFC3339),
	})
}

type scanItem struct {
	ID          int64   `json:"id"`
	Root        string  `json:"root"`
	Status      string  `json:"status"`
	TriggeredBy string  `json:"triggered_by"`
	StartedAt   string  `json:"started_at"`
	FinishedAt  *string `json:"finished_at"`
	DurationMs  *int64  `json:"duration_ms"`
	Dirs        int64   `json:"dirs"`
	Files       int64   `json:"files"`
	Symlinks    int64   `json:"symlinks"`
	Others      int64   `json:"others"`
	Errors      int64   `json:"errors"`
	TotalSize   int64   `json:"total_size"`
}

func scanScanItem(rows interface{ Scan(...any) error }) (scanItem, error) {
	var it scanItem
	var startedAt int64
	var finishedAt, durMs sql.NullInt64
	err := rows.Scan(
		&it.ID, &it.Root, &it.Status, &it.TriggeredBy,
		&startedAt, &finishedAt, &durMs,
		&it.Dirs, &it.Files, &it.Symlinks, &it.Others, &it.Errors, &it.TotalSize,
	)
	if err != nil {
		return it, err
	}
	it.StartedAt = time.Unix(startedAt, 0).UTC().Format(time.RFC3339)
	if finishedAt.Valid {
		s := time.Unix(finishedAt.Int64, 0).UTC().Format(time.RFC3339)
		it.FinishedAt = &s
	}
	if durMs.Valid {
		it.DurationMs = &durMs.Int64
	}
	return it, nil
}

const scanColumns = `id, root, status, triggered_by,
	       started_at, finished_at, duration_ms,
	       dirs, files, symlinks, others, errors, total_size`

// List handles GET /api/scans, returning scan history newest first.
func (h *ScansHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	rows, err := h.DB.QueryContext(r.Context(), `
		SELECT `+scanColumns+`
		FROM scan_history
		ORDER BY started_at DESC, id DESC
		LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		slog.Error("scans list: query", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	defer rows.Close()

	var items []scanItem
	for rows.Next() {
		it, err := scanScanItem(rows)
		if err != nil {
			slog.Error("scans list: scan row", "error", err)
			continue
		}
		items = append(items, it)
	}
	if items == nil {
		items = []scanItem{}
	}

	var total int
	h.DB.QueryRowContext(r.Context(), `SELECT COUNT(*) FROM scan_history`).Scan(&total)

	writeJSON(w, http.StatusOK, ListResponse[scanItem]{
		Items:  items,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}

// Get handles GET /api/scans/:id.
func (h *ScansHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid scan ID")
		return
	}

	type errItem struct {
		Path       string `json:"path"`
		Message    string `json:"message"`
		OccurredAt string `json:"occurred_at"`
	}
	type scanDetail struct {
		scanItem
		ErrorList []errItem `json:"error_list"`
	}

	row := h.DB.QueryRowContext(r.Context(), `
		SELECT `+scanColumns+`
		FROM scan_history WHERE id = ?`, id)
	it, err := scanScanItem(row)
	if err == sql.ErrNoRows {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Scan not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	d := scanDetail{scanItem: it}

	errRows, _ := h.DB.QueryContext(r.Context(), `
		SELECT path, message, occurred_at
		FROM scan_errors WHERE scan_id = ?
		ORDER BY id`, id)
	if errRows != nil {
		defer errRows.Close()
		for errRows.Next() {
			var e errItem
			var occAt int64
			if errRows.Scan(&e.Path, &e.Message, &occAt) == nil {
				e.OccurredAt = time.Unix(occAt, 0).UTC().Format(time.RFC3339)
				d.ErrorList = append(d.ErrorList, e)
			}
		}
	}
	if d.ErrorList == nil {
		d.ErrorList = []errItem{}
	}

	writeJSON(w, http.StatusOK, d)
}

// Entries handles GET /api/scans/:id/entries, serving the persisted
// entries of a scan paginated in insertion order.
func (h *ScansHandler) Entries(w http.ResponseWriter, r *http.Request) {
	id, ok := h.requireScan(w, r)
	if !ok {
		return
	}
	limit, offset := parsePagination(r)

	type entryItem struct {
		Path  string `json:"path"`
		Kind  string `json:"kind"`
		Size  *int64 `json:"size"`
		MTime *int64 `json:"mtime"`
	}

	rows, err := h.DB.QueryContext(r.Context(), `
		SELECT path, kind, size, mtime
		FROM scan_entries WHERE scan_id = ?
		ORDER BY id
		LIMIT ? OFFSET ?`, id, limit, offset)
	if err != nil {
		slog.Error("scan entries: query", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	defer rows.Close()

	var items []entryItem
	for rows.Next() {
		var it entryItem
		var size, mtime sql.NullInt64
		if err := rows.Scan(&it.Path, &it.Kind, &size, &mtime); err != nil {
			slog.Error("scan entries: scan row", "error", err)
			continue
		}
		if size.Valid {
			it.Size = &size.Int64
		}
		if mtime.Valid {
			it.MTime = &mtime.Int64
		}
		items = append(items, it)
	}
	if items == nil {
		items = []entryItem{}
	}

	var total int
	h.DB.QueryRowContext(r.Context(), `SELECT COUNT(*) FROM scan_entries WHERE scan_id = ?`, id).Scan(&total)

	writeJSON(w, http.StatusOK, ListResponse[entryItem]{
		Items:  items,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}

// Errors handles GET /api/scans/:id/errors.
func (h *ScansHandler) Errors(w http.ResponseWriter, r *http.Request) {
	id, ok := h.requireScan(w, r)
	if !ok {
		return
	}
	limit, offset := parsePagination(r)

	type errItem struct {
		Path       string `json:"path"`
		Message    string `json:"message"`
		OccurredAt string `json:"occurred_at"`
	}

	rows, err := h.DB.QueryContext(r.Context(), `
		SELECT path, message, occurred_at
		FROM scan_errors WHERE scan_id = ?
		ORDER BY id
		LIMIT ? OFFSET ?`, id, limit, offset)
	if err != nil {
		slog.Error("scan errors: query", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	defer rows.Close()

	var items []errItem
	for rows.Next() {
		var it errItem
		var occAt int64
		if err := rows.Scan(&it.Path, &it.Message, &occAt); err != nil {
			continue
		}
		it.OccurredAt = time.Unix(occAt, 0).UTC().Format(time.RFC3339)
		items = append(items, it)
	}
	if items == nil {
		items = []errItem{}
	}

	var total int
	h.DB.QueryRowContext(r.Context(), `SELECT COUNT(*) FROM scan_errors WHERE scan_id = ?`, id).Scan(&total)

	writeJSON(w, http.StatusOK, ListResponse[errItem]{
		Items:  items,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}

// requireScan parses the id URL param and verifies the scan exists,
// writing the error response itself when it doesn't.
func (h *ScansHandler) requireScan(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid scan ID")
		return 0, false
	}
	var exists int
	err = h.DB.QueryRowContext(r.Context(), `SELECT 1 FROM scan_history WHERE id = ?`, id).Scan(&exists)
	if err == sql.ErrNoRows {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Scan not found")
		return 0, false
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return 0, false
	}
	return id, true
}
