package handlers

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"
)

// StatsHandler handles GET /api/stats.
type StatsHandler struct {
	DB *sql.DB
}

type statsResponse struct {
	Scans        scansByStatus `json:"scans"`
	Entries      int64         `json:"entries"`
	Errors       int64         `json:"errors"`
	FilesLast30d int64         `json:"files_last_30d"`
	SizeLast30d  int64         `json:"size_last_30d"`
}

type scansByStatus struct {
	Total     int64 `json:"total"`
	Completed int64 `json:"completed"`
	Cancelled int64 `json:"cancelled"`
	Failed    int64 `json:"failed"`
	Running   int64 `json:"running"`
}

// ServeHTTP returns aggregate totals over the whole scan history.
func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var resp statsResponse

	rows, err := h.DB.QueryContext(r.Context(), `
		SELECT status, COUNT(*) FROM scan_history GROUP BY status`)
	if err != nil {
		slog.Error("stats: query scans", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			continue
		}
		resp.Scans.Total += n
		switch status {
		case "completed":
			resp.Scans.Completed = n
		case "cancelled":
			resp.Scans.Cancelled = n
		case "failed":
			resp.Scans.Failed = n
		case "running":
			resp.Scans.Running = n
		}
	}

	h.DB.QueryRowContext(r.Context(), `SELECT COUNT(*) FROM scan_entries`).Scan(&resp.Entries)
	h.DB.QueryRowContext(r.Context(), `SELECT COUNT(*) FROM scan_errors`).Scan(&resp.Errors)

	cutoff := time.Now().AddDate(0, 0, -30).Unix()
	h.DB.QueryRowContext(r.Context(), `
		SELECT COALESCE(SUM(files), 0), COALESCE(SUM(total_size), 0)
		FROM scan_history
		WHERE status = 'completed' AND started_at >= ?`, cutoff).
		Scan(&resp.FilesLast30d, &resp.SizeLast30d)

	writeJSON(w, http.StatusOK, resp)
}
