package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/foldermap/foldermap/internal/scan"
)

// ScansHandler handles scan-related API endpoints.
type ScansHandler struct {
	DB          *sql.DB
	Manager     *scan.Manager
	DefaultRoot string
}

// Create handles POST /api/scans — starts a scan of the requested path,
// superseding any scan still in flight.
func (h *ScansHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path string `json:"path"`
	}
	// An empty or absent body falls back to the configured default root.
	_ = json.NewDecoder(r.Body).Decode(&req)
	root := req.Path
	if root == "" {
		root = h.DefaultRoot
	}
	if root == "" {
		writeError(w, http.StatusBadRequest, "MISSING_PATH", "No path given and no default_root configured")
		return
	}

	active, err := h.Manager.Start(context.Background(), root, "manual")
	if err != nil {
		if errors.Is(err, os.ErrNotExist) || errors.Is(err, scan.ErrNotDirectory) {
			writeError(w, http.StatusBadRequest, "INVALID_ROOT", err.Error())
			return
		}
		slog.Error("scans: start", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to start scan")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"generation":   active.Generation,
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
		if errors.Is(err, scan.ErrNoActiveScan) {
			writeError(w, http.StatusNotFound, "NO_ACTIVE_SCAN", "No scan is currently running")
			return
		}
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"generation": snap.Generation,
		"root":       snap.Root,
		"status":     "cancelling",
		"started_at": snap.StartedAt.UTC().Format(time.RFC3339),
	})
}

// List handles GET /api/scans — returns scan history newest first.
func (h *ScansHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	rows, err := h.DB.QueryContext(r.Context(), `
		SELECT id, generation, root, started_at, finished_at, status,
		       triggered_by, files_seen, bytes_seen, skipped,
		       duration_seconds, error
		FROM scan_history
		ORDER BY started_at DESC, id DESC
		LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		slog.Error("scans list: query", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	defer rows.Close()

	type scanItem struct {
		ID              int64   `json:"id"`
		Generation      uint64  `json:"generation"`
		Root            string  `json:"root"`
		StartedAt       string  `json:"started_at"`
		FinishedAt      *string `json:"finished_at"`
		Status          string  `json:"status"`
		TriggeredBy     string  `json:"triggered_by"`
		FilesSeen       int64   `json:"files_seen"`
		BytesSeen       int64   `json:"bytes_seen"`
		Skipped         int64   `json:"skipped"`
		DurationSeconds *int64  `json:"duration_seconds"`
		Error           *string `json:"error"`
	}

	var items []scanItem
	for rows.Next() {
		var it scanItem
		var startedAt int64
		var finishedAt, durSecs sql.NullInt64
		var errMsg sql.NullString
		if err := rows.Scan(
			&it.ID, &it.Generation, &it.Root, &startedAt, &finishedAt,
			&it.Status, &it.TriggeredBy, &it.FilesSeen, &it.BytesSeen,
			&it.Skipped, &durSecs, &errMsg,
		); err != nil {
			slog.Error("scans list: scan row", "error", err)
			continue
		}
		it.StartedAt = time.Unix(startedAt, 0).UTC().Format(time.RFC3339)
		if finishedAt.Valid {
			s := time.Unix(finishedAt.Int64, 0).UTC().Format(time.RFC3339)
			it.FinishedAt = &s
		}
		if durSecs.Valid {
			it.DurationSeconds = &durSecs.Int64
		}
		if errMsg.Valid {
			it.Error = &errMsg.String
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
