package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/foldermap/foldermap/internal/treemap"
)

// PresetsHandler manages saved filter presets. Presets are the one piece
// of user state that survives restarts; scan snapshots never do.
type PresetsHandler struct {
	DB *sql.DB
}

type presetItem struct {
	ID            int64   `json:"id"`
	Name          string  `json:"name"`
	MinSizeBytes  int64   `json:"min_size_bytes"`
	Extensions    string  `json:"extensions"`
	MaxAgeDays    float64 `json:"max_age_days"`
	SortKey       string  `json:"sort_key"`
	MaxRectangles int     `json:"max_rectangles"`
}

// List handles GET /api/presets.
func (h *PresetsHandler) List(w http.ResponseWriter, r *http.Request) {
	rows, err := h.DB.QueryContext(r.Context(), `
		SELECT id, name, min_size_bytes, extensions, max_age_days,
		       sort_key, max_rectangles
		FROM filter_presets
		ORDER BY name`)
	if err != nil {
		slog.Error("presets list: query", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	defer rows.Close()

	items := []presetItem{}
	for rows.Next() {
		var it presetItem
		if err := rows.Scan(&it.ID, &it.Name, &it.MinSizeBytes, &it.Extensions,
			&it.MaxAgeDays, &it.SortKey, &it.MaxRectangles); err != nil {
			slog.Error("presets list: scan row", "error", err)
			continue
		}
		items = append(items, it)
	}

	writeJSON(w, http.StatusOK, ListResponse[presetItem]{
		Items: items,
		Total: len(items),
		Limit: len(items),
	})
}

// Create handles POST /api/presets.
func (h *PresetsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req presetItem
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "MISSING_NAME", "Preset name is required")
		return
	}
	if req.SortKey == "" {
		req.SortKey = string(treemap.SortSize)
	}
	switch treemap.SortKey(req.SortKey) {
	case treemap.SortSize, treemap.SortName, treemap.SortModified:
	default:
		writeError(w, http.StatusBadRequest, "INVALID_SORT", "sort_key must be size, name or modified")
		return
	}

	// Store extensions normalized so lookups stay cheap.
	exts := treemap.ParseExtensions(req.Extensions)
	req.Extensions = joinExtensions(exts)

	res, err := h.DB.ExecContext(r.Context(), `
		INSERT INTO filter_presets
			(name, min_size_bytes, extensions, max_age_days, sort_key,
			 max_rectangles, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		req.Name, req.MinSizeBytes, req.Extensions, req.MaxAgeDays,
		req.SortKey, req.MaxRectangles, time.Now().Unix())
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			writeError(w, http.StatusConflict, "DUPLICATE_NAME", "A preset with that name already exists")
			return
		}
		slog.Error("presets create", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	req.ID, _ = res.LastInsertId()
	writeJSON(w, http.StatusCreated, req)
}

// Delete handles DELETE /api/presets/{id}.
func (h *PresetsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid preset ID")
		return
	}
	res, err := h.DB.ExecContext(r.Context(), `DELETE FROM filter_presets WHERE id = ?`, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Preset not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// loadPreset fetches a stored preset by name as a FilterSpec.
func loadPreset(ctx context.Context, db *sql.DB, name string) (treemap.FilterSpec, error) {
	var (
		spec treemap.FilterSpec
		exts string
		key  string
	)
	err := db.QueryRowContext(ctx, `
		SELECT min_size_bytes, extensions, max_age_days, sort_key, max_rectangles
		FROM filter_presets WHERE name = ?`, name,
	).Scan(&spec.MinSizeBytes, &exts, &spec.MaxAgeDays, &key, &spec.MaxRectangles)
	if err == sql.ErrNoRows {
		return spec, fmt.Errorf("preset %q not found", name)
	}
	if err != nil {
		return spec, fmt.Errorf("load preset %q: %w", name, err)
	}
	spec.Extensions = treemap.ParseExtensions(exts)
	spec.SortKey = treemap.SortKey(key)
	return spec, nil
}

// errBadParam is the shared error for unparseable query values.
func errBadParam(name, value string) error {
	return fmt.Errorf("invalid %s value %q", name, value)
}

// joinExtensions renders an extension set back to its stored form.
func joinExtensions(set map[string]struct{}) string {
	exts := make([]string, 0, len(set))
	for e := range set {
		exts = append(exts, e)
	}
	sort.Strings(exts)
	return strings.Join(exts, ",")
}
