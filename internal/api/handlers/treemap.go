package handlers

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/foldermap/foldermap/internal/scan"
	"github.com/foldermap/foldermap/internal/treemap"
)

// TreemapHandler serves the filtered/sorted/capped view of the current
// record snapshot. Aggregation is pure, so every request re-runs it with
// the request's filters against the same completed snapshot.
type TreemapHandler struct {
	DB                *sql.DB
	Tracker           *scan.Tracker
	DefaultRectangles int
}

type treemapResponse struct {
	Generation uint64            `json:"generation"`
	Root       string            `json:"root"`
	Records    []scan.FileRecord `json:"records"`
	Items      []treemap.Item    `json:"items"`
	Summary    treemap.Summary   `json:"summary"`
	TotalHuman string            `json:"total_human"`
	Human      string            `json:"filtered_human"`
}

// ServeHTTP handles GET /api/treemap.
func (h *TreemapHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	snap := h.Tracker.Current()
	if snap.State != scan.StateCompleted {
		writeError(w, http.StatusConflict, "NO_SNAPSHOT", "No completed scan snapshot is available")
		return
	}

	spec, err := h.filterSpec(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_FILTER", err.Error())
		return
	}

	now := time.Now()
	full, summary := treemap.FilterSort(snap.Records, spec, now)
	capped := treemap.Cap(full, spec.MaxRectangles)

	writeJSON(w, http.StatusOK, treemapResponse{
		Generation: snap.Generation,
		Root:       snap.Root,
		Records:    capped,
		Items:      treemap.Items(full, snap.Root, now, spec.MaxRectangles),
		Summary:    summary,
		TotalHuman: treemap.FormatBytes(summary.TotalBytes),
		Human:      treemap.FormatBytes(summary.FilteredBytes),
	})
}

// filterSpec builds a FilterSpec from a stored preset (when ?preset= is
// given) overlaid with any explicit query parameters.
func (h *TreemapHandler) filterSpec(r *http.Request) (treemap.FilterSpec, error) {
	spec := treemap.FilterSpec{
		SortKey:       treemap.SortSize,
		MaxRectangles: h.DefaultRectangles,
	}

	q := r.URL.Query()
	if name := q.Get("preset"); name != "" {
		stored, err := loadPreset(r.Context(), h.DB, name)
		if err != nil {
			return spec, err
		}
		spec = stored
	}

	if v := q.Get("min_size"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			return spec, errBadParam("min_size", v)
		}
		spec.MinSizeBytes = n
	}
	if v := q.Get("ext"); v != "" {
		spec.Extensions = treemap.ParseExtensions(v)
	}
	if v := q.Get("max_age_days"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 {
			return spec, errBadParam("max_age_days", v)
		}
		spec.MaxAgeDays = f
	}
	if v := q.Get("sort"); v != "" {
		switch treemap.SortKey(v) {
		case treemap.SortSize, treemap.SortName, treemap.SortModified:
			spec.SortKey = treemap.SortKey(v)
		default:
			return spec, errBadParam("sort", v)
		}
	}
	if v := q.Get("max"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return spec, errBadParam("max", v)
		}
		spec.MaxRectangles = n
	}
	return spec, nil
}
