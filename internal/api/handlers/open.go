package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/foldermap/foldermap/internal/reveal"
	"github.com/foldermap/foldermap/internal/scan"
)

// OpenHandler reveals a scanned file in the host file manager. Only paths
// present in the current completed snapshot are accepted, so the endpoint
// can't be pointed at arbitrary filesystem locations.
type OpenHandler struct {
	Tracker *scan.Tracker
}

// ServeHTTP handles POST /api/open.
func (h *OpenHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path string `json:"path"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Path == "" {
		writeError(w, http.StatusBadRequest, "MISSING_PATH", "Request body must carry a path")
		return
	}

	records, _, ok := h.Tracker.CompletedRecords()
	if !ok {
		writeError(w, http.StatusConflict, "NO_SNAPSHOT", "No completed scan snapshot is available")
		return
	}

	known := false
	for _, rec := range records {
		if rec.Path == req.Path {
			known = true
			break
		}
	}
	if !known {
		writeError(w, http.StatusNotFound, "UNKNOWN_PATH", "Path is not part of the current snapshot")
		return
	}

	if err := reveal.Open(req.Path); err != nil {
		// The snapshot is best-effort; the file may be gone by now.
		writeError(w, http.StatusGone, "OPEN_FAILED", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
