package handlers

import (
	"net/http"
	"time"

	"github.com/foldermap/foldermap/internal/scan"
	"github.com/foldermap/foldermap/internal/scheduler"
	"github.com/foldermap/foldermap/internal/treemap"
)

// StatusHandler handles GET /api/status.
type StatusHandler struct {
	Tracker *scan.Tracker
	Sched   *scheduler.Scheduler
	Paused  bool
	Version string
}

type statusResponse struct {
	State      string       `json:"state"`
	Generation uint64       `json:"generation"`
	Root       string       `json:"root,omitempty"`
	Files      int64        `json:"files"`
	Bytes      int64        `json:"bytes"`
	BytesHuman string       `json:"bytes_human"`
	Skipped    int64        `json:"skipped"`
	Error      string       `json:"error,omitempty"`
	FinishedAt *time.Time   `json:"finished_at,omitempty"`
	Schedule   scheduleInfo `json:"schedule"`
	Version    string       `json:"version"`
}

type scheduleInfo struct {
	Cron      string     `json:"cron"`
	Paused    bool       `json:"paused"`
	NextRunAt *time.Time `json:"next_run_at"`
}

// ServeHTTP returns the current scan lifecycle state as JSON.
func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	snap := h.Tracker.Current()

	resp := statusResponse{
		State:      string(snap.State),
		Generation: snap.Generation,
		Root:       snap.Root,
		Files:      snap.Files,
		Bytes:      snap.Bytes,
		BytesHuman: treemap.FormatBytes(snap.Bytes),
		Skipped:    snap.Skipped,
		Error:      snap.Err,
		Version:    h.Version,
		Schedule: scheduleInfo{
			Cron:      h.Sched.CronExpr(),
			Paused:    h.Paused,
			NextRunAt: h.Sched.NextRunAt(),
		},
	}
	if !snap.FinishedAt.IsZero() {
		t := snap.FinishedAt.UTC()
		resp.FinishedAt = &t
	}
	writeJSON(w, http.StatusOK, resp)
}
