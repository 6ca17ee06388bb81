package regression_test

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// TestScanLifecycle drives a full scan of a temp tree through the API and
// verifies the treemap endpoint serves the resulting snapshot.
func TestScanLifecycle(t *testing.T) {
	ts := newTestServer(t)

	root := t.TempDir()
	for i := 0; i < 25; i++ {
		p := filepath.Join(root, fmt.Sprintf("file%02d.txt", i))
		if err := os.WriteFile(p, []byte(strings.Repeat("x", i+1)), 0644); err != nil {
			t.Fatal(err)
		}
	}

	resp := ts.post(t, "/api/scans", strings.NewReader(fmt.Sprintf(`{"path":%q}`, root)))
	requireStatus(t, resp, http.StatusAccepted)
	var started struct {
		Generation uint64 `json:"generation"`
		Root       string `json:"root"`
	}
	decodeJSON(t, resp, &started)
	if started.Generation == 0 {
		t.Fatal("expected a non-zero generation")
	}

	ts.waitForState(t, "completed", 30*time.Second)

	resp = ts.get(t, "/api/treemap?sort=size&max=10")
	requireStatus(t, resp, http.StatusOK)
	var tm struct {
		Generation uint64 `json:"generation"`
		Records    []struct {
			Path      string `json:"path"`
			SizeBytes int64  `json:"size_bytes"`
		} `json:"records"`
		Summary struct {
			TotalCount    int   `json:"total_count"`
			TotalBytes    int64 `json:"total_bytes"`
			FilteredCount int   `json:"filtered_count"`
		} `json:"summary"`
	}
	decodeJSON(t, resp, &tm)

	if tm.Summary.TotalCount != 25 {
		t.Errorf("total_count = %d, want 25", tm.Summary.TotalCount)
	}
	if len(tm.Records) != 10 {
		t.Errorf("got %d records, want the 10-record cap", len(tm.Records))
	}
	for i := 1; i < len(tm.Records); i++ {
		if tm.Records[i].SizeBytes > tm.Records[i-1].SizeBytes {
			t.Errorf("records not sorted by size descending at index %d", i)
		}
	}
}

// TestScanBadRoot verifies a nonexistent root is rejected up front.
func TestScanBadRoot(t *testing.T) {
	ts := newTestServer(t)
	resp := ts.post(t, "/api/scans", strings.NewReader(`{"path":"/definitely/not/here"}`))
	requireStatus(t, resp, http.StatusBadRequest)
}

// TestCancelWithoutScan verifies cancelling when idle returns 404.
// Skipped if a scan happens to be running.
func TestCancelWithoutScan(t *testing.T) {
	ts := newTestServer(t)

	var status struct {
		State string `json:"state"`
	}
	resp := ts.get(t, "/api/status")
	decodeJSON(t, resp, &status)
	if status.State == "scanning" {
		t.Skip("a scan is running; cancel semantics not testable now")
	}

	resp = ts.del(t, "/api/scans/current")
	requireStatus(t, resp, http.StatusNotFound)
}

// TestScanHistoryRecorded verifies completed scans appear in the history
// listing.
func TestScanHistoryRecorded(t *testing.T) {
	ts := newTestServer(t)

	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "a.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	resp := ts.post(t, "/api/scans", strings.NewReader(fmt.Sprintf(`{"path":%q}`, root)))
	requireStatus(t, resp, http.StatusAccepted)
	ts.waitForState(t, "completed", 30*time.Second)

	resp = ts.get(t, "/api/scans?limit=5")
	requireStatus(t, resp, http.StatusOK)
	var list struct {
		Items []struct {
			Root   string `json:"root"`
			Status string `json:"status"`
		} `json:"items"`
		Total int `json:"total"`
	}
	decodeJSON(t, resp, &list)
	if list.Total == 0 || len(list.Items) == 0 {
		t.Fatal("expected at least one history entry")
	}
	if list.Items[0].Status != "completed" {
		t.Errorf("latest history status = %q, want completed", list.Items[0].Status)
	}
}
