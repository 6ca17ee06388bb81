package regression_test

import (
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"
)

// TestPresetRoundTrip creates a preset, lists it, and deletes it.
func TestPresetRoundTrip(t *testing.T) {
	ts := newTestServer(t)

	name := fmt.Sprintf("regression-%d", time.Now().UnixNano())
	body := fmt.Sprintf(`{"name":%q,"min_size_bytes":1024,"extensions":".TXT,log","sort_key":"name","max_rectangles":50}`, name)
	resp := ts.post(t, "/api/presets", strings.NewReader(body))
	requireStatus(t, resp, http.StatusCreated)
	var created struct {
		ID         int64  `json:"id"`
		Extensions string `json:"extensions"`
	}
	decodeJSON(t, resp, &created)
	if created.ID == 0 {
		t.Fatal("expected a preset ID")
	}
	if created.Extensions != "log,txt" {
		t.Errorf("extensions = %q, want normalized %q", created.Extensions, "log,txt")
	}

	resp = ts.get(t, "/api/presets")
	requireStatus(t, resp, http.StatusOK)
	var list struct {
		Items []struct {
			ID   int64  `json:"id"`
			Name string `json:"name"`
		} `json:"items"`
	}
	decodeJSON(t, resp, &list)
	found := false
	for _, it := range list.Items {
		if it.ID == created.ID {
			found = true
		}
	}
	if !found {
		t.Fatal("created preset missing from listing")
	}

	resp = ts.del(t, fmt.Sprintf("/api/presets/%d", created.ID))
	requireStatus(t, resp, http.StatusNoContent)

	resp = ts.del(t, fmt.Sprintf("/api/presets/%d", created.ID))
	requireStatus(t, resp, http.StatusNotFound)
}

// TestPresetRejectsBadSortKey verifies validation of the sort key.
func TestPresetRejectsBadSortKey(t *testing.T) {
	ts := newTestServer(t)
	resp := ts.post(t, "/api/presets", strings.NewReader(`{"name":"bad","sort_key":"colour"}`))
	requireStatus(t, resp, http.StatusBadRequest)
}
