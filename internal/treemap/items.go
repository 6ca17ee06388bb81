package treemap

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/foldermap/foldermap/internal/scan"
)

// Item is one rectangle's worth of renderer payload: the layout step maps
// SizeBytes to area and AgeSeconds to color.
type Item struct {
	Path       string   `json:"path,omitempty"` // empty for the aggregate bucket
	Label      string   `json:"label"`
	SizeBytes  int64    `json:"size_bytes"`
	AgeSeconds *float64 `json:"age_seconds,omitempty"`
	Aggregate  bool     `json:"aggregate,omitempty"`
}

// Items converts a filtered, sorted record list into renderer items. When
// the list exceeds maxItems, the tail is folded into a single "Other"
// bucket instead of being dropped, so the rendered areas still account for
// every filtered byte. Labels are paths relative to root; long ones fall
// back to the base name.
func Items(filtered []scan.FileRecord, root string, now time.Time, maxItems int) []Item {
	if maxItems <= 0 {
		return []Item{}
	}
	items := make([]Item, 0, min(len(filtered), maxItems))

	fold := maxItems > 0 && len(filtered) > maxItems
	head := filtered
	if fold {
		head = filtered[:maxItems-1]
	}

	for _, r := range head {
		it := Item{
			Path:      r.Path,
			Label:     label(r, root),
			SizeBytes: r.SizeBytes,
		}
		if r.HasModified() {
			age := max(0, now.Sub(r.ModifiedAt).Seconds())
			it.AgeSeconds = &age
		}
		items = append(items, it)
	}

	if fold {
		var otherSize int64
		for _, r := range filtered[maxItems-1:] {
			otherSize += r.SizeBytes
		}
		items = append(items, Item{
			Label:     "Other (" + FormatBytes(otherSize) + ")",
			SizeBytes: otherSize,
			Aggregate: true,
		})
	}

	return items
}

// label prefers the root-relative path; unreasonably long ones collapse to
// the base name.
func label(r scan.FileRecord, root string) string {
	rel, err := filepath.Rel(root, r.Path)
	if err != nil || strings.HasPrefix(rel, "..") || len(rel) >= 40 {
		return r.Name
	}
	return rel
}

// FormatBytes renders a byte count for humans ("1.5 MiB").
func FormatBytes(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.IBytes(uint64(n))
}

// Age formats a record's age for display; empty when unknown.
func Age(r scan.FileRecord, now time.Time) string {
	if !r.HasModified() {
		return ""
	}
	return humanize.RelTime(r.ModifiedAt, now, "ago", "from now")
}
