// Package treemap turns a completed scan's record snapshot into the
// filtered, sorted, capped data the treemap renderer consumes. Everything
// here is pure: no shared state, safe to call repeatedly with different
// filters over the same snapshot.
package treemap

import (
	"slices"
	"strings"
	"time"

	"github.com/foldermap/foldermap/internal/scan"
)

// SortKey selects the ordering applied after filtering.
type SortKey string

const (
	SortSize     SortKey = "size"     // descending by size
	SortName     SortKey = "name"     // ascending by name, case-insensitive
	SortModified SortKey = "modified" // most recent first, unknown last
)

// FilterSpec holds the filter, sort and cap parameters. Extensions must be
// lower-cased without the leading dot; an empty set disables the extension
// predicate. MaxAgeDays <= 0 disables the age predicate.
type FilterSpec struct {
	MinSizeBytes  int64
	Extensions    map[string]struct{}
	MaxAgeDays    float64
	SortKey       SortKey
	MaxRectangles int
}

// Summary counts records and bytes over the full snapshot and over the
// post-filter (pre-cap) subset, so a consumer can show
// "filtered N of M files, X of Y bytes".
type Summary struct {
	TotalCount    int   `json:"total_count"`
	TotalBytes    int64 `json:"total_bytes"`
	FilteredCount int   `json:"filtered_count"`
	FilteredBytes int64 `json:"filtered_bytes"`
}

// Aggregate applies spec to a record snapshot: filter, sort, then truncate
// to MaxRectangles. The cap runs after the sort so the most relevant
// entries per the chosen ordering survive.
func Aggregate(records []scan.FileRecord, spec FilterSpec, now time.Time) ([]scan.FileRecord, Summary) {
	filtered, summary := FilterSort(records, spec, now)
	return Cap(filtered, spec.MaxRectangles), summary
}

// FilterSort returns the full filtered and sorted subset (no cap applied)
// together with the summary. The input slice is never mutated.
func FilterSort(records []scan.FileRecord, spec FilterSpec, now time.Time) ([]scan.FileRecord, Summary) {
	summary := Summary{TotalCount: len(records)}

	filtered := make([]scan.FileRecord, 0, len(records))
	for _, r := range records {
		summary.TotalBytes += r.SizeBytes
		if matches(r, spec, now) {
			filtered = append(filtered, r)
			summary.FilteredBytes += r.SizeBytes
		}
	}
	summary.FilteredCount = len(filtered)

	sortRecords(filtered, spec.SortKey)
	return filtered, summary
}

// Cap truncates sorted to at most n entries. n <= 0 yields an empty slice.
func Cap(sorted []scan.FileRecord, n int) []scan.FileRecord {
	if n <= 0 {
		return []scan.FileRecord{}
	}
	if len(sorted) <= n {
		return sorted
	}
	return sorted[:n]
}

// matches evaluates every active predicate; all must pass. A record with
// an unknown modified time fails an active age filter.
func matches(r scan.FileRecord, spec FilterSpec, now time.Time) bool {
	if r.SizeBytes < spec.MinSizeBytes {
		return false
	}
	if len(spec.Extensions) > 0 {
		if _, ok := spec.Extensions[r.Extension]; !ok {
			return false
		}
	}
	if spec.MaxAgeDays > 0 {
		if !r.HasModified() {
			return false
		}
		ageDays := now.Sub(r.ModifiedAt).Hours() / 24
		if ageDays > spec.MaxAgeDays {
			return false
		}
	}
	return true
}

// sortRecords orders in place per key. Every ordering breaks ties by path
// ascending so the result is deterministic.
func sortRecords(recs []scan.FileRecord, key SortKey) {
	switch key {
	case SortName:
		slices.SortFunc(recs, func(a, b scan.FileRecord) int {
			if c := strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)); c != 0 {
				return c
			}
			return strings.Compare(a.Path, b.Path)
		})
	case SortModified:
		slices.SortFunc(recs, func(a, b scan.FileRecord) int {
			switch {
			case a.HasModified() && !b.HasModified():
				return -1
			case !a.HasModified() && b.HasModified():
				return 1
			case a.ModifiedAt.After(b.ModifiedAt):
				return -1
			case b.ModifiedAt.After(a.ModifiedAt):
				return 1
			}
			return strings.Compare(a.Path, b.Path)
		})
	default: // SortSize
		slices.SortFunc(recs, func(a, b scan.FileRecord) int {
			if a.SizeBytes != b.SizeBytes {
				if a.SizeBytes > b.SizeBytes {
					return -1
				}
				return 1
			}
			return strings.Compare(a.Path, b.Path)
		})
	}
}

// ParseExtensions normalizes a comma-separated extension list
// (".py, TXT ," → {"py","txt"}) into the set form FilterSpec expects.
func ParseExtensions(s string) map[string]struct{} {
	set := map[string]struct{}{}
	for _, part := range strings.Split(s, ",") {
		ext := strings.ToLower(strings.TrimSpace(part))
		ext = strings.TrimPrefix(ext, ".")
		if ext != "" {
			set[ext] = struct{}{}
		}
	}
	if len(set) == 0 {
		return nil
	}
	return set
}
