package scan

import (
	"path/filepath"
	"strings"
	"time"
)

// FileRecord is one regular file's captured metadata. Records are a
// snapshot: the file existed when the walker saw it, nothing more.
type FileRecord struct {
	Name       string    `json:"name"`
	Path       string    `json:"path"` // absolute, unique within a scan
	SizeBytes  int64     `json:"size_bytes"`
	ModifiedAt time.Time `json:"modified_at,omitzero"` // zero = unknown
	Extension  string    `json:"extension"`            // lower-cased, no dot
}

// HasModified reports whether the record carries a usable timestamp.
func (r FileRecord) HasModified() bool {
	return !r.ModifiedAt.IsZero()
}

// NewFileRecord builds a record for path. The extension is derived from
// the base name, lower-cased, without the leading dot.
func NewFileRecord(path string, size int64, modified time.Time) FileRecord {
	name := filepath.Base(path)
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	return FileRecord{
		Name:       name,
		Path:       path,
		SizeBytes:  size,
		ModifiedAt: modified,
		Extension:  ext,
	}
}

// Status is the terminal state of one scan generation.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusFailed    Status = "failed"
)

// Result is the payload of a generation's terminal event. Ownership of
// Records transfers to the consumer with the event; the scan goroutine
// never touches the slice again.
type Result struct {
	Status   Status
	Records  []FileRecord
	Skipped  int64 // entries dropped due to per-entry I/O errors
	Err      error // set only when Status == StatusFailed
	Duration time.Duration
}

// Config holds scanner tuning knobs.
type Config struct {
	Walkers       int // concurrent directory readers
	ProgressEvery int // emit a progress event every N files
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Walkers:       4,
		ProgressEvery: 200,
	}
}

func (c *Config) applyDefaults() {
	if c.Walkers <= 0 {
		c.Walkers = 4
	}
	if c.ProgressEvery <= 0 {
		c.ProgressEvery = 200
	}
}
