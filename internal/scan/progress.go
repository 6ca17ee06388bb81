package scan

import "sync/atomic"

// Progress holds live counters updated by the walker goroutines.
// All fields are atomic so they can be written from workers and read from
// the HTTP status handler without locks. Counts only ever grow within a
// generation.
type Progress struct {
	FilesSeen atomic.Int64
	BytesSeen atomic.Int64
	Skipped   atomic.Int64 // per-entry I/O errors (unreadable dir, stat race)
}

// ErrorReporter records a per-entry traversal error. The walker calls it
// and moves on; a skipped entry never aborts the scan.
type ErrorReporter func(path, op, errMsg string)
