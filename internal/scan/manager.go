package scan

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// ErrNoActiveScan is returned when cancel is called with no scan running.
var ErrNoActiveScan = errors.New("no scan is currently running")

// ErrNotDirectory is returned when the requested root is not a directory.
var ErrNotDirectory = errors.New("not a directory")

// EventKind distinguishes progress ticks from terminal results.
type EventKind int

const (
	EventStarted EventKind = iota
	EventProgress
	EventDone
)

// Event is a generation-stamped message from the scan goroutine to the
// consumer. Consumers must discard events whose Generation is older than
// the latest one they started, even if a superseded goroutine is slow to
// unwind.
type Event struct {
	Generation uint64
	Kind       EventKind
	Root       string
	Files      int64 // monotonically non-decreasing within a generation
	Bytes      int64
	Result     *Result // set when Kind == EventDone, exactly once per generation
}

// ActiveScan holds live information about the running scan.
type ActiveScan struct {
	Generation  uint64
	HistoryID   int64
	Root        string
	StartedAt   time.Time
	TriggeredBy string
	Progress    *Progress
}

// Manager owns the scan lifecycle: at most one generation is live at a
// time, and starting a new scan supersedes (cancels) the previous one.
// It is safe for concurrent use.
type Manager struct {
	mu  sync.Mutex
	db  *sql.DB
	cfg Config

	events     chan Event
	generation uint64
	active     *ActiveScan
	cancelFn   context.CancelFunc
}

// NewManager creates a Manager. History rows are written to db; records
// themselves are never persisted.
func NewManager(db *sql.DB, cfg Config) *Manager {
	cfg.applyDefaults()
	return &Manager{
		db:     db,
		cfg:    cfg,
		events: make(chan Event, 64),
	}
}

// Events returns the channel the manager delivers all progress and
// terminal events on. The consumer drains it on its own schedule;
// progress events may be dropped under backpressure, terminal events
// never are.
func (m *Manager) Events() <-chan Event {
	return m.events
}

// Start launches an asynchronous scan of root, superseding any scan that
// is still in flight. The returned ActiveScan snapshot carries the new
// generation; its terminal result arrives later on Events().
//
// A root that is missing or not a directory fails the generation up
// front: a failed Event is emitted, a failed history row is written, and
// the error is also returned so synchronous callers can reject the
// request immediately.
func (m *Manager) Start(parentCtx context.Context, root, triggeredBy string) (*ActiveScan, error) {
	m.mu.Lock()

	// A new request always supersedes the previous generation.
	if m.cancelFn != nil {
		m.cancelFn()
		m.cancelFn = nil
	}

	m.generation++
	gen := m.generation
	startedAt := time.Now()

	abs, err := filepath.Abs(root)
	if err == nil {
		root = abs
	}

	historyID, hErr := insertScanRecord(m.db, gen, root, startedAt, triggeredBy)
	if hErr != nil {
		m.mu.Unlock()
		return nil, fmt.Errorf("create scan record: %w", hErr)
	}

	if err := validateRoot(root); err != nil {
		res := m.failGeneration(gen, historyID, err, startedAt)
		m.mu.Unlock()
		// Terminal events block until the consumer has room; sending
		// without the lock keeps a full buffer from wedging the manager
		// against its own consumer.
		m.events <- Event{Generation: gen, Kind: EventDone, Root: root, Result: res}
		return nil, err
	}

	progress := &Progress{}
	scanCtx, cancel := context.WithCancel(parentCtx)

	active := &ActiveScan{
		Generation:  gen,
		HistoryID:   historyID,
		Root:        root,
		StartedAt:   startedAt,
		TriggeredBy: triggeredBy,
		Progress:    progress,
	}
	m.active = active
	m.cancelFn = cancel
	// Best-effort: a dropped start tick is recovered by the first progress
	// or terminal event, which carry the same generation stamp.
	select {
	case m.events <- Event{Generation: gen, Kind: EventStarted, Root: root}:
	default:
	}
	m.mu.Unlock()

	go m.run(scanCtx, active)

	slog.Info("scan started", "generation", gen, "root", root, "triggered_by", triggeredBy)
	return active, nil
}

// Cancel stops the currently running scan. Returns ErrNoActiveScan if idle.
func (m *Manager) Cancel() (*ActiveScan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active == nil {
		return nil, ErrNoActiveScan
	}

	snap := *m.active
	m.cancelFn()
	return &snap, nil
}

// Generation returns the latest generation handed out by Start. Events
// stamped with anything older belong to a superseded scan.
func (m *Manager) Generation() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.generation
}

// Active returns a snapshot of the running scan, or nil when idle.
func (m *Manager) Active() *ActiveScan {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return nil
	}
	snap := *m.active
	return &snap
}

// validateRoot checks the root up front so a bad path fails the
// generation before any traversal work is spawned.
func validateRoot(root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("scan root %q: %w", root, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("scan root %q: %w", root, ErrNotDirectory)
	}
	return nil
}

// failGeneration records an up-front failure and builds its terminal
// result. Caller holds m.mu and sends the terminal event after releasing
// it.
func (m *Manager) failGeneration(gen uint64, historyID int64, err error, startedAt time.Time) *Result {
	slog.Warn("scan rejected", "generation", gen, "error", err)
	res := &Result{
		Status:   StatusFailed,
		Err:      err,
		Duration: time.Since(startedAt),
	}
	if fErr := finaliseScanRecord(m.db, historyID, res, &Progress{}); fErr != nil {
		slog.Error("finalise scan record", "generation", gen, "error", fErr)
	}
	return res
}

// run is the scan goroutine for one generation. It owns the records slice
// exclusively until the terminal event hands it off.
func (m *Manager) run(ctx context.Context, active *ActiveScan) {
	defer m.clear(active.Generation)

	out := make(chan FileRecord, 1024)
	progress := active.Progress

	report := func(path, op, errMsg string) {
		progress.Skipped.Add(1)
		slog.Warn("scan: entry skipped", "path", path, "op", op, "error", errMsg)
	}

	go Walk(ctx, active.Root, m.cfg.Walkers, out, report)

	records := make([]FileRecord, 0, 1024)
	for rec := range out {
		records = append(records, rec)
		files := progress.FilesSeen.Add(1)
		bytes := progress.BytesSeen.Add(rec.SizeBytes)
		if files%int64(m.cfg.ProgressEvery) == 0 {
			m.emitProgress(active.Generation, active.Root, files, bytes)
		}
	}

	res := &Result{
		Status:   StatusCompleted,
		Records:  records,
		Skipped:  progress.Skipped.Load(),
		Duration: time.Since(active.StartedAt),
	}
	if ctx.Err() != nil {
		// A cancelled generation hands nothing off.
		res.Status = StatusCancelled
		res.Records = nil
	}

	if err := finaliseScanRecord(m.db, active.HistoryID, res, progress); err != nil {
		slog.Error("finalise scan record", "generation", active.Generation, "error", err)
	}

	slog.Info("scan finished",
		"generation", active.Generation,
		"status", res.Status,
		"files", progress.FilesSeen.Load(),
		"skipped", res.Skipped,
		"duration", res.Duration.Round(time.Millisecond))

	m.events <- Event{
		Generation: active.Generation,
		Kind:       EventDone,
		Root:       active.Root,
		Files:      progress.FilesSeen.Load(),
		Bytes:      progress.BytesSeen.Load(),
		Result:     res,
	}
}

// emitProgress sends a progress tick without blocking; a full buffer just
// drops the tick (counts are monotonic, the next one carries more). The
// root rides along so a consumer that missed the start tick still learns
// the scan's identity.
func (m *Manager) emitProgress(gen uint64, root string, files, bytes int64) {
	select {
	case m.events <- Event{Generation: gen, Kind: EventProgress, Root: root, Files: files, Bytes: bytes}:
	default:
	}
}

// clear releases the active slot if it still belongs to generation gen.
func (m *Manager) clear(gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active != nil && m.active.Generation == gen {
		m.active = nil
		m.cancelFn = nil
	}
}
