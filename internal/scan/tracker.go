package scan

import (
	"context"
	"sync"
	"time"
)

// State is the consumer-visible phase of the scan lifecycle.
type State string

const (
	StateIdle      State = "idle"
	StateScanning  State = "scanning"
	StateCompleted State = "completed"
	StateCancelled State = "cancelled"
	StateFailed    State = "failed"
)

// Snapshot is an immutable view of the tracker's current state. Records is
// only populated when State == StateCompleted; the slice is the one handed
// off by the scan goroutine and must be treated as read-only.
type Snapshot struct {
	State      State
	Generation uint64
	Root       string
	Files      int64
	Bytes      int64
	Skipped    int64
	Records    []FileRecord
	Err        string
	Duration   time.Duration
	FinishedAt time.Time
}

// Tracker drains a Manager's event channel on its own goroutine and keeps
// the latest generation's state. Events stamped with an older generation
// than the newest one seen are discarded, which is what makes a superseded
// scan's late terminal event harmless.
type Tracker struct {
	mu     sync.RWMutex
	snap   Snapshot
	latest func() uint64
}

// NewTracker returns a Tracker in the idle state bound to m's generation
// counter. Call Run to start draining events.
func NewTracker(m *Manager) *Tracker {
	return &Tracker{
		snap:   Snapshot{State: StateIdle},
		latest: m.Generation,
	}
}

// Run consumes events until the channel closes or ctx is cancelled.
// It is the only writer to the tracker's state.
func (t *Tracker) Run(ctx context.Context, events <-chan Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			t.apply(ev)
		}
	}
}

// apply folds one event into the state, ignoring stale generations.
func (t *Tracker) apply(ev Event) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if ev.Generation < t.latest() || ev.Generation < t.snap.Generation {
		return // superseded scan unwinding late
	}

	switch ev.Kind {
	case EventStarted:
		t.snap = Snapshot{State: StateScanning, Generation: ev.Generation, Root: ev.Root}
	case EventProgress:
		// A progress tick from a generation we haven't seen start yet
		// still moves us to scanning; the previous generation's fields
		// must not leak into the new one.
		if ev.Generation != t.snap.Generation {
			t.snap = Snapshot{Generation: ev.Generation}
		}
		t.snap.State = StateScanning
		t.snap.Root = ev.Root
		t.snap.Files = ev.Files
		t.snap.Bytes = ev.Bytes
		t.snap.Records = nil
	case EventDone:
		res := ev.Result
		t.snap = Snapshot{
			Generation: ev.Generation,
			Root:       ev.Root,
			Files:      ev.Files,
			Bytes:      ev.Bytes,
			Skipped:    res.Skipped,
			Duration:   res.Duration,
			FinishedAt: time.Now(),
		}
		switch res.Status {
		case StatusCompleted:
			t.snap.State = StateCompleted
			t.snap.Records = res.Records
		case StatusCancelled:
			t.snap.State = StateCancelled
		case StatusFailed:
			t.snap.State = StateFailed
			if res.Err != nil {
				t.snap.Err = res.Err.Error()
			}
		}
	}
}

// Current returns the latest snapshot.
func (t *Tracker) Current() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snap
}

// CompletedRecords returns the record snapshot of the most recent completed
// scan, or (nil, 0, false) when no completed snapshot is available.
func (t *Tracker) CompletedRecords() ([]FileRecord, uint64, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.snap.State != StateCompleted {
		return nil, 0, false
	}
	return t.snap.Records, t.snap.Generation, true
}
