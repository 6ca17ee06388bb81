package scan

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// dirQueue is an unbounded, concurrency-safe queue of directory paths.
// It tracks a pending counter so that Walk() knows when all work is done.
//
// Termination protocol:
//   - Push increments pending BEFORE enqueuing (caller must own the increment).
//   - Done decrements pending AFTER all children of a directory have been
//     pushed. When pending reaches 0, Done closes the queue and broadcasts.
type dirQueue struct {
	mu      sync.Mutex
	cond    *sync.Cond
	items   []string
	head    int // index of the next item to pop; avoids O(n) re-slicing
	pending atomic.Int64
	closed  bool
}

func newDirQueue() *dirQueue {
	q := &dirQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push enqueues a directory. Must be called after incrementing pending.
func (q *dirQueue) Push(dir string) {
	q.mu.Lock()
	q.items = append(q.items, dir)
	q.mu.Unlock()
	q.cond.Signal()
}

// Pop blocks until an item is available or the queue is closed.
// Returns ("", false) when the queue is closed and empty.
func (q *dirQueue) Pop() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.head >= len(q.items) && !q.closed {
		q.cond.Wait()
	}
	if q.head >= len(q.items) {
		return "", false
	}
	item := q.items[q.head]
	q.items[q.head] = "" // release string reference so GC can collect it
	q.head++
	// Compact when we've consumed at least 1 000 items and head has passed
	// the midpoint, so the backing array does not grow without bound.
	if q.head >= 1000 && q.head >= len(q.items)/2 {
		q.items = append(q.items[:0], q.items[q.head:]...)
		q.head = 0
	}
	return item, true
}

// Done must be called once per directory after all its child-directories have
// been pushed. Decrements pending; if pending reaches 0, closes the queue.
func (q *dirQueue) Done() {
	if q.pending.Add(-1) == 0 {
		q.mu.Lock()
		q.closed = true
		q.mu.Unlock()
		q.cond.Broadcast()
	}
}

// close force-closes the queue so blocked Pop calls return. Used on
// cancellation, where workers bail out without draining their pending work.
func (q *dirQueue) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.cond.Broadcast()
}

// Walk traverses root concurrently using workers goroutines and sends a
// FileRecord for every regular file it finds to out. Walk closes out when
// traversal finishes or ctx is cancelled.
//
// Symbolic links are followed one hop: a link whose target is a regular
// file is recorded, a link to a directory is never entered (avoids cycles).
// Unreadable directories and failed stats go through report and are
// otherwise ignored.
func Walk(ctx context.Context, root string, workers int, out chan<- FileRecord, report ErrorReporter) {
	defer close(out)

	q := newDirQueue()
	q.pending.Add(1)
	q.Push(root)

	g := &errgroup.Group{}
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			walkerWorker(ctx, q, out, report)
			return nil
		})
	}

	// Unblock workers parked in Pop once the context is gone.
	stop := context.AfterFunc(ctx, q.close)
	defer stop()

	_ = g.Wait() // workers never return an error
}

// walkerWorker pops directories from q, reads their entries, enqueues
// sub-directories (incrementing pending first), sends file records to out,
// then calls q.Done() to decrement pending.
func walkerWorker(ctx context.Context, q *dirQueue, out chan<- FileRecord, report ErrorReporter) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		dir, ok := q.Pop()
		if !ok {
			return
		}

		entries, err := os.ReadDir(dir)
		if err != nil {
			report(dir, "readdir", err.Error())
			q.Done()
			continue
		}

		for _, entry := range entries {
			path := filepath.Join(dir, entry.Name())

			if entry.IsDir() {
				// Increment BEFORE pushing so pending is never zero prematurely.
				q.pending.Add(1)
				q.Push(path)
				continue
			}

			rec, ok := statEntry(path, entry, report)
			if !ok {
				continue
			}

			select {
			case <-ctx.Done():
				q.Done()
				return
			case out <- rec:
			}
		}

		q.Done()
	}
}

// statEntry resolves a non-directory entry into a FileRecord. Symlinks are
// stat'ed through to their target; only regular-file targets produce a
// record.
func statEntry(path string, entry os.DirEntry, report ErrorReporter) (FileRecord, bool) {
	if entry.Type()&fs.ModeSymlink != 0 {
		info, err := os.Stat(path)
		if err != nil {
			report(path, "symlink", err.Error())
			return FileRecord{}, false
		}
		if !info.Mode().IsRegular() {
			// Symlinked directories are never entered.
			return FileRecord{}, false
		}
		return NewFileRecord(path, info.Size(), info.ModTime()), true
	}

	if !entry.Type().IsRegular() {
		return FileRecord{}, false
	}

	info, err := entry.Info()
	if err != nil {
		// Usually the file vanished between ReadDir and Info.
		report(path, "stat", err.Error())
		return FileRecord{}, false
	}
	return NewFileRecord(path, info.Size(), info.ModTime()), true
}
