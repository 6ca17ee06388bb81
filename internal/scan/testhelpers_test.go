package scan

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	internaldb "github.com/foldermap/foldermap/internal/db"
)

// mustOpenDB opens a temp file SQLite database with the full schema applied.
func mustOpenDB(tb testing.TB) *sql.DB {
	tb.Helper()
	dbPath := filepath.Join(tb.TempDir(), "test.db")
	db, err := internaldb.Open(dbPath)
	if err != nil {
		tb.Fatalf("open test DB: %v", err)
	}
	if err := internaldb.RunMigrations(db); err != nil {
		db.Close()
		tb.Fatalf("run migrations: %v", err)
	}
	tb.Cleanup(func() { db.Close() })
	return db
}

// noErrors is an ErrorReporter that fails the test if invoked.
func noErrors(tb testing.TB) ErrorReporter {
	return func(path, op, errMsg string) {
		tb.Errorf("unexpected scan error: path=%q op=%q err=%q", path, op, errMsg)
	}
}

// createTree builds a directory tree with numFiles small files spread over
// subdirectories, returning the set of expected absolute paths.
func createTree(tb testing.TB, root string, numFiles int) map[string]struct{} {
	tb.Helper()
	want := make(map[string]struct{}, numFiles)
	for i := 0; i < numFiles; i++ {
		subdir := filepath.Join(root, fmt.Sprintf("dir%03d", i/50))
		if err := os.MkdirAll(subdir, 0755); err != nil {
			tb.Fatalf("mkdir %q: %v", subdir, err)
		}
		p := filepath.Join(subdir, fmt.Sprintf("file%04d.txt", i))
		if err := os.WriteFile(p, []byte(fmt.Sprintf("%d", i)), 0644); err != nil {
			tb.Fatalf("write %q: %v", p, err)
		}
		want[p] = struct{}{}
	}
	return want
}

// waitDone drains events until the terminal event for generation gen
// arrives, returning its Result. Events from other generations are
// discarded.
func waitDone(tb testing.TB, events <-chan Event, gen uint64) *Result {
	tb.Helper()
	deadline := time.After(10 * time.Second)
	for {
		select {
		case ev := <-events:
			if ev.Kind == EventDone && ev.Generation == gen {
				return ev.Result
			}
		case <-deadline:
			tb.Fatalf("no terminal event for generation %d within 10s", gen)
			return nil
		}
	}
}
