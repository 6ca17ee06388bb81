package scan

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// History rows are operational telemetry only: timestamps, counters and the
// terminal status of each generation. The records themselves live in memory
// for the session and are never written to the database.

func insertScanRecord(db *sql.DB, generation uint64, root string, startedAt time.Time, triggeredBy string) (int64, error) {
	now := startedAt.Unix()
	res, err := db.Exec(`
		INSERT INTO scan_history
			(generation, root, started_at, status, triggered_by, created_at)
		VALUES (?, ?, ?, 'running', ?, ?)`,
		generation, root, now, triggeredBy, now)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func finaliseScanRecord(db *sql.DB, historyID int64, res *Result, p *Progress) error {
	var errMsg sql.NullString
	if res.Err != nil {
		errMsg = sql.NullString{String: res.Err.Error(), Valid: true}
	}
	_, err := db.Exec(`
		UPDATE scan_history
		SET status           = ?,
		    finished_at      = ?,
		    duration_seconds = ?,
		    files_seen       = ?,
		    bytes_seen       = ?,
		    skipped          = ?,
		    error            = ?
		WHERE id = ?`,
		string(res.Status),
		time.Now().Unix(),
		int64(res.Duration.Seconds()),
		p.FilesSeen.Load(),
		p.BytesSeen.Load(),
		p.Skipped.Load(),
		errMsg,
		historyID)
	return err
}

// MarkStaleScansFailed marks any scan_history rows still in 'running' state
// as 'failed'. This should be called once at startup in case a previous
// process crashed mid-scan.
func MarkStaleScansFailed(db *sql.DB) error {
	res, err := db.Exec(`
		UPDATE scan_history
		SET status = 'failed', finished_at = ?, error = 'interrupted by shutdown'
		WHERE status = 'running'`,
		time.Now().Unix())
	if err != nil {
		return fmt.Errorf("mark stale scans failed: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		slog.Warn("marked stale scans as failed", "count", n)
	}
	return nil
}
