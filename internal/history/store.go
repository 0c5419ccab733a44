// Package history persists quota snapshots to SQLite so the dashboard can
// show a short usage trend and `quotamon history` can list past readings.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"quotamon/internal/logging"
	"quotamon/internal/quota"
)

// Entry is one stored snapshot row.
type Entry struct {
	TakenAt     time.Time
	FiveHourPct float64
	SevenDayPct float64
	PlanType    string
}

// Store wraps the snapshot database.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Open initializes the database at the given path, creating parent
// directories and the schema as needed.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS snapshots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		taken_at INTEGER NOT NULL,
		five_hour_pct REAL NOT NULL,
		seven_day_pct REAL NOT NULL,
		plan_type TEXT NOT NULL DEFAULT 'pro'
	);
	CREATE INDEX IF NOT EXISTS idx_snapshots_taken_at ON snapshots(taken_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record inserts a snapshot.
func (s *Store) Record(snap *quota.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`INSERT INTO snapshots (taken_at, five_hour_pct, seven_day_pct, plan_type) VALUES (?, ?, ?, ?)`,
		snap.TakenAt.Unix(), snap.FiveHourUsagePct, snap.SevenDayUsagePct, snap.PlanType,
	)
	if err != nil {
		return fmt.Errorf("record snapshot: %w", err)
	}
	logging.Get(logging.CategoryHistory).Debug("recorded snapshot 5h=%.0f%% 7d=%.0f%%",
		snap.FiveHourUsagePct, snap.SevenDayUsagePct)
	return nil
}

// Recent returns up to n snapshots, newest first.
func (s *Store) Recent(n int) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(
		`SELECT taken_at, five_hour_pct, seven_day_pct, plan_type
		 FROM snapshots ORDER BY taken_at DESC, id DESC LIMIT ?`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var unix int64
		if err := rows.Scan(&unix, &e.FiveHourPct, &e.SevenDayPct, &e.PlanType); err != nil {
			return nil, err
		}
		e.TakenAt = time.Unix(unix, 0)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

var sparkBlocks = []rune("▁▂▃▄▅▆▇█")

// Sparkline renders the five-hour usage series of the last n snapshots as
// unicode blocks, oldest to newest. Empty when there is no history.
func (s *Store) Sparkline(n int) (string, error) {
	entries, err := s.Recent(n)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "", nil
	}

	var sb strings.Builder
	for i := len(entries) - 1; i >= 0; i-- {
		pct := entries[i].FiveHourPct
		if pct < 0 {
			pct = 0
		}
		if pct > 100 {
			pct = 100
		}
		idx := int(pct / 100 * float64(len(sparkBlocks)-1))
		sb.WriteRune(sparkBlocks[idx])
	}
	return sb.String(), nil
}

// Prune deletes snapshots older than the cutoff and reports rows removed.
func (s *Store) Prune(olderThan time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`DELETE FROM snapshots WHERE taken_at < ?`, olderThan.Unix())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
