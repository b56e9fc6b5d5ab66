package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Entry is one issued rate command.
type Entry struct {
	ID           int64
	At           time.Time
	SessionID    string
	PreviousRate float64
	TargetRate   float64
	ObservedBPM  float64
	ReferenceBPM float64
	Drift        float64
}

// Store persists entries to SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates or connects to the journal database at path.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("journal path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure journal directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record appends an entry and returns its identifier. A zero At is replaced
// with the current time.
func (s *Store) Record(ctx context.Context, entry Entry) (int64, error) {
	if s == nil || s.db == nil {
		return 0, errors.New("journal is closed")
	}
	at := entry.At
	if at.IsZero() {
		at = time.Now()
	}
	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO adjustments (
            at, session_id, previous_rate, target_rate, observed_bpm, reference_bpm, drift
        ) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		at.UTC().Format(time.RFC3339Nano),
		nullableString(entry.SessionID),
		entry.PreviousRate,
		entry.TargetRate,
		entry.ObservedBPM,
		entry.ReferenceBPM,
		entry.Drift,
	)
	if err != nil {
		return 0, fmt.Errorf("insert adjustment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// Recent returns up to limit entries, newest first. A non-positive limit
// returns every entry.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	query := `SELECT id, at, session_id, previous_rate, target_rate, observed_bpm, reference_bpm, drift
        FROM adjustments ORDER BY id DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query adjustments: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			entry     Entry
			atRaw     string
			sessionID sql.NullString
		)
		if err := rows.Scan(
			&entry.ID,
			&atRaw,
			&sessionID,
			&entry.PreviousRate,
			&entry.TargetRate,
			&entry.ObservedBPM,
			&entry.ReferenceBPM,
			&entry.Drift,
		); err != nil {
			return nil, fmt.Errorf("scan adjustment: %w", err)
		}
		entry.SessionID = sessionID.String
		if at, err := time.Parse(time.RFC3339Nano, atRaw); err == nil {
			entry.At = at
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate adjustments: %w", err)
	}
	return entries, nil
}

// Count returns the number of recorded entries.
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM adjustments").Scan(&count); err != nil {
		return 0, fmt.Errorf("count adjustments: %w", err)
	}
	return count, nil
}

// Prune deletes entries recorded before cutoff and returns how many were removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM adjustments WHERE at < ?", cutoff.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("prune adjustments: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return removed, nil
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}
