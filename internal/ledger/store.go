package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS task_sightings (
    task_key        TEXT PRIMARY KEY,
    first_seen_date TEXT    NOT NULL,
    last_seen_date  TEXT    NOT NULL,
    total_days      INTEGER NOT NULL DEFAULT 0,
    created_at      DATETIME NOT NULL,
    updated_at      DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_task_sightings_last_seen
    ON task_sightings (last_seen_date);
`

// Store abstracts persistence for task sighting records. Implementations
// must be safe for concurrent use and apply each mutation atomically per
// task key.
type Store interface {
	Get(ctx context.Context, taskKey string) (*TaskRecord, error)
	Insert(ctx context.Context, rec *TaskRecord) error
	// Advance moves last_seen_date forward and optionally accrues one
	// working day. It must be a no-op when the stored last_seen_date is
	// already >= date, so concurrent invocations converge instead of
	// double-counting. Reports whether a row changed.
	Advance(ctx context.Context, taskKey, date string, accrue bool) (bool, error)
	DeleteLastSeenBefore(ctx context.Context, cutoff string) (int64, error)
	List(ctx context.Context) ([]TaskRecord, error)
}

// Open opens (creating if needed) the sqlite ledger database at path.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger database: %w", err)
	}
	// A single writer at a time keeps per-key updates atomic without
	// SQLITE_BUSY surprises from overlapping invocations.
	db.SetMaxOpenConns(1)
	return db, nil
}

// SQLStore is the sqlite-backed Store implementation.
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

// Init creates the schema if it does not exist yet.
func (s *SQLStore) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createTableSQL); err != nil {
		return fmt.Errorf("failed to create ledger schema: %w", err)
	}
	return nil
}

func (s *SQLStore) Get(ctx context.Context, taskKey string) (*TaskRecord, error) {
	q := `SELECT task_key, first_seen_date, last_seen_date, total_days, created_at, updated_at
		FROM task_sightings WHERE task_key = ?`

	rec := TaskRecord{}
	err := s.db.QueryRowContext(ctx, q, taskKey).Scan(
		&rec.TaskKey, &rec.FirstSeenDate, &rec.LastSeenDate,
		&rec.TotalDays, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read task record: %w", err)
	}
	return &rec, nil
}

func (s *SQLStore) Insert(ctx context.Context, rec *TaskRecord) error {
	now := time.Now().UTC()
	q := `INSERT INTO task_sightings
		(task_key, first_seen_date, last_seen_date, total_days, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, q,
		rec.TaskKey, rec.FirstSeenDate, rec.LastSeenDate, rec.TotalDays, now, now)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return ErrDuplicateKey
		}
		return fmt.Errorf("failed to insert task record: %w", err)
	}
	rec.CreatedAt = now
	rec.UpdatedAt = now
	return nil
}

func (s *SQLStore) Advance(ctx context.Context, taskKey, date string, accrue bool) (bool, error) {
	increment := 0
	if accrue {
		increment = 1
	}
	q := `UPDATE task_sightings
		SET last_seen_date = ?, total_days = total_days + ?, updated_at = ?
		WHERE task_key = ? AND last_seen_date < ?`

	res, err := s.db.ExecContext(ctx, q, date, increment, time.Now().UTC(), taskKey, date)
	if err != nil {
		return false, fmt.Errorf("failed to advance task record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n > 0, nil
}

func (s *SQLStore) DeleteLastSeenBefore(ctx context.Context, cutoff string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM task_sightings WHERE last_seen_date < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale task records: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n, nil
}

func (s *SQLStore) List(ctx context.Context) ([]TaskRecord, error) {
	q := `SELECT task_key, first_seen_date, last_seen_date, total_days, created_at, updated_at
		FROM task_sightings ORDER BY task_key`

	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to list task records: %w", err)
	}
	defer rows.Close()

	var records []TaskRecord
	for rows.Next() {
		var rec TaskRecord
		if err := rows.Scan(
			&rec.TaskKey, &rec.FirstSeenDate, &rec.LastSeenDate,
			&rec.TotalDays, &rec.CreatedAt, &rec.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan task record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
