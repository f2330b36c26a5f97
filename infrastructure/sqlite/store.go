// Package sqlite persists detection history
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"clipwatch/domain/matching"
	"clipwatch/domain/notification"
)

// Record is one persisted detection
type Record struct {
	ID         int64     `json:"id"`
	ClipName   string    `json:"clip_name"`
	StartTime  float64   `json:"start_time"`
	EndTime    float64   `json:"end_time"`
	DetectedAt time.Time `json:"detected_at"`
}

// Event returns the detection payload of the record
func (r Record) Event() matching.DetectionEvent {
	return matching.DetectionEvent{ClipName: r.ClipName, StartTime: r.StartTime, EndTime: r.EndTime}
}

// Store wraps the SQLite database connection with thread-safe access.
type Store struct {
	conn *sql.DB
	mu   sync.RWMutex
	now  func() time.Time
}

// Open creates and initializes the history database at path
func Open(path string) (*Store, error) {
	conn, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	s := &Store{conn: conn, now: time.Now}

	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS detections (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		clip_name TEXT NOT NULL,
		start_time REAL NOT NULL,
		end_time REAL NOT NULL,
		detected_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_detections_clip_name ON detections(clip_name);
	CREATE INDEX IF NOT EXISTS idx_detections_detected_at ON detections(detected_at);
	`

	_, err := s.conn.Exec(schema)
	return err
}

// Save persists one event
func (s *Store) Save(ctx context.Context, event matching.DetectionEvent) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := Record{
		ClipName:   event.ClipName,
		StartTime:  event.StartTime,
		EndTime:    event.EndTime,
		DetectedAt: s.now().UTC(),
	}

	res, err := s.conn.ExecContext(ctx,
		`INSERT INTO detections (clip_name, start_time, end_time, detected_at) VALUES (?, ?, ?, ?)`,
		rec.ClipName, rec.StartTime, rec.EndTime, rec.DetectedAt,
	)
	if err != nil {
		return Record{}, fmt.Errorf("failed to save detection: %w", err)
	}

	rec.ID, err = res.LastInsertId()
	if err != nil {
		return Record{}, fmt.Errorf("failed to read detection id: %w", err)
	}
	return rec, nil
}

// List returns the newest detections first, optionally filtered by clip name.
// A limit of zero or less returns every record.
func (s *Store) List(ctx context.Context, clip string, limit int) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT id, clip_name, start_time, end_time, detected_at FROM detections`
	var args []any
	if clip != "" {
		query += ` WHERE clip_name = ?`
		args = append(args, clip)
	}
	query += ` ORDER BY id DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query detections: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ID, &r.ClipName, &r.StartTime, &r.EndTime, &r.DetectedAt); err != nil {
			return nil, fmt.Errorf("failed to scan detection: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// Name implements notification.Sink
func (s *Store) Name() string {
	return "history"
}

// Send implements notification.Sink by persisting the event
func (s *Store) Send(ctx context.Context, event matching.DetectionEvent) error {
	_, err := s.Save(ctx, event)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

var (
	_ notification.Sink   = (*Store)(nil)
	_ notification.Closer = (*Store)(nil)
)
