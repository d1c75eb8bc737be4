package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteLog persists audit events to a SQLite database.
type SQLiteLog struct {
	db *sql.DB
}

// NewSQLiteLog opens or creates the database at path and ensures schema.
func NewSQLiteLog(path string) (*SQLiteLog, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	schema := `CREATE TABLE IF NOT EXISTS audit_events (
        seq INTEGER PRIMARY KEY AUTOINCREMENT,
        id TEXT NOT NULL,
        ts INTEGER NOT NULL,
        event_type TEXT NOT NULL,
        job_id TEXT,
        offer_id TEXT,
        record TEXT NOT NULL
    );
    CREATE INDEX IF NOT EXISTS idx_audit_job ON audit_events(job_id);
    CREATE INDEX IF NOT EXISTS idx_audit_offer ON audit_events(offer_id);`
	if _, err := db.Exec(schema); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, fmt.Errorf("close db: %v (schema err: %w)", cerr, err)
		}
		return nil, err
	}
	return &SQLiteLog{db: db}, nil
}

// Append writes the event and returns its assigned id. The timestamp is
// assigned on write when the caller left it zero.
func (s *SQLiteLog) Append(ctx context.Context, ev Event) (string, error) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	b, err := json.Marshal(ev)
	if err != nil {
		return "", err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO audit_events (id, ts, event_type, job_id, offer_id, record) VALUES (?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.Timestamp.UnixNano(), string(ev.Type), ev.JobID, ev.OfferID, string(b))
	if err != nil {
		return "", err
	}
	return ev.ID, nil
}

// Query returns events matching q in append order.
func (s *SQLiteLog) Query(ctx context.Context, q Query) ([]Event, error) {
	var args []any
	query := `SELECT record FROM audit_events WHERE 1=1`
	if q.JobID != "" {
		query += ` AND job_id = ?`
		args = append(args, q.JobID)
	}
	if q.OfferID != "" {
		query += ` AND offer_id = ?`
		args = append(args, q.OfferID)
	}
	if q.Type != "" {
		query += ` AND event_type = ?`
		args = append(args, string(q.Type))
	}
	if !q.Start.IsZero() {
		query += ` AND ts >= ?`
		args = append(args, q.Start.UnixNano())
	}
	if !q.End.IsZero() {
		query += ` AND ts <= ?`
		args = append(args, q.End.UnixNano())
	}
	if q.Desc {
		query += ` ORDER BY seq DESC`
	} else {
		query += ` ORDER BY seq`
	}
	if q.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, q.Limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []Event
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var ev Event
		if err := json.Unmarshal([]byte(data), &ev); err != nil {
			return nil, fmt.Errorf("unmarshal event: %w", err)
		}
		res = append(res, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// Close closes the underlying database.
func (s *SQLiteLog) Close() error { return s.db.Close() }
