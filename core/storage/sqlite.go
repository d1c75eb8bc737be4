package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/villaops/dispatchd/core/model"
)

// SQLiteStore persists jobs, offers and notifications in a SQLite
// database. Documents are stored as JSON records with the fields used
// for filtering and conditional writes mirrored in indexed columns.
type SQLiteStore struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS jobs (
    id TEXT PRIMARY KEY,
    status TEXT NOT NULL,
    assigned_staff TEXT NOT NULL DEFAULT '',
    updated_ts INTEGER NOT NULL,
    record TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS offers (
    id TEXT PRIMARY KEY,
    job_id TEXT NOT NULL,
    status TEXT NOT NULL,
    attempt INTEGER NOT NULL,
    expires_ts INTEGER NOT NULL,
    record TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_offers_job ON offers(job_id);
CREATE INDEX IF NOT EXISTS idx_offers_status ON offers(status, expires_ts);
CREATE TABLE IF NOT EXISTS notifications (
    id TEXT PRIMARY KEY,
    offer_id TEXT NOT NULL,
    staff_id TEXT NOT NULL,
    status TEXT NOT NULL,
    sent_ts INTEGER NOT NULL,
    record TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_notifications_staff ON notifications(staff_id, sent_ts);
CREATE INDEX IF NOT EXISTS idx_notifications_offer ON notifications(offer_id);
`

// NewSQLiteStore opens or creates the database at path and ensures schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// Serialize writers; the CAS transitions rely on transactional
	// read-modify-write.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(sqliteSchema); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, fmt.Errorf("close db: %v (schema err: %w)", cerr, err)
		}
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// PutJob inserts or replaces the job record.
func (s *SQLiteStore) PutJob(ctx context.Context, j model.Job) error {
	if j.UpdatedAt.IsZero() {
		j.UpdatedAt = time.Now().UTC()
	}
	b, err := json.Marshal(j)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO jobs (id, status, assigned_staff, updated_ts, record) VALUES (?, ?, ?, ?, ?)`,
		j.ID, string(j.Status), j.AssignedStaffID, j.UpdatedAt.UnixNano(), string(b))
	return err
}

// GetJob returns the job with the given id.
func (s *SQLiteStore) GetJob(ctx context.Context, id string) (model.Job, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT record FROM jobs WHERE id = ?`, id).Scan(&data)
	if err == sql.ErrNoRows {
		return model.Job{}, ErrNotFound
	}
	if err != nil {
		return model.Job{}, err
	}
	var j model.Job
	if err := json.Unmarshal([]byte(data), &j); err != nil {
		return model.Job{}, fmt.Errorf("unmarshal job: %w", err)
	}
	return j, nil
}

// TransitionJob implements the conditional status transition.
func (s *SQLiteStore) TransitionJob(ctx context.Context, id string, from, to model.JobStatus, assignee string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var data string
	err = tx.QueryRowContext(ctx, `SELECT record FROM jobs WHERE id = ?`, id).Scan(&data)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	var j model.Job
	if err := json.Unmarshal([]byte(data), &j); err != nil {
		return fmt.Errorf("unmarshal job: %w", err)
	}
	if j.Status != from {
		return ErrConflict
	}
	j.Status = to
	if assignee != "" {
		j.AssignedStaffID = assignee
	}
	j.UpdatedAt = time.Now().UTC()
	b, err := json.Marshal(j)
	if err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE jobs SET status = ?, assigned_staff = ?, updated_ts = ?, record = ? WHERE id = ? AND status = ?`,
		string(to), j.AssignedStaffID, j.UpdatedAt.UnixNano(), string(b), id, string(from))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrConflict
	}
	return tx.Commit()
}

// ListJobs returns all jobs.
func (s *SQLiteStore) ListJobs(ctx context.Context) ([]model.Job, error) {
	return s.queryJobs(ctx, `SELECT record FROM jobs ORDER BY updated_ts`)
}

// JobsUpdatedSince returns jobs modified after the given instant.
func (s *SQLiteStore) JobsUpdatedSince(ctx context.Context, since time.Time) ([]model.Job, error) {
	return s.queryJobs(ctx, `SELECT record FROM jobs WHERE updated_ts > ? ORDER BY updated_ts`, since.UnixNano())
}

func (s *SQLiteStore) queryJobs(ctx context.Context, query string, args ...any) ([]model.Job, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []model.Job
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var j model.Job
		if err := json.Unmarshal([]byte(data), &j); err != nil {
			return nil, fmt.Errorf("unmarshal job: %w", err)
		}
		res = append(res, j)
	}
	return res, rows.Err()
}

// OpenJobCount counts non-terminal jobs assigned to the staff member.
func (s *SQLiteStore) OpenJobCount(ctx context.Context, staffID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM jobs WHERE assigned_staff = ? AND status NOT IN ('completed', 'cancelled')`,
		staffID).Scan(&n)
	return n, err
}

// CreateOpenOffer inserts the offer unless the job already has one open.
func (s *SQLiteStore) CreateOpenOffer(ctx context.Context, o model.Offer) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var n int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM offers WHERE job_id = ? AND status = 'open'`, o.JobID).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return ErrConflict
	}
	b, err := json.Marshal(o)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO offers (id, job_id, status, attempt, expires_ts, record) VALUES (?, ?, ?, ?, ?, ?)`,
		o.ID, o.JobID, string(o.Status), o.AttemptNumber, o.ExpiresAt.UnixNano(), string(b)); err != nil {
		return err
	}
	return tx.Commit()
}

// GetOffer returns the offer with the given id.
func (s *SQLiteStore) GetOffer(ctx context.Context, id string) (model.Offer, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT record FROM offers WHERE id = ?`, id).Scan(&data)
	if err == sql.ErrNoRows {
		return model.Offer{}, ErrNotFound
	}
	if err != nil {
		return model.Offer{}, err
	}
	var o model.Offer
	if err := json.Unmarshal([]byte(data), &o); err != nil {
		return model.Offer{}, fmt.Errorf("unmarshal offer: %w", err)
	}
	return o, nil
}

// TransitionOffer implements the conditional status transition.
func (s *SQLiteStore) TransitionOffer(ctx context.Context, id string, from, to model.OfferStatus, acceptedBy string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var data string
	err = tx.QueryRowContext(ctx, `SELECT record FROM offers WHERE id = ?`, id).Scan(&data)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	var o model.Offer
	if err := json.Unmarshal([]byte(data), &o); err != nil {
		return fmt.Errorf("unmarshal offer: %w", err)
	}
	if o.Status != from {
		return ErrConflict
	}
	o.Status = to
	if acceptedBy != "" {
		o.AcceptedBy = acceptedBy
	}
	b, err := json.Marshal(o)
	if err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE offers SET status = ?, record = ? WHERE id = ? AND status = ?`,
		string(to), string(b), id, string(from))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrConflict
	}
	return tx.Commit()
}

// DueOffers returns open offers past their expiry.
func (s *SQLiteStore) DueOffers(ctx context.Context, now time.Time) ([]model.Offer, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT record FROM offers WHERE status = 'open' AND expires_ts <= ? ORDER BY expires_ts`,
		now.UnixNano())
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []model.Offer
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var o model.Offer
		if err := json.Unmarshal([]byte(data), &o); err != nil {
			return nil, fmt.Errorf("unmarshal offer: %w", err)
		}
		res = append(res, o)
	}
	return res, rows.Err()
}

// LastAttempt returns the highest attempt number recorded for the job.
func (s *SQLiteStore) LastAttempt(ctx context.Context, jobID string) (int, error) {
	var n sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT MAX(attempt) FROM offers WHERE job_id = ?`, jobID).Scan(&n)
	if err != nil {
		return 0, err
	}
	return int(n.Int64), nil
}

// AddNotification appends a notification record.
func (s *SQLiteStore) AddNotification(ctx context.Context, n model.OfferNotification) error {
	b, err := json.Marshal(n)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO notifications (id, offer_id, staff_id, status, sent_ts, record) VALUES (?, ?, ?, ?, ?, ?)`,
		n.ID, n.OfferID, n.StaffID, string(n.Status), n.SentAt.UnixNano(), string(b))
	return err
}

// MarkRead records the read timestamp on a notification.
func (s *SQLiteStore) MarkRead(ctx context.Context, id string, at time.Time) error {
	return s.updateNotification(ctx, `id = ?`, []any{id}, func(n *model.OfferNotification) {
		n.Status = model.NotificationRead
		t := at
		n.ReadAt = &t
	})
}

// SupersedeOffer marks the losing staff's notifications superseded.
func (s *SQLiteStore) SupersedeOffer(ctx context.Context, offerID, winnerStaffID string) (int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM notifications WHERE offer_id = ? AND staff_id != ? AND status != 'superseded'`,
		offerID, winnerStaffID)
	if err != nil {
		return 0, err
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return 0, err
		}
		ids = append(ids, id)
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}
	for _, id := range ids {
		if err := s.updateNotification(ctx, `id = ?`, []any{id}, func(n *model.OfferNotification) {
			n.Status = model.NotificationSuperseded
		}); err != nil {
			return 0, err
		}
	}
	return len(ids), nil
}

// NotificationsForStaff returns notifications sent to the staff member
// after the given instant.
func (s *SQLiteStore) NotificationsForStaff(ctx context.Context, staffID string, since time.Time) ([]model.OfferNotification, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT record FROM notifications WHERE staff_id = ? AND sent_ts > ? ORDER BY sent_ts`,
		staffID, since.UnixNano())
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []model.OfferNotification
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var n model.OfferNotification
		if err := json.Unmarshal([]byte(data), &n); err != nil {
			return nil, fmt.Errorf("unmarshal notification: %w", err)
		}
		res = append(res, n)
	}
	return res, rows.Err()
}

func (s *SQLiteStore) updateNotification(ctx context.Context, where string, args []any, mutate func(*model.OfferNotification)) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var data string
	err = tx.QueryRowContext(ctx, `SELECT record FROM notifications WHERE `+where, args...).Scan(&data)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	var n model.OfferNotification
	if err := json.Unmarshal([]byte(data), &n); err != nil {
		return fmt.Errorf("unmarshal notification: %w", err)
	}
	mutate(&n)
	b, err := json.Marshal(n)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE notifications SET status = ?, record = ? WHERE id = ?`,
		string(n.Status), string(b), n.ID); err != nil {
		return err
	}
	return tx.Commit()
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error { return s.db.Close() }
