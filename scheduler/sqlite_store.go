package scheduler

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/voicegraph/voicegraph/services/email"
)

// SQLiteJobStore is a JobStore backed by SQLite, so pending jobs survive a
// process restart.
//
// It expects an *sql.DB that uses a SQLite driver (for example,
// "modernc.org/sqlite"). The caller is responsible for importing the
// driver, e.g.:
//
//	import _ "modernc.org/sqlite"
type SQLiteJobStore struct {
	db *sql.DB
}

var _ JobStore = (*SQLiteJobStore)(nil)

// NewSQLiteJobStore initializes the required schema in the given database
// and returns a new SQLiteJobStore.
func NewSQLiteJobStore(db *sql.DB) (*SQLiteJobStore, error) {
	s := &SQLiteJobStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteJobStore) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS jobs (
			id TEXT PRIMARY KEY,
			params BLOB NOT NULL,
			scheduled_for TEXT NOT NULL,
			status TEXT NOT NULL,
			executed_at TEXT,
			created_at TEXT NOT NULL
		);`,
	)
	return err
}

func (s *SQLiteJobStore) Save(ctx context.Context, rec Record) error {
	params, err := json.Marshal(rec.Params)
	if err != nil {
		return fmt.Errorf("encode job params: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO jobs (id, params, scheduled_for, status, executed_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID,
		params,
		encodeTime(rec.ScheduledFor),
		string(rec.Status),
		encodeTimePtr(rec.ExecutedAt),
		encodeTime(rec.CreatedAt),
	)
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return ErrDuplicateJobID
	}
	return err
}

func (s *SQLiteJobStore) Update(ctx context.Context, rec Record) error {
	params, err := json.Marshal(rec.Params)
	if err != nil {
		return fmt.Errorf("encode job params: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE jobs
		SET params = ?, scheduled_for = ?, status = ?, executed_at = ?, created_at = ?
		WHERE id = ?`,
		params,
		encodeTime(rec.ScheduledFor),
		string(rec.Status),
		encodeTimePtr(rec.ExecutedAt),
		encodeTime(rec.CreatedAt),
		rec.ID,
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrJobNotFound
	}
	return nil
}

func (s *SQLiteJobStore) Get(ctx context.Context, id string) (Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, params, scheduled_for, status, executed_at, created_at
		FROM jobs WHERE id = ?`, id,
	)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrJobNotFound
	}
	return rec, err
}

func (s *SQLiteJobStore) ListPending(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, params, scheduled_for, status, executed_at, created_at
		FROM jobs WHERE status = ?`, string(StatusPending),
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	pending := make([]Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		pending = append(pending, rec)
	}
	return pending, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var (
		rec          Record
		params       []byte
		status       string
		scheduledFor string
		executedAt   sql.NullString
		createdAt    string
	)
	if err := row.Scan(&rec.ID, &params, &scheduledFor, &status, &executedAt, &createdAt); err != nil {
		return Record{}, err
	}

	var decoded email.Params
	if err := json.Unmarshal(params, &decoded); err != nil {
		return Record{}, fmt.Errorf("decode job params: %w", err)
	}
	rec.Params = decoded
	rec.Status = JobStatus(status)

	var err error
	if rec.ScheduledFor, err = decodeTime(scheduledFor); err != nil {
		return Record{}, err
	}
	if rec.CreatedAt, err = decodeTime(createdAt); err != nil {
		return Record{}, err
	}
	if executedAt.Valid {
		executed, err := decodeTime(executedAt.String)
		if err != nil {
			return Record{}, err
		}
		rec.ExecutedAt = &executed
	}
	return rec, nil
}

func encodeTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func encodeTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return encodeTime(*t)
}

func decodeTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("decode job timestamp %q: %w", s, err)
	}
	return t, nil
}
