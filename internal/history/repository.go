package history

import (
	"context"
	"database/sql"
	"time"
)

type Repository interface {
	CreateSession(ctx context.Context, s *Session) error
	GetSession(ctx context.Context, id string) (*Session, error)
	ListSessions(ctx context.Context, limit int) ([]*Session, error)
	EndSession(ctx context.Context, id string, at time.Time) error

	UpsertSessionCount(ctx context.Context, sessionID, exercise string, count int, at time.Time) error
	GetSessionCounts(ctx context.Context, sessionID string) ([]*SessionCount, error)

	GetConfig(ctx context.Context, key string) (string, error)
	SetConfig(ctx context.Context, key, value string) error
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) CreateSession(ctx context.Context, s *Session) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (id, source, started_at) VALUES (?, ?, ?)
	`, s.ID, s.Source, s.StartedAt.UTC().Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) GetSession(ctx context.Context, id string) (*Session, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, source, started_at, ended_at FROM sessions WHERE id = ?
	`, id)
	return scanSession(row)
}

func scanSession(row *sql.Row) (*Session, error) {
	var s Session
	var startedAt string
	var endedAt sql.NullString

	err := row.Scan(&s.ID, &s.Source, &startedAt, &endedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	s.StartedAt, _ = time.Parse(time.RFC3339, startedAt)
	if endedAt.Valid {
		t, _ := time.Parse(time.RFC3339, endedAt.String)
		s.EndedAt = &t
	}
	return &s, nil
}

func (r *SQLiteRepository) ListSessions(ctx context.Context, limit int) ([]*Session, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, source, started_at, ended_at
		FROM sessions ORDER BY started_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		var s Session
		var startedAt string
		var endedAt sql.NullString

		if err := rows.Scan(&s.ID, &s.Source, &startedAt, &endedAt); err != nil {
			return nil, err
		}
		s.StartedAt, _ = time.Parse(time.RFC3339, startedAt)
		if endedAt.Valid {
			t, _ := time.Parse(time.RFC3339, endedAt.String)
			s.EndedAt = &t
		}
		sessions = append(sessions, &s)
	}
	return sessions, rows.Err()
}

func (r *SQLiteRepository) EndSession(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET ended_at = ? WHERE id = ? AND ended_at IS NULL
	`, at.UTC().Format(time.RFC3339), id)
	return err
}

func (r *SQLiteRepository) UpsertSessionCount(ctx context.Context, sessionID, exercise string, count int, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO session_counts (session_id, exercise, count, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(session_id, exercise) DO UPDATE SET
			count = excluded.count,
			updated_at = excluded.updated_at
	`, sessionID, exercise, count, at.UTC().Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) GetSessionCounts(ctx context.Context, sessionID string) ([]*SessionCount, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT session_id, exercise, count, updated_at
		FROM session_counts WHERE session_id = ? ORDER BY exercise
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []*SessionCount
	for rows.Next() {
		var c SessionCount
		var updatedAt string
		if err := rows.Scan(&c.SessionID, &c.Exercise, &c.Count, &updatedAt); err != nil {
			return nil, err
		}
		c.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		counts = append(counts, &c)
	}
	return counts, rows.Err()
}

func (r *SQLiteRepository) GetConfig(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, "SELECT value FROM config WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

func (r *SQLiteRepository) SetConfig(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}
