package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrSessionNotFound is returned when a session row does not exist.
var ErrSessionNotFound = errors.New("session not found")

// SessionRow is a persisted session snapshot.
type SessionRow struct {
	ID        string
	State     []byte // JSON snapshot
	CreatedAt time.Time
	LastSeen  time.Time
}

// SaveSession upserts a session snapshot and bumps its last-seen time.
func (db *DB) SaveSession(ctx context.Context, id string, state []byte) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO sessions (id, state, last_seen) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET state = excluded.state, last_seen = CURRENT_TIMESTAMP`,
		id, string(state))
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// TouchSession bumps a session's last-seen time without rewriting state.
func (db *DB) TouchSession(ctx context.Context, id string) error {
	_, err := db.conn.ExecContext(ctx,
		`UPDATE sessions SET last_seen = CURRENT_TIMESTAMP WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	return nil
}

// LoadSession returns one session snapshot.
func (db *DB) LoadSession(ctx context.Context, id string) (*SessionRow, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT id, state, created_at, last_seen FROM sessions WHERE id = ?`, id)

	var s SessionRow
	var state string
	if err := row.Scan(&s.ID, &state, &s.CreatedAt, &s.LastSeen); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	s.State = []byte(state)
	return &s, nil
}

// LoadSessions returns every persisted session, used to rehydrate the
// in-memory store at startup.
func (db *DB) LoadSessions(ctx context.Context) ([]SessionRow, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, state, created_at, last_seen FROM sessions ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("load sessions: %w", err)
	}
	defer rows.Close()

	var sessions []SessionRow
	for rows.Next() {
		var s SessionRow
		var state string
		if err := rows.Scan(&s.ID, &state, &s.CreatedAt, &s.LastSeen); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		s.State = []byte(state)
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// DeleteSession removes one session and its history.
func (db *DB) DeleteSession(ctx context.Context, id string) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM history WHERE session_id = ?`, id); err != nil {
		return fmt.Errorf("delete session history: %w", err)
	}
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions removes sessions idle longer than ttl and
// returns their IDs.
func (db *DB) DeleteExpiredSessions(ctx context.Context, ttl time.Duration) ([]string, error) {
	// CURRENT_TIMESTAMP stores "YYYY-MM-DD HH:MM:SS" in UTC; compare
	// against the same shape
	cutoff := time.Now().Add(-ttl).UTC().Format("2006-01-02 15:04:05")

	rows, err := db.conn.QueryContext(ctx,
		`SELECT id FROM sessions WHERE last_seen < ?`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("find expired sessions: %w", err)
	}
	var expired []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan expired session: %w", err)
		}
		expired = append(expired, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, id := range expired {
		if err := db.DeleteSession(ctx, id); err != nil {
			return nil, err
		}
	}
	return expired, nil
}
