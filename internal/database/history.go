package database

import (
	"context"
	"fmt"
	"time"
)

// HistoryRow is one operation history entry.
type HistoryRow struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	Operation string    `json:"operation"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// AddHistory records an operation against a session.
func (db *DB) AddHistory(ctx context.Context, sessionID, operation, message string) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO history (session_id, operation, message) VALUES (?, ?, ?)`,
		sessionID, operation, message)
	if err != nil {
		return fmt.Errorf("add history: %w", err)
	}
	return nil
}

// ListHistory returns a session's history, newest first.
func (db *DB) ListHistory(ctx context.Context, sessionID string, limit int) ([]HistoryRow, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, session_id, operation, message, created_at
		FROM history WHERE session_id = ?
		ORDER BY id DESC LIMIT ?`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var entries []HistoryRow
	for rows.Next() {
		var h HistoryRow
		if err := rows.Scan(&h.ID, &h.SessionID, &h.Operation, &h.Message, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		entries = append(entries, h)
	}
	return entries, rows.Err()
}
