package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Setting keys used by the auth layer.
const (
	SettingJWTSecret         = "auth.jwt_secret"
	SettingAdminPasswordHash = "auth.admin_password_hash"
)

// GetSetting returns a setting value, "" when unset.
func (db *DB) GetSetting(ctx context.Context, key string) (string, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key)

	var value string
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("get setting %s: %w", key, err)
	}
	return value, nil
}

// SetSetting upserts a setting value.
func (db *DB) SetSetting(ctx context.Context, key, value string) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		key, value)
	if err != nil {
		return fmt.Errorf("set setting %s: %w", key, err)
	}
	return nil
}
