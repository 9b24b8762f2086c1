package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate())
	return db
}

func TestSessionRoundTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.SaveSession(ctx, "s1", []byte(`{"foo":1}`)))

	row, err := db.LoadSession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", row.ID)
	assert.JSONEq(t, `{"foo":1}`, string(row.State))

	// upsert replaces state
	require.NoError(t, db.SaveSession(ctx, "s1", []byte(`{"foo":2}`)))
	row, err = db.LoadSession(ctx, "s1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"foo":2}`, string(row.State))

	_, err = db.LoadSession(ctx, "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestLoadSessions(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.SaveSession(ctx, "a", []byte(`{}`)))
	require.NoError(t, db.SaveSession(ctx, "b", []byte(`{}`)))

	sessions, err := db.LoadSessions(ctx)
	require.NoError(t, err)
	assert.Len(t, sessions, 2)
}

func TestDeleteExpiredSessions(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.SaveSession(ctx, "old", []byte(`{}`)))
	require.NoError(t, db.AddHistory(ctx, "old", "scan", "done"))

	// a negative ttl puts the cutoff in the future, expiring everything
	expired, err := db.DeleteExpiredSessions(ctx, -time.Minute)
	require.NoError(t, err)
	assert.Equal(t, []string{"old"}, expired)

	_, err = db.LoadSession(ctx, "old")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	history, err := db.ListHistory(ctx, "old", 0)
	require.NoError(t, err)
	assert.Empty(t, history, "history goes with the session")
}

func TestHistoryOrdering(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.AddHistory(ctx, "s1", "scan", "found 10 files"))
	require.NoError(t, db.AddHistory(ctx, "s1", "classify", "matched 8"))
	require.NoError(t, db.AddHistory(ctx, "other", "scan", "elsewhere"))

	entries, err := db.ListHistory(ctx, "s1", 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "classify", entries[0].Operation, "newest first")
	assert.Equal(t, "scan", entries[1].Operation)
}

func TestSettings(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	value, err := db.GetSetting(ctx, SettingJWTSecret)
	require.NoError(t, err)
	assert.Empty(t, value, "unset key reads as empty")

	require.NoError(t, db.SetSetting(ctx, SettingJWTSecret, "secret-1"))
	require.NoError(t, db.SetSetting(ctx, SettingJWTSecret, "secret-2"))

	value, err = db.GetSetting(ctx, SettingJWTSecret)
	require.NoError(t, err)
	assert.Equal(t, "secret-2", value)
}
