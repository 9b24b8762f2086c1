package session

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strmforge/strmforge/internal/database"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate())
	return NewStore(db, zerolog.Nop())
}

func TestUserConfigPatch(t *testing.T) {
	cfg := DefaultUserConfig()
	assert.Equal(t, "zh", cfg.NamingLanguage)
	assert.True(t, cfg.UseCopy)

	delay := 2 * time.Second
	lang := "en"
	UserConfigPatch{UploadDelay: &delay, NamingLanguage: &lang}.Apply(&cfg)
	assert.Equal(t, 2*time.Second, cfg.UploadDelay)
	assert.Equal(t, "en", cfg.NamingLanguage)
	assert.True(t, cfg.UseCopy, "unset fields unchanged")
	assert.Zero(t, cfg.ScanDelay)

	empty := ""
	UserConfigPatch{NamingLanguage: &empty}.Apply(&cfg)
	assert.Equal(t, "en", cfg.NamingLanguage, "empty string means unchanged")

	useCopy := false
	UserConfigPatch{UseCopy: &useCopy}.Apply(&cfg)
	assert.False(t, cfg.UseCopy)
}

func TestStoreLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.Create(ctx)
	require.NoError(t, err)

	state, err := store.Get(id)
	require.NoError(t, err)
	assert.Equal(t, "zh", state.Config.NamingLanguage)

	err = store.Update(ctx, id, func(s *State) {
		s.Source = StorageConfig{URL: "http://alist.local", Connected: true, Password: "pw"}
	})
	require.NoError(t, err)

	state, err = store.Get(id)
	require.NoError(t, err)
	assert.True(t, state.Source.Connected)

	require.NoError(t, store.Delete(ctx, id))
	_, err = store.Get(id)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.Delete(ctx, id), ErrNotFound)
}

func TestStoreRestore(t *testing.T) {
	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.Migrate())

	ctx := context.Background()
	store := NewStore(db, zerolog.Nop())
	id, err := store.Create(ctx)
	require.NoError(t, err)
	require.NoError(t, store.Update(ctx, id, func(s *State) {
		s.Source = StorageConfig{URL: "http://alist.local", Connected: true}
		s.Config.NamingLanguage = "en"
	}))

	// a second store over the same database plays the part of a
	// restarted process
	fresh := NewStore(db, zerolog.Nop())
	require.NoError(t, fresh.Restore(ctx))

	state, err := fresh.Get(id)
	require.NoError(t, err)
	assert.Equal(t, "en", state.Config.NamingLanguage)
	assert.Equal(t, "http://alist.local", state.Source.URL)
	assert.False(t, state.Source.Connected, "connections do not survive restarts")
}

func TestMaskedConfig(t *testing.T) {
	cfg := StorageConfig{URL: "http://x", Password: "secret"}
	masked := cfg.Masked()
	assert.Equal(t, "******", masked.Password)
	assert.Equal(t, "secret", cfg.Password, "original untouched")
	assert.Empty(t, StorageConfig{}.Masked().Password)
}
