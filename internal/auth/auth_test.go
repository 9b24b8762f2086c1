package auth

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strmforge/strmforge/internal/database"
)

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate())
	return db
}

func TestPasswordLifecycle(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	svc, err := NewService(db, "test-secret")
	require.NoError(t, err)

	assert.False(t, svc.IsPasswordSet(ctx))
	assert.ErrorIs(t, svc.ValidatePassword(ctx, "x"), ErrNoPasswordSet)
	assert.ErrorIs(t, svc.SetPassword(ctx, ""), ErrPasswordRequired)

	require.NoError(t, svc.SetPassword(ctx, "hunter2"))
	assert.True(t, svc.IsPasswordSet(ctx))
	assert.NoError(t, svc.ValidatePassword(ctx, "hunter2"))
	assert.ErrorIs(t, svc.ValidatePassword(ctx, "wrong"), ErrInvalidCredentials)

	// update replaces the old password
	require.NoError(t, svc.SetPassword(ctx, "correct horse"))
	assert.ErrorIs(t, svc.ValidatePassword(ctx, "hunter2"), ErrInvalidCredentials)
	assert.NoError(t, svc.ValidatePassword(ctx, "correct horse"))
}

func TestLoginAndTokens(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	svc, err := NewService(db, "test-secret")
	require.NoError(t, err)
	require.NoError(t, svc.SetPassword(ctx, "hunter2"))

	_, err = svc.Login(ctx, "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	token, err := svc.Login(ctx, "hunter2")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "strmforge", claims.Issuer)

	_, err = svc.ValidateToken("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestGeneratedSecretPersists(t *testing.T) {
	db := newTestDB(t)

	first, err := NewService(db, "")
	require.NoError(t, err)
	token, err := first.GenerateToken()
	require.NoError(t, err)

	// a second service over the same database must validate tokens
	// issued by the first
	second, err := NewService(db, "")
	require.NoError(t, err)
	_, err = second.ValidateToken(token)
	assert.NoError(t, err)
}
