package progress

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActivityLifecycle(t *testing.T) {
	m := NewManager(nil, zerolog.Nop())

	a := m.Start("act-1", "sess-1", ActivityTypeScan, "Scanning /anime")
	assert.Equal(t, StatusInProgress, a.Status)
	assert.Equal(t, -1, a.Progress)

	m.Update("act-1", "30 files", 50)
	got := m.Get("act-1")
	require.NotNil(t, got)
	assert.Equal(t, 50, got.Progress)
	assert.Equal(t, "30 files", got.Subtitle)

	m.Complete("act-1", "60 files found")
	got = m.Get("act-1")
	require.NotNil(t, got, "completed activities linger for late readers")
	assert.Equal(t, StatusCompleted, got.Status)
	assert.Equal(t, 100, got.Progress)
	assert.NotNil(t, got.CompletedAt)
}

func TestFailRecordsError(t *testing.T) {
	m := NewManager(nil, zerolog.Nop())
	m.Start("act-1", "sess-1", ActivityTypeSTRM, "Generating strm")
	m.Fail("act-1", "target unreachable")

	got := m.Get("act-1")
	require.NotNil(t, got)
	assert.Equal(t, StatusFailed, got.Status)
	assert.Equal(t, "target unreachable", got.Metadata["error"])
}

func TestBySession(t *testing.T) {
	m := NewManager(nil, zerolog.Nop())
	m.Start("a", "sess-1", ActivityTypeScan, "x")
	m.Start("b", "sess-2", ActivityTypeScan, "y")
	m.Start("c", "sess-1", ActivityTypeOrganize, "z")

	assert.Len(t, m.BySession("sess-1"), 2)
	assert.Len(t, m.BySession("sess-2"), 1)
	assert.Len(t, m.All(), 3)

	// unknown activity updates are ignored
	m.Update("missing", "noop", 1)
	m.Complete("missing", "noop")
	m.Fail("missing", "noop")
	assert.Nil(t, m.Get("missing"))
}
