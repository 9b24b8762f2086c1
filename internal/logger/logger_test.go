package logger

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureHub struct {
	mu       sync.Mutex
	messages []LogEntry
}

func (h *captureHub) Broadcast(msgType string, payload interface{}) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if entry, ok := payload.(LogEntry); ok {
		h.messages = append(h.messages, entry)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"debug", "debug"},
		{"warning", "warn"},
		{"nonsense", "info"},
		{"", "info"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseLevel(tt.in).String())
	}
}

func TestLogBroadcaster_StreamsAndBuffers(t *testing.T) {
	hub := &captureHub{}
	b := NewLogBroadcaster(hub, 10)

	_, err := b.Write([]byte(`{"time":"2024-01-01T00:00:00Z","level":"info","component":"storage","message":"hello","path":"/x"}`))
	require.NoError(t, err)

	logs := b.GetRecentLogs()
	require.Len(t, logs, 1)
	assert.Equal(t, "hello", logs[0].Message)
	assert.Equal(t, "storage", logs[0].Component)
	assert.Equal(t, "/x", logs[0].Fields["path"])

	require.Len(t, hub.messages, 1)
	assert.Equal(t, "info", hub.messages[0].Level)
}

func TestLogBroadcaster_RingOverwritesOldest(t *testing.T) {
	b := NewLogBroadcaster(nil, 3)
	for _, msg := range []string{"a", "b", "c", "d"} {
		b.Write([]byte(`{"level":"info","message":"` + msg + `"}`))
	}

	logs := b.GetRecentLogs()
	require.Len(t, logs, 3)
	assert.Equal(t, "b", logs[0].Message)
	assert.Equal(t, "d", logs[2].Message)
}

func TestLogBroadcaster_IgnoresMalformed(t *testing.T) {
	b := NewLogBroadcaster(nil, 3)
	n, err := b.Write([]byte("not json"))
	require.NoError(t, err)
	assert.Equal(t, len("not json"), n)
	assert.Empty(t, b.GetRecentLogs())
}

func TestNew_StreamingDisabledByDefault(t *testing.T) {
	log := New(Config{Level: "info"})
	defer log.Close()
	assert.Nil(t, log.Broadcaster())

	streaming := New(Config{Level: "info", Format: "json", EnableStreaming: true})
	defer streaming.Close()
	require.NotNil(t, streaming.Broadcaster())

	streaming.Info().Str("component", "test").Msg("ping")
	logs := streaming.Broadcaster().GetRecentLogs()
	require.Len(t, logs, 1)
	assert.Equal(t, "ping", logs[0].Message)
}
