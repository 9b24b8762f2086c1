// Package progress broadcasts long-running activity updates to
// connected WebSocket clients: scans, organize runs, strm generation
// and retries all report through the same manager.
package progress

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/strmforge/strmforge/internal/websocket"
)

// ActivityType identifies the type of activity being tracked.
type ActivityType string

const (
	ActivityTypeScan     ActivityType = "scan"
	ActivityTypeClassify ActivityType = "classify"
	ActivityTypeOrganize ActivityType = "organize"
	ActivityTypeSTRM     ActivityType = "strm"
	ActivityTypeRetry    ActivityType = "retry"
)

// Status represents the current state of an activity.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Activity represents a trackable activity with progress.
type Activity struct {
	ID          string                 `json:"id"`
	SessionID   string                 `json:"session_id"`
	Type        ActivityType           `json:"type"`
	Title       string                 `json:"title"`
	Subtitle    string                 `json:"subtitle"`
	Progress    int                    `json:"progress"` // 0-100, -1 for indeterminate
	Status      Status                 `json:"status"`
	StartedAt   time.Time              `json:"started_at"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// EventType identifies the type of progress event.
type EventType string

const (
	EventTypeStarted   EventType = "progress:started"
	EventTypeUpdate    EventType = "progress:update"
	EventTypeCompleted EventType = "progress:completed"
	EventTypeError     EventType = "progress:error"
)

// Manager tracks and broadcasts progress for all activities.
type Manager struct {
	hub        *websocket.Hub
	activities map[string]*Activity
	mu         sync.RWMutex
	logger     zerolog.Logger
}

// NewManager creates a new progress manager. hub may be nil in tests.
func NewManager(hub *websocket.Hub, logger zerolog.Logger) *Manager {
	return &Manager{
		hub:        hub,
		activities: make(map[string]*Activity),
		logger:     logger.With().Str("component", "progress").Logger(),
	}
}

// Start creates and starts tracking a new activity.
func (m *Manager) Start(id, sessionID string, activityType ActivityType, title string) *Activity {
	m.mu.Lock()
	defer m.mu.Unlock()

	activity := &Activity{
		ID:        id,
		SessionID: sessionID,
		Type:      activityType,
		Title:     title,
		Progress:  -1,
		Status:    StatusInProgress,
		StartedAt: time.Now(),
		Metadata:  make(map[string]interface{}),
	}

	m.activities[id] = activity
	m.broadcast(EventTypeStarted, activity)

	m.logger.Debug().
		Str("id", id).
		Str("type", string(activityType)).
		Str("title", title).
		Msg("activity started")
	return activity
}

// Update updates an existing activity's progress.
func (m *Manager) Update(id, subtitle string, progress int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	activity, exists := m.activities[id]
	if !exists {
		return
	}

	activity.Subtitle = subtitle
	activity.Progress = progress
	m.broadcast(EventTypeUpdate, activity)
}

// Complete marks an activity as completed and drops it from tracking
// after a grace period.
func (m *Manager) Complete(id, subtitle string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	activity, exists := m.activities[id]
	if !exists {
		return
	}

	now := time.Now()
	activity.Status = StatusCompleted
	activity.Progress = 100
	activity.Subtitle = subtitle
	activity.CompletedAt = &now

	m.broadcast(EventTypeCompleted, activity)
	go m.evictLater(id, 5*time.Second)

	m.logger.Debug().
		Str("id", id).
		Str("title", activity.Title).
		Msg("activity completed")
}

// Fail marks an activity as failed.
func (m *Manager) Fail(id, errorMsg string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	activity, exists := m.activities[id]
	if !exists {
		return
	}

	now := time.Now()
	activity.Status = StatusFailed
	activity.Subtitle = errorMsg
	activity.CompletedAt = &now
	activity.Metadata["error"] = errorMsg

	m.broadcast(EventTypeError, activity)
	go m.evictLater(id, 10*time.Second)

	m.logger.Debug().
		Str("id", id).
		Str("title", activity.Title).
		Str("error", errorMsg).
		Msg("activity failed")
}

// Get returns an activity by ID.
func (m *Manager) Get(id string) *Activity {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.activities[id]
}

// All returns every active activity.
func (m *Manager) All() []*Activity {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*Activity, 0, len(m.activities))
	for _, activity := range m.activities {
		result = append(result, activity)
	}
	return result
}

// BySession returns activities belonging to one session.
func (m *Manager) BySession(sessionID string) []*Activity {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*Activity, 0)
	for _, activity := range m.activities {
		if activity.SessionID == sessionID {
			result = append(result, activity)
		}
	}
	return result
}

func (m *Manager) evictLater(id string, after time.Duration) {
	time.Sleep(after)
	m.mu.Lock()
	delete(m.activities, id)
	m.mu.Unlock()
}

// broadcast sends an activity update to all connected clients.
// Callers hold the lock.
func (m *Manager) broadcast(eventType EventType, activity *Activity) {
	if m.hub == nil {
		return
	}
	m.hub.Broadcast(string(eventType), activity)
}
