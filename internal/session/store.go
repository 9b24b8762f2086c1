package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/strmforge/strmforge/internal/database"
)

// ErrNotFound is returned for unknown session IDs.
var ErrNotFound = errors.New("session not found")

// Store keeps session state in memory and snapshots it to the
// database. The database is the durable copy; the map is the working
// copy.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*State
	db       *database.DB
	logger   zerolog.Logger
}

// NewStore creates a store backed by db. db may be nil in tests.
func NewStore(db *database.DB, logger zerolog.Logger) *Store {
	return &Store{
		sessions: make(map[string]*State),
		db:       db,
		logger:   logger.With().Str("component", "session").Logger(),
	}
}

// Restore loads persisted sessions into memory, called once at
// startup.
func (s *Store) Restore(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	rows, err := s.db.LoadSessions(ctx)
	if err != nil {
		return fmt.Errorf("restore sessions: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range rows {
		state := NewState()
		if err := json.Unmarshal(row.State, state); err != nil {
			s.logger.Warn().Err(err).Str("session", row.ID).Msg("dropping unreadable session snapshot")
			continue
		}
		// connections do not survive a restart
		state.Source.Connected = false
		state.Target.Connected = false
		s.sessions[row.ID] = state
	}

	s.logger.Info().Int("sessions", len(s.sessions)).Msg("sessions restored")
	return nil
}

// Create registers a new session and returns its ID.
func (s *Store) Create(ctx context.Context) (string, error) {
	id := uuid.NewString()
	state := NewState()

	s.mu.Lock()
	s.sessions[id] = state
	s.mu.Unlock()

	if err := s.persist(ctx, id, state); err != nil {
		return "", err
	}

	s.logger.Info().Str("session", id).Msg("session created")
	return id, nil
}

// Get returns a copy-safe pointer to a session's state. Callers must
// not mutate it directly; use Update.
func (s *Store) Get(id string) (*State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return state, nil
}

// Update applies fn to a session's state under the write lock and
// persists the result.
func (s *Store) Update(ctx context.Context, id string, fn func(*State)) error {
	s.mu.Lock()
	state, ok := s.sessions[id]
	if !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	fn(state)
	s.mu.Unlock()

	return s.persist(ctx, id, state)
}

// Touch bumps the session's last-seen timestamp.
func (s *Store) Touch(ctx context.Context, id string) {
	if s.db == nil {
		return
	}
	if err := s.db.TouchSession(ctx, id); err != nil {
		s.logger.Warn().Err(err).Str("session", id).Msg("touch failed")
	}
}

// Delete removes a session from memory and the database.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return ErrNotFound
	}

	if s.db != nil {
		return s.db.DeleteSession(ctx, id)
	}
	return nil
}

// Sweep drops sessions idle beyond the store's ttl from both the
// database and memory. Returns the number removed.
func (s *Store) Sweep(ctx context.Context, ttl time.Duration) (int, error) {
	if s.db == nil {
		return 0, nil
	}
	expired, err := s.db.DeleteExpiredSessions(ctx, ttl)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	for _, id := range expired {
		delete(s.sessions, id)
	}
	s.mu.Unlock()

	if len(expired) > 0 {
		s.logger.Info().Int("expired", len(expired)).Msg("sessions swept")
	}
	return len(expired), nil
}

func (s *Store) persist(ctx context.Context, id string, state *State) error {
	if s.db == nil {
		return nil
	}

	s.mu.RLock()
	snapshot, err := json.Marshal(state)
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	if err := s.db.SaveSession(ctx, id, snapshot); err != nil {
		return err
	}
	return nil
}
