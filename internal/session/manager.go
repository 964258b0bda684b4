package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"interviewer/internal/config"
	"interviewer/internal/errors"

	"github.com/google/uuid"
)

// Archiver stores finished interviews. Save is called before the session
// documents are removed.
type Archiver interface {
	Save(ctx context.Context, snap Snapshot, endedAt time.Time) error
}

// ManagerStats summarises the live sessions
type ManagerStats struct {
	Active   int           `json:"active"`
	ByState  map[State]int `json:"byState"`
	Max      int           `json:"max"`
	Archived bool          `json:"archived"`
}

// Manager owns the live sessions. Each session is independent; the
// registry lock only guards the map.
type Manager struct {
	deps     Dependencies
	cfg      config.SessionConfig
	archiver Archiver
	logger   *errors.Logger

	mu       sync.RWMutex
	sessions map[string]*Session

	stopOnce sync.Once
	stop     chan struct{}
}

// ManagerOption configures a Manager
type ManagerOption func(*Manager)

// WithArchiver stores every started interview when it ends
func WithArchiver(a Archiver) ManagerOption {
	return func(m *Manager) {
		m.archiver = a
	}
}

// NewManager creates a session registry
func NewManager(deps Dependencies, cfg config.SessionConfig, opts ...ManagerOption) *Manager {
	if deps.Recorder == nil {
		deps.Recorder = noopRecorder{}
	}
	m := &Manager{
		deps:     deps,
		cfg:      cfg,
		logger:   deps.Logger,
		sessions: make(map[string]*Session),
		stop:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create starts a new session
func (m *Manager) Create() (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cfg.MaxSessions > 0 && len(m.sessions) >= m.cfg.MaxSessions {
		return nil, errors.NewValidationError(errors.ErrCodeSessionLimit,
			fmt.Sprintf("too many active sessions (max %d)", m.cfg.MaxSessions), nil)
	}

	s := New(uuid.NewString(), m.deps, m.cfg)
	m.sessions[s.ID()] = s
	m.deps.Recorder.RecordInterviewEvent(context.Background(), EventCreated, true)
	m.logger.Info("Session created", "session_id", s.ID(), "active_sessions", len(m.sessions))
	return s, nil
}

// Get returns a live session
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, errors.NewValidationError(errors.ErrCodeSessionNotFound,
			fmt.Sprintf("session %s not found", id), nil)
	}
	return s, nil
}

// End removes a session, archives it when it was started and closes it
func (m *Manager) End(ctx context.Context, id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	if !ok {
		return errors.NewValidationError(errors.ErrCodeSessionNotFound,
			fmt.Sprintf("session %s not found", id), nil)
	}
	m.finish(ctx, s)
	return nil
}

func (m *Manager) finish(ctx context.Context, s *Session) {
	if m.archiver != nil {
		snap := s.Snapshot()
		if snap.Started {
			if err := m.archiver.Save(ctx, snap, time.Now()); err != nil {
				m.logger.LogError(err, "Failed to archive interview", "session_id", s.ID())
			}
		}
	}
	s.Close()
}

// Len returns the number of live sessions
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Stats returns a summary of the live sessions
func (m *Manager) Stats() ManagerStats {
	m.mu.RLock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.RUnlock()

	stats := ManagerStats{
		Active:   len(sessions),
		ByState:  make(map[State]int),
		Max:      m.cfg.MaxSessions,
		Archived: m.archiver != nil,
	}
	for _, s := range sessions {
		stats.ByState[s.State()]++
	}
	return stats
}

// ReapIdle ends sessions without activity for longer than the idle
// timeout. Sessions with a running action are skipped.
func (m *Manager) ReapIdle(ctx context.Context, now time.Time) int {
	if m.cfg.IdleTimeout <= 0 {
		return 0
	}

	m.mu.Lock()
	var expired []*Session
	for id, s := range m.sessions {
		if !s.IsBusy() && now.Sub(s.LastActivity()) > m.cfg.IdleTimeout {
			expired = append(expired, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range expired {
		m.logger.Info("Ending idle session", "session_id", s.ID())
		m.finish(ctx, s)
	}
	return len(expired)
}

// StartReaper runs ReapIdle every reap interval until Shutdown
func (m *Manager) StartReaper() {
	interval := m.cfg.ReapInterval
	if interval <= 0 {
		interval = time.Minute
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-m.stop:
				return
			case now := <-ticker.C:
				if n := m.ReapIdle(context.Background(), now); n > 0 {
					m.logger.Debug("Idle sessions reaped", "count", n)
				}
			}
		}
	}()
}

// Shutdown stops the reaper and ends every live session
func (m *Manager) Shutdown(ctx context.Context) {
	m.stopOnce.Do(func() {
		close(m.stop)
	})

	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for id, s := range m.sessions {
		sessions = append(sessions, s)
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	for _, s := range sessions {
		m.finish(ctx, s)
	}
	m.logger.Info("Session manager stopped", "ended_sessions", len(sessions))
}
