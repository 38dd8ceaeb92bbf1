package terminal

import (
	"errors"
	"sync"

	"go.uber.org/zap"
)

// Single is a facade over a Manager that keeps at most one live session.
// Spawning replaces the current session.
type Single struct {
	m         *Manager
	onRestart func()

	mu      sync.Mutex
	current SessionID
}

// NewSingle wraps m. onRestart, if set, runs after the previous session is
// closed and before the replacement starts, so per-session state such as a
// parser can be reset.
func NewSingle(m *Manager, onRestart func()) *Single {
	return &Single{m: m, onRestart: onRestart}
}

// Spawn closes the current session, if any, and starts a new one.
func (s *Single) Spawn(req SpawnRequest, sink Sink) (SessionID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != 0 {
		if err := s.m.Close(s.current); err != nil && !errors.Is(err, ErrNotFound) {
			s.m.logger.Warn("closing previous session failed",
				zap.Uint32("session_id", uint32(s.current)), zap.Error(err))
		}
		s.current = 0
	}
	if s.onRestart != nil {
		s.onRestart()
	}

	id, err := s.m.Spawn(req, sink)
	if err != nil {
		return 0, err
	}
	s.current = id
	return id, nil
}

// Current returns the active session ID. It reports false once the session
// has exited or been closed.
func (s *Single) Current() (SessionID, bool) {
	s.mu.Lock()
	id := s.current
	s.mu.Unlock()

	if id == 0 {
		return 0, false
	}
	if _, err := s.m.lookup(id); err != nil {
		return 0, false
	}
	return id, true
}

func (s *Single) Write(p []byte) error {
	id, ok := s.Current()
	if !ok {
		return ErrNotFound
	}
	return s.m.Write(id, p)
}

func (s *Single) Resize(cols, rows uint16) error {
	id, ok := s.Current()
	if !ok {
		return ErrNotFound
	}
	return s.m.Resize(id, cols, rows)
}

// Close terminates the active session.
func (s *Single) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == 0 {
		return ErrNotFound
	}
	id := s.current
	s.current = 0
	return s.m.Close(id)
}
