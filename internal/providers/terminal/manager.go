package terminal

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/GriffinCanCode/oneterm/internal/providers/environment"
	"go.uber.org/zap"
)

// Close reasons reported to the Observer.
const (
	ReasonClosed   = "closed"
	ReasonExited   = "exited"
	ReasonShutdown = "shutdown"
)

const (
	defaultCols = 80
	defaultRows = 24
)

// Observer is notified of table changes. Calls happen outside the table lock.
type Observer interface {
	SessionOpened(id SessionID)
	SessionClosed(id SessionID, reason string)
}

type nopObserver struct{}

func (nopObserver) SessionOpened(SessionID)         {}
func (nopObserver) SessionClosed(SessionID, string) {}

// Defaults fill in zero fields of a SpawnRequest.
type Defaults struct {
	Shell      string
	WorkingDir string
	Cols       uint16
	Rows       uint16
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger. A nil logger disables logging.
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithResolver sets the environment resolver used for shells and PATH.
func WithResolver(r environment.Resolver) Option {
	return func(m *Manager) { m.resolver = r }
}

// WithTerminator replaces the platform terminator.
func WithTerminator(t Terminator) Option {
	return func(m *Manager) { m.terminator = t }
}

// WithMaxSessions caps the number of live sessions. Zero means no limit.
func WithMaxSessions(n int) Option {
	return func(m *Manager) { m.maxSessions = n }
}

// WithObserver registers a table observer.
func WithObserver(o Observer) Option {
	return func(m *Manager) {
		if o != nil {
			m.observer = o
		}
	}
}

// WithDefaults sets spawn defaults.
func WithDefaults(d Defaults) Option {
	return func(m *Manager) { m.defaults = d }
}

// WithBaseEnv sets the function producing the environment children inherit.
func WithBaseEnv(fn func() []string) Option {
	return func(m *Manager) { m.baseEnv = fn }
}

// Manager owns the table of live sessions.
type Manager struct {
	mu       sync.Mutex
	sessions map[SessionID]*Session
	lastID   SessionID
	closed   bool

	resolver    environment.Resolver
	terminator  Terminator
	observer    Observer
	logger      *zap.Logger
	defaults    Defaults
	maxSessions int
	baseEnv     func() []string
}

// NewManager creates an empty session manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		sessions: make(map[SessionID]*Session),
		observer: nopObserver{},
		logger:   zap.NewNop(),
		baseEnv:  os.Environ,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.terminator == nil {
		m.terminator = DefaultTerminator()
	}
	if m.resolver == nil {
		m.resolver = environment.NewSystem(m.logger)
	}
	return m
}

// Spawn starts a session and registers it. Every chunk the session produces,
// and a final EOF, is passed to sink tagged with the returned ID. The session
// is in the table only if Spawn succeeds.
func (m *Manager) Spawn(req SpawnRequest, sink Sink) (SessionID, error) {
	if sink == nil {
		sink = SinkFunc(func(Output) {})
	}

	m.mu.Lock()
	if err := m.admitLocked(); err != nil {
		m.mu.Unlock()
		return 0, err
	}
	m.lastID++
	id := m.lastID
	m.mu.Unlock()

	req = m.withDefaults(req)
	env := environment.BuildEnv(m.baseEnv(), m.resolver, req.Env)

	s, err := startSession(id, req, env, sink, m.terminator, m.logger)
	if err != nil {
		m.logger.Warn("spawn failed",
			zap.Uint32("session_id", uint32(id)),
			zap.String("command", req.Command),
			zap.Error(err))
		return 0, err
	}

	m.mu.Lock()
	if err := m.admitLocked(); err != nil {
		m.mu.Unlock()
		_ = s.Terminate()
		return 0, err
	}
	m.sessions[id] = s
	m.mu.Unlock()

	m.observer.SessionOpened(id)
	go m.watch(s)

	m.logger.Info("session spawned",
		zap.Uint32("session_id", uint32(id)),
		zap.Int("pid", s.cmd.Process.Pid),
		zap.String("shell", req.Command),
		zap.String("cwd", req.WorkingDir),
		zap.Uint16("cols", req.Cols),
		zap.Uint16("rows", req.Rows))

	return id, nil
}

func (m *Manager) admitLocked() error {
	if m.closed {
		return ErrManagerClosed
	}
	if m.maxSessions > 0 && len(m.sessions) >= m.maxSessions {
		return fmt.Errorf("%w: session limit %d reached", ErrSpawn, m.maxSessions)
	}
	return nil
}

func (m *Manager) withDefaults(req SpawnRequest) SpawnRequest {
	if req.Command == "" {
		req.Command = m.defaults.Shell
		if req.Command == "" {
			req.Command = m.resolver.ResolveShell()
		}
	}
	if req.WorkingDir == "" {
		req.WorkingDir = m.defaults.WorkingDir
	}
	if req.WorkingDir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			req.WorkingDir = home
		} else {
			req.WorkingDir = "/"
		}
	}
	if req.Cols == 0 {
		req.Cols = m.defaults.Cols
	}
	if req.Cols == 0 {
		req.Cols = defaultCols
	}
	if req.Rows == 0 {
		req.Rows = m.defaults.Rows
	}
	if req.Rows == 0 {
		req.Rows = defaultRows
	}
	return req
}

// watch removes a session whose output stream ended on its own.
func (m *Manager) watch(s *Session) {
	<-s.Done()
	if _, ok := m.take(s.ID); !ok {
		// Close or CloseAll got there first and owns the teardown.
		return
	}
	m.terminate(s, ReasonExited)
}

func (m *Manager) take(id SessionID) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	return s, ok
}

func (m *Manager) lookup(id SessionID) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

func (m *Manager) terminate(s *Session, reason string) error {
	err := s.Terminate()
	m.observer.SessionClosed(s.ID, reason)

	fields := []zap.Field{
		zap.Uint32("session_id", uint32(s.ID)),
		zap.String("reason", reason),
		zap.String("outcome", string(s.Outcome())),
	}
	if err != nil {
		m.logger.Warn("session teardown failed", append(fields, zap.Error(err))...)
		return err
	}
	m.logger.Info("session closed", fields...)
	return nil
}

// Write forwards p to the session's input.
func (m *Manager) Write(id SessionID, p []byte) error {
	s, err := m.lookup(id)
	if err != nil {
		return err
	}
	return s.Write(p)
}

// Resize changes a session's terminal dimensions.
func (m *Manager) Resize(id SessionID, cols, rows uint16) error {
	s, err := m.lookup(id)
	if err != nil {
		return err
	}
	return s.Resize(cols, rows)
}

// Close removes the session from the table and then terminates it. Closing
// an ID that is not live returns ErrNotFound.
func (m *Manager) Close(id SessionID) error {
	return m.closeWithReason(id, ReasonClosed)
}

func (m *Manager) closeWithReason(id SessionID, reason string) error {
	s, ok := m.take(id)
	if !ok {
		return ErrNotFound
	}
	return m.terminate(s, reason)
}

// CloseAll closes every session present when it is called. Failures do not
// stop the sweep; they are joined into the returned error. The table is
// empty of those sessions afterwards regardless.
func (m *Manager) CloseAll() error {
	var errs []error
	for _, id := range m.ids() {
		err := m.closeWithReason(id, ReasonShutdown)
		if err != nil && !errors.Is(err, ErrNotFound) {
			errs = append(errs, fmt.Errorf("close session %s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

// Shutdown refuses further spawns and closes all sessions.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return m.CloseAll()
}

func (m *Manager) ids() []SessionID {
	m.mu.Lock()
	ids := make([]SessionID, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Get returns a snapshot of one live session.
func (m *Manager) Get(id SessionID) (SessionInfo, error) {
	s, err := m.lookup(id)
	if err != nil {
		return SessionInfo{}, err
	}
	return s.Info(), nil
}

// List returns snapshots of all live sessions ordered by ID.
func (m *Manager) List() []SessionInfo {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.Unlock()

	infos := make([]SessionInfo, 0, len(sessions))
	for _, s := range sessions {
		infos = append(infos, s.Info())
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
