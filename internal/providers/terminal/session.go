package terminal

import (
	"fmt"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/creack/pty"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/unicode"
)

// readChunkSize is the size of a single PTY read.
const readChunkSize = 4096

// Session is one child process attached to the controlling side of a PTY.
type Session struct {
	ID         SessionID
	Shell      string
	WorkingDir string
	StartedAt  time.Time

	cmd        *exec.Cmd
	ptmx       *os.File
	terminator Terminator
	logger     *zap.Logger

	// writeMu serializes writes against each other and against closing ptmx.
	writeMu sync.Mutex

	mu       sync.RWMutex
	cols     uint16
	rows     uint16
	ioClosed bool

	state atomic.Int32

	terminateOnce sync.Once
	terminateErr  error
	outcome       Outcome

	waitErr    error
	exited     chan struct{}
	readerDone chan struct{}
}

// startSession allocates a PTY, starts req.Command on its subordinate side and
// launches the reader. req must already carry resolved defaults.
func startSession(id SessionID, req SpawnRequest, env []string, sink Sink, term Terminator, logger *zap.Logger) (*Session, error) {
	ptmx, tty, err := pty.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAllocation, err)
	}

	if err := setWinsize(ptmx, req.Cols, req.Rows); err != nil {
		_ = ptmx.Close()
		_ = tty.Close()
		return nil, fmt.Errorf("%w: set size: %v", ErrAllocation, err)
	}
	// Close must be able to interrupt the reader even when a background job
	// still holds the subordinate side open.
	if err := setNonblock(ptmx); err != nil {
		_ = ptmx.Close()
		_ = tty.Close()
		return nil, fmt.Errorf("%w: set non-blocking: %v", ErrAllocation, err)
	}

	cmd := exec.Command(req.Command, req.Args...)
	cmd.Dir = req.WorkingDir
	cmd.Env = env
	cmd.Stdin = tty
	cmd.Stdout = tty
	cmd.Stderr = tty
	configureProcAttr(cmd)

	if err := cmd.Start(); err != nil {
		_ = ptmx.Close()
		_ = tty.Close()
		return nil, fmt.Errorf("%w: %s: %v", ErrSpawn, req.Command, err)
	}

	// The child holds its own copy; keeping ours open would hide EOF.
	_ = tty.Close()

	s := &Session{
		ID:         id,
		Shell:      req.Command,
		WorkingDir: req.WorkingDir,
		StartedAt:  time.Now(),
		cmd:        cmd,
		ptmx:       ptmx,
		terminator: term,
		logger:     logger.With(zap.Uint32("session_id", uint32(id)), zap.Int("pid", cmd.Process.Pid)),
		cols:       req.Cols,
		rows:       req.Rows,
		exited:     make(chan struct{}),
		readerDone: make(chan struct{}),
	}
	s.state.Store(int32(StateRunning))

	if n, ok := sink.(StartNotifier); ok {
		n.SessionStarted(id)
	}

	go s.wait()
	go s.readLoop(sink)

	return s, nil
}

// wait reaps the child. It is the only caller of cmd.Wait.
func (s *Session) wait() {
	s.waitErr = s.cmd.Wait()
	close(s.exited)
}

// readLoop forwards PTY output to sink until the stream ends. Bytes that form
// the start of an incomplete UTF-8 sequence are carried into the next read.
func (s *Session) readLoop(sink Sink) {
	defer close(s.readerDone)

	buf := make([]byte, readChunkSize)
	var tail []byte

	for {
		n, err := s.ptmx.Read(buf)
		if n > 0 {
			tail = append(tail, buf[:n]...)

			boundary := Boundary(tail)
			if boundary == 0 && len(tail) >= utf8.UTFMax {
				// Nothing decodable is pending; stop holding bytes back.
				boundary = len(tail)
			}
			if boundary > 0 {
				chunk := make([]byte, boundary)
				copy(chunk, tail[:boundary])
				tail = append(tail[:0], tail[boundary:]...)
				s.deliver(sink, Output{SessionID: s.ID, Data: chunk})
			}
		}
		if err != nil || n == 0 {
			if err != nil {
				s.logger.Debug("pty read ended", zap.Error(err))
			}
			break
		}
	}

	if len(tail) > 0 {
		s.deliver(sink, Output{SessionID: s.ID, Data: decodeLossy(tail)})
	}
	s.deliver(sink, Output{SessionID: s.ID, EOF: true})
}

// deliver isolates the reader from a misbehaving sink.
func (s *Session) deliver(sink Sink, out Output) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("sink panicked", zap.Any("panic", r), zap.Bool("eof", out.EOF))
		}
	}()
	sink.Deliver(out)
}

// decodeLossy replaces invalid UTF-8 with U+FFFD.
func decodeLossy(b []byte) []byte {
	out, err := unicode.UTF8.NewDecoder().Bytes(b)
	if err != nil {
		return []byte(string([]rune(string(b))))
	}
	return out
}

// Write sends p to the child's input.
func (s *Session) Write(p []byte) error {
	if len(p) == 0 {
		return nil
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.RLock()
	closed := s.ioClosed
	s.mu.RUnlock()
	if closed {
		return &IOError{Op: "write", Err: os.ErrClosed}
	}

	if _, err := s.ptmx.Write(p); err != nil {
		return &IOError{Op: "write", Err: err}
	}
	return nil
}

// Resize changes the terminal dimensions.
func (s *Session) Resize(cols, rows uint16) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ioClosed {
		return &IOError{Op: "resize", Err: os.ErrClosed}
	}
	if err := setWinsize(s.ptmx, cols, rows); err != nil {
		return &IOError{Op: "resize", Err: err}
	}
	s.cols, s.rows = cols, rows
	return nil
}

// Terminate stops the child's process groups, reaps it, closes the PTY and
// joins the reader. It runs once; later calls return the first result. The
// session is Dead when Terminate returns, whatever the error.
func (s *Session) Terminate() error {
	s.terminateOnce.Do(func() {
		s.state.Store(int32(StateGracefulWait))

		target := Target{
			Process: s.cmd.Process,
			Groups:  []int{foregroundGroup(s.ptmx)},
			Exited:  s.exited,
		}
		outcome, err := s.terminator.Terminate(target)
		if err != nil {
			s.terminateErr = err
			s.logger.Warn("terminate failed, killing child", zap.Error(err))
			_ = s.cmd.Process.Kill()
			outcome = OutcomeForced
		}

		<-s.exited
		s.closeIO()
		<-s.readerDone

		s.outcome = outcome
		s.state.Store(int32(StateDead))
		s.logger.Debug("session terminated", zap.String("outcome", string(outcome)))
	})
	return s.terminateErr
}

func (s *Session) closeIO() {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ioClosed {
		return
	}
	s.ioClosed = true
	if err := s.ptmx.Close(); err != nil {
		s.logger.Debug("close pty", zap.Error(err))
	}
}

// Done is closed once the reader has delivered EOF.
func (s *Session) Done() <-chan struct{} {
	return s.readerDone
}

// Exited is closed once the child has been reaped.
func (s *Session) Exited() <-chan struct{} {
	return s.exited
}

// ExitErr returns the child's wait error. Valid only after Exited is closed.
func (s *Session) ExitErr() error {
	return s.waitErr
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	return State(s.state.Load())
}

// Outcome returns how the session was terminated. Empty until Terminate returns.
func (s *Session) Outcome() Outcome {
	if s.State() != StateDead {
		return ""
	}
	return s.outcome
}

// Info returns a snapshot of the session.
func (s *Session) Info() SessionInfo {
	s.mu.RLock()
	cols, rows := s.cols, s.rows
	s.mu.RUnlock()

	return SessionInfo{
		ID:         s.ID,
		PID:        s.cmd.Process.Pid,
		Shell:      s.Shell,
		WorkingDir: s.WorkingDir,
		Cols:       cols,
		Rows:       rows,
		StartedAt:  s.StartedAt,
		State:      s.State().String(),
	}
}
