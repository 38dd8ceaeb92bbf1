//go:build unix

package terminal

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/GriffinCanCode/oneterm/internal/providers/environment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

type collector struct {
	mu     sync.Mutex
	data   bytes.Buffer
	eof    chan struct{}
	once   sync.Once
	chunks [][]byte
}

func newCollector() *collector {
	return &collector{eof: make(chan struct{})}
}

func (c *collector) Deliver(out Output) {
	if out.EOF {
		c.once.Do(func() { close(c.eof) })
		return
	}
	c.mu.Lock()
	c.data.Write(out.Data)
	c.chunks = append(c.chunks, append([]byte(nil), out.Data...))
	c.mu.Unlock()
}

func (c *collector) Chunks() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.chunks...)
}

func (c *collector) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.data.String()
}

func (c *collector) waitEOF(t *testing.T) {
	t.Helper()
	select {
	case <-c.eof:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for EOF")
	}
}

type failingTerminator struct{}

func (failingTerminator) Terminate(Target) (Outcome, error) {
	return "", errors.New("signal refused")
}

func newTestManager(t *testing.T, opts ...Option) *Manager {
	t.Helper()
	base := []Option{
		WithResolver(environment.Static{Shell: "/bin/sh"}),
		WithDefaults(Defaults{WorkingDir: t.TempDir()}),
	}
	m := NewManager(append(base, opts...)...)
	t.Cleanup(func() { _ = m.Shutdown() })
	return m
}

func shellCommand(script string) SpawnRequest {
	return SpawnRequest{Command: "/bin/sh", Args: []string{"-c", script}}
}

func TestSpawnIDsIncrease(t *testing.T) {
	m := newTestManager(t)

	var last SessionID
	for i := 0; i < 4; i++ {
		id, err := m.Spawn(SpawnRequest{}, nil)
		require.NoError(t, err)
		assert.Greater(t, id, last)
		last = id
	}
	assert.Equal(t, 4, m.Count())

	infos := m.List()
	require.Len(t, infos, 4)
	for i, info := range infos {
		assert.Equal(t, SessionID(i+1), info.ID)
		assert.Equal(t, "/bin/sh", info.Shell)
		assert.Equal(t, uint16(80), info.Cols)
		assert.Equal(t, uint16(24), info.Rows)
		assert.Positive(t, info.PID)
	}
}

func TestOutputThenEOFRemovesSession(t *testing.T) {
	m := newTestManager(t)
	c := newCollector()

	_, err := m.Spawn(shellCommand("printf 'héllo wörld\\n'"), c)
	require.NoError(t, err)

	c.waitEOF(t)
	assert.Contains(t, c.String(), "héllo wörld")
	require.Eventually(t, func() bool { return m.Count() == 0 }, 3*time.Second, 10*time.Millisecond)
}

func TestWriteReachesChild(t *testing.T) {
	m := newTestManager(t)
	c := newCollector()

	id, err := m.Spawn(SpawnRequest{Command: "/bin/cat"}, c)
	require.NoError(t, err)

	require.NoError(t, m.Write(id, []byte("ping\n")))
	require.Eventually(t, func() bool {
		return strings.Contains(c.String(), "ping")
	}, 3*time.Second, 10*time.Millisecond)
}

func TestResize(t *testing.T) {
	m := newTestManager(t)

	id, err := m.Spawn(SpawnRequest{Cols: 100, Rows: 30}, nil)
	require.NoError(t, err)

	info, err := m.Get(id)
	require.NoError(t, err)
	assert.Equal(t, uint16(100), info.Cols)

	require.NoError(t, m.Resize(id, 132, 50))
	info, err = m.Get(id)
	require.NoError(t, err)
	assert.Equal(t, uint16(132), info.Cols)
	assert.Equal(t, uint16(50), info.Rows)
}

func TestCloseTwice(t *testing.T) {
	m := newTestManager(t)

	id, err := m.Spawn(SpawnRequest{}, nil)
	require.NoError(t, err)

	require.NoError(t, m.Close(id))
	assert.ErrorIs(t, m.Close(id), ErrNotFound)
	assert.Equal(t, 0, m.Count())
}

func TestUnknownSession(t *testing.T) {
	m := newTestManager(t)

	id, err := m.Spawn(SpawnRequest{}, nil)
	require.NoError(t, err)

	err = m.Write(id+100, []byte("x"))
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "session not found", err.Error())
	assert.ErrorIs(t, m.Resize(id+100, 10, 10), ErrNotFound)
	_, err = m.Get(id + 100)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Equal(t, 1, m.Count())
}

func TestCloseAllEmptiesTableWhenTerminationFails(t *testing.T) {
	m := newTestManager(t, WithTerminator(failingTerminator{}))

	for i := 0; i < 3; i++ {
		_, err := m.Spawn(SpawnRequest{}, nil)
		require.NoError(t, err)
	}

	err := m.CloseAll()
	assert.Error(t, err)
	assert.Equal(t, 0, m.Count())
	assert.Empty(t, m.List())
}

func TestTerminateIgnoringShellIsForced(t *testing.T) {
	m := newTestManager(t)
	c := newCollector()

	id, err := m.Spawn(shellCommand(`trap "" TERM; echo ready; while :; do sleep 1; done`), c)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return strings.Contains(c.String(), "ready")
	}, 3*time.Second, 10*time.Millisecond)

	s, err := m.lookup(id)
	require.NoError(t, err)

	require.NoError(t, m.Close(id))
	assert.Equal(t, StateDead, s.State())
	assert.Equal(t, OutcomeForced, s.Outcome())

	select {
	case <-s.Done():
	default:
		t.Fatal("reader still running after close")
	}
	assert.ErrorIs(t, s.Write([]byte("x")), ErrIO)
}

func TestTerminateGraceful(t *testing.T) {
	m := newTestManager(t)
	c := newCollector()

	id, err := m.Spawn(shellCommand("echo ready; sleep 30"), c)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return strings.Contains(c.String(), "ready")
	}, 3*time.Second, 10*time.Millisecond)

	s, err := m.lookup(id)
	require.NoError(t, err)

	require.NoError(t, m.Close(id))
	assert.Equal(t, OutcomeGraceful, s.Outcome())
}

func TestTerminateIdempotent(t *testing.T) {
	m := newTestManager(t)

	id, err := m.Spawn(SpawnRequest{}, nil)
	require.NoError(t, err)
	s, err := m.lookup(id)
	require.NoError(t, err)

	require.NoError(t, m.Close(id))
	assert.NoError(t, s.Terminate())
	assert.Equal(t, StateDead, s.State())
}

func TestConcurrentCloseAndExit(t *testing.T) {
	m := newTestManager(t)

	for i := 0; i < 10; i++ {
		id, err := m.Spawn(shellCommand("exit 0"), nil)
		require.NoError(t, err)
		err = m.Close(id)
		if err != nil {
			assert.ErrorIs(t, err, ErrNotFound)
		}
	}
	require.Eventually(t, func() bool { return m.Count() == 0 }, 3*time.Second, 10*time.Millisecond)
}

func TestMaxSessions(t *testing.T) {
	m := newTestManager(t, WithMaxSessions(1))

	_, err := m.Spawn(SpawnRequest{}, nil)
	require.NoError(t, err)

	_, err = m.Spawn(SpawnRequest{}, nil)
	assert.ErrorIs(t, err, ErrSpawn)
	assert.Equal(t, 1, m.Count())
}

func TestSpawnFailureLeavesTableUntouched(t *testing.T) {
	m := newTestManager(t)

	_, err := m.Spawn(SpawnRequest{Command: "/nonexistent/shell"}, nil)
	assert.ErrorIs(t, err, ErrSpawn)
	assert.Equal(t, 0, m.Count())
}

func TestShutdownRefusesSpawn(t *testing.T) {
	m := newTestManager(t)

	_, err := m.Spawn(SpawnRequest{}, nil)
	require.NoError(t, err)

	require.NoError(t, m.Shutdown())
	assert.Equal(t, 0, m.Count())

	_, err = m.Spawn(SpawnRequest{}, nil)
	assert.ErrorIs(t, err, ErrManagerClosed)
}

func TestPanickingSinkDoesNotStopReader(t *testing.T) {
	m := newTestManager(t)

	var eof sync.WaitGroup
	eof.Add(1)
	var once sync.Once
	sink := SinkFunc(func(out Output) {
		if out.EOF {
			once.Do(eof.Done)
			return
		}
		panic("presentation layer gone")
	})

	_, err := m.Spawn(shellCommand("echo one; echo two"), sink)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() { eof.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("reader stopped after sink panic")
	}
	require.Eventually(t, func() bool { return m.Count() == 0 }, 3*time.Second, 10*time.Millisecond)
}

type recordingObserver struct {
	mu      sync.Mutex
	opened  []SessionID
	reasons map[SessionID]string
}

func (o *recordingObserver) SessionOpened(id SessionID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.opened = append(o.opened, id)
}

func (o *recordingObserver) SessionClosed(id SessionID, reason string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.reasons[id] = reason
}

func (o *recordingObserver) reason(id SessionID) string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.reasons[id]
}

func TestObserverReasons(t *testing.T) {
	obs := &recordingObserver{reasons: map[SessionID]string{}}
	m := newTestManager(t, WithObserver(obs))

	closed, err := m.Spawn(SpawnRequest{}, nil)
	require.NoError(t, err)
	exited, err := m.Spawn(shellCommand("exit 0"), nil)
	require.NoError(t, err)

	require.NoError(t, m.Close(closed))
	require.Eventually(t, func() bool { return obs.reason(exited) != "" }, 3*time.Second, 10*time.Millisecond)

	assert.Equal(t, ReasonClosed, obs.reason(closed))
	assert.Equal(t, ReasonExited, obs.reason(exited))
	assert.Len(t, obs.opened, 2)
}

func TestSingleReplacesSession(t *testing.T) {
	m := newTestManager(t)
	restarts := 0
	single := NewSingle(m, func() { restarts++ })

	first, err := single.Spawn(SpawnRequest{}, nil)
	require.NoError(t, err)
	second, err := single.Spawn(SpawnRequest{}, nil)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.Equal(t, 2, restarts)
	assert.Equal(t, 1, m.Count())

	cur, ok := single.Current()
	require.True(t, ok)
	assert.Equal(t, second, cur)
	assert.NoError(t, single.Resize(90, 30))

	require.NoError(t, single.Close())
	assert.ErrorIs(t, single.Write([]byte("x")), ErrNotFound)
	assert.ErrorIs(t, single.Close(), ErrNotFound)
}

func TestReaderCarriesSplitSequence(t *testing.T) {
	m := newTestManager(t)
	c := newCollector()

	// The euro sign is written in two halves with a pause between them.
	_, err := m.Spawn(shellCommand(`printf 'a\342\202'; sleep 0.2; printf '\254b'`), c)
	require.NoError(t, err)
	c.waitEOF(t)

	for _, chunk := range c.Chunks() {
		assert.True(t, utf8.Valid(chunk), "chunk %q is not valid UTF-8", chunk)
	}
	assert.Contains(t, c.String(), "a€b")
}

func TestReaderFlushesContinuationRun(t *testing.T) {
	m := newTestManager(t)
	c := newCollector()

	_, err := m.Spawn(shellCommand(`printf '\200\200\200\200'; sleep 5`), c)
	require.NoError(t, err)

	// Nothing can complete a run of continuation bytes, so it is delivered
	// without waiting for more output or EOF.
	require.Eventually(t, func() bool {
		return strings.Contains(c.String(), "\x80\x80\x80\x80")
	}, 3*time.Second, 10*time.Millisecond)
}

var pidLine = regexp.MustCompile(`pid:(\d+)`)

func waitPID(t *testing.T, c *collector) int {
	t.Helper()
	var pid int
	require.Eventually(t, func() bool {
		m := pidLine.FindStringSubmatch(c.String())
		if m == nil {
			return false
		}
		pid, _ = strconv.Atoi(m[1])
		return pid > 0
	}, 5*time.Second, 10*time.Millisecond)
	return pid
}

// processGone reports whether pid no longer runs. A zombie left for a
// non-reaping init counts as gone.
func processGone(pid int) bool {
	if err := unix.Kill(pid, 0); errors.Is(err, unix.ESRCH) {
		return true
	}
	data, err := os.ReadFile(fmt.Sprintf("/proc/%d/stat", pid))
	if err != nil {
		return false
	}
	i := bytes.LastIndexByte(data, ')')
	return i >= 0 && i+2 < len(data) && data[i+2] == 'Z'
}

func closeWithin(t *testing.T, m *Manager, id SessionID, d time.Duration) {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- m.Close(id) }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(d):
		t.Fatalf("Close(%d) did not return within %s", id, d)
	}
}

func TestCloseKillsGrandchild(t *testing.T) {
	m := newTestManager(t)
	c := newCollector()

	id, err := m.Spawn(shellCommand(`sleep 1000 & echo pid:$!; wait`), c)
	require.NoError(t, err)
	pid := waitPID(t, c)
	require.False(t, processGone(pid))

	closeWithin(t, m, id, 3*time.Second)
	require.Eventually(t, func() bool { return processGone(pid) }, 2*time.Second, 20*time.Millisecond)
}

func TestCloseReachesBackgroundJob(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("session groups are found through /proc")
	}
	bash, err := exec.LookPath("bash")
	if err != nil {
		t.Skip("bash not installed")
	}

	m := newTestManager(t)
	c := newCollector()

	// An interactive shell puts the job in a process group of its own, which
	// keeps the subordinate side open after the shell is gone.
	id, err := m.Spawn(SpawnRequest{Command: bash, Args: []string{"--norc", "--noprofile", "-i"}}, c)
	require.NoError(t, err)
	require.NoError(t, m.Write(id, []byte("sleep 1002 & echo pid:$!\n")))
	pid := waitPID(t, c)

	s, err := m.lookup(id)
	require.NoError(t, err)

	closeWithin(t, m, id, 3*time.Second)
	assert.Equal(t, StateDead, s.State())
	assert.Equal(t, 0, m.Count())
	require.Eventually(t, func() bool { return processGone(pid) }, 2*time.Second, 20*time.Millisecond)
}
