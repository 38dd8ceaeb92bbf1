// Package id generates identifiers for transient server-side objects.
//
// Terminal sessions use the manager's small integer IDs. Everything else that
// needs a name in logs (WebSocket connections, stream subscribers, one-shot
// command runs) gets a prefixed ULID:
//   - Sortable by creation time, so log lines order naturally
//   - Prefixed by kind (conn_*, sub_*, exec_*) for readable logs
//   - Typed, so a subscriber ID cannot be passed where a connection ID is expected
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// ConnID identifies a WebSocket connection.
type ConnID string

// SubscriberID identifies one subscription to a session's output stream.
type SubscriberID string

// ExecID identifies a one-shot command run.
type ExecID string

const (
	ConnPrefix       = "conn"
	SubscriberPrefix = "sub"
	ExecPrefix       = "exec"
)

func (id ConnID) String() string       { return string(id) }
func (id SubscriberID) String() string { return string(id) }
func (id ExecID) String() string       { return string(id) }

// Generator produces ULIDs that increase strictly within one millisecond.
type Generator struct {
	mu      sync.Mutex
	entropy io.Reader
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the process-wide generator.
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a generator backed by crypto/rand.
func NewGenerator() *Generator {
	return NewGeneratorWithEntropy(rand.Reader)
}

// NewGeneratorWithEntropy creates a generator with a custom entropy source,
// for deterministic tests.
func NewGeneratorWithEntropy(entropy io.Reader) *Generator {
	return &Generator{entropy: ulid.Monotonic(entropy, 0)}
}

// Generate creates a new ULID.
func (g *Generator) Generate() ulid.ULID {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// WithPrefix creates a prefixed ULID string.
func (g *Generator) WithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.Generate())
}

// NewConnID generates a WebSocket connection ID.
func NewConnID() ConnID {
	return ConnID(Default().WithPrefix(ConnPrefix))
}

// NewSubscriberID generates a stream subscriber ID.
func NewSubscriberID() SubscriberID {
	return SubscriberID(Default().WithPrefix(SubscriberPrefix))
}

// NewExecID generates a one-shot command ID.
func NewExecID() ExecID {
	return ExecID(Default().WithPrefix(ExecPrefix))
}

// Split separates a prefixed ID into its prefix and ULID.
func Split(s string) (string, ulid.ULID, error) {
	prefix, raw, ok := strings.Cut(s, "_")
	if !ok {
		return "", ulid.ULID{}, fmt.Errorf("id %q has no prefix", s)
	}
	u, err := ulid.Parse(raw)
	if err != nil {
		return "", ulid.ULID{}, fmt.Errorf("id %q: %w", s, err)
	}
	return prefix, u, nil
}

// Timestamp extracts the creation time of a prefixed ID.
func Timestamp(s string) (time.Time, error) {
	_, u, err := Split(s)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(u.Time()), nil
}
