// Package parser classifies the output of an interactive Claude CLI session.
//
// A Parser consumes raw PTY bytes, strips terminal control sequences and turns
// each new line into zero or more Events: file reads and edits, shell
// commands, tool results, thinking and response text. It keeps a bounded
// rolling copy of the cleaned text and never re-scans text it has already
// classified.
//
// Classification is a small state machine. Transition is pure and can be
// driven line by line without a Parser.
package parser

import (
	"strings"
	"sync"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
)

const (
	// BufferLimit is the rolling buffer size that triggers truncation.
	BufferLimit = 10000

	// BufferKeep is how much of the buffer's tail survives truncation.
	BufferKeep = 5000

	// DefaultMaxEvents bounds the retained event log.
	DefaultMaxEvents = 4096
)

// Option configures a Parser.
type Option func(*Parser)

// WithMaxEvents bounds the retained event log; the oldest events are dropped
// first. Zero or less keeps every event.
func WithMaxEvents(n int) Option {
	return func(p *Parser) { p.maxEvents = n }
}

// Parser is safe for concurrent use. It performs no I/O and calls nothing
// outside the package.
type Parser struct {
	mu             sync.Mutex
	buf            string
	cursor         int
	state          State
	events         []Event
	maxEvents      int
	decodeWarnings uint64
}

// New returns an idle parser.
func New(opts ...Option) *Parser {
	p := &Parser{maxEvents: DefaultMaxEvents}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process classifies everything data completes and returns the new events in
// input order. Invalid UTF-8 is replaced with U+FFFD and counted as a decode
// warning.
func (p *Parser) Process(data []byte) []Event {
	text := p.decode(data)
	clean := StripANSI(text)

	p.mu.Lock()
	defer p.mu.Unlock()

	if !utf8.Valid(data) {
		p.decodeWarnings++
	}

	p.buf += clean

	var events []Event
	if p.cursor < len(p.buf) {
		start := p.cursor
		for start > 0 && !utf8.RuneStart(p.buf[start]) {
			start--
		}
		for _, line := range strings.Split(p.buf[start:], "\n") {
			step := Transition(p.state, line)
			p.state = step.Next
			events = append(events, step.Events()...)
		}
	}
	p.cursor = len(p.buf)

	if len(p.buf) > BufferLimit {
		start := len(p.buf) - BufferKeep
		for start > 0 && !utf8.RuneStart(p.buf[start]) {
			start--
		}
		p.buf = strings.Clone(p.buf[start:])
		p.cursor = len(p.buf)
	}

	p.appendLog(events)
	return events
}

func (p *Parser) decode(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	out, err := unicode.UTF8.NewDecoder().Bytes(data)
	if err != nil {
		return strings.ToValidUTF8(string(data), "�")
	}
	return string(out)
}

func (p *Parser) appendLog(events []Event) {
	p.events = append(p.events, events...)
	if p.maxEvents > 0 && len(p.events) > p.maxEvents {
		drop := len(p.events) - p.maxEvents
		p.events = append(p.events[:0:0], p.events[drop:]...)
	}
}

// Buffer returns the retained cleaned text.
func (p *Parser) Buffer() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buf
}

// Events returns a copy of the retained event log.
func (p *Parser) Events() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Event, len(p.events))
	copy(out, p.events)
	return out
}

// Mode returns the current classification mode.
func (p *Parser) Mode() Mode {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state.Mode
}

// DecodeWarnings returns how many Process calls contained invalid UTF-8.
func (p *Parser) DecodeWarnings() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.decodeWarnings
}

// Clear resets the parser to its initial state, for reuse by a new session.
func (p *Parser) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.buf = ""
	p.cursor = 0
	p.state = State{}
	p.events = nil
}
