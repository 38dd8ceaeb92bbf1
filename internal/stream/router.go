package stream

import (
	"sync"

	"github.com/GriffinCanCode/oneterm/internal/providers/parser"
	"github.com/GriffinCanCode/oneterm/internal/providers/terminal"
	"go.uber.org/zap"
)

// Session lifecycle statuses published as Status events.
const (
	StatusRunning = "running"
	StatusExited  = "exited"
)

// Router routes session output to the hub and to per-session parsers. It
// implements terminal.Sink and is shared by every session of a Manager.
type Router struct {
	hub       *Hub
	maxEvents int
	recorder  Recorder
	logger    *zap.Logger

	mu      sync.Mutex
	parsers map[terminal.SessionID]*parser.Parser
}

var (
	_ terminal.Sink          = (*Router)(nil)
	_ terminal.StartNotifier = (*Router)(nil)
)

// RouterConfig configures a Router.
type RouterConfig struct {
	MaxEvents int
	Recorder  Recorder
	Logger    *zap.Logger
}

// NewRouter creates a router publishing to hub.
func NewRouter(hub *Hub, cfg RouterConfig) *Router {
	r := &Router{
		hub:       hub,
		maxEvents: cfg.MaxEvents,
		recorder:  cfg.Recorder,
		logger:    cfg.Logger,
		parsers:   make(map[terminal.SessionID]*parser.Parser),
	}
	if r.maxEvents == 0 {
		r.maxEvents = parser.DefaultMaxEvents
	}
	if r.recorder == nil {
		r.recorder = nopRecorder{}
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}
	return r
}

// Deliver implements terminal.Sink.
func (r *Router) Deliver(out terminal.Output) {
	if out.EOF {
		r.finish(out.SessionID)
		return
	}

	p := r.parserFor(out.SessionID)

	r.recorder.RecordOutput(len(out.Data))
	r.hub.Publish(out.SessionID, Frame{Type: FrameOutput, Data: string(out.Data)})

	before := p.DecodeWarnings()
	events := p.Process(out.Data)
	if p.DecodeWarnings() != before {
		r.recorder.RecordDecodeWarning()
	}
	for i := range events {
		r.publishEvent(out.SessionID, events[i])
	}
}

// parserFor returns the session's parser. On first use it also opens the
// session's stream and announces the session as running.
func (r *Router) parserFor(sid terminal.SessionID) *parser.Parser {
	r.mu.Lock()
	p, ok := r.parsers[sid]
	if !ok {
		p = parser.New(parser.WithMaxEvents(r.maxEvents))
		r.parsers[sid] = p
		r.hub.Open(sid)
	}
	r.mu.Unlock()

	if !ok {
		r.publishEvent(sid, parser.Status(StatusRunning))
	}
	return p
}

// SessionStarted implements terminal.StartNotifier so sessions that stay
// silent are still announced as running.
func (r *Router) SessionStarted(sid terminal.SessionID) {
	r.parserFor(sid)
}

func (r *Router) finish(sid terminal.SessionID) {
	r.mu.Lock()
	_, known := r.parsers[sid]
	delete(r.parsers, sid)
	r.mu.Unlock()

	if known {
		r.publishEvent(sid, parser.Status(StatusExited))
	}
	r.hub.Publish(sid, Frame{Type: FrameExit})
	r.hub.Close(sid)

	r.logger.Debug("stream finished", zap.Uint32("session_id", uint32(sid)))
}

func (r *Router) publishEvent(sid terminal.SessionID, ev parser.Event) {
	r.recorder.RecordParserEvent(string(ev.Type))
	r.hub.Publish(sid, Frame{Type: FrameEvent, Event: &ev})
}

// Parser returns the live parser for a session.
func (r *Router) Parser(sid terminal.SessionID) (*parser.Parser, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.parsers[sid]
	return p, ok
}

// Hub returns the hub frames are published to.
func (r *Router) Hub() *Hub {
	return r.hub
}
