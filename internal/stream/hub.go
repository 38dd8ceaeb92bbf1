package stream

import (
	"errors"
	"sync"

	"github.com/GriffinCanCode/oneterm/internal/providers/terminal"
	"github.com/GriffinCanCode/oneterm/internal/shared/id"
	"go.uber.org/zap"
)

// ErrStreamClosed is returned when subscribing to a stream that has ended or
// never started.
var ErrStreamClosed = errors.New("stream closed")

const (
	DefaultSubscriberBuffer = 256
	DefaultBacklog          = 512
)

// Hub holds one topic per session.
type Hub struct {
	mu     sync.RWMutex
	topics map[terminal.SessionID]*topic

	subscriberBuffer int
	backlogSize      int
	recorder         Recorder
	logger           *zap.Logger
}

type topic struct {
	mu      sync.Mutex
	subs    map[id.SubscriberID]chan Frame
	backlog *Ring[Frame]
	seq     uint64
	closed  bool
}

// HubConfig configures a Hub. Zero values take defaults.
type HubConfig struct {
	SubscriberBuffer int
	Backlog          int
	Recorder         Recorder
	Logger           *zap.Logger
}

// NewHub creates an empty hub.
func NewHub(cfg HubConfig) *Hub {
	h := &Hub{
		topics:           make(map[terminal.SessionID]*topic),
		subscriberBuffer: cfg.SubscriberBuffer,
		backlogSize:      cfg.Backlog,
		recorder:         cfg.Recorder,
		logger:           cfg.Logger,
	}
	if h.subscriberBuffer <= 0 {
		h.subscriberBuffer = DefaultSubscriberBuffer
	}
	if h.backlogSize == 0 {
		h.backlogSize = DefaultBacklog
	}
	if h.recorder == nil {
		h.recorder = nopRecorder{}
	}
	if h.logger == nil {
		h.logger = zap.NewNop()
	}
	return h
}

// Open creates the session's topic. It is a no-op when the topic exists.
// Only an open topic accepts frames, so a session's stream must be opened
// before its first Publish.
func (h *Hub) Open(sid terminal.SessionID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.topics[sid]; ok {
		return
	}
	h.topics[sid] = &topic{
		subs:    make(map[id.SubscriberID]chan Frame),
		backlog: NewRing[Frame](h.backlogSize),
	}
}

func (h *Hub) get(sid terminal.SessionID) (*topic, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	t, ok := h.topics[sid]
	return t, ok
}

// Publish stamps f with the next sequence number, appends it to the backlog
// and offers it to every subscriber. A subscriber whose queue is full misses
// the frame. Frames for a session that was never opened or is already closed
// are dropped.
func (h *Hub) Publish(sid terminal.SessionID, f Frame) {
	t, ok := h.get(sid)
	if !ok {
		h.logger.Debug("publish without open stream, frame dropped",
			zap.Uint32("session_id", uint32(sid)),
			zap.String("type", string(f.Type)))
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return
	}
	t.seq++
	f.SessionID = sid
	f.Seq = t.seq
	t.backlog.Write(f)

	for subID, ch := range t.subs {
		select {
		case ch <- f:
		default:
			h.recorder.RecordDroppedFrame()
			h.logger.Debug("subscriber behind, frame dropped",
				zap.Uint32("session_id", uint32(sid)),
				zap.String("subscriber", subID.String()),
				zap.Uint64("seq", f.Seq))
		}
	}
}

// Subscription is a live view of one session's stream.
type Subscription struct {
	ID      id.SubscriberID
	Session terminal.SessionID

	// Backlog holds the frames published before the subscription, oldest
	// first. C continues exactly where Backlog ends.
	Backlog []Frame

	// C is closed when the stream ends or the subscription is cancelled.
	C <-chan Frame

	hub *Hub
}

// Close cancels the subscription. It is safe to call more than once.
func (s *Subscription) Close() {
	s.hub.unsubscribe(s.Session, s.ID)
}

// Subscribe attaches to a session's stream. Subscribing to a session that was
// never opened or whose stream was closed fails with ErrStreamClosed.
func (h *Hub) Subscribe(sid terminal.SessionID) (*Subscription, error) {
	t, ok := h.get(sid)
	if !ok {
		return nil, ErrStreamClosed
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil, ErrStreamClosed
	}

	subID := id.NewSubscriberID()
	ch := make(chan Frame, h.subscriberBuffer)
	t.subs[subID] = ch

	return &Subscription{
		ID:      subID,
		Session: sid,
		Backlog: t.backlog.ReadAll(),
		C:       ch,
		hub:     h,
	}, nil
}

func (h *Hub) unsubscribe(sid terminal.SessionID, subID id.SubscriberID) {
	t, ok := h.get(sid)
	if !ok {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if ch, ok := t.subs[subID]; ok {
		close(ch)
		delete(t.subs, subID)
	}
}

// Backlog returns the retained frames for a session.
func (h *Hub) Backlog(sid terminal.SessionID) ([]Frame, bool) {
	t, ok := h.get(sid)
	if !ok {
		return nil, false
	}
	return t.backlog.ReadAll(), true
}

// Subscribers returns the number of live subscriptions on a session.
func (h *Hub) Subscribers(sid terminal.SessionID) int {
	t, ok := h.get(sid)
	if !ok {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.subs)
}

// Close ends a session's stream: every subscriber channel is closed and the
// topic is forgotten.
func (h *Hub) Close(sid terminal.SessionID) {
	h.mu.Lock()
	t, ok := h.topics[sid]
	delete(h.topics, sid)
	h.mu.Unlock()

	if !ok {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	for subID, ch := range t.subs {
		close(ch)
		delete(t.subs, subID)
	}
}
