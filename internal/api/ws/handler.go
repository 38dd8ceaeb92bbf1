package ws

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/GriffinCanCode/oneterm/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/oneterm/internal/providers/terminal"
	"github.com/GriffinCanCode/oneterm/internal/shared/id"
	"github.com/GriffinCanCode/oneterm/internal/stream"
	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 64 * 1024
	replyBuffer    = 16
)

// ClientMessage is a frame sent by the client.
type ClientMessage struct {
	Type string `json:"type"`
	Data string `json:"data,omitempty"`
	Cols uint16 `json:"cols,omitempty"`
	Rows uint16 `json:"rows,omitempty"`
}

// reply is a server frame that is not part of the session stream.
type reply struct {
	Type      string `json:"type"`
	Message   string `json:"message,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// Handler manages WebSocket connections
type Handler struct {
	sessions *terminal.Manager
	hub      *stream.Hub
	metrics  *monitoring.Metrics
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// NewHandler creates a new WebSocket handler. origins lists the accepted
// Origin headers; "*" or an empty list accepts any.
func NewHandler(sessions *terminal.Manager, hub *stream.Hub, metrics *monitoring.Metrics, logger *zap.Logger, origins []string) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		sessions: sessions,
		hub:      hub,
		metrics:  metrics,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(origins),
		},
	}
}

func originChecker(origins []string) func(*http.Request) bool {
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		allowed[o] = struct{}{}
	}
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := allowed[origin]
		return ok
	}
}

// HandleConnection upgrades the request and streams the session named by
// the :id path parameter until the session ends or the client leaves.
func (h *Handler) HandleConnection(c *gin.Context) {
	sid, err := terminal.ParseSessionID(c.Param("id"))
	if err != nil || sid == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
		return
	}
	if _, err := h.sessions.Get(sid); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	sub, err := h.hub.Subscribe(sid)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		sub.Close()
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	cl := &client{
		id:       id.NewConnID(),
		session:  sid,
		conn:     conn,
		sub:      sub,
		replies:  make(chan reply, replyBuffer),
		done:     make(chan struct{}),
		sessions: h.sessions,
		metrics:  h.metrics,
	}
	cl.logger = h.logger.With(
		zap.String("conn_id", cl.id.String()),
		zap.Uint32("session_id", uint32(sid)))

	h.metrics.IncWSConnections()
	defer h.metrics.DecWSConnections()

	cl.logger.Debug("stream client connected", zap.Int("backlog", len(sub.Backlog)))
	cl.run()
	cl.logger.Debug("stream client disconnected")
}

// client is one WebSocket connection. Only writeLoop writes to conn.
type client struct {
	id      id.ConnID
	session terminal.SessionID
	conn    *websocket.Conn
	sub     *stream.Subscription
	replies chan reply

	done      chan struct{}
	closeOnce sync.Once

	sessions *terminal.Manager
	metrics  *monitoring.Metrics
	logger   *zap.Logger
}

func (cl *client) run() {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		cl.writeLoop()
	}()

	cl.readLoop()
	cl.stop()
	wg.Wait()
	cl.sub.Close()
	_ = cl.conn.Close()
}

func (cl *client) stop() {
	cl.closeOnce.Do(func() { close(cl.done) })
}

func (cl *client) readLoop() {
	cl.conn.SetReadLimit(maxMessageSize)
	_ = cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	cl.conn.SetPongHandler(func(string) error {
		return cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := cl.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				cl.logger.Debug("websocket read error", zap.Error(err))
			}
			return
		}

		var msg ClientMessage
		if err := sonic.Unmarshal(data, &msg); err != nil {
			cl.reply("error", "malformed message")
			continue
		}
		cl.metrics.RecordWSMessage("in", msg.Type)

		if err := cl.apply(msg); err != nil {
			cl.reply("error", err.Error())
		}
	}
}

var errUnknownType = errors.New("unknown message type")

func (cl *client) apply(msg ClientMessage) error {
	switch msg.Type {
	case "input":
		return cl.sessions.Write(cl.session, []byte(msg.Data))
	case "resize":
		if msg.Cols == 0 || msg.Rows == 0 {
			return errors.New("resize needs cols and rows")
		}
		return cl.sessions.Resize(cl.session, msg.Cols, msg.Rows)
	case "ping":
		cl.reply("pong", "")
		return nil
	default:
		return errUnknownType
	}
}

// reply queues a non-stream frame. It gives up when the writer is gone or
// the queue is full.
func (cl *client) reply(kind, message string) {
	select {
	case cl.replies <- reply{Type: kind, Message: message, Timestamp: time.Now().Unix()}:
	case <-cl.done:
	default:
		cl.logger.Debug("reply dropped", zap.String("type", kind))
	}
}

func (cl *client) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	// A writer failure must also end the read side.
	defer func() { _ = cl.conn.Close() }()

	for _, f := range cl.sub.Backlog {
		if err := cl.send(f, string(f.Type)); err != nil {
			return
		}
	}

	for {
		select {
		case f, ok := <-cl.sub.C:
			if !ok {
				cl.closeNormal("stream ended")
				return
			}
			if err := cl.send(f, string(f.Type)); err != nil {
				return
			}
		case r := <-cl.replies:
			if err := cl.send(r, r.Type); err != nil {
				return
			}
		case <-ticker.C:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-cl.done:
			return
		}
	}
}

func (cl *client) send(v any, kind string) error {
	data, err := sonic.Marshal(v)
	if err != nil {
		cl.logger.Warn("frame encode failed", zap.Error(err))
		return nil
	}
	_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := cl.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return err
	}
	cl.metrics.RecordWSMessage("out", kind)
	return nil
}

func (cl *client) closeNormal(reason string) {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason)
	_ = cl.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
}
