package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/GriffinCanCode/oneterm/internal/providers/terminal"
	"github.com/GriffinCanCode/oneterm/internal/stream"
	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"
)

var errInvalidSessionID = errors.New("invalid session id")

// SpawnRequest is the body of POST /sessions.
type SpawnRequest struct {
	Cols       uint16            `json:"cols"`
	Rows       uint16            `json:"rows"`
	Command    string            `json:"command"`
	Args       []string          `json:"args"`
	WorkingDir string            `json:"working_dir"`
	Env        map[string]string `json:"env"`
}

// WriteRequest is the body of POST /sessions/:id/write.
type WriteRequest struct {
	Data string `json:"data"`
}

// ResizeRequest is the body of POST /sessions/:id/resize.
type ResizeRequest struct {
	Cols uint16 `json:"cols" binding:"required"`
	Rows uint16 `json:"rows" binding:"required"`
}

func sessionID(c *gin.Context) (terminal.SessionID, bool) {
	sid, err := terminal.ParseSessionID(c.Param("id"))
	if err != nil || sid == 0 {
		badRequest(c, errInvalidSessionID)
		return 0, false
	}
	return sid, true
}

// SpawnSession starts a new terminal session
func (h *Handlers) SpawnSession(c *gin.Context) {
	var req SpawnRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}

	sid, err := h.sessions.Spawn(terminal.SpawnRequest{
		Command:    req.Command,
		Args:       req.Args,
		WorkingDir: req.WorkingDir,
		Cols:       req.Cols,
		Rows:       req.Rows,
		Env:        req.Env,
	}, h.router)
	if err != nil {
		h.logger.Warn("spawn failed", zap.Error(err))
		fail(c, err)
		return
	}

	info, err := h.sessions.Get(sid)
	if err != nil {
		// Already exited; the ID is still the caller's handle for the stream.
		c.JSON(http.StatusCreated, gin.H{"id": sid})
		return
	}
	c.JSON(http.StatusCreated, info)
}

// ListSessions lists live sessions ordered by ID
func (h *Handlers) ListSessions(c *gin.Context) {
	sessions := h.sessions.List()
	c.JSON(http.StatusOK, gin.H{
		"sessions": sessions,
		"count":    len(sessions),
	})
}

// GetSession returns one live session
func (h *Handlers) GetSession(c *gin.Context) {
	sid, ok := sessionID(c)
	if !ok {
		return
	}
	info, err := h.sessions.Get(sid)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

// CloseSession terminates a session and its process group
func (h *Handlers) CloseSession(c *gin.Context) {
	sid, ok := sessionID(c)
	if !ok {
		return
	}
	if err := h.sessions.Close(sid); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// WriteSession sends input to a session
func (h *Handlers) WriteSession(c *gin.Context) {
	sid, ok := sessionID(c)
	if !ok {
		return
	}
	var req WriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.sessions.Write(sid, []byte(req.Data)); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ResizeSession changes a session's terminal size
func (h *Handlers) ResizeSession(c *gin.Context) {
	sid, ok := sessionID(c)
	if !ok {
		return
	}
	var req ResizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.sessions.Resize(sid, req.Cols, req.Rows); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetEvents returns the classified event log of a session's parser
func (h *Handlers) GetEvents(c *gin.Context) {
	sid, ok := sessionID(c)
	if !ok {
		return
	}
	p, ok := h.router.Parser(sid)
	if !ok {
		fail(c, terminal.ErrNotFound)
		return
	}
	events := p.Events()
	c.JSON(http.StatusOK, gin.H{
		"id":              sid,
		"mode":            p.Mode().String(),
		"events":          events,
		"count":           len(events),
		"decode_warnings": p.DecodeWarnings(),
	})
}

// GetBuffer returns the parser's retained text
func (h *Handlers) GetBuffer(c *gin.Context) {
	sid, ok := sessionID(c)
	if !ok {
		return
	}
	p, ok := h.router.Parser(sid)
	if !ok {
		fail(c, terminal.ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":     sid,
		"buffer": p.Buffer(),
	})
}

// ClearParser resets a session's parser
func (h *Handlers) ClearParser(c *gin.Context) {
	sid, ok := sessionID(c)
	if !ok {
		return
	}
	p, ok := h.router.Parser(sid)
	if !ok {
		fail(c, terminal.ErrNotFound)
		return
	}
	p.Clear()
	c.Status(http.StatusNoContent)
}

// GetBacklog returns recent raw output. With ?format=frames the retained
// frames are returned as JSON instead. The text form is gzip-compressed when
// the client accepts it.
func (h *Handlers) GetBacklog(c *gin.Context) {
	sid, ok := sessionID(c)
	if !ok {
		return
	}
	frames, ok := h.router.Hub().Backlog(sid)
	if !ok {
		fail(c, terminal.ErrNotFound)
		return
	}

	if c.Query("format") == "frames" {
		c.JSON(http.StatusOK, gin.H{"id": sid, "frames": frames})
		return
	}

	var sb strings.Builder
	for _, f := range frames {
		if f.Type == stream.FrameOutput {
			sb.WriteString(f.Data)
		}
	}

	c.Header("Vary", "Accept-Encoding")
	if !acceptsGzip(c.GetHeader("Accept-Encoding")) {
		c.String(http.StatusOK, "%s", sb.String())
		return
	}

	c.Header("Content-Encoding", "gzip")
	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.Status(http.StatusOK)
	gz := gzip.NewWriter(c.Writer)
	if _, err := gz.Write([]byte(sb.String())); err != nil {
		h.logger.Debug("backlog write failed", zap.Error(err))
	}
	if err := gz.Close(); err != nil {
		h.logger.Debug("backlog flush failed", zap.Error(err))
	}
}

func acceptsGzip(header string) bool {
	for _, part := range strings.Split(header, ",") {
		enc, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		if !strings.EqualFold(strings.TrimSpace(enc), "gzip") {
			continue
		}
		return strings.ReplaceAll(params, " ", "") != "q=0"
	}
	return false
}
