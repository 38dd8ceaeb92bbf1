package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// maxLogEntries bounds one POST /logs batch.
const maxLogEntries = 500

// UILogEntry represents a log entry from the terminal UI
type UILogEntry struct {
	ID        string                 `json:"id"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Context   map[string]interface{} `json:"context"`
	Timestamp string                 `json:"timestamp"`
	Priority  int                    `json:"priority"`
}

// UILogStreamRequest represents a batch of logs from the terminal UI
type UILogStreamRequest struct {
	Source    string       `json:"source"`    // "ui"
	Entries   []UILogEntry `json:"entries"`   // Log entries
	Timestamp int64        `json:"timestamp"` // Request timestamp
}

// StreamLogs forwards a batch of terminal UI log entries into the server log
func (h *Handlers) StreamLogs(c *gin.Context) {
	var req UILogStreamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid log request format"})
		return
	}

	// Validate source
	if req.Source != "ui" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid log source"})
		return
	}

	if len(req.Entries) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No log entries provided"})
		return
	}
	if len(req.Entries) > maxLogEntries {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Too many log entries"})
		return
	}

	logger := h.logger.Named("ui")
	for _, entry := range req.Entries {
		logUIEntry(logger, entry)
	}

	c.JSON(http.StatusOK, gin.H{
		"success":           true,
		"entries_received":  len(req.Entries),
		"entries_processed": len(req.Entries),
		"timestamp":         time.Now().Unix(),
	})
}

// logUIEntry writes one UI entry at its declared level. Unknown levels log
// at info.
func logUIEntry(logger *zap.Logger, entry UILogEntry) {
	fields := make([]zap.Field, 0, len(entry.Context)+4)
	fields = append(fields,
		zap.String("ui_log_id", entry.ID),
		zap.String("source", "ui"),
		zap.String("ui_timestamp", entry.Timestamp),
		zap.Int("priority", entry.Priority),
	)

	for key, value := range entry.Context {
		switch v := value.(type) {
		case string:
			fields = append(fields, zap.String(key, v))
		case float64:
			fields = append(fields, zap.Float64(key, v))
		case bool:
			fields = append(fields, zap.Bool(key, v))
		default:
			fields = append(fields, zap.Any(key, v))
		}
	}

	switch entry.Level {
	case "error":
		logger.Error(entry.Message, fields...)
	case "warn":
		logger.Warn(entry.Message, fields...)
	case "debug":
		logger.Debug(entry.Message, fields...)
	case "verbose":
		logger.Debug("[VERBOSE] "+entry.Message, fields...)
	default:
		logger.Info(entry.Message, fields...)
	}
}
