package http

import (
	"errors"
	"net/http"

	"github.com/GriffinCanCode/oneterm/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/oneterm/internal/providers/shell"
	"github.com/gin-gonic/gin"
)

// ExecRequest is the body of POST /exec.
type ExecRequest struct {
	Command string `json:"command" binding:"required"`
	Cwd     string `json:"cwd"`
}

// Execute runs a one-shot command and returns its stdout
func (h *Handlers) Execute(c *gin.Context) {
	var req ExecRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	timer := monitoring.NewTimer(h.metrics)
	output, err := h.runner.Execute(c.Request.Context(), req.Command, req.Cwd)
	if err != nil {
		timer.Stop("error")
		if ctxErr := c.Request.Context().Err(); ctxErr != nil {
			err = ctxErr
		}
		var exitErr *shell.ExitError
		if errors.As(err, &exitErr) {
			_ = c.Error(err)
			c.AbortWithStatusJSON(statusFor(err), gin.H{
				"error":     exitErr.Error(),
				"exit_code": exitErr.Code,
			})
			return
		}
		fail(c, err)
		return
	}
	timer.Stop("ok")

	c.JSON(http.StatusOK, gin.H{"output": output})
}
