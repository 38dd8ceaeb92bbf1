package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/GriffinCanCode/oneterm/internal/providers/shell"
	"github.com/GriffinCanCode/oneterm/internal/providers/terminal"
	"github.com/gin-gonic/gin"
)

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	var exitErr *shell.ExitError
	switch {
	case errors.Is(err, terminal.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, terminal.ErrIO):
		return http.StatusConflict
	case errors.Is(err, terminal.ErrManagerClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, shell.ErrEmptyCommand):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &exitErr):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// fail records err on the context and writes {"error": ...}.
func fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(statusFor(err), gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
