// Package shell runs one-shot commands with the same augmented environment
// that interactive terminal sessions get.
package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/GriffinCanCode/oneterm/internal/providers/environment"
	"github.com/GriffinCanCode/oneterm/internal/shared/id"
	"go.uber.org/zap"
)

// DefaultTimeout bounds a command when the caller's context has no deadline.
const DefaultTimeout = 2 * time.Minute

const waitDelay = time.Second

// ErrEmptyCommand is returned for a blank command line.
var ErrEmptyCommand = errors.New("command is empty")

// ExitError reports a command that ran and failed. Its message is the
// command's stderr, which is what callers show to the user.
type ExitError struct {
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	if strings.TrimSpace(e.Stderr) == "" {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Stderr
}

// Runner executes commands through the platform shell.
type Runner struct {
	resolver environment.Resolver
	baseEnv  func() []string
	timeout  time.Duration
	logger   *zap.Logger
}

// NewRunner creates a runner. A nil logger disables logging.
func NewRunner(resolver environment.Resolver, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		resolver: resolver,
		baseEnv:  os.Environ,
		timeout:  DefaultTimeout,
		logger:   logger,
	}
}

// Execute runs command in cwd and returns its stdout. A non-zero exit
// returns an *ExitError carrying stderr.
func (r *Runner) Execute(ctx context.Context, command, cwd string) (string, error) {
	if strings.TrimSpace(command) == "" {
		return "", ErrEmptyCommand
	}

	if _, ok := ctx.Deadline(); !ok && r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	name, args := shellInvocation(command)
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = cwd
	cmd.Env = environment.BuildEnv(r.baseEnv(), r.resolver, nil)
	// Grandchildren may keep the output pipes open after a cancelled shell dies.
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runID := id.NewExecID()
	log := r.logger.With(zap.String("exec_id", runID.String()), zap.String("cwd", cwd))
	start := time.Now()

	err := cmd.Run()
	log.Debug("command finished",
		zap.Duration("duration", time.Since(start)),
		zap.Int("stdout_bytes", stdout.Len()),
		zap.Error(err))

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", &ExitError{Code: exitErr.ExitCode(), Stderr: lossy(stderr.Bytes())}
		}
		return "", fmt.Errorf("run command: %w", err)
	}
	return lossy(stdout.Bytes()), nil
}

func shellInvocation(command string) (string, []string) {
	if runtime.GOOS == "windows" {
		return "cmd", []string{"/C", command}
	}
	return "sh", []string{"-c", command}
}

func lossy(b []byte) string {
	return strings.ToValidUTF8(string(b), "�")
}
