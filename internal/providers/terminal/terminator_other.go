//go:build !unix

package terminal

import (
	"errors"
	"os"
	"os/exec"
	"time"
)

// directTerminator kills the child outright. Without process groups reachable
// by signal there is no graceful step.
type directTerminator struct{}

func newPlatformTerminator(_, _ time.Duration) Terminator {
	return directTerminator{}
}

func (directTerminator) Terminate(t Target) (Outcome, error) {
	select {
	case <-t.Exited:
		return OutcomeAlreadyExited, nil
	default:
	}
	if err := t.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return "", err
	}
	return OutcomeForced, nil
}

func foregroundGroup(*os.File) int { return 0 }

func configureProcAttr(*exec.Cmd) {}
