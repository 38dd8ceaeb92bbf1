package terminal

import (
	"os"
	"time"
)

const (
	// GracePeriod is how long a process group gets to exit after SIGTERM.
	GracePeriod = 500 * time.Millisecond

	// KillSettle is how long to wait after SIGKILL before reaping.
	KillSettle = 100 * time.Millisecond
)

// Outcome reports which path a termination took.
type Outcome string

const (
	OutcomeAlreadyExited Outcome = "already_exited"
	OutcomeGraceful      Outcome = "graceful"
	OutcomeForced        Outcome = "forced"
)

// Target is what a Terminator acts on.
type Target struct {
	// Process is the direct child. It leads its own session and process group.
	Process *os.Process

	// Groups lists additional process groups to signal, typically the
	// terminal's foreground job when the shell runs it in a separate group.
	// Where /proc is available the unix terminator adds every other group of
	// the child's session.
	Groups []int

	// Exited is closed once the direct child has been reaped.
	Exited <-chan struct{}
}

// Terminator stops a child and everything it launched. Implementations signal
// only; the session reaps the child by waiting on Target.Exited afterwards.
type Terminator interface {
	Terminate(t Target) (Outcome, error)
}

// DefaultTerminator returns the platform terminator with the standard grace
// and settle intervals.
func DefaultTerminator() Terminator {
	return newPlatformTerminator(GracePeriod, KillSettle)
}
