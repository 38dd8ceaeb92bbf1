package terminal

import "errors"

// Sentinel errors for the terminal package.
var (
	// ErrAllocation is returned when the pseudo-terminal pair cannot be created or sized.
	ErrAllocation = errors.New("pty allocation failed")

	// ErrSpawn is returned when the child process cannot be started.
	ErrSpawn = errors.New("spawn failed")

	// ErrNotFound is returned when a session ID is not in the live table.
	ErrNotFound = errors.New("session not found")

	// ErrIO is matched by every IOError via errors.Is.
	ErrIO = errors.New("i/o error")

	// ErrManagerClosed is returned when spawning on a manager that has been shut down.
	ErrManagerClosed = errors.New("session manager is closed")
)

// IOError records a failed write or resize on a live session.
type IOError struct {
	Op  string
	Err error
}

func (e *IOError) Error() string {
	return e.Op + " failed: " + e.Err.Error()
}

func (e *IOError) Unwrap() error { return e.Err }

// Is reports ErrIO as a match so callers can classify without a type assertion.
func (e *IOError) Is(target error) bool {
	return target == ErrIO
}
