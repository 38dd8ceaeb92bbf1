//go:build unix

package terminal

import (
	"os"

	"golang.org/x/sys/unix"
)

// setNonblock puts the PTY master back into non-blocking mode. os.File.Fd,
// which pty.Open may call, switches the descriptor to blocking, and a blocking
// Read is not woken by Close.
func setNonblock(f *os.File) error {
	rc, err := f.SyscallConn()
	if err != nil {
		return err
	}
	var serr error
	if err := rc.Control(func(fd uintptr) {
		serr = unix.SetNonblock(int(fd), true)
	}); err != nil {
		return err
	}
	return serr
}

// setWinsize applies TIOCSWINSZ without going through Fd.
func setWinsize(f *os.File, cols, rows uint16) error {
	rc, err := f.SyscallConn()
	if err != nil {
		return err
	}
	var serr error
	if err := rc.Control(func(fd uintptr) {
		serr = unix.IoctlSetWinsize(int(fd), unix.TIOCSWINSZ, &unix.Winsize{Row: rows, Col: cols})
	}); err != nil {
		return err
	}
	return serr
}
