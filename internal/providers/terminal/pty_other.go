//go:build !unix

package terminal

import (
	"os"

	"github.com/creack/pty"
)

func setNonblock(*os.File) error { return nil }

func setWinsize(f *os.File, cols, rows uint16) error {
	return pty.Setsize(f, &pty.Winsize{Cols: cols, Rows: rows})
}
