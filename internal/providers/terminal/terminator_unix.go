//go:build unix

package terminal

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

const probeInterval = 20 * time.Millisecond

// groupTerminator signals whole process groups: SIGTERM, a grace interval,
// then SIGKILL for anything still alive.
type groupTerminator struct {
	grace  time.Duration
	settle time.Duration
}

func newPlatformTerminator(grace, settle time.Duration) Terminator {
	return &groupTerminator{grace: grace, settle: settle}
}

func (g *groupTerminator) Terminate(t Target) (Outcome, error) {
	groups := targetGroups(t, sessionGroups(t.Process.Pid))

	delivered := 0
	for _, pgid := range groups {
		err := unix.Kill(-pgid, unix.SIGTERM)
		switch {
		case err == nil:
			delivered++
		case errors.Is(err, unix.ESRCH):
		default:
			return "", fmt.Errorf("signal process group %d: %w", pgid, err)
		}
	}
	if delivered == 0 {
		return OutcomeAlreadyExited, nil
	}

	if waitGroupsGone(groups, g.grace) {
		return OutcomeGraceful, nil
	}

	// Jobs started during the grace interval are caught here.
	groups = mergeGroups(groups, sessionGroups(t.Process.Pid))
	for _, pgid := range groups {
		if err := unix.Kill(-pgid, unix.SIGKILL); err != nil && !errors.Is(err, unix.ESRCH) {
			return "", fmt.Errorf("kill process group %d: %w", pgid, err)
		}
	}
	waitGroupsGone(groups, g.settle)

	return OutcomeForced, nil
}

// targetGroups lists the child's own group (it is a session leader, so its
// pid is also its pgid), the foreground group and extra, without duplicates.
func targetGroups(t Target, extra []int) []int {
	return mergeGroups(mergeGroups([]int{t.Process.Pid}, t.Groups), extra)
}

func mergeGroups(groups, more []int) []int {
	for _, pgid := range more {
		if pgid <= 0 {
			continue
		}
		dup := false
		for _, seen := range groups {
			if seen == pgid {
				dup = true
				break
			}
		}
		if !dup {
			groups = append(groups, pgid)
		}
	}
	return groups
}

// waitGroupsGone polls until no group has a live member or d elapses.
func waitGroupsGone(groups []int, d time.Duration) bool {
	deadline := time.Now().Add(d)
	for {
		alive := false
		for _, pgid := range groups {
			if groupAlive(pgid) {
				alive = true
				break
			}
		}
		if !alive {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(probeInterval)
	}
}

// groupAlive probes with signal 0. EPERM still means a member exists. Zombies
// answer the probe too, so where /proc is readable a group of zombies counts
// as gone.
func groupAlive(pgid int) bool {
	err := unix.Kill(-pgid, 0)
	if err != nil && !errors.Is(err, unix.EPERM) {
		return false
	}
	if live, known := groupHasLiveMember(pgid); known {
		return live
	}
	return true
}

// foregroundGroup returns the terminal's foreground process group, or 0.
// The ioctl goes through SyscallConn so the descriptor stays non-blocking.
func foregroundGroup(f *os.File) int {
	rc, err := f.SyscallConn()
	if err != nil {
		return 0
	}
	pgid := 0
	_ = rc.Control(func(fd uintptr) {
		v, err := unix.IoctlGetInt(int(fd), unix.TIOCGPGRP)
		if err == nil {
			pgid = v
		}
	})
	return pgid
}

// configureProcAttr makes the child a session leader with the PTY as its
// controlling terminal.
func configureProcAttr(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setsid = true
	cmd.SysProcAttr.Setctty = true
}
