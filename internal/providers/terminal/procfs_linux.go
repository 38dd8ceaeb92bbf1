package terminal

import (
	"bytes"
	"os"
	"strconv"
)

// procEntry is the part of /proc/<pid>/stat the terminator needs.
type procEntry struct {
	pid     int
	state   byte
	pgrp    int
	session int
}

// listProcs reads every process from /proc. ok is false when /proc cannot be
// read.
func listProcs() (procs []procEntry, ok bool) {
	dir, err := os.ReadDir("/proc")
	if err != nil {
		return nil, false
	}
	for _, e := range dir {
		pid, err := strconv.Atoi(e.Name())
		if err != nil {
			continue
		}
		if p, ok := readProc(pid); ok {
			procs = append(procs, p)
		}
	}
	return procs, true
}

func readProc(pid int) (procEntry, bool) {
	data, err := os.ReadFile("/proc/" + strconv.Itoa(pid) + "/stat")
	if err != nil {
		return procEntry{}, false
	}
	// comm may contain spaces and parentheses; fields resume after the last ')'.
	i := bytes.LastIndexByte(data, ')')
	if i < 0 {
		return procEntry{}, false
	}
	f := bytes.Fields(data[i+1:])
	if len(f) < 4 || len(f[0]) == 0 {
		return procEntry{}, false
	}
	pgrp, err1 := strconv.Atoi(string(f[2]))
	sess, err2 := strconv.Atoi(string(f[3]))
	if err1 != nil || err2 != nil {
		return procEntry{}, false
	}
	return procEntry{pid: pid, state: f[0][0], pgrp: pgrp, session: sess}, true
}

func (p procEntry) zombie() bool {
	return p.state == 'Z' || p.state == 'X'
}

// sessionGroups returns the process groups with a live member in session sid.
// Background jobs of an interactive shell live in groups of their own.
func sessionGroups(sid int) []int {
	procs, ok := listProcs()
	if !ok {
		return nil
	}
	var groups []int
	seen := make(map[int]struct{})
	for _, p := range procs {
		if p.session != sid || p.zombie() {
			continue
		}
		if _, dup := seen[p.pgrp]; dup {
			continue
		}
		seen[p.pgrp] = struct{}{}
		groups = append(groups, p.pgrp)
	}
	return groups
}

// groupHasLiveMember reports whether pgid has a member that is not a zombie.
// known is false when /proc cannot be read.
func groupHasLiveMember(pgid int) (live, known bool) {
	procs, ok := listProcs()
	if !ok {
		return false, false
	}
	for _, p := range procs {
		if p.pgrp == pgid && !p.zombie() {
			return true, true
		}
	}
	return false, true
}
