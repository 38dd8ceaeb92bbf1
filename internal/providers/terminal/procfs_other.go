//go:build unix && !linux

package terminal

// Without /proc only the child's own group and the foreground group are
// reachable.
func sessionGroups(int) []int { return nil }

func groupHasLiveMember(int) (live, known bool) { return false, false }
