package environment

import (
	"os/user"
	"path/filepath"
	"strings"
)

// Variables every child terminal gets regardless of the parent's environment.
var terminalVars = [][2]string{
	{"TERM", "xterm-256color"},
	{"COLORTERM", "truecolor"},
}

// BuildEnv derives a child environment from base (usually os.Environ()).
// TERM, COLORTERM, SHELL and PATH are set, HOME and USER are filled in when
// missing, and overrides are applied last so callers always win.
func BuildEnv(base []string, r Resolver, overrides map[string]string) []string {
	env := newOrderedEnv(base)

	for _, kv := range terminalVars {
		env.set(kv[0], kv[1])
	}

	if env.get("HOME") == "" || env.get("USER") == "" {
		if u, err := user.Current(); err == nil {
			if env.get("HOME") == "" && u.HomeDir != "" {
				env.set("HOME", u.HomeDir)
			}
			if env.get("USER") == "" && u.Username != "" {
				env.set("USER", u.Username)
			}
		}
	}

	if r != nil {
		if shell := r.ResolveShell(); shell != "" {
			env.set("SHELL", shell)
		}
		env.set("PATH", JoinPath(r.ExtraPathEntries(), env.get("PATH")))
	}

	for k, v := range overrides {
		env.set(k, v)
	}

	return env.list()
}

// JoinPath prepends extra to the inherited PATH value, dropping empty and
// repeated entries while keeping the first occurrence.
func JoinPath(extra []string, inherited string) string {
	seen := make(map[string]struct{}, len(extra))
	out := make([]string, 0, len(extra))

	add := func(dir string) {
		if dir == "" {
			return
		}
		if _, ok := seen[dir]; ok {
			return
		}
		seen[dir] = struct{}{}
		out = append(out, dir)
	}

	for _, dir := range extra {
		add(dir)
	}
	for _, dir := range filepath.SplitList(inherited) {
		add(dir)
	}

	return strings.Join(out, string(filepath.ListSeparator))
}

// orderedEnv keeps KEY=value pairs in their original order so the child sees
// a stable environment.
type orderedEnv struct {
	keys   []string
	values map[string]string
}

func newOrderedEnv(base []string) *orderedEnv {
	e := &orderedEnv{values: make(map[string]string, len(base))}
	for _, kv := range base {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		e.set(k, v)
	}
	return e
}

func (e *orderedEnv) get(k string) string {
	return e.values[k]
}

func (e *orderedEnv) set(k, v string) {
	if _, ok := e.values[k]; !ok {
		e.keys = append(e.keys, k)
	}
	e.values[k] = v
}

func (e *orderedEnv) list() []string {
	out := make([]string, 0, len(e.keys))
	for _, k := range e.keys {
		out = append(out, k+"="+e.values[k])
	}
	return out
}
