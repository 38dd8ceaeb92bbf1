package environment

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(env []string) map[string]string {
	m := make(map[string]string, len(env))
	for _, kv := range env {
		k, v, _ := strings.Cut(kv, "=")
		m[k] = v
	}
	return m
}

func TestBuildEnv(t *testing.T) {
	base := []string{"HOME=/home/dev", "USER=dev", "PATH=/usr/bin:/custom/bin", "LANG=en_US.UTF-8", "TERM=dumb"}
	r := Static{Shell: "/bin/zsh", Extra: []string{"/opt/homebrew/bin", "/usr/bin"}}

	env := envMap(BuildEnv(base, r, map[string]string{"FOO": "bar"}))

	assert.Equal(t, "xterm-256color", env["TERM"])
	assert.Equal(t, "truecolor", env["COLORTERM"])
	assert.Equal(t, "/bin/zsh", env["SHELL"])
	assert.Equal(t, "/home/dev", env["HOME"])
	assert.Equal(t, "dev", env["USER"])
	assert.Equal(t, "en_US.UTF-8", env["LANG"])
	assert.Equal(t, "bar", env["FOO"])
	assert.Equal(t, "/opt/homebrew/bin:/usr/bin:/custom/bin", env["PATH"])
}

func TestBuildEnvOverridesWin(t *testing.T) {
	base := []string{"HOME=/home/dev", "USER=dev"}
	env := envMap(BuildEnv(base, Static{Shell: "/bin/sh"}, map[string]string{"TERM": "vt100", "SHELL": "/bin/bash"}))

	assert.Equal(t, "vt100", env["TERM"])
	assert.Equal(t, "/bin/bash", env["SHELL"])
}

func TestBuildEnvKeepsOrder(t *testing.T) {
	base := []string{"B=2", "A=1", "HOME=/h", "USER=u"}
	env := BuildEnv(base, nil, nil)

	require.GreaterOrEqual(t, len(env), 4)
	assert.Equal(t, []string{"B=2", "A=1", "HOME=/h", "USER=u"}, env[:4])
}

func TestJoinPath(t *testing.T) {
	tests := []struct {
		name      string
		extra     []string
		inherited string
		want      string
	}{
		{"empty", nil, "", ""},
		{"inherited only", nil, "/a:/b", "/a:/b"},
		{"extra first", []string{"/x"}, "/a", "/x:/a"},
		{"dedupe keeps first", []string{"/a", "/b"}, "/b:/c:/a", "/a:/b:/c"},
		{"skips empty", []string{"", "/a"}, "::/b", "/a:/b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, JoinPath(tt.extra, tt.inherited))
		})
	}
}

func TestSystemResolveShell(t *testing.T) {
	s := &System{Getenv: func(k string) string {
		if k == "SHELL" {
			return "/usr/local/bin/fish"
		}
		return ""
	}}
	assert.Equal(t, "/usr/local/bin/fish", s.ResolveShell())

	s = &System{Getenv: func(string) string { return "" }}
	assert.NotEmpty(t, s.ResolveShell())
}

func TestSystemExtraPathEntries(t *testing.T) {
	home := t.TempDir()
	for _, dir := range []string{
		".nvm/versions/node/v18.17.0/bin",
		".nvm/versions/node/v20.11.1/bin",
		".nvm/versions/node/v9.0.0/bin",
		".cargo/bin",
	} {
		require.NoError(t, os.MkdirAll(filepath.Join(home, dir), 0o755))
	}

	entries := NewSystemForHome(home, nil).ExtraPathEntries()

	require.NotEmpty(t, entries)
	assert.Equal(t, filepath.Join(home, ".nvm/versions/node/v20.11.1/bin"), entries[0])
	assert.Equal(t, filepath.Join(home, ".cargo/bin"), entries[1])
	assert.Contains(t, entries, "/opt/homebrew/bin")
	assert.Contains(t, entries, filepath.Join(home, ".local/bin"))
	assert.NotContains(t, entries, filepath.Join(home, ".volta/bin"))
	assert.Equal(t, "/sbin", entries[len(entries)-1])
}

func TestSystemNoNode(t *testing.T) {
	home := t.TempDir()
	entries := NewSystemForHome(home, nil).ExtraPathEntries()

	assert.Equal(t, "/opt/homebrew/bin", entries[0])
}

func TestVersionOf(t *testing.T) {
	home := "/home/dev"
	assert.Equal(t, "v20.1.0", versionOf("/home/dev/.nvm/versions/node/v20.1.0/bin", home))
	assert.Equal(t, "v18.0.0", versionOf("/home/dev/.local/share/fnm/node-versions/18.0.0/installation/bin", home))
	assert.Equal(t, "", versionOf("/home/dev/.nvm/versions/node/system/bin", home))
}
