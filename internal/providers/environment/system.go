package environment

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"
	"golang.org/x/mod/semver"
)

// Node version managers, as glob patterns relative to the home directory.
// Each match is the bin directory of one installed version.
var nodeBinPatterns = []string{
	".nvm/versions/node/*/bin",
	".local/share/fnm/node-versions/*/installation/bin",
	"Library/Application Support/fnm/node-versions/*/installation/bin",
}

// Per-user tool prefixes added when present.
var userBinDirs = []string{
	".volta/bin",
	".bun/bin",
	".cargo/bin",
}

var fallbackShells = []string{"/bin/zsh", "/bin/bash", "/bin/sh"}

// System resolves against the real host.
type System struct {
	Home   string
	Getenv func(string) string
	Logger *zap.Logger
}

// NewSystem returns a resolver for the current user.
func NewSystem(logger *zap.Logger) *System {
	if logger == nil {
		logger = zap.NewNop()
	}
	home, err := os.UserHomeDir()
	if err != nil {
		logger.Debug("home directory unavailable", zap.Error(err))
	}
	return NewSystemForHome(home, logger)
}

// NewSystemForHome returns a resolver that searches home instead of the
// current user's home directory.
func NewSystemForHome(home string, logger *zap.Logger) *System {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &System{Home: home, Getenv: os.Getenv, Logger: logger}
}

func (s *System) getenv(key string) string {
	if s.Getenv == nil {
		return os.Getenv(key)
	}
	return s.Getenv(key)
}

// ResolveShell prefers $SHELL, then the first common shell that exists.
func (s *System) ResolveShell() string {
	if shell := s.getenv("SHELL"); shell != "" {
		return shell
	}
	for _, candidate := range fallbackShells {
		if fileExists(candidate) {
			return candidate
		}
	}
	return "/bin/sh"
}

// ExtraPathEntries returns, in order: the newest Node.js bin directory, any
// per-user tool prefixes that exist, Homebrew and /usr/local prefixes,
// ~/.local/bin, then the standard system directories.
func (s *System) ExtraPathEntries() []string {
	var entries []string

	if s.Home != "" {
		if bin := s.newestNodeBin(); bin != "" {
			entries = append(entries, bin)
		}
		for _, dir := range userBinDirs {
			full := filepath.Join(s.Home, dir)
			if isDir(full) {
				entries = append(entries, full)
			}
		}
	}

	entries = append(entries,
		"/opt/homebrew/bin",
		"/opt/homebrew/sbin",
		"/usr/local/bin",
		"/usr/local/sbin",
	)
	if s.Home != "" {
		entries = append(entries, filepath.Join(s.Home, ".local/bin"))
	}
	entries = append(entries, "/usr/bin", "/bin", "/usr/sbin", "/sbin")

	return entries
}

// newestNodeBin picks the highest semantic version across all version
// managers. Directory names that are not versions sort last.
func (s *System) newestNodeBin() string {
	type candidate struct {
		version string
		bin     string
	}
	var found []candidate

	for _, pattern := range nodeBinPatterns {
		matches, err := doublestar.FilepathGlob(filepath.Join(s.Home, pattern))
		if err != nil {
			if s.Logger != nil {
				s.Logger.Debug("node bin glob failed", zap.String("pattern", pattern), zap.Error(err))
			}
			continue
		}
		for _, bin := range matches {
			if !isDir(bin) {
				continue
			}
			found = append(found, candidate{version: versionOf(bin, s.Home), bin: bin})
		}
	}
	if len(found) == 0 {
		return ""
	}

	sort.SliceStable(found, func(i, j int) bool {
		return semver.Compare(found[i].version, found[j].version) > 0
	})
	return found[0].bin
}

// versionOf extracts the version directory name from a matched bin path.
func versionOf(bin, home string) string {
	rel, err := filepath.Rel(home, bin)
	if err != nil {
		return ""
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	for i, p := range parts {
		if (p == "node" || p == "node-versions") && i+1 < len(parts) {
			v := parts[i+1]
			if v != "" && v[0] != 'v' {
				v = "v" + v
			}
			if semver.IsValid(v) {
				return v
			}
			return ""
		}
	}
	return ""
}

func isDir(p string) bool {
	fi, err := os.Stat(p)
	return err == nil && fi.IsDir()
}

func fileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
