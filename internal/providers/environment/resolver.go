// Package environment builds the environment handed to spawned shells.
//
// Processes launched from a desktop session often start with a minimal PATH
// and no HOME or USER. The resolver restores what an interactive login shell
// would normally provide: the user's shell, package-manager prefixes and the
// bin directory of the newest installed Node.js runtime.
package environment

// Resolver supplies the shell and PATH augmentation for spawned children.
type Resolver interface {
	// ResolveShell returns the absolute path of the shell to start by default.
	ResolveShell() string

	// ExtraPathEntries returns directories to put ahead of the inherited PATH,
	// highest priority first.
	ExtraPathEntries() []string
}

// Static is a fixed Resolver, mostly useful in tests.
type Static struct {
	Shell string
	Extra []string
}

func (s Static) ResolveShell() string { return s.Shell }

func (s Static) ExtraPathEntries() []string { return s.Extra }
