package parser

import (
	"strings"
	"unicode/utf8"
)

// Box drawing, spinner and bullet glyphs the CLI uses for decoration. A
// line starting with one of these, or with '>', is chrome rather than prose.
const decorativeGlyphs = "─│┌┐└┘├┤┬┴┼═║╔╗╚╝✶✷✸✹✺✻✼✽✾✿·•◦✢✣✤✥✦✧✩✪✫✬✭✮✯✰✱✲✳�"

var (
	ruleRuns = []string{"──", "━━", "══"}

	// Fragments of SGR and cursor codes that survive when a sequence was split.
	escapeResidue = []string{";231m", ";1H", ";247m"}

	chromePhrases = []string{
		"? for shortcuts",
		"esc to interrupt",
		"ctrl+g",
		"↵ send",
		"Your rate limits",
	}

	chromePrefixes = []string{"[one-term]", "/model"}
)

// IsJunk reports whether a line is UI decoration rather than response text.
func IsJunk(line string) bool {
	t := strings.TrimSpace(line)

	if len(t) < 3 {
		return true
	}
	if containsAny(t, ruleRuns) || containsAny(t, escapeResidue) {
		return true
	}

	first, size := utf8.DecodeRuneInString(t)
	if first == '>' || strings.ContainsRune(decorativeGlyphs, first) {
		return true
	}
	if first >= '0' && first <= '9' {
		switch rest := t[size:]; {
		case strings.HasPrefix(rest, ";"), strings.HasPrefix(rest, "m"), strings.HasPrefix(rest, "H"):
			return true
		}
	}

	if containsAny(t, chromePhrases) {
		return true
	}
	for _, p := range chromePrefixes {
		if strings.HasPrefix(t, p) {
			return true
		}
	}
	return false
}

// CleanResponse returns the prose part of a line: junk lines are rejected,
// and the rest is cut at the first decorative glyph after the first
// character. Results shorter than two bytes are rejected.
func CleanResponse(line string) (string, bool) {
	t := strings.TrimSpace(line)
	if IsJunk(t) {
		return "", false
	}

	end := len(t)
	for i, r := range t {
		if i > 0 && strings.ContainsRune(decorativeGlyphs, r) {
			end = i
			break
		}
	}

	clean := strings.TrimSpace(t[:end])
	if len(clean) < 2 {
		return "", false
	}
	return clean, true
}

// extractPath returns the text from the first '/' up to a closing
// parenthesis, quote or space.
func extractPath(s string) (string, bool) {
	start := strings.IndexByte(s, '/')
	if start < 0 {
		return "", false
	}
	rest := s[start:]
	if end := strings.IndexAny(rest, ")\"' "); end >= 0 {
		rest = rest[:end]
	}
	return rest, true
}

// extractCommand returns the argument of Bash(...) or the text after
// "Running:".
func extractCommand(s string) (string, bool) {
	if start := strings.Index(s, "Bash("); start >= 0 {
		rest := s[start+len("Bash("):]
		if end := strings.IndexByte(rest, ')'); end >= 0 {
			return rest[:end], true
		}
	}
	if start := strings.Index(s, "Running:"); start >= 0 {
		return strings.TrimSpace(s[start+len("Running:"):]), true
	}
	return "", false
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
