package parser

import (
	"strings"
	"unicode"
)

const esc = '\x1b'

// StripANSI removes escape sequences, carriage returns and control
// characters other than newline and tab.
//
// CSI sequences run to the first ASCII letter, OSC sequences to BEL or a
// backslash, charset designations (ESC ( x, ESC ) x) are two characters long
// and any other escape swallows one character.
func StripANSI(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		switch {
		case c == esc:
			i = skipEscape(runes, i+1) - 1
		case c == '\r':
		case c == '\n' || c == '\t':
			b.WriteRune(c)
		case unicode.IsControl(c):
		default:
			b.WriteRune(c)
		}
	}
	return b.String()
}

// skipEscape returns the index just past the sequence whose introducer
// follows ESC at i.
func skipEscape(runes []rune, i int) int {
	if i >= len(runes) {
		return i
	}
	switch runes[i] {
	case '[':
		for i++; i < len(runes); i++ {
			if isASCIILetter(runes[i]) {
				return i + 1
			}
		}
		return i
	case ']':
		for i++; i < len(runes); i++ {
			if runes[i] == '\a' || runes[i] == '\\' {
				return i + 1
			}
		}
		return i
	case '(', ')':
		return min(i+2, len(runes))
	default:
		return i + 1
	}
}

func isASCIILetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}
