package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripANSI(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "hello", "hello"},
		{"sgr", "\x1b[1;32mgreen\x1b[0m", "green"},
		{"cursor movement", "a\x1b[2Kb\x1b[10;1Hc", "abc"},
		{"private mode", "\x1b[?25lhidden\x1b[?25h", "hidden"},
		{"osc with bel", "\x1b]0;title\x07text", "text"},
		{"osc with st", "\x1b]8;;http://x\x1b\\link", "link"},
		{"charset", "\x1b(Bok", "ok"},
		{"other escape", "\x1b=keypad", "keypad"},
		{"trailing esc", "end\x1b", "end"},
		{"unterminated csi", "x\x1b[12", "x"},
		{"carriage return", "line\r\n", "line\n"},
		{"keeps tab", "a\tb", "a\tb"},
		{"drops c0", "a\x07\x08b", "ab"},
		{"drops c1", "a\u0085b", "ab"},
		{"unicode", "⏺ 日本", "⏺ 日本"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripANSI(tt.in))
		})
	}
}

// These cases pin behaviour a general-purpose stripper would handle
// differently; classification depends on them.
func TestStripANSIQuirks(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"osc ends at bare backslash", "\x1b]0;C:\\work\x07done", "workdone"},
		{"osc backslash before bel", "\x1b]2;a\\b\x07c", "bc"},
		{"esc swallows one char", "\x1b7saved\x1b8", "saved"},
		{"esc swallows a letter", "\x1bMup", "up"},
		{"esc swallows a whole rune", "\x1b日x", "x"},
		{"charset at end", "ok\x1b(", "ok"},
		{"csi ends at first letter", "\x1b[1;2~tilde", "ilde"},
		{"unterminated osc", "keep\x1b]0;lost", "keep"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripANSI(tt.in))
		})
	}
}
