package terminal

import "unicode/utf8"

// Boundary returns the length of the longest prefix of b that does not end in a
// truncated UTF-8 sequence. Bytes past the boundary should be held back and
// prepended to the next read.
//
// Only the last utf8.UTFMax-1 bytes are inspected for a lead byte. When none is
// found there (a run of continuation bytes), the valid prefix reported by a full
// validation is used instead.
func Boundary(b []byte) int {
	n := len(b)
	if n == 0 {
		return 0
	}

	for i := 1; i <= utf8.UTFMax-1 && i <= n; i++ {
		pos := n - i
		c := b[pos]
		if c&0xC0 == 0x80 {
			continue
		}
		if n-pos < sequenceLen(c) {
			return pos
		}
		return n
	}

	return validPrefix(b)
}

// sequenceLen returns the length a lead byte declares. Invalid lead bytes count
// as a single byte so they are flushed rather than held forever.
func sequenceLen(c byte) int {
	switch {
	case c&0x80 == 0x00:
		return 1
	case c&0xE0 == 0xC0:
		return 2
	case c&0xF0 == 0xE0:
		return 3
	case c&0xF8 == 0xF0:
		return 4
	default:
		return 1
	}
}

func validPrefix(b []byte) int {
	i := 0
	for i < len(b) {
		r, size := utf8.DecodeRune(b[i:])
		if r == utf8.RuneError && size <= 1 {
			return i
		}
		i += size
	}
	return i
}
