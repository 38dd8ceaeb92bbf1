package terminal

import (
	"bytes"
	"math/rand"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoundary(t *testing.T) {
	euro := []byte("€") // E2 82 AC
	emoji := []byte("😀") // F0 9F 98 80

	tests := []struct {
		name string
		in   []byte
		want int
	}{
		{"empty", nil, 0},
		{"ascii", []byte("hello"), 5},
		{"complete 3-byte", euro, 3},
		{"3-byte missing one", euro[:2], 0},
		{"3-byte missing two", euro[:1], 0},
		{"ascii then partial", append([]byte("a"), euro[:2]...), 1},
		{"complete 4-byte", emoji, 4},
		{"4-byte missing one", emoji[:3], 0},
		{"complete then partial", append(append([]byte{}, emoji...), emoji[:2]...), 4},
		{"only continuation bytes", []byte{0x80, 0x80, 0x80, 0x80}, 0},
		{"invalid lead byte", []byte{'a', 0xFF}, 2},
		{"valid then continuation run", append([]byte("ab"), 0x80, 0x80, 0x80), 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Boundary(tt.in))
		})
	}
}

func TestBoundarySplitCharacter(t *testing.T) {
	euro := []byte("€")

	tail := append([]byte{}, euro[0], euro[1])
	require.Equal(t, 0, Boundary(tail))

	tail = append(tail, euro[2])
	require.Equal(t, 3, Boundary(tail))
	assert.Equal(t, "€", string(tail[:3]))
}

// feed mimics the reader loop: carry the held-back tail into the next chunk.
func feed(chunks [][]byte) [][]byte {
	var out [][]byte
	var tail []byte
	for _, c := range chunks {
		tail = append(tail, c...)
		b := Boundary(tail)
		if b == 0 && len(tail) >= utf8.UTFMax {
			b = len(tail)
		}
		if b > 0 {
			out = append(out, append([]byte{}, tail[:b]...))
			tail = append(tail[:0], tail[b:]...)
		}
	}
	if len(tail) > 0 {
		out = append(out, tail)
	}
	return out
}

func TestBoundaryReassembly(t *testing.T) {
	text := []byte("plain ascii, ünïcödé, 日本語テキスト, emoji 😀🎉🚀 and € signs")
	rng := rand.New(rand.NewSource(7))

	for round := 0; round < 500; round++ {
		var chunks [][]byte
		rest := text
		for len(rest) > 0 {
			n := 1 + rng.Intn(6)
			if n > len(rest) {
				n = len(rest)
			}
			chunks = append(chunks, rest[:n])
			rest = rest[n:]
		}

		emitted := feed(chunks)
		for _, e := range emitted {
			require.True(t, utf8.Valid(e), "chunk %q split a character", e)
		}
		require.Equal(t, text, bytes.Join(emitted, nil))
	}
}

func TestBoundaryNeverPanics(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	buf := make([]byte, 16)
	for i := 0; i < 2000; i++ {
		n := rng.Intn(len(buf))
		rng.Read(buf[:n])
		b := Boundary(buf[:n])
		assert.GreaterOrEqual(t, b, 0)
		assert.LessOrEqual(t, b, n)
	}
}

func TestDecodeLossy(t *testing.T) {
	out := decodeLossy([]byte{'o', 'k', 0xE2, 0x82})
	assert.True(t, utf8.Valid(out))
	assert.True(t, bytes.HasPrefix(out, []byte("ok")))
	assert.Contains(t, string(out), "�")
}
