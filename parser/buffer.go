package parser

import (
	"strings"
	"unicode/utf8"
)

// chunkBuffer accumulates unconsumed input across ProcessChunk calls. Bytes
// that form an incomplete UTF-8 sequence at the tail are hidden from the
// visible window until the rest of the code point arrives, so matching rules
// never run against a buffer ending mid-codepoint.
type chunkBuffer struct {
	data   []byte
	hidden int // trailing bytes held back as an incomplete UTF-8 tail
	sealed bool
}

// append adds raw chunk bytes and recomputes the hidden tail.
func (b *chunkBuffer) append(s string) {
	b.data = append(b.data, s...)
	if b.sealed {
		b.hidden = 0
		return
	}
	b.hidden = incompleteTailLen(b.data)
}

// seal exposes any held-back tail bytes. Called on Complete so that a
// truncated final code point still flushes as content rather than lingering.
func (b *chunkBuffer) seal() {
	b.sealed = true
	b.hidden = 0
}

// visible returns the window of the buffer that is safe to match against.
func (b *chunkBuffer) visible() string {
	return string(b.data[:len(b.data)-b.hidden])
}

// consume discards the first n bytes of the visible window.
func (b *chunkBuffer) consume(n int) {
	if n <= 0 {
		return
	}
	b.data = b.data[n:]
}

// len reports the total buffered byte count, hidden tail included.
func (b *chunkBuffer) len() int {
	return len(b.data)
}

// reset discards all buffered state.
func (b *chunkBuffer) reset() {
	b.data = nil
	b.hidden = 0
	b.sealed = false
}

// flushAll returns every buffered byte, hidden tail included, for forced
// flushes where even a truncated code point must leave the buffer.
func (b *chunkBuffer) flushAll() string {
	s := string(b.data)
	b.data = b.data[:0]
	b.hidden = 0
	return s
}

// line returns the first line of the visible window. complete is true when a
// terminating newline was found; the returned line never includes it.
func (b *chunkBuffer) line() (line string, complete bool) {
	v := b.visible()
	if i := strings.IndexByte(v, '\n'); i >= 0 {
		return v[:i], true
	}
	return v, false
}

// incompleteTailLen returns how many trailing bytes of b form the prefix of
// a UTF-8 sequence whose continuation has not arrived yet. Invalid bytes
// that can never complete return 0 and pass through as-is.
func incompleteTailLen(b []byte) int {
	n := len(b)
	if n == 0 {
		return 0
	}
	// Find the start byte of the last sequence, at most UTFMax-1 back.
	for back := 1; back <= utf8.UTFMax && back <= n; back++ {
		c := b[n-back]
		if c < utf8.RuneSelf {
			return 0 // ASCII tail, nothing pending
		}
		if c&0xC0 == 0x80 {
			continue // continuation byte, keep walking back
		}
		// Start byte found; expected sequence length from the leading bits.
		var want int
		switch {
		case c&0xE0 == 0xC0:
			want = 2
		case c&0xF0 == 0xE0:
			want = 3
		case c&0xF8 == 0xF0:
			want = 4
		default:
			return 0 // invalid start byte, not a pending sequence
		}
		if back < want {
			return back
		}
		return 0
	}
	return 0
}
