package parser

import "strings"

// inlineSink receives the output of the inline scanner: runs of plain text
// destined for the surrounding text element, and completed inline elements
// (link, emphasis, strong, strikethrough) emitted as siblings.
type inlineSink interface {
	plainText(s string)
	inlineElement(typ ElementType, content string, meta map[string]any)
}

// inlineScanner segments paragraph content into plain text and inline
// elements. It never sees newlines mid-scan: the orchestrator feeds it one
// line fragment at a time and resolves pending ambiguity at each line end,
// so inline spans cannot cross lines. A suffix that could still become a
// valid span (an unclosed marker, a link missing its closing parenthesis)
// is held back rather than guessed at; that holdback is what keeps the
// emitted elements identical no matter how the input was chunked.
type inlineScanner struct {
	sink    inlineSink
	enabled map[ElementType]bool
	strip   bool

	held string // unresolved suffix of the current line
	prev byte   // last committed byte of the current line, 0 at line start
}

func newInlineScanner(sink inlineSink, enabled map[ElementType]bool, strip bool) *inlineScanner {
	return &inlineScanner{sink: sink, enabled: enabled, strip: strip}
}

// write feeds the next fragment of the current line.
func (sc *inlineScanner) write(s string) {
	work := sc.held + s
	sc.held = ""
	sc.scan(work)
}

// endLine resolves everything still held on the current line. Disproved
// spans flush verbatim as plain text; spans never carry across a line break.
func (sc *inlineScanner) endLine() {
	if sc.held != "" {
		rest := sc.held
		sc.held = ""
		sc.emitPlain(rest)
	}
	sc.prev = 0
}

// finish resolves all held state at the end of the element.
func (sc *inlineScanner) finish() {
	sc.endLine()
}

// reset discards scanner state for a fresh element.
func (sc *inlineScanner) reset() {
	sc.held = ""
	sc.prev = 0
}

// scan walks work, emitting plain runs and completed inline elements, and
// holding any ambiguous tail.
func (sc *inlineScanner) scan(work string) {
	var plain strings.Builder

	flushPlain := func() {
		if plain.Len() > 0 {
			sc.emitPlain(plain.String())
			plain.Reset()
		}
	}
	hold := func(from int) {
		flushPlain()
		sc.held = work[from:]
	}

	i := 0
	for i < len(work) {
		c := work[i]
		switch c {
		case '\\':
			if i+1 >= len(work) {
				hold(i)
				return
			}
			plain.WriteByte(work[i])
			plain.WriteByte(work[i+1])
			i += 2

		case '`':
			run := runLength(work, i, '`')
			end := findDelimiterRun(work, i+run, '`', run)
			if end < 0 {
				hold(i)
				return
			}
			// Code spans pass through verbatim; nothing inside them is
			// markup.
			plain.WriteString(work[i : end+run])
			i = end + run

		case '*', '_', '~':
			adv, consumed := sc.scanEmphasis(work, i, &plain, flushPlain)
			if !consumed {
				hold(i)
				return
			}
			i = adv

		case '[':
			if !sc.inlineEnabled(ElementLink) {
				plain.WriteByte(c)
				i++
				break
			}
			text, url, title, n, st := parseInlineLink(work[i:])
			switch st {
			case linkMatch:
				flushPlain()
				meta := map[string]any{"url": url}
				if title != "" {
					meta["title"] = title
				}
				sc.emitElement(ElementLink, text, meta)
				i += n
			case linkPending:
				hold(i)
				return
			default:
				plain.WriteByte(c)
				i++
			}

		default:
			plain.WriteByte(c)
			i++
		}
	}

	flushPlain()
}

// scanEmphasis handles the *, _ and ~ marker families at work[i]. It
// returns the position to resume at and false when the marker is ambiguous
// and the scan must hold.
func (sc *inlineScanner) scanEmphasis(work string, i int, plain *strings.Builder, flushPlain func()) (next int, consumed bool) {
	c := work[i]
	run := runLength(work, i, c)

	marker := 1
	typ := ElementEmphasis
	switch {
	case c == '~':
		if run == 1 {
			if i+run == len(work) {
				return 0, false // a second ~ may follow
			}
			plain.WriteByte(c)
			sc.prev = c
			return i + 1, true
		}
		marker, typ = 2, ElementStrikethrough
	case run >= 2:
		marker, typ = 2, ElementStrong
	}

	if !sc.inlineEnabled(typ) {
		plain.WriteString(work[i : i+marker])
		sc.prev = c
		return i + marker, true
	}

	after := i + marker
	if after >= len(work) {
		return 0, false // opener flank unknown until the next byte
	}
	if work[after] == ' ' || work[after] == '\t' {
		plain.WriteString(work[i : i+marker])
		sc.prev = c
		return after, true
	}
	if c == '_' && isAlnumByte(sc.byteBefore(work, i)) {
		// Intra-word underscores are literal: snake_case stays text.
		plain.WriteString(work[i : i+marker])
		sc.prev = c
		return after, true
	}

	close := findEmphasisClose(work, after, c, marker)
	if close < 0 {
		return 0, false
	}

	content := work[after:close]
	flushPlain()
	if sc.strip {
		sc.emitElement(typ, content, nil)
	} else {
		m := work[i : i+marker]
		sc.emitElement(typ, m+content+m, nil)
	}
	return close + marker, true
}

func (sc *inlineScanner) inlineEnabled(typ ElementType) bool {
	return sc.enabled[typ]
}

func (sc *inlineScanner) emitPlain(s string) {
	if s == "" {
		return
	}
	sc.sink.plainText(s)
	sc.prev = s[len(s)-1]
}

func (sc *inlineScanner) emitElement(typ ElementType, content string, meta map[string]any) {
	sc.sink.inlineElement(typ, content, meta)
	sc.prev = 0
	if len(content) > 0 {
		sc.prev = content[len(content)-1]
	}
}

// byteBefore returns the byte preceding position i, falling back to the
// last byte committed before this fragment.
func (sc *inlineScanner) byteBefore(work string, i int) byte {
	if i > 0 {
		return work[i-1]
	}
	return sc.prev
}

// runLength counts consecutive occurrences of c starting at i.
func runLength(s string, i int, c byte) int {
	n := 0
	for i+n < len(s) && s[i+n] == c {
		n++
	}
	return n
}

// findDelimiterRun finds the next run of exactly-or-more n bytes c starting
// at or after from, honoring backslash escapes. Returns the run start or -1.
func findDelimiterRun(s string, from int, c byte, n int) int {
	j := from
	for j < len(s) {
		if s[j] == '\\' && j+1 < len(s) {
			j += 2
			continue
		}
		if s[j] == c {
			run := runLength(s, j, c)
			if run >= n {
				return j
			}
			j += run
			continue
		}
		j++
	}
	return -1
}

// findEmphasisClose locates a closing marker run for an emphasis span whose
// content starts at from. The closer must follow a non-space byte. Code
// spans inside the content are skipped whole so a marker inside backticks
// never closes the span.
func findEmphasisClose(s string, from int, c byte, marker int) int {
	j := from
	for j < len(s) {
		switch {
		case s[j] == '\\' && j+1 < len(s):
			j += 2
		case s[j] == '`':
			run := runLength(s, j, '`')
			end := findDelimiterRun(s, j+run, '`', run)
			if end < 0 {
				return -1 // unclosed code span keeps the emphasis pending
			}
			j = end + run
		case s[j] == c:
			run := runLength(s, j, c)
			if run >= marker && j > from && s[j-1] != ' ' && s[j-1] != '\t' {
				return j
			}
			j += run
		default:
			j++
		}
	}
	return -1
}

type linkState int

const (
	linkNone linkState = iota
	linkPending
	linkMatch
)

// parseInlineLink parses an inline [text](url "title") link at s[0] == '['.
// It reports linkPending while the construct could still complete with more
// input; commitment is withheld until the closing parenthesis is seen.
// Brackets in the text and parentheses in the destination nest.
func parseInlineLink(s string) (text, url, title string, n int, st linkState) {
	depth := 1
	j := 1
	for j < len(s) && depth > 0 {
		switch {
		case s[j] == '\\' && j+1 < len(s):
			j += 2
		case s[j] == '[':
			depth++
			j++
		case s[j] == ']':
			depth--
			j++
		default:
			j++
		}
	}
	if depth > 0 {
		return "", "", "", 0, linkPending
	}
	text = s[1 : j-1]
	if j >= len(s) {
		return "", "", "", 0, linkPending // "](" adjacency still possible
	}
	if s[j] != '(' {
		return "", "", "", 0, linkNone
	}
	parens := 1
	k := j + 1
	for k < len(s) && parens > 0 {
		switch {
		case s[k] == '\\' && k+1 < len(s):
			k += 2
		case s[k] == '(':
			parens++
			k++
		case s[k] == ')':
			parens--
			k++
		default:
			k++
		}
	}
	if parens > 0 {
		return "", "", "", 0, linkPending
	}
	dest := s[j+1 : k-1]
	url, title = splitLinkDestination(dest)
	return text, url, title, k, linkMatch
}

// splitLinkDestination separates the destination into a url and an optional
// double-quoted title.
func splitLinkDestination(dest string) (url, title string) {
	dest = strings.TrimSpace(dest)
	i := strings.IndexAny(dest, " \t")
	if i < 0 {
		return dest, ""
	}
	url = dest[:i]
	rest := strings.TrimSpace(dest[i+1:])
	if len(rest) >= 2 && rest[0] == '"' && rest[len(rest)-1] == '"' {
		return url, rest[1 : len(rest)-1]
	}
	return url, ""
}

func isAlnumByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}
