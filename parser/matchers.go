package parser

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// MatchState is the outcome of probing a buffer prefix for a block start.
type MatchState int

const (
	// NoMatch means the prefix definitively cannot start this construct.
	NoMatch MatchState = iota
	// NeedMoreInput means the prefix could still extend into a valid
	// marker; the caller must retain it and retry with more input.
	NeedMoreInput
	// Matched means a block start was recognized.
	Matched
)

// Detection is the result of classifying the start of the unconsumed
// buffer. StartMarker is the text the orchestrator consumes before content
// begins; EndMarker, when non-empty, is the literal text that closes the
// element (empty means the element spans a single line).
type Detection struct {
	State       MatchState
	Element     ElementType
	StartMarker string
	EndMarker   string
	Metadata    map[string]any
}

// Matcher recognizes a custom block construct at a line start. Detect
// receives the unconsumed buffer beginning at a line start; the final line
// of the prefix may still be incomplete, and Detect must answer
// NeedMoreInput rather than guessing when that tail is ambiguous.
// Matchers are evaluated in descending Priority order, interleaved with the
// builtin constructs; on a priority tie the custom matcher is asked first.
type Matcher interface {
	Priority() int
	Detect(prefix string) Detection
}

// Builtin priorities. Custom matchers interleave by declaring their own
// number relative to these.
const (
	PriorityFence          = 700
	PriorityMath           = 650
	PriorityHeading        = 600
	PriorityList           = 500
	PriorityQuote          = 400
	PriorityTable          = 300
	PriorityHorizontalRule = 200
)

// RegexMatcher builds a custom Matcher from a start pattern and a literal
// end marker. The pattern is applied to the first line of the unconsumed
// buffer and must match at position zero; while that line is still
// incomplete the matcher reports NeedMoreInput. An empty EndMarker makes
// the element span the rest of its start line.
type RegexMatcher struct {
	Element   ElementType
	Prio      int
	Start     *regexp.Regexp
	EndMarker string
	Meta      func(match []string) map[string]any
}

func (m *RegexMatcher) Priority() int { return m.Prio }

func (m *RegexMatcher) Detect(prefix string) Detection {
	line, complete := firstLine(prefix)
	if !complete {
		// A partial line cannot be trusted either way: the pattern may
		// match a longer prefix once the rest of the line arrives.
		return Detection{State: NeedMoreInput}
	}
	if loc := m.Start.FindStringSubmatchIndex(line); loc != nil && loc[0] == 0 {
		sub := make([]string, 0, len(loc)/2)
		for i := 0; i < len(loc); i += 2 {
			if loc[i] < 0 {
				sub = append(sub, "")
				continue
			}
			sub = append(sub, line[loc[i]:loc[i+1]])
		}
		var meta map[string]any
		if m.Meta != nil {
			meta = m.Meta(sub)
		}
		el := m.Element
		if el == "" {
			el = ElementCustom
		}
		return Detection{
			State:       Matched,
			Element:     el,
			StartMarker: sub[0],
			EndMarker:   m.EndMarker,
			Metadata:    meta,
		}
	}
	return Detection{State: NoMatch}
}

// matcherEntry is one slot in the priority-ordered detection table; either
// custom or detect is set.
type matcherEntry struct {
	prio    int
	element ElementType // builtin element, for enabled-type filtering
	custom  Matcher
	detect  func(line string, complete bool) Detection
}

// buildMatchers merges custom matchers with the builtin table. Customs are
// placed first so that the stable sort resolves priority ties in their
// favor.
func buildMatchers(customs []Matcher) []matcherEntry {
	entries := make([]matcherEntry, 0, len(customs)+7)
	for _, m := range customs {
		if m == nil {
			continue
		}
		entries = append(entries, matcherEntry{prio: m.Priority(), custom: m})
	}
	entries = append(entries,
		matcherEntry{prio: PriorityFence, element: ElementCode, detect: detectFence},
		matcherEntry{prio: PriorityMath, element: ElementMath, detect: detectMath},
		matcherEntry{prio: PriorityHeading, element: ElementHeader, detect: detectHeading},
		matcherEntry{prio: PriorityList, element: ElementList, detect: detectList},
		matcherEntry{prio: PriorityQuote, element: ElementQuote, detect: detectQuote},
		matcherEntry{prio: PriorityTable, element: ElementTable, detect: detectTable},
		matcherEntry{prio: PriorityHorizontalRule, element: ElementHorizontalRule, detect: detectRule},
	)
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].prio > entries[j].prio
	})
	return entries
}

// firstLine splits off the first line of a prefix. complete reports whether
// the terminating newline has arrived; the line never includes it.
func firstLine(prefix string) (line string, complete bool) {
	if i := strings.IndexByte(prefix, '\n'); i >= 0 {
		return strings.TrimSuffix(prefix[:i], "\r"), true
	}
	return prefix, false
}

// detectFence recognizes ``` and ~~~ fence openings. The whole opening line
// is the start marker because the trailing language token belongs to it.
func detectFence(line string, complete bool) Detection {
	indent, trimmed := splitIndent(line)
	if indent > 3 {
		return Detection{State: NoMatch}
	}
	if trimmed == "" {
		if complete {
			return Detection{State: NoMatch}
		}
		return Detection{State: NeedMoreInput}
	}
	c := trimmed[0]
	if c != '`' && c != '~' {
		return Detection{State: NoMatch}
	}
	run := 0
	for run < len(trimmed) && trimmed[run] == c {
		run++
	}
	if run < 3 {
		// One or two fence characters: still a fence prefix only while
		// nothing else has arrived after them.
		if !complete && run == len(trimmed) {
			return Detection{State: NeedMoreInput}
		}
		return Detection{State: NoMatch}
	}
	if !complete {
		// Definitely a fence, but the language token may still grow.
		return Detection{State: NeedMoreInput}
	}
	meta := map[string]any{}
	if lang := fenceLanguage(trimmed[run:]); lang != "" {
		meta["language"] = lang
	}
	return Detection{
		State:       Matched,
		Element:     ElementCode,
		StartMarker: line,
		Metadata:    meta,
	}
}

// fenceLanguage extracts the language token following a fence opening.
func fenceLanguage(rest string) string {
	rest = strings.TrimSpace(rest)
	if rest == "" {
		return ""
	}
	if i := strings.IndexAny(rest, " \t"); i >= 0 {
		rest = rest[:i]
	}
	return rest
}

// detectMath recognizes $$ display-math openings.
func detectMath(line string, complete bool) Detection {
	indent, trimmed := splitIndent(line)
	if indent > 3 {
		return Detection{State: NoMatch}
	}
	if trimmed == "" {
		if complete {
			return Detection{State: NoMatch}
		}
		return Detection{State: NeedMoreInput}
	}
	if trimmed[0] != '$' {
		return Detection{State: NoMatch}
	}
	if len(trimmed) == 1 {
		if complete {
			return Detection{State: NoMatch}
		}
		return Detection{State: NeedMoreInput}
	}
	if trimmed[1] != '$' {
		return Detection{State: NoMatch}
	}
	if !complete {
		return Detection{State: NeedMoreInput}
	}
	return Detection{
		State:       Matched,
		Element:     ElementMath,
		StartMarker: line,
	}
}

// detectHeading recognizes ATX headings, levels 1 through 6.
func detectHeading(line string, complete bool) Detection {
	indent, trimmed := splitIndent(line)
	if indent > 3 {
		return Detection{State: NoMatch}
	}
	if trimmed == "" || trimmed[0] != '#' {
		if trimmed == "" && !complete {
			return Detection{State: NeedMoreInput}
		}
		return Detection{State: NoMatch}
	}
	level := 0
	for level < len(trimmed) && trimmed[level] == '#' {
		level++
	}
	if level > 6 {
		return Detection{State: NoMatch}
	}
	if level == len(trimmed) {
		// Bare hashes: a complete line like "##" is an empty heading, an
		// incomplete one could still become "#tag" text.
		if !complete {
			return Detection{State: NeedMoreInput}
		}
		return headingDetection(level)
	}
	if trimmed[level] != ' ' && trimmed[level] != '\t' {
		return Detection{State: NoMatch}
	}
	if !complete {
		return Detection{State: NeedMoreInput}
	}
	return headingDetection(level)
}

func headingDetection(level int) Detection {
	return Detection{
		State:    Matched,
		Element:  ElementHeader,
		Metadata: map[string]any{"level": level},
	}
}

// headingContent strips the # marker run and surrounding space from a
// heading line.
func headingContent(line string) string {
	_, trimmed := splitIndent(line)
	i := 0
	for i < len(trimmed) && trimmed[i] == '#' {
		i++
	}
	return strings.TrimSpace(trimmed[i:])
}

// detectList recognizes one list line: -, *, + or an ordinal like "3." /
// "3)" followed by a space. Thematic-break lines are declined so they reach
// the horizontal-rule matcher despite its lower priority.
func detectList(line string, complete bool) Detection {
	_, trimmed := splitIndent(line)
	if trimmed == "" {
		if complete {
			return Detection{State: NoMatch}
		}
		return Detection{State: NeedMoreInput}
	}
	if !complete {
		if couldBeListLine(trimmed) {
			return Detection{State: NeedMoreInput}
		}
		return Detection{State: NoMatch}
	}
	if isThematicBreak(trimmed) {
		return Detection{State: NoMatch}
	}
	ordered, number, _, ok := parseListMarker(trimmed)
	if !ok {
		return Detection{State: NoMatch}
	}
	meta := map[string]any{"ordered": ordered}
	if ordered {
		meta["number"] = number
	}
	if level := listLevel(line); level > 0 {
		meta["level"] = level
	}
	return Detection{
		State:    Matched,
		Element:  ElementList,
		Metadata: meta,
	}
}

// couldBeListLine reports whether an incomplete line is still a plausible
// list-line prefix.
func couldBeListLine(trimmed string) bool {
	c := trimmed[0]
	if c == '-' || c == '*' || c == '+' {
		// The marker alone, or marker plus space: content still unknown.
		// A thematic break like "- - -" also remains possible until the
		// newline, so everything after "<marker><space>" stays ambiguous
		// at this matcher's priority.
		return len(trimmed) == 1 || trimmed[1] == ' ' || trimmed[1] == '\t'
	}
	if c >= '1' && c <= '9' {
		i := 0
		for i < len(trimmed) && i < 9 && trimmed[i] >= '0' && trimmed[i] <= '9' {
			i++
		}
		if i == len(trimmed) {
			return true
		}
		if trimmed[i] != '.' && trimmed[i] != ')' {
			return false
		}
		return i+1 == len(trimmed) || trimmed[i+1] == ' ' || trimmed[i+1] == '\t'
	}
	return false
}

// parseListMarker splits a list line into its marker and content.
func parseListMarker(trimmed string) (ordered bool, number int, rest string, ok bool) {
	c := trimmed[0]
	if c == '-' || c == '*' || c == '+' {
		if len(trimmed) == 1 {
			return false, 0, "", false
		}
		if trimmed[1] != ' ' && trimmed[1] != '\t' {
			return false, 0, "", false
		}
		return false, 0, strings.TrimLeft(trimmed[2:], " \t"), true
	}
	i := 0
	for i < len(trimmed) && i < 9 && trimmed[i] >= '0' && trimmed[i] <= '9' {
		i++
	}
	if i == 0 || i >= len(trimmed) {
		return false, 0, "", false
	}
	if trimmed[i] != '.' && trimmed[i] != ')' {
		return false, 0, "", false
	}
	n, err := strconv.Atoi(trimmed[:i])
	if err != nil {
		return false, 0, "", false
	}
	if i+1 == len(trimmed) {
		return true, n, "", true
	}
	if trimmed[i+1] != ' ' && trimmed[i+1] != '\t' {
		return false, 0, "", false
	}
	return true, n, strings.TrimLeft(trimmed[i+2:], " \t"), true
}

// listLevel derives a nesting level from leading indentation, two columns
// per level.
func listLevel(line string) int {
	indent, _ := splitIndent(line)
	return indent / 2
}

// detectQuote recognizes > blockquote lines. A leading > is unambiguous, so
// quotes open even while the line is incomplete.
func detectQuote(line string, complete bool) Detection {
	indent, trimmed := splitIndent(line)
	if indent > 3 {
		return Detection{State: NoMatch}
	}
	if trimmed == "" {
		if complete {
			return Detection{State: NoMatch}
		}
		return Detection{State: NeedMoreInput}
	}
	if trimmed[0] != '>' {
		return Detection{State: NoMatch}
	}
	return Detection{State: Matched, Element: ElementQuote}
}

// detectTable recognizes pipe-led table rows. Lines with interior pipes in
// running prose stay paragraphs; only a leading | opens a table.
func detectTable(line string, complete bool) Detection {
	indent, trimmed := splitIndent(line)
	if indent > 3 {
		return Detection{State: NoMatch}
	}
	if trimmed == "" {
		if complete {
			return Detection{State: NoMatch}
		}
		return Detection{State: NeedMoreInput}
	}
	if trimmed[0] != '|' {
		return Detection{State: NoMatch}
	}
	return Detection{State: Matched, Element: ElementTable}
}

// detectRule recognizes thematic breaks: three or more of the same -, * or
// _ character with optional interior spaces.
func detectRule(line string, complete bool) Detection {
	_, trimmed := splitIndent(line)
	if trimmed == "" {
		if complete {
			return Detection{State: NoMatch}
		}
		return Detection{State: NeedMoreInput}
	}
	if !complete {
		if couldBeThematicBreak(trimmed) {
			return Detection{State: NeedMoreInput}
		}
		return Detection{State: NoMatch}
	}
	if !isThematicBreak(trimmed) {
		return Detection{State: NoMatch}
	}
	return Detection{State: Matched, Element: ElementHorizontalRule}
}

// couldBeThematicBreak reports whether an incomplete line is still a
// plausible thematic-break prefix.
func couldBeThematicBreak(trimmed string) bool {
	c := trimmed[0]
	if c != '-' && c != '*' && c != '_' {
		return false
	}
	for i := 0; i < len(trimmed); i++ {
		if trimmed[i] != c && trimmed[i] != ' ' && trimmed[i] != '\t' {
			return false
		}
	}
	return true
}

// isThematicBreak reports whether a complete trimmed line is a thematic
// break.
func isThematicBreak(trimmed string) bool {
	if len(trimmed) < 3 {
		return false
	}
	c := trimmed[0]
	if c != '-' && c != '*' && c != '_' {
		return false
	}
	count := 0
	for i := 0; i < len(trimmed); i++ {
		switch trimmed[i] {
		case c:
			count++
		case ' ', '\t':
		default:
			return false
		}
	}
	return count >= 3
}

// parseFence extracts the fence character and run length from an opening
// fence line.
func parseFence(line string) (char byte, run int, ok bool) {
	_, trimmed := splitIndent(line)
	if trimmed == "" {
		return 0, 0, false
	}
	char = trimmed[0]
	if char != '`' && char != '~' {
		return 0, 0, false
	}
	for run < len(trimmed) && trimmed[run] == char {
		run++
	}
	if run < 3 {
		return 0, 0, false
	}
	return char, run, true
}

// isClosingFence reports whether a complete line closes a fence opened with
// the given character and run length. The closing run must be at least as
// long as the opening run.
func isClosingFence(line string, openChar byte, openLen int) bool {
	indent, trimmed := splitIndent(line)
	if indent > 3 {
		return false
	}
	if trimmed == "" || trimmed[0] != openChar {
		return false
	}
	run := 0
	for run < len(trimmed) && trimmed[run] == openChar {
		run++
	}
	if strings.TrimSpace(trimmed[run:]) != "" {
		return false
	}
	return run >= openLen
}

// isMathClose reports whether a complete line closes a $$ block.
func isMathClose(line string) bool {
	return strings.TrimSpace(line) == "$$"
}

// isBlankLine reports whether the line contains only whitespace.
func isBlankLine(line string) bool {
	return strings.TrimSpace(line) == ""
}

// splitIndent splits leading whitespace off a line. Indent counts columns,
// with a tab advancing to the next 4-column stop.
func splitIndent(line string) (indent int, rest string) {
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case ' ':
			indent++
		case '\t':
			indent += 4 - indent%4
		default:
			return indent, line[i:]
		}
	}
	return indent, ""
}
