package render

import (
	"io"
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// LiveRegion repaints an in-progress element at the bottom of the terminal.
// Each Update erases the previous paint and writes the new one, so the open
// element appears to grow in place while deltas stream in.
type LiveRegion struct {
	out   io.Writer
	width int
	lines int // terminal lines the current paint occupies
}

func NewLiveRegion(out io.Writer, width int) *LiveRegion {
	return &LiveRegion{out: out, width: width}
}

// Update replaces the painted region with s.
func (lr *LiveRegion) Update(s string) error {
	if err := lr.Clear(); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	if !strings.HasSuffix(s, "\n") {
		s += "\n"
	}
	lr.lines = lr.countLines(s)
	_, err := io.WriteString(lr.out, s)
	return err
}

// Clear erases the painted region, leaving the cursor where the next write
// lands. Call before handing the region's rows over to permanent output.
func (lr *LiveRegion) Clear() error {
	n := lr.lines
	lr.lines = 0
	if n <= 0 {
		return nil
	}

	// Cursor up over the paint, to column one, then erase to screen end.
	seq := ansi.CursorUp(n)
	seq += ansi.CursorHorizontalAbsolute(1)
	seq += ansi.EraseDisplay(0)

	_, err := io.WriteString(lr.out, seq)
	return err
}

// countLines reports the terminal rows the string occupies, accounting for
// wrapping at the region width and ignoring ANSI escape sequences.
func (lr *LiveRegion) countLines(rendered string) int {
	if len(rendered) == 0 {
		return 0
	}

	lines := strings.Split(rendered, "\n")
	total := 0
	for i, line := range lines {
		// The trailing empty string after a final newline is not a row.
		if i == len(lines)-1 && line == "" {
			continue
		}

		lineWidth := ansi.StringWidth(line)
		switch {
		case lineWidth == 0:
			total++
		case lr.width > 0:
			total += (lineWidth + lr.width - 1) / lr.width
		default:
			total++
		}
	}
	return total
}
