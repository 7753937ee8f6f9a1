package render

import (
	"strings"
	"testing"
)

func TestLiveRegionCountLines(t *testing.T) {
	lr := NewLiveRegion(nil, 10)

	tests := []struct {
		name string
		in   string
		want int
	}{
		{"empty", "", 0},
		{"single line", "hello\n", 1},
		{"two lines", "a\nb\n", 2},
		{"blank line counts", "a\n\nb\n", 3},
		{"wraps at width", strings.Repeat("x", 25) + "\n", 3},
		{"ansi ignored", "\x1b[1mbold\x1b[0m\n", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := lr.countLines(tt.in); got != tt.want {
				t.Errorf("countLines(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestLiveRegionUpdateClearsPreviousPaint(t *testing.T) {
	var buf strings.Builder
	lr := NewLiveRegion(&buf, 80)

	if err := lr.Update("one\ntwo"); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	first := buf.String()
	if strings.Contains(first, "\x1b[2A") {
		t.Error("first paint should not move the cursor")
	}
	if !strings.HasSuffix(first, "one\ntwo\n") {
		t.Errorf("first paint = %q", first)
	}

	buf.Reset()
	if err := lr.Update("three"); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	second := buf.String()
	if !strings.Contains(second, "\x1b[2A") {
		t.Errorf("expected cursor up 2 before repaint, got %q", second)
	}
	if !strings.Contains(second, "\x1b[0J") && !strings.Contains(second, "\x1b[J") {
		t.Errorf("expected erase-to-end sequence, got %q", second)
	}
	if !strings.HasSuffix(second, "three\n") {
		t.Errorf("second paint = %q", second)
	}
}

func TestLiveRegionClearIsIdempotent(t *testing.T) {
	var buf strings.Builder
	lr := NewLiveRegion(&buf, 80)

	if err := lr.Update("line"); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	buf.Reset()
	if err := lr.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if buf.Len() == 0 {
		t.Error("expected erase sequence on first clear")
	}

	buf.Reset()
	if err := lr.Clear(); err != nil {
		t.Fatalf("second Clear failed: %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("second clear should write nothing, got %q", buf.String())
	}
}
