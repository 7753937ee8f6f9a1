package logging

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

func TestParseCompletedFields(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf)

	l.ParseCompleted("doc.md", 42, 7, 1500*time.Millisecond)

	out := buf.String()
	if !strings.Contains(out, "parse completed") {
		t.Errorf("missing message in %q", out)
	}
	for _, want := range []string{"source=doc.md", "events=42", "elements=7"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in %q", want, out)
		}
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithLevel(&buf, log.WarnLevel)

	l.ParseStarted("doc.md", 7) // debug, below the level
	if buf.Len() != 0 {
		t.Errorf("debug log emitted below warn level: %q", buf.String())
	}

	l.CheckFailed("doc.md", 3)
	if !strings.Contains(buf.String(), "chunking divergence") {
		t.Errorf("error log suppressed: %q", buf.String())
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("STREAMMD_LOG_LEVEL", "debug")
	if got := FromEnv().GetLevel(); got != log.DebugLevel {
		t.Errorf("GetLevel() = %v, want debug", got)
	}

	t.Setenv("STREAMMD_LOG_LEVEL", "not-a-level")
	if got := FromEnv().GetLevel(); got != log.WarnLevel {
		t.Errorf("GetLevel() = %v, want warn fallback", got)
	}
}

func TestDiscard(t *testing.T) {
	l := Discard()
	l.SourceError("doc.md", nil) // must not panic
}
