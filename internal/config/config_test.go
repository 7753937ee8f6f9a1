package config

import (
	"testing"

	"github.com/streammd/streammd/parser"
)

func TestApplyOverrides(t *testing.T) {
	cfg := &Config{
		Render: RenderConfig{Format: "ansi", Width: 100},
	}

	cfg.ApplyOverrides("html", 72)
	if cfg.Render.Format != "html" {
		t.Fatalf("format=%q, want %q", cfg.Render.Format, "html")
	}
	if cfg.Render.Width != 72 {
		t.Fatalf("width=%d, want 72", cfg.Render.Width)
	}

	cfg.ApplyOverrides("", 0)
	if cfg.Render.Format != "html" || cfg.Render.Width != 72 {
		t.Fatalf("empty overrides changed config: %q %d", cfg.Render.Format, cfg.Render.Width)
	}
}

func TestMatchElements(t *testing.T) {
	tests := []struct {
		name     string
		patterns []string
		all      bool
		contains parser.ElementType
		excludes parser.ElementType
	}{
		{"star matches everything", []string{"*"}, true, "", ""},
		{"empty means default", nil, true, "", ""},
		{"exact name", []string{"code"}, false, parser.ElementCode, parser.ElementTable},
		{"prefix glob", []string{"table"}, false, parser.ElementTable, parser.ElementCode},
		{"multiple patterns", []string{"code", "head*"}, false, parser.ElementHeader, parser.ElementList},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matched, all, err := matchElements(tt.patterns)
			if err != nil {
				t.Fatalf("matchElements: %v", err)
			}
			if all != tt.all {
				t.Fatalf("all=%v, want %v", all, tt.all)
			}
			if tt.all {
				return
			}
			has := func(typ parser.ElementType) bool {
				for _, m := range matched {
					if m == typ {
						return true
					}
				}
				return false
			}
			if !has(tt.contains) {
				t.Errorf("matched %v missing %s", matched, tt.contains)
			}
			if tt.excludes != "" && has(tt.excludes) {
				t.Errorf("matched %v should not include %s", matched, tt.excludes)
			}
		})
	}
}

func TestMatchElementsBadPattern(t *testing.T) {
	if _, _, err := matchElements([]string{"[unclosed"}); err == nil {
		t.Fatal("expected error for malformed pattern")
	}
}

func TestMatcherConfigBuild(t *testing.T) {
	mc := MatcherConfig{
		Element:  "callout",
		Pattern:  `:::\w+`,
		End:      ":::",
		Priority: 800,
	}
	m, err := mc.build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if m.Priority() != 800 {
		t.Errorf("priority=%d, want 800", m.Priority())
	}

	det := m.Detect(":::note\nbody\n")
	if det.State != parser.Matched {
		t.Fatalf("state=%v, want Matched", det.State)
	}
	if det.EndMarker != ":::" {
		t.Errorf("end marker=%q, want :::", det.EndMarker)
	}
}

func TestMatcherConfigDefaultPriority(t *testing.T) {
	m, err := MatcherConfig{Element: "x", Pattern: "!!"}.build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if m.Priority() <= parser.PriorityFence {
		t.Errorf("priority=%d, want above the builtin fence", m.Priority())
	}
}

func TestMatcherConfigBadPattern(t *testing.T) {
	if _, err := (MatcherConfig{Pattern: "("}).build(); err == nil {
		t.Fatal("expected error for malformed regexp")
	}
}

func TestToOptionsRejectsBadInput(t *testing.T) {
	cfg := &Config{Elements: []string{"[bad"}}
	if _, err := cfg.ToOptions(); err == nil {
		t.Fatal("expected error for malformed element pattern")
	}

	cfg = &Config{Matchers: []MatcherConfig{{Pattern: "("}}}
	if _, err := cfg.ToOptions(); err == nil {
		t.Fatal("expected error for malformed matcher pattern")
	}
}

func TestToOptionsRoundTrip(t *testing.T) {
	cfg := &Config{
		Elements: []string{"code", "header"},
		Parser: ParserConfig{
			Citations:       true,
			SplitParagraphs: true,
			MaxBufferSize:   4096,
			Emphasis:        "preserve",
			Tables:          "structured",
			IDPrefix:        "md-",
		},
	}
	opts, err := cfg.ToOptions()
	if err != nil {
		t.Fatalf("ToOptions: %v", err)
	}

	// Structured tables with the table element disabled must be rejected
	// at construction.
	if _, err := parser.New(opts...); err == nil {
		t.Fatal("expected construction error for structured tables without table element")
	}

	cfg.Elements = []string{"*"}
	opts, err = cfg.ToOptions()
	if err != nil {
		t.Fatalf("ToOptions: %v", err)
	}
	p, err := parser.New(opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	seq, err := p.Complete()
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if seq.Len() != 0 {
		t.Errorf("empty parse produced %d events", seq.Len())
	}
}
