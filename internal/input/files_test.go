package input

import (
	"os"
	"path/filepath"
	"testing"
)

func TestReadSources(t *testing.T) {
	// Create a temp directory for test files
	tempDir, err := os.MkdirTemp("", "streammd-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	// Create test files, one of them nested
	file1 := filepath.Join(tempDir, "a.md")
	file2 := filepath.Join(tempDir, "b.md")
	nested := filepath.Join(tempDir, "docs", "c.md")
	os.WriteFile(file1, []byte("# A\n"), 0644)
	os.WriteFile(file2, []byte("# B\n"), 0644)
	os.MkdirAll(filepath.Dir(nested), 0755)
	os.WriteFile(nested, []byte("# C\n"), 0644)

	t.Run("single file", func(t *testing.T) {
		sources, err := ReadSources([]string{file1})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(sources) != 1 {
			t.Fatalf("expected 1 source, got %d", len(sources))
		}
		if sources[0].Content != "# A\n" {
			t.Errorf("expected # A, got %s", sources[0].Content)
		}
	})

	t.Run("multiple files", func(t *testing.T) {
		sources, err := ReadSources([]string{file1, file2})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(sources) != 2 {
			t.Fatalf("expected 2 sources, got %d", len(sources))
		}
	})

	t.Run("glob pattern", func(t *testing.T) {
		pattern := filepath.Join(tempDir, "*.md")
		sources, err := ReadSources([]string{pattern})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(sources) != 2 {
			t.Fatalf("expected 2 sources from glob, got %d", len(sources))
		}
		// Glob matches come back sorted
		if sources[0].Path != file1 || sources[1].Path != file2 {
			t.Errorf("unexpected order: %s, %s", sources[0].Path, sources[1].Path)
		}
	})

	t.Run("doublestar pattern", func(t *testing.T) {
		pattern := filepath.Join(tempDir, "**", "*.md")
		sources, err := ReadSources([]string{pattern})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(sources) != 3 {
			t.Fatalf("expected 3 sources from **, got %d", len(sources))
		}
	})

	t.Run("unmatched glob is not an error", func(t *testing.T) {
		pattern := filepath.Join(tempDir, "*.nope")
		sources, err := ReadSources([]string{pattern})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(sources) != 0 {
			t.Errorf("expected 0 sources, got %d", len(sources))
		}
	})

	t.Run("non-existent file", func(t *testing.T) {
		_, err := ReadSources([]string{"/nonexistent/file.md"})
		if err == nil {
			t.Error("expected error for non-existent file")
		}
	})

	t.Run("directory is skipped", func(t *testing.T) {
		sources, err := ReadSources([]string{filepath.Join(tempDir, "docs")})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(sources) != 0 {
			t.Errorf("expected directories skipped, got %d sources", len(sources))
		}
	})

	t.Run("empty path list", func(t *testing.T) {
		sources, err := ReadSources([]string{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(sources) != 0 {
			t.Errorf("expected 0 sources, got %d", len(sources))
		}
	})
}

func TestContainsGlobChars(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"plain.md", false},
		{"*.md", true},
		{"docs/**/*.md", true},
		{"file?.md", true},
		{"[ab].md", true},
		{"{a,b}.md", true},
	}
	for _, tt := range tests {
		if got := containsGlobChars(tt.path); got != tt.want {
			t.Errorf("containsGlobChars(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}
