package input

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/term"
)

// Source is one markdown document to parse.
type Source struct {
	Path    string // file path, or "stdin"
	Content string
}

// ReadSources reads the documents named by the given paths.
// Glob patterns expand with ** support (e.g. "docs/**/*.md"); regular
// paths are read directly. Matches within a pattern come back sorted.
func ReadSources(paths []string) ([]Source, error) {
	var result []Source

	for _, path := range paths {
		expandedPath := expandPath(path)

		matches, err := doublestar.FilepathGlob(expandedPath)
		if err != nil {
			return nil, fmt.Errorf("invalid glob pattern %q: %w", path, err)
		}

		// If no matches but no wildcard chars, treat as literal path so
		// the read below reports a useful error.
		if len(matches) == 0 {
			if containsGlobChars(path) {
				continue
			}
			matches = []string{expandedPath}
		}
		sort.Strings(matches)

		for _, match := range matches {
			info, err := os.Stat(match)
			if err != nil {
				return nil, fmt.Errorf("failed to stat %q: %w", match, err)
			}
			if info.IsDir() {
				continue
			}

			content, err := os.ReadFile(match)
			if err != nil {
				return nil, fmt.Errorf("failed to read %q: %w", match, err)
			}

			result = append(result, Source{
				Path:    match,
				Content: string(content),
			})
		}
	}

	return result, nil
}

// HasStdin returns true if stdin has data available (not a TTY)
func HasStdin() bool {
	fi, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode()&os.ModeCharDevice) == 0 || fi.Size() > 0
}

// ReadStdin reads all content from stdin
// Returns empty string if stdin is a TTY or has no data
func ReadStdin() (string, error) {
	if !HasStdin() {
		return "", nil
	}

	if term.IsTerminal(int(os.Stdin.Fd())) {
		return "", nil
	}

	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}

	return string(data), nil
}

// Resolve gathers sources from path arguments and stdin. With no paths and
// piped stdin, the stdin document is the only source.
func Resolve(paths []string) ([]Source, error) {
	if len(paths) == 0 {
		content, err := ReadStdin()
		if err != nil {
			return nil, err
		}
		if content == "" {
			return nil, fmt.Errorf("no input: pass file paths or pipe markdown on stdin")
		}
		return []Source{{Path: "stdin", Content: content}}, nil
	}
	return ReadSources(paths)
}

// expandPath expands ~ to home directory
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}

// containsGlobChars returns true if the path contains glob metacharacters
func containsGlobChars(path string) bool {
	return strings.ContainsAny(path, "*?[{")
}
