package cmd

import (
	"fmt"
	"os"

	"golang.org/x/term"

	"github.com/streammd/streammd/internal/config"
	"github.com/streammd/streammd/internal/history"
	"github.com/streammd/streammd/parser"
)

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// buildParser constructs a parser from the config plus any extra options,
// which take precedence. A matcher file named on the command line is merged
// in before the config is translated.
func buildParser(cfg *config.Config, matcherFile string, extra ...parser.Option) (*parser.Parser, error) {
	if matcherFile != "" {
		defs, err := config.LoadMatcherFile(matcherFile)
		if err != nil {
			return nil, err
		}
		cfg.Matchers = append(cfg.Matchers, defs.Matchers...)
		for _, opt := range defs.AnnotationOptions() {
			extra = append(extra, opt)
		}
	}

	opts, err := cfg.ToOptions()
	if err != nil {
		return nil, err
	}
	opts = append(opts, extra...)
	return parser.New(opts...)
}

// openHistory opens the parse-run store per config.
func openHistory(cfg *config.Config) (*history.Store, error) {
	if !cfg.History.Enabled {
		return nil, fmt.Errorf("history is disabled in config")
	}
	path, err := cfg.HistoryDBPath()
	if err != nil {
		return nil, err
	}
	return history.Open(history.Config{
		Path:    path,
		MaxRuns: cfg.History.MaxRuns,
	})
}

// resolveWidth picks the output width: flag beats config beats terminal
// size, with 80 as the non-TTY fallback.
func resolveWidth(flagWidth, cfgWidth int) int {
	if flagWidth > 0 {
		return flagWidth
	}
	if cfgWidth > 0 {
		return cfgWidth
	}
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}
	return 80
}
