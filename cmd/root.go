package cmd

import (
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/streammd/streammd/internal/logging"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.Version = Version
}

var rootCmd = &cobra.Command{
	Use:   "streammd",
	Short: "Parse streaming markdown into element events",
	Long: `streammd parses markdown incrementally, emitting begin/delta/end events
per element. The event stream is identical no matter how the input is
chunked, so output rendered from a stream never has to be corrected.

Examples:
  cat doc.md | streammd parse                 # NDJSON events from stdin
  streammd parse docs/**/*.md --chunk-size 7  # feed 7 bytes at a time
  cat doc.md | streammd render                # styled terminal output
  streammd check doc.md                       # verify chunking invariance
  streammd demo                               # interactive playground

  streammd config                             # view configuration
  streammd config completion zsh              # shell completions`,
	CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
}

var verbose bool

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// logger builds the command logger, honoring --verbose over the
// environment level.
func logger() *logging.Logger {
	if verbose {
		return logging.NewWithLevel(os.Stderr, log.DebugLevel)
	}
	return logging.FromEnv()
}
