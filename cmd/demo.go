package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/streammd/streammd/internal/tui"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Interactive streaming playground",
	Long: `Feed a built-in sample document through the parser a few bytes at a
time and watch the event stream drive the display: finished elements
render once and never repaint.

Keys: Space pauses, r restarts, d shows the finished document, Esc goes
back to the sample picker.`,
	RunE: runDemo,
}

var (
	demoChunkSize int
	demoTick      time.Duration
)

func init() {
	AddChunkSizeFlag(demoCmd, &demoChunkSize, 3)
	demoCmd.Flags().DurationVar(&demoTick, "tick", 40*time.Millisecond, "Delay between chunks")
	rootCmd.AddCommand(demoCmd)
}

func runDemo(cmd *cobra.Command, args []string) error {
	return tui.RunDemo(demoChunkSize, demoTick)
}
