package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/streammd/streammd/internal/history"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Manage recorded parse runs",
	Long: `List, inspect, and clear parse runs recorded with 'streammd parse
--record'.

Examples:
  streammd history                  # list recent runs
  streammd history list --limit 50
  streammd history show 12
  streammd history show 12 --json
  streammd history clear`,
	RunE: runHistoryList, // Default to list
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List runs",
	RunE:  runHistoryList,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show run details",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all recorded runs (requires confirmation)",
	Long: `Delete every recorded run. This cannot be undone.

You must type 'yes' to confirm.`,
	RunE: runHistoryClear,
}

// Flags
var (
	historyLimit int
	historyJSON  bool
)

func init() {
	historyListCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum number of runs to list")
	historyShowCmd.Flags().BoolVar(&historyJSON, "json", false, "Output as JSON")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyClearCmd)

	rootCmd.AddCommand(historyCmd)
}

func getHistoryStore() (*history.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return openHistory(cfg)
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	store, err := getHistoryStore()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	runs, err := store.List(ctx, historyLimit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if len(runs) == 0 {
		fmt.Println("No runs recorded.")
		return nil
	}

	// Header line
	fmt.Printf("%-5s %-30s %8s %6s %7s %5s %9s %s\n",
		"ID", "SOURCE", "BYTES", "CHUNK", "EVENTS", "ELEMS", "DURATION", "AGE")
	fmt.Println(strings.Repeat("-", 88))

	for _, r := range runs {
		source := r.Source
		if len(source) > 30 {
			source = "..." + source[len(source)-27:]
		}

		chunk := "-"
		if r.ChunkSize > 0 {
			chunk = strconv.Itoa(r.ChunkSize)
		}

		fmt.Printf("%-5d %-30s %8s %6s %7d %5d %9s %s\n",
			r.ID, source, formatCount(r.Bytes), chunk, r.Events, r.Elements,
			r.Duration.Round(time.Millisecond), formatRelativeTime(r.CreatedAt))
	}

	return nil
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid run id %q", args[0])
	}

	store, err := getHistoryStore()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	run, err := store.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get run: %w", err)
	}
	if run == nil {
		return fmt.Errorf("run %d not found", id)
	}

	if historyJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(run)
	}

	fmt.Printf("Run: %d\n", run.ID)
	fmt.Printf("Source: %s\n", run.Source)
	fmt.Printf("Bytes: %d\n", run.Bytes)
	if run.ChunkSize > 0 {
		fmt.Printf("Chunk size: %d\n", run.ChunkSize)
	}
	fmt.Printf("Events: %d\n", run.Events)
	fmt.Printf("Elements: %d\n", run.Elements)
	fmt.Printf("Duration: %s\n", run.Duration.Round(time.Millisecond))
	fmt.Printf("Recorded: %s\n", run.CreatedAt.Format(time.RFC3339))

	if len(run.Counts) > 0 {
		fmt.Println("Elements by type:")
		types := make([]string, 0, len(run.Counts))
		for typ := range run.Counts {
			types = append(types, typ)
		}
		sort.Strings(types)
		for _, typ := range types {
			fmt.Printf("  %s: %d\n", typ, run.Counts[typ])
		}
	}

	return nil
}

func runHistoryClear(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	dbPath, err := cfg.HistoryDBPath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		fmt.Println("No history database found.")
		return nil
	}

	// Require confirmation
	fmt.Printf("This will delete ALL recorded runs at:\n  %s\n\n", dbPath)
	fmt.Print("Type 'yes' to confirm: ")

	var response string
	if _, err := fmt.Scanln(&response); err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if response != "yes" {
		fmt.Println("Aborted.")
		return nil
	}

	store, err := openHistory(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Clear(context.Background()); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}

	fmt.Println("History cleared.")
	return nil
}

// formatCount formats a number in compact form (e.g., 1k, 1.2k, 3.4M)
func formatCount(n int) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	if n < 1000000 {
		val := float64(n) / 1000
		if val == float64(int(val)) {
			return fmt.Sprintf("%dk", int(val))
		}
		return fmt.Sprintf("%.1fk", val)
	}
	val := float64(n) / 1000000
	if val == float64(int(val)) {
		return fmt.Sprintf("%dM", int(val))
	}
	return fmt.Sprintf("%.1fM", val)
}

// formatRelativeTime returns a human-readable relative time string
func formatRelativeTime(t time.Time) string {
	dur := time.Since(t)
	switch {
	case dur < time.Minute:
		return "just now"
	case dur < time.Hour:
		return fmt.Sprintf("%dm ago", int(dur.Minutes()))
	case dur < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(dur.Hours()))
	case dur < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(dur.Hours()/24))
	default:
		return t.Format("Jan 2")
	}
}
