package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/streammd/streammd/parser"
)

// AddChunkSizeFlag adds the --chunk-size/-c flag. Zero feeds read-buffer
// sized chunks.
func AddChunkSizeFlag(cmd *cobra.Command, dest *int, defaultValue int) {
	cmd.Flags().IntVarP(dest, "chunk-size", "c", defaultValue, "Bytes fed to the parser per chunk (0 = read buffer size)")
}

// AddMatchersFlag adds the --matchers flag naming a YAML definition file of
// custom block matchers and annotation detectors.
func AddMatchersFlag(cmd *cobra.Command, dest *string) {
	cmd.Flags().StringVar(dest, "matchers", "", "YAML file of custom matchers and annotations")
}

// AddElementsFlag adds the --elements flag with comma-separated completion.
func AddElementsFlag(cmd *cobra.Command, dest *string) {
	cmd.Flags().StringVar(dest, "elements", "", "Element patterns to parse, comma-separated (e.g. code,table*); others fall back to text")
	if err := cmd.RegisterFlagCompletionFunc("elements", ElementsFlagCompletion); err != nil {
		panic("failed to register elements completion: " + err.Error())
	}
}

// AddWidthFlag adds the --width/-w flag.
func AddWidthFlag(cmd *cobra.Command, dest *int) {
	cmd.Flags().IntVarP(dest, "width", "w", 0, "Output width (0 = terminal width)")
}

// AddFormatFlag adds the --format/-f flag with completion.
func AddFormatFlag(cmd *cobra.Command, dest *string) {
	cmd.Flags().StringVarP(dest, "format", "f", "", "Output format: ansi, html, or ndjson (default from config)")
	if err := cmd.RegisterFlagCompletionFunc("format", FormatFlagCompletion); err != nil {
		panic("failed to register format completion: " + err.Error())
	}
}

// FormatFlagCompletion provides completions for the --format flag.
func FormatFlagCompletion(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	var completions []string
	for _, f := range []string{"ansi", "html", "ndjson"} {
		if strings.HasPrefix(f, toComplete) {
			completions = append(completions, f)
		}
	}
	return completions, cobra.ShellCompDirectiveNoFileComp
}

// ElementsFlagCompletion provides completions for --elements with
// comma-separated support. When typing "code,hea<TAB>", completes to
// "code,header".
func ElementsFlagCompletion(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	// Parse comma-separated list
	var alreadyEntered []string
	var currentPrefix string
	if idx := strings.LastIndex(toComplete, ","); idx >= 0 {
		alreadyEntered = strings.Split(toComplete[:idx], ",")
		currentPrefix = toComplete[idx+1:]
	} else {
		currentPrefix = toComplete
	}

	enteredSet := make(map[string]bool)
	for _, s := range alreadyEntered {
		enteredSet[strings.TrimSpace(s)] = true
	}

	prefix := strings.Join(alreadyEntered, ",")
	if prefix != "" {
		prefix += ","
	}
	var completions []string
	for _, typ := range parser.ElementTypes() {
		name := string(typ)
		if enteredSet[name] {
			continue
		}
		if strings.HasPrefix(name, currentPrefix) {
			completions = append(completions, prefix+name)
		}
	}
	return completions, cobra.ShellCompDirectiveNoFileComp | cobra.ShellCompDirectiveNoSpace
}

// applyElementsFlag folds a comma-separated --elements value into the
// config's element patterns. Empty means config defaults.
func applyElementsFlag(patterns *[]string, flag string) {
	if flag == "" {
		return
	}
	var parts []string
	for _, part := range strings.Split(flag, ",") {
		if part = strings.TrimSpace(part); part != "" {
			parts = append(parts, part)
		}
	}
	if len(parts) > 0 {
		*patterns = parts
	}
}
