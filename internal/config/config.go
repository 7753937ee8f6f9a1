package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gobwas/glob"
	"github.com/spf13/viper"

	"github.com/streammd/streammd/parser"
)

type Config struct {
	Elements []string        `mapstructure:"elements" yaml:"elements"`
	Matchers []MatcherConfig `mapstructure:"matchers" yaml:"matchers,omitempty"`
	Parser   ParserConfig    `mapstructure:"parser" yaml:"parser"`
	Render   RenderConfig    `mapstructure:"render" yaml:"render"`
	History  HistoryConfig   `mapstructure:"history" yaml:"history"`
}

// ParserConfig carries the tunables forwarded to parser.New.
type ParserConfig struct {
	Citations          bool   `mapstructure:"citations" yaml:"citations"`
	PreserveWhitespace bool   `mapstructure:"preserve_whitespace" yaml:"preserve_whitespace"`
	SplitParagraphs    bool   `mapstructure:"split_paragraphs" yaml:"split_paragraphs"`
	MaxBufferSize      int    `mapstructure:"max_buffer_size" yaml:"max_buffer_size"`
	MaxDeltaChunkSize  int    `mapstructure:"max_delta_chunk_size" yaml:"max_delta_chunk_size"`
	Emphasis           string `mapstructure:"emphasis" yaml:"emphasis"` // "strip" or "preserve"
	Tables             string `mapstructure:"tables" yaml:"tables"`     // "text" or "structured"
	IDPrefix           string `mapstructure:"id_prefix" yaml:"id_prefix"`
}

// MatcherConfig declares a custom block matcher by regular expression.
type MatcherConfig struct {
	Element  string `mapstructure:"element" yaml:"element"`
	Pattern  string `mapstructure:"pattern" yaml:"pattern"`
	End      string `mapstructure:"end" yaml:"end,omitempty"` // literal closing line; empty means single-line
	Priority int    `mapstructure:"priority" yaml:"priority,omitempty"`
}

// RenderConfig configures terminal and HTML output
type RenderConfig struct {
	Format string      `mapstructure:"format" yaml:"format"` // "ansi", "html", or "ndjson"
	Width  int         `mapstructure:"width" yaml:"width"`   // 0 means autodetect
	Theme  ThemeConfig `mapstructure:"theme" yaml:"theme"`
}

// ThemeConfig allows customization of renderer colors.
// Colors can be ANSI color numbers (0-255) or hex codes (#RRGGBB)
type ThemeConfig struct {
	Heading string `mapstructure:"heading" yaml:"heading,omitempty"`
	Code    string `mapstructure:"code" yaml:"code,omitempty"`
	Quote   string `mapstructure:"quote" yaml:"quote,omitempty"`
	Link    string `mapstructure:"link" yaml:"link,omitempty"`
	Accent  string `mapstructure:"accent" yaml:"accent,omitempty"` // rules, table borders
	Muted   string `mapstructure:"muted" yaml:"muted,omitempty"`   // annotations, ids
}

// HistoryConfig configures the parse run store
type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path" yaml:"path,omitempty"` // override default location
	MaxRuns int    `mapstructure:"max_runs" yaml:"max_runs"`
}

func Load() (*Config, error) {
	configPath, err := GetConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config dir: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configPath)
	viper.AddConfigPath(".")

	viper.SetEnvPrefix("STREAMMD")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("elements", []string{"*"})
	viper.SetDefault("parser.citations", true)
	viper.SetDefault("parser.split_paragraphs", true)
	viper.SetDefault("parser.max_buffer_size", 1<<20)
	viper.SetDefault("parser.emphasis", "strip")
	viper.SetDefault("parser.tables", "text")
	viper.SetDefault("parser.id_prefix", "el-")
	viper.SetDefault("render.format", "ansi")
	viper.SetDefault("history.enabled", true)
	viper.SetDefault("history.max_runs", 200)

	// Read config file (optional - won't error if missing)
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// ApplyOverrides applies command-line overrides to the config. Empty values
// leave the config untouched.
func (c *Config) ApplyOverrides(format string, width int) {
	if format != "" {
		c.Render.Format = format
	}
	if width > 0 {
		c.Render.Width = width
	}
}

// ToOptions translates the config into parser options.
func (c *Config) ToOptions() ([]parser.Option, error) {
	var opts []parser.Option

	enabled, all, err := matchElements(c.Elements)
	if err != nil {
		return nil, err
	}
	if !all {
		opts = append(opts, parser.WithElements(enabled...))
	}

	for _, mc := range c.Matchers {
		m, err := mc.build()
		if err != nil {
			return nil, err
		}
		opts = append(opts, parser.WithCustomMatcher(m))
	}

	p := c.Parser
	opts = append(opts,
		parser.WithCitations(p.Citations),
		parser.WithPreserveWhitespace(p.PreserveWhitespace),
		parser.WithSplitParagraphs(p.SplitParagraphs),
	)
	if p.MaxBufferSize > 0 {
		opts = append(opts, parser.WithMaxBufferSize(p.MaxBufferSize))
	}
	if p.MaxDeltaChunkSize > 0 {
		opts = append(opts, parser.WithMaxDeltaChunkSize(p.MaxDeltaChunkSize))
	}
	if p.Emphasis != "" {
		opts = append(opts, parser.WithEmphasisMode(parser.EmphasisMode(p.Emphasis)))
	}
	if p.Tables != "" {
		opts = append(opts, parser.WithTableMode(parser.TableMode(p.Tables)))
	}
	if p.IDPrefix != "" {
		opts = append(opts, parser.WithIDPrefix(p.IDPrefix))
	}
	return opts, nil
}

// matchElements expands glob patterns over the builtin element names. The
// second return is true when every element matched, meaning the default
// enablement can stand.
func matchElements(patterns []string) ([]parser.ElementType, bool, error) {
	if len(patterns) == 0 {
		return nil, true, nil
	}
	globs := make([]glob.Glob, 0, len(patterns))
	for _, pat := range patterns {
		g, err := glob.Compile(pat)
		if err != nil {
			return nil, false, fmt.Errorf("invalid element pattern %q: %w", pat, err)
		}
		globs = append(globs, g)
	}
	var matched []parser.ElementType
	universe := parser.ElementTypes()
	for _, typ := range universe {
		for _, g := range globs {
			if g.Match(string(typ)) {
				matched = append(matched, typ)
				break
			}
		}
	}
	return matched, len(matched) == len(universe), nil
}

func (mc MatcherConfig) build() (parser.Matcher, error) {
	re, err := regexp.Compile(mc.Pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid matcher pattern %q: %w", mc.Pattern, err)
	}
	prio := mc.Priority
	if prio == 0 {
		prio = parser.PriorityFence + 10
	}
	return &parser.RegexMatcher{
		Element:   parser.ElementType(mc.Element),
		Prio:      prio,
		Start:     re,
		EndMarker: mc.End,
	}, nil
}

// GetConfigDir returns the XDG config directory for streammd.
// Uses $XDG_CONFIG_HOME if set, otherwise ~/.config
func GetConfigDir() (string, error) {
	if xdgHome := os.Getenv("XDG_CONFIG_HOME"); xdgHome != "" {
		return filepath.Join(xdgHome, "streammd"), nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".config", "streammd"), nil
}

// GetConfigPath returns the path where the config file should be located
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.yaml"), nil
}

// GetDataDir returns the XDG data directory for streammd.
// Uses $XDG_DATA_HOME if set, otherwise ~/.local/share
func GetDataDir() (string, error) {
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, "streammd"), nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".local", "share", "streammd"), nil
}

// HistoryDBPath resolves the parse run database location, honoring the
// config override.
func (c *Config) HistoryDBPath() (string, error) {
	if c.History.Path != "" {
		return expandPath(c.History.Path), nil
	}
	dataDir, err := GetDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "history.db"), nil
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
