package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/dshills/quickpick/match"
	"github.com/dshills/quickpick/picker"
)

// EnvPrefix is the prefix of every environment override.
const EnvPrefix = "QUICKPICK_"

// Ranker names accepted by matcher.ranker.
const (
	// RankerSpan is the built-in span ordering: tighter, earlier matches
	// first.
	RankerSpan = "span"
	// RankerScore ranks by fuzzy relevance score instead.
	RankerScore = "score"
)

// Config is the full finder configuration.
type Config struct {
	Matcher MatcherConfig `toml:"matcher"`
	Picker  PickerConfig  `toml:"picker"`
	Stream  StreamConfig  `toml:"stream"`
	UI      UIConfig      `toml:"ui"`
	Log     LogConfig     `toml:"log"`
}

// MatcherConfig selects the matching policy.
type MatcherConfig struct {
	// IgnoreCase folds candidate and query for comparison.
	IgnoreCase bool `toml:"ignore_case"`

	// SmartCase turns folding back off while the query contains an
	// uppercase letter.
	SmartCase bool `toml:"smart_case"`

	// Normalize strips diacritics from comparison copies.
	Normalize bool `toml:"normalize"`

	// Ranker orders matches: "span" or "score".
	Ranker string `toml:"ranker"`
}

// PickerConfig tunes the match coordinator.
type PickerConfig struct {
	// ChunkSize is how many candidates a match task scans between
	// generation checks.
	ChunkSize int `toml:"chunk_size"`

	// CacheSize is the LRU capacity of the per-batch result cache.
	CacheSize int `toml:"cache_size"`

	// DebounceMS delays match scheduling after a query edit, so bursts
	// coalesce. Zero matches on every edit.
	DebounceMS int `toml:"debounce_ms"`
}

// StreamConfig tunes external command output handling.
type StreamConfig struct {
	// KeepBlanks keeps trailing blank lines instead of dropping them.
	KeepBlanks bool `toml:"keep_blanks"`
}

// UIConfig tunes the interactive terminal surface.
type UIConfig struct {
	// Prompt is drawn before the query.
	Prompt string `toml:"prompt"`

	// MaxWidth caps how many cells an item row may occupy. Zero uses the
	// full terminal width.
	MaxWidth int `toml:"max_width"`
}

// LogConfig routes diagnostics.
type LogConfig struct {
	// Level is the minimum level: debug, info, warn, or error.
	Level string `toml:"level"`

	// Path appends log lines to a file. Empty discards them in interactive
	// mode and writes to stderr otherwise.
	Path string `toml:"path"`
}

// Default returns the canonical defaults: smart-case folding, span ranking,
// and no debounce.
func Default() Config {
	return Config{
		Matcher: MatcherConfig{IgnoreCase: true, SmartCase: true, Ranker: RankerSpan},
		Picker:  PickerConfig{ChunkSize: picker.DefaultChunkSize, CacheSize: match.DefaultCacheSize},
		UI:      UIConfig{Prompt: "> "},
		Log:     LogConfig{Level: "info"},
	}
}

// Error reports an unreadable configuration source or an invalid value.
type Error struct {
	Path    string // file path or environment variable name
	Line    int
	Column  int
	Field   string // offending key, when known
	Message string
	Err     error
}

func (e *Error) Error() string {
	where := e.Path
	switch {
	case where == "":
		where = e.Field
	case e.Field != "":
		where += ": " + e.Field
	}
	switch {
	case where == "":
		return "config: " + e.Message
	case e.Line > 0:
		return fmt.Sprintf("config %s line %d: %s", where, e.Line, e.Message)
	default:
		return fmt.Sprintf("config %s: %s", where, e.Message)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Load reads the TOML file at path over the defaults. A missing file is not
// an error: the defaults come back unchanged. The merged result is
// validated.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, &Error{Path: path, Message: err.Error(), Err: err}
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		cerr := &Error{Path: path, Message: err.Error(), Err: err}
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			cerr.Line, cerr.Column = derr.Position()
		}
		return cfg, cerr
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ApplyEnv overlays QUICKPICK_* environment variables onto cfg and validates
// the result. Booleans accept true/false, yes/no, on/off and 1/0.
func ApplyEnv(cfg Config) (Config, error) {
	overrides := []struct {
		name  string
		apply func(string) error
	}{
		{"IGNORE_CASE", boolInto(&cfg.Matcher.IgnoreCase)},
		{"SMART_CASE", boolInto(&cfg.Matcher.SmartCase)},
		{"NORMALIZE", boolInto(&cfg.Matcher.Normalize)},
		{"RANKER", stringInto(&cfg.Matcher.Ranker)},
		{"CHUNK_SIZE", intInto(&cfg.Picker.ChunkSize)},
		{"CACHE_SIZE", intInto(&cfg.Picker.CacheSize)},
		{"DEBOUNCE_MS", intInto(&cfg.Picker.DebounceMS)},
		{"KEEP_BLANKS", boolInto(&cfg.Stream.KeepBlanks)},
		{"PROMPT", stringInto(&cfg.UI.Prompt)},
		{"MAX_WIDTH", intInto(&cfg.UI.MaxWidth)},
		{"LOG_LEVEL", stringInto(&cfg.Log.Level)},
		{"LOG_PATH", stringInto(&cfg.Log.Path)},
	}
	for _, o := range overrides {
		raw, ok := os.LookupEnv(EnvPrefix + o.name)
		if !ok {
			continue
		}
		if err := o.apply(raw); err != nil {
			return cfg, &Error{Path: EnvPrefix + o.name, Message: err.Error(), Err: err}
		}
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks ranges and enumerations, failing on the first problem.
func (c Config) Validate() error {
	if c.Matcher.Ranker != RankerSpan && c.Matcher.Ranker != RankerScore {
		return &Error{Field: "matcher.ranker", Message: fmt.Sprintf("unknown ranker %q", c.Matcher.Ranker)}
	}
	if c.Picker.ChunkSize <= 0 {
		return &Error{Field: "picker.chunk_size", Message: fmt.Sprintf("must be positive, got %d", c.Picker.ChunkSize)}
	}
	if c.Picker.CacheSize <= 0 {
		return &Error{Field: "picker.cache_size", Message: fmt.Sprintf("must be positive, got %d", c.Picker.CacheSize)}
	}
	if c.Picker.DebounceMS < 0 {
		return &Error{Field: "picker.debounce_ms", Message: fmt.Sprintf("must not be negative, got %d", c.Picker.DebounceMS)}
	}
	if c.UI.MaxWidth < 0 {
		return &Error{Field: "ui.max_width", Message: fmt.Sprintf("must not be negative, got %d", c.UI.MaxWidth)}
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return &Error{Field: "log.level", Message: fmt.Sprintf("unknown level %q", c.Log.Level)}
	}
	return nil
}

// MatchOptions returns the matcher policy this configuration selects.
func (c Config) MatchOptions() match.Options {
	return match.Options{
		IgnoreCase: c.Matcher.IgnoreCase,
		SmartCase:  c.Matcher.SmartCase,
		Normalize:  c.Matcher.Normalize,
	}
}

// PickerOptions returns session options for this configuration. Logger and
// Notify are left for the caller.
func (c Config) PickerOptions() picker.Options {
	return picker.Options{
		Match:            c.MatchOptions(),
		ChunkSize:        c.Picker.ChunkSize,
		CacheSize:        c.Picker.CacheSize,
		DebounceInterval: time.Duration(c.Picker.DebounceMS) * time.Millisecond,
	}
}

func boolInto(dst *bool) func(string) error {
	return func(raw string) error {
		v, err := parseBool(raw)
		if err != nil {
			return err
		}
		*dst = v
		return nil
	}
}

func intInto(dst *int) func(string) error {
	return func(raw string) error {
		v, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return fmt.Errorf("invalid integer %q", raw)
		}
		*dst = v
		return nil
	}
}

func stringInto(dst *string) func(string) error {
	return func(raw string) error {
		*dst = raw
		return nil
	}
}

func parseBool(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "yes", "on", "1":
		return true, nil
	case "false", "no", "off", "0":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean %q", raw)
}
