// Package main is the entry point for the quickpick fuzzy finder.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/dshills/quickpick/config"
	"github.com/dshills/quickpick/internal/logging"
	"github.com/dshills/quickpick/match"
	"github.com/dshills/quickpick/picker"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	opts := parseFlags()

	cfg, err := loadConfig(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "quickpick: %v\n", err)
		return 2
	}

	log, closeLog := setupLogging(cfg, opts.filterMode())
	defer closeLog()
	logging.SetDefault(log)

	reg, err := config.LoadRegistry(opts.PickersPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "quickpick: %v\n", err)
		return 2
	}

	spec, err := resolveInput(cfg, reg, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "quickpick: %v\n", err)
		return 2
	}

	// Handle signals for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if opts.filterMode() {
		return runFilter(ctx, cfg, spec, opts.Filter)
	}
	return runPick(ctx, cfg, spec, opts)
}

// runPick drives the interactive session and prints the picked items.
func runPick(ctx context.Context, cfg config.Config, spec inputSpec, opts cliOptions) int {
	src, err := buildSource(spec)
	if err != nil {
		fmt.Fprintf(os.Stderr, "quickpick: %v\n", err)
		return 2
	}

	u, err := newUI(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "quickpick: %v\n", err)
		return 2
	}

	popts := pickerOptions(cfg)
	popts.Notify = u.notify
	s := picker.New(popts)
	defer s.Stop()
	u.session = s

	if err := s.SetItemsFromSource(ctx, src); err != nil {
		u.close()
		fmt.Fprintf(os.Stderr, "quickpick: %v\n", err)
		return 2
	}
	if opts.Query != "" {
		if err := s.SetQuery(runeEntries(opts.Query)); err != nil {
			u.close()
			fmt.Fprintf(os.Stderr, "quickpick: %v\n", err)
			return 2
		}
	}

	picked, err := u.run(ctx)
	if err != nil {
		if errors.Is(err, errAborted) {
			return 1
		}
		fmt.Fprintf(os.Stderr, "quickpick: %v\n", err)
		return 2
	}
	for _, line := range picked {
		fmt.Println(line)
	}
	if len(picked) == 0 {
		return 1
	}
	return 0
}

// pickerOptions maps the configuration onto session options and installs the
// score ranker as a custom matcher when selected.
func pickerOptions(cfg config.Config) picker.Options {
	popts := cfg.PickerOptions()
	popts.Logger = logging.Default().WithComponent("picker")
	if cfg.Matcher.Ranker == config.RankerScore {
		popts.Matcher = func(stritems []string, inds []int, entries []string) ([]int, error) {
			return match.Relevance(stritems, inds, entries), nil
		}
	}
	return popts
}

// loadConfig layers defaults, the config file, the environment, and explicit
// flags, validating the result.
func loadConfig(opts cliOptions) (config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return cfg, err
	}
	cfg, err = config.ApplyEnv(cfg)
	if err != nil {
		return cfg, err
	}
	if opts.isSet("ranker") {
		cfg.Matcher.Ranker = opts.Ranker
	}
	if opts.isSet("prompt") {
		cfg.UI.Prompt = opts.Prompt
	}
	if opts.isSet("log-level") {
		cfg.Log.Level = opts.LogLevel
	}
	return cfg, cfg.Validate()
}

// setupLogging routes diagnostics. Interactive mode keeps the terminal clean:
// without a log file, lines are discarded.
func setupLogging(cfg config.Config, filterMode bool) (*logging.Logger, func()) {
	lcfg := logging.DefaultConfig()
	lcfg.Level = logging.ParseLevel(cfg.Log.Level)

	closeLog := func() {}
	switch {
	case cfg.Log.Path != "":
		f, err := os.OpenFile(cfg.Log.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "quickpick: cannot open log file: %v\n", err)
			lcfg.Output = io.Discard
		} else {
			lcfg.Output = f
			closeLog = func() { f.Close() }
		}
	case filterMode:
		lcfg.Output = os.Stderr
	default:
		lcfg.Output = io.Discard
	}
	return logging.New(lcfg), closeLog
}

// runeEntries splits q the way interactive typing would feed it: one entry
// per rune, so control prefixes and whitespace separators keep their meaning.
func runeEntries(q string) []string {
	out := make([]string, 0, len(q))
	for _, r := range q {
		out = append(out, string(r))
	}
	return out
}

// cliOptions carries the parsed command line.
type cliOptions struct {
	ConfigPath  string
	PickersPath string
	Picker      string
	Command     string
	Template    string
	Watch       string
	JSONField   string
	LuaFile     string
	Dir         string
	Filter      string
	Query       string
	Ranker      string
	Prompt      string
	LogLevel    string
	Files       []string

	set map[string]bool
}

// isSet reports whether the flag was given explicitly under either name.
func (o cliOptions) isSet(name string) bool { return o.set[name] }

func (o cliOptions) filterMode() bool { return o.isSet("filter") || o.isSet("f") }

func parseFlags() cliOptions {
	var opts cliOptions
	var showVersion bool
	var showHelp bool

	confDir := defaultConfigDir()
	defConfig := ""
	defPickers := ""
	if confDir != "" {
		defConfig = filepath.Join(confDir, "config.toml")
		defPickers = filepath.Join(confDir, "pickers.yaml")
	}

	flag.StringVar(&opts.ConfigPath, "config", defConfig, "Path to configuration file")
	flag.StringVar(&opts.ConfigPath, "c", defConfig, "Path to configuration file (shorthand)")
	flag.StringVar(&opts.PickersPath, "pickers", defPickers, "Path to the picker registry")
	flag.StringVar(&opts.Picker, "picker", "", "Run a named picker from the registry")
	flag.StringVar(&opts.Picker, "p", "", "Run a named picker from the registry (shorthand)")
	flag.StringVar(&opts.Command, "command", "", "Run a command once and pick from its output")
	flag.StringVar(&opts.Template, "template", "", "Re-run a command per query; {} is the query")
	flag.StringVar(&opts.Watch, "watch", "", "Pick from a file, reloading on writes")
	flag.StringVar(&opts.JSONField, "json", "", "Treat lines as JSON; display the named field")
	flag.StringVar(&opts.LuaFile, "lua", "", "Transform lines with a Lua script file")
	flag.StringVar(&opts.Dir, "dir", "", "Working directory for commands")
	flag.StringVar(&opts.Filter, "filter", "", "Print matches for the query and exit")
	flag.StringVar(&opts.Filter, "f", "", "Print matches for the query and exit (shorthand)")
	flag.StringVar(&opts.Query, "query", "", "Start with the query")
	flag.StringVar(&opts.Query, "q", "", "Start with the query (shorthand)")
	flag.StringVar(&opts.Ranker, "ranker", "", "Match ordering: span or score")
	flag.StringVar(&opts.Prompt, "prompt", "", "Prompt drawn before the query")
	flag.StringVar(&opts.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&showVersion, "v", false, "Show version information (shorthand)")
	flag.BoolVar(&showHelp, "help", false, "Show help message")
	flag.BoolVar(&showHelp, "h", false, "Show help message (shorthand)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Quickpick - interactive fuzzy finder\n\n")
		fmt.Fprintf(os.Stderr, "Usage: quickpick [options] [files...]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  ls | quickpick                      Pick from piped lines\n")
		fmt.Fprintf(os.Stderr, "  quickpick -command 'git ls-files'   Pick from command output\n")
		fmt.Fprintf(os.Stderr, "  quickpick -template 'rg -n {}'      Re-run per keystroke\n")
		fmt.Fprintf(os.Stderr, "  quickpick -p files                  Run the registry picker \"files\"\n")
		fmt.Fprintf(os.Stderr, "  ls | quickpick -f qry               Non-interactive filter\n")
		fmt.Fprintf(os.Stderr, "\nExit status: 0 picked, 1 nothing picked or aborted, 2 error\n")
	}

	flag.Parse()

	if showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if showVersion {
		fmt.Printf("Quickpick %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", date)
		os.Exit(0)
	}

	opts.set = make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { opts.set[f.Name] = true })

	// Remaining arguments are files to pick from
	opts.Files = flag.Args()

	return opts
}

func defaultConfigDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(base, "quickpick")
}
