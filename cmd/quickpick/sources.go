package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/shlex"

	"github.com/dshills/quickpick/config"
	"github.com/dshills/quickpick/internal/logging"
	"github.com/dshills/quickpick/picker"
	"github.com/dshills/quickpick/source"
	"github.com/dshills/quickpick/stream"
)

var errNoSource = errors.New("no item source: pipe stdin or give -picker, -command, -template, -watch, or files")

// inputSpec is where items come from once flags and registry definitions are
// merged.
type inputSpec struct {
	command  string   // run once, pick from stdout
	template string   // re-run per query edit
	watch    string   // reload the file on writes
	files    []string // fixed files, one item per line
	stdin    []string // lines already drained from the pipe

	dir        string
	env        []string
	transform  source.Transform
	keepBlanks bool
}

// resolveInput merges the registry definition or flags into one source
// specification. Exactly one source may be named; a piped stdin is the
// fallback when none is.
func resolveInput(cfg config.Config, reg *config.Registry, opts cliOptions) (inputSpec, error) {
	spec := inputSpec{dir: opts.Dir, keepBlanks: cfg.Stream.KeepBlanks}

	given := 0
	for _, s := range []string{opts.Picker, opts.Command, opts.Template, opts.Watch} {
		if s != "" {
			given++
		}
	}
	if len(opts.Files) > 0 {
		given++
	}
	if given > 1 {
		return spec, errors.New("give exactly one of -picker, -command, -template, -watch, or files")
	}

	tf, err := flagTransform(opts)
	if err != nil {
		return spec, err
	}
	spec.transform = tf

	switch {
	case opts.Picker != "":
		def, ok := reg.Lookup(opts.Picker)
		if !ok {
			known := strings.Join(reg.Names(), ", ")
			if known == "" {
				known = "none defined"
			}
			return spec, fmt.Errorf("unknown picker %q (known: %s)", opts.Picker, known)
		}
		spec.command = def.Command
		spec.template = def.Template
		spec.watch = def.File
		if def.Dir != "" {
			spec.dir = def.Dir
		}
		spec.env = def.Env
		if tf == nil {
			if spec.transform, err = defTransform(def); err != nil {
				return spec, err
			}
		}
	case opts.Command != "":
		spec.command = opts.Command
	case opts.Template != "":
		spec.template = opts.Template
	case opts.Watch != "":
		spec.watch = opts.Watch
	case len(opts.Files) > 0:
		spec.files = opts.Files
	default:
		if !stdinPiped() {
			return spec, errNoSource
		}
		lines, err := readLines(os.Stdin)
		if err != nil {
			return spec, fmt.Errorf("reading stdin: %w", err)
		}
		spec.stdin = postProcess(lines, spec.keepBlanks)
	}

	if spec.transform == nil {
		spec.transform = source.TextLines()
	}
	return spec, nil
}

// flagTransform builds the line transform named by flags; nil means no flag
// was given and a registry definition may still decide.
func flagTransform(opts cliOptions) (source.Transform, error) {
	if opts.JSONField != "" && opts.LuaFile != "" {
		return nil, errors.New("give at most one of -json and -lua")
	}
	switch {
	case opts.JSONField != "":
		return source.JSONLines(opts.JSONField), nil
	case opts.LuaFile != "":
		script, err := os.ReadFile(opts.LuaFile)
		if err != nil {
			return nil, fmt.Errorf("reading lua script: %w", err)
		}
		return source.LuaLines(string(script)), nil
	}
	return nil, nil
}

// defTransform builds the transform a registry definition names. The
// registry validated the definition on load.
func defTransform(def config.PickerDef) (source.Transform, error) {
	switch def.Transform {
	case "", config.TransformText:
		return source.TextLines(), nil
	case config.TransformJSON:
		field := def.TextField
		if field == "" {
			field = "text"
		}
		return source.JSONLines(field), nil
	case config.TransformLua:
		return source.LuaLines(def.Script), nil
	default:
		return nil, fmt.Errorf("unknown transform %q", def.Transform)
	}
}

// buildSource turns the specification into an attachable source for the
// interactive session.
func buildSource(spec inputSpec) (picker.Source, error) {
	log := logging.Default().WithComponent("source")
	sopts := []source.Option{
		source.WithTransform(spec.transform),
		source.WithLogger(log),
	}
	if spec.dir != "" {
		sopts = append(sopts, source.WithDir(spec.dir))
	}
	if len(spec.env) > 0 {
		sopts = append(sopts, source.WithEnv(spec.env))
	}
	if spec.keepBlanks {
		sopts = append(sopts, source.WithPostProcess(keepAllLines))
	}

	switch {
	case spec.command != "":
		cmd, err := splitCommand(spec.command, spec.dir, spec.env)
		if err != nil {
			return nil, err
		}
		return source.Command(cmd, sopts...), nil
	case spec.template != "":
		return source.Live(spec.template, sopts...), nil
	case spec.watch != "":
		return source.WatchFile(spec.watch, sopts...), nil
	case len(spec.files) > 0:
		return fileSource(spec), nil
	default:
		values, err := spec.transform(spec.stdin)
		if err != nil {
			return nil, err
		}
		return source.Items(values), nil
	}
}

// fileSource loads the named files once, in argument order.
func fileSource(spec inputSpec) picker.Source {
	return source.Func(func(ctx context.Context, sink picker.Sink) error {
		var lines []string
		for _, path := range spec.files {
			fl, err := readFileLines(path, spec.keepBlanks)
			if err != nil {
				return err
			}
			lines = append(lines, fl...)
		}
		values, err := spec.transform(lines)
		if err != nil {
			return err
		}
		return sink.SetItems(values)
	})
}

// splitCommand shell-splits a one-shot command line.
func splitCommand(line, dir string, env []string) (stream.Command, error) {
	argv, err := shlex.Split(line)
	if err != nil {
		return stream.Command{}, fmt.Errorf("parsing command: %w", err)
	}
	if len(argv) == 0 {
		return stream.Command{}, errors.New("empty command")
	}
	return stream.Command{
		Executable: argv[0],
		Args:       argv[1:],
		Dir:        dir,
		Env:        env,
	}, nil
}

func readFileLines(path string, keepBlanks bool) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	col := stream.NewCollector()
	col.Write(data)
	return postProcess(col.Close(), keepBlanks), nil
}

func readLines(r *os.File) ([]string, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		lines = append(lines, strings.TrimSuffix(sc.Text(), "\r"))
	}
	return lines, sc.Err()
}

func postProcess(lines []string, keepBlanks bool) []string {
	if keepBlanks {
		return lines
	}
	return stream.DropTrailingBlanks(lines)
}

func keepAllLines(lines []string) []string { return lines }

// stdinPiped reports whether stdin carries piped data rather than the
// terminal.
func stdinPiped() bool {
	info, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice == 0
}
