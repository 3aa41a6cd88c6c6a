package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/shlex"

	"github.com/dshills/quickpick/config"
	"github.com/dshills/quickpick/picker"
	"github.com/dshills/quickpick/stream"
)

// runFilter matches query against the items once and prints the ranked
// matches to stdout, one per line.
func runFilter(ctx context.Context, cfg config.Config, spec inputSpec, query string) int {
	lines, err := filterLines(ctx, spec, query)
	if err != nil {
		fmt.Fprintf(os.Stderr, "quickpick: %v\n", err)
		return 2
	}
	values, err := spec.transform(lines)
	if err != nil {
		fmt.Fprintf(os.Stderr, "quickpick: %v\n", err)
		return 2
	}

	popts := pickerOptions(cfg)
	popts.Sync = true
	popts.DebounceInterval = 0
	popts.Notify = func(m picker.Message) {
		fmt.Fprintf(os.Stderr, "quickpick: %s: %s\n", m.Namespace, m.Text)
	}
	s := picker.New(popts)
	defer s.Stop()

	if err := s.SetItems(values); err != nil {
		fmt.Fprintf(os.Stderr, "quickpick: %v\n", err)
		return 2
	}
	if err := s.SetQuery(runeEntries(query)); err != nil {
		fmt.Fprintf(os.Stderr, "quickpick: %v\n", err)
		return 2
	}
	if s.State() == picker.StateAborted {
		return 2
	}

	items := s.Items()
	inds := s.MatchIndices()
	for _, i := range inds {
		fmt.Println(items[i].Text)
	}
	if len(inds) == 0 {
		return 1
	}
	return 0
}

// filterLines collects the item lines once. A live template runs a single
// time with the filter query substituted.
func filterLines(ctx context.Context, spec inputSpec, query string) ([]string, error) {
	post := func(lines []string) []string { return postProcess(lines, spec.keepBlanks) }

	switch {
	case spec.command != "":
		cmd, err := splitCommand(spec.command, spec.dir, spec.env)
		if err != nil {
			return nil, err
		}
		return stream.CollectWith(ctx, cmd, post)
	case spec.template != "":
		cmd, err := renderTemplate(spec, query)
		if err != nil {
			return nil, err
		}
		return stream.CollectWith(ctx, cmd, post)
	case spec.watch != "":
		return readFileLines(spec.watch, spec.keepBlanks)
	case len(spec.files) > 0:
		var lines []string
		for _, path := range spec.files {
			fl, err := readFileLines(path, spec.keepBlanks)
			if err != nil {
				return nil, err
			}
			lines = append(lines, fl...)
		}
		return lines, nil
	default:
		return spec.stdin, nil
	}
}

// renderTemplate substitutes the query into the template's {} placeholders,
// appending it as the last argument when the template has none.
func renderTemplate(spec inputSpec, query string) (stream.Command, error) {
	argv, err := shlex.Split(spec.template)
	if err != nil {
		return stream.Command{}, fmt.Errorf("parsing template: %w", err)
	}
	if len(argv) == 0 {
		return stream.Command{}, errors.New("empty template")
	}
	replaced := false
	out := make([]string, len(argv))
	for i, a := range argv {
		if strings.Contains(a, "{}") {
			replaced = true
		}
		out[i] = strings.ReplaceAll(a, "{}", query)
	}
	if !replaced {
		out = append(out, query)
	}
	return stream.Command{
		Executable: out[0],
		Args:       out[1:],
		Dir:        spec.dir,
		Env:        spec.env,
	}, nil
}
