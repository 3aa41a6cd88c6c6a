package source

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/shlex"

	"github.com/dshills/quickpick/picker"
	"github.com/dshills/quickpick/stream"
)

// ErrEmptyTemplate is returned from a live source's attach when the command
// template contains no words.
var ErrEmptyTemplate = errors.New("source: empty live template")

// Live re-runs a command template on every query change and delivers the
// newest run's stdout lines as the item batch. The template is split into
// argv with shell-style quoting; every "{}" in an argument is replaced with
// the current query text. A template without the placeholder gets the query
// appended as a final argument.
//
// At most one process runs at a time. A newer query kills the in-flight run
// and closes its stdout before the replacement spawns, so output from a
// superseded process can never land after the replacement's. Queries that
// arrive while a kill is pending coalesce: only the newest one spawns. An
// empty query spawns nothing and clears the batch.
func Live(template string, opts ...Option) picker.Source {
	return &liveSource{template: template, o: buildOptions(opts)}
}

type liveSource struct {
	template string
	o        options
}

// liveRun is one spawned process: its handle, its line collector, and its
// load token.
type liveRun struct {
	handle *stream.Handle
	col    *stream.Collector
	done   func()
}

func (l *liveSource) Attach(ctx context.Context, sink picker.Sink) error {
	argv, err := shlex.Split(l.template)
	if err != nil {
		return fmt.Errorf("source: live template %q: %w", l.template, err)
	}
	if len(argv) == 0 {
		return ErrEmptyTemplate
	}

	// Capacity-one channel with drop-stale sends: the worker only ever sees
	// the newest query, so edit bursts cost one spawn, not one per edit.
	queries := make(chan string, 1)
	push := func(entries []string) {
		q := strings.Join(entries, "")
		for {
			select {
			case queries <- q:
				return
			default:
				select {
				case <-queries:
				default:
				}
			}
		}
	}
	cancel := sink.OnQueryChange(push)
	defer cancel()
	push(sink.QueryEntries())

	var cur *liveRun
	defer func() {
		if cur != nil {
			l.discard(cur)
		}
	}()

	for {
		var running <-chan struct{}
		if cur != nil {
			running = cur.handle.Done()
		}
		select {
		case <-ctx.Done():
			return nil
		case q := <-queries:
			if cur != nil {
				l.discard(cur)
				cur = nil
			}
			if strings.TrimSpace(q) == "" {
				if err := sink.SetItems(nil); err != nil {
					return nil
				}
				continue
			}
			run, err := l.spawn(ctx, sink, argv, q)
			if err != nil {
				sink.Notify(picker.Message{Namespace: "source", Text: err.Error()})
				continue
			}
			cur = run
		case <-running:
			l.finish(ctx, sink, cur)
			cur = nil
		}
	}
}

// spawn starts one run for query q.
func (l *liveSource) spawn(ctx context.Context, sink picker.Sink, argv []string, q string) (*liveRun, error) {
	rendered := renderArgv(argv, q)
	col := stream.NewCollector()
	h, err := stream.Start(ctx, stream.Command{
		Executable: rendered[0],
		Args:       rendered[1:],
		Dir:        l.o.dir,
		Env:        l.o.env,
	}, col.Write)
	if err != nil {
		return nil, err
	}
	l.o.log.Debug("live run %s pid=%d query=%q", h.ID(), h.PID(), q)
	return &liveRun{handle: h, col: col, done: sink.BeginLoad()}, nil
}

// finish applies a naturally completed run. Failures keep the previous
// batch; cancellation and kills stay silent.
func (l *liveSource) finish(ctx context.Context, sink picker.Sink, run *liveRun) {
	defer run.done()
	defer run.handle.Close()

	err := run.handle.Wait()
	switch {
	case err == nil:
		values, terr := l.o.transform(l.o.postProcess(run.col.Close()))
		if terr != nil {
			sink.Notify(picker.Message{Namespace: "source", Text: terr.Error()})
			return
		}
		if serr := sink.SetItems(values); serr == nil {
			l.o.log.Debug("live run %s delivered %d items", run.handle.ID(), len(values))
		}
	case errors.Is(err, stream.ErrKilled), ctx.Err() != nil:
	default:
		sink.Notify(picker.Message{Namespace: "source", Text: err.Error()})
	}
}

// discard kills a superseded run. Kill closes the run's stdout before it
// returns, so nothing from the old process is delivered once the
// replacement spawns; the collected lines are dropped unread.
func (l *liveSource) discard(run *liveRun) {
	if err := run.handle.Kill(); err != nil {
		l.o.log.Warn("live kill: %v", err)
	}
	run.handle.Close()
	run.done()
}

// renderArgv substitutes the query into the argv template.
func renderArgv(argv []string, q string) []string {
	out := make([]string, len(argv))
	replaced := false
	for i, arg := range argv {
		if strings.Contains(arg, "{}") {
			out[i] = strings.ReplaceAll(arg, "{}", q)
			replaced = true
		} else {
			out[i] = arg
		}
	}
	if !replaced {
		out = append(out, q)
	}
	return out
}
