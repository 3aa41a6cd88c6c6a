package source

import (
	"context"
	"time"

	"github.com/dshills/quickpick/internal/logging"
	"github.com/dshills/quickpick/picker"
	"github.com/dshills/quickpick/stream"
)

// Option adjusts how a command- or file-backed source loads and maps lines.
type Option func(*options)

type options struct {
	transform Transform
	post      stream.PostProcess
	debounce  time.Duration
	dir       string
	env       []string
	log       *logging.Logger
}

func buildOptions(opts []Option) options {
	o := options{
		transform: TextLines(),
		debounce:  DefaultWatchDebounce,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logging.Default()
	}
	o.log = o.log.WithComponent("source")
	return o
}

// WithTransform sets the line-to-item mapping. The default keeps each line
// as its own text.
func WithTransform(t Transform) Option {
	return func(o *options) {
		if t != nil {
			o.transform = t
		}
	}
}

// WithPostProcess replaces the line post-processing applied after a run
// completes. The default drops trailing blank lines.
func WithPostProcess(p stream.PostProcess) Option {
	return func(o *options) { o.post = p }
}

// WithDir sets the working directory for spawned commands.
func WithDir(dir string) Option {
	return func(o *options) { o.dir = dir }
}

// WithEnv appends KEY=VALUE pairs to the environment of spawned commands.
func WithEnv(env []string) Option {
	return func(o *options) { o.env = env }
}

// WithDebounce sets how long WatchFile lets filesystem events settle before
// reloading. Zero reloads on every event.
func WithDebounce(d time.Duration) Option {
	return func(o *options) { o.debounce = d }
}

// WithLogger routes source diagnostics to log.
func WithLogger(log *logging.Logger) Option {
	return func(o *options) { o.log = log }
}

// postProcess applies the configured post step, or the stream default.
func (o options) postProcess(lines []string) []string {
	if o.post != nil {
		return o.post(lines)
	}
	return stream.DropTrailingBlanks(lines)
}

// Func adapts a producer function to the Source contract. The producer runs
// on its own goroutine once attached and counts toward the session's busy
// flag until it returns.
func Func(fn func(ctx context.Context, sink picker.Sink) error) picker.Source {
	return funcSource(fn)
}

type funcSource func(ctx context.Context, sink picker.Sink) error

func (f funcSource) Attach(ctx context.Context, sink picker.Sink) error {
	done := sink.BeginLoad()
	defer done()
	return f(ctx, sink)
}

// Strings is a fixed batch with one item per line, delivered at attach.
func Strings(lines []string) picker.Source {
	values := make([]any, len(lines))
	for i, line := range lines {
		values[i] = line
	}
	return fixedSource(values)
}

// Items is a fixed batch of raw values, delivered at attach. The slice is
// copied; the values are not.
func Items(values []any) picker.Source {
	batch := make([]any, len(values))
	copy(batch, values)
	return fixedSource(batch)
}

func fixedSource(batch []any) picker.Source {
	return Func(func(ctx context.Context, sink picker.Sink) error {
		return sink.SetItems(batch)
	})
}
