package source

import (
	"context"

	"github.com/dshills/quickpick/picker"
	"github.com/dshills/quickpick/stream"
)

// Command runs cmd once at attach and delivers its stdout lines as the item
// batch. Any stderr output, a spawn failure, or a transform error fails the
// load without delivering a partial batch; a non-zero exit with a silent
// stderr is still a successful run.
func Command(cmd stream.Command, opts ...Option) picker.Source {
	o := buildOptions(opts)
	return Func(func(ctx context.Context, sink picker.Sink) error {
		lines, err := stream.CollectWith(ctx, cmd, o.post)
		if err != nil {
			return err
		}
		values, err := o.transform(lines)
		if err != nil {
			return err
		}
		o.log.Debug("command %s produced %d items", cmd.Executable, len(values))
		return sink.SetItems(values)
	})
}
