package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dshills/quickpick/internal/debounce"
	"github.com/dshills/quickpick/picker"
	"github.com/dshills/quickpick/stream"
)

// DefaultWatchDebounce is how long WatchFile lets filesystem events settle
// before reloading.
const DefaultWatchDebounce = 50 * time.Millisecond

// WatchFile delivers the file's lines as the item batch, then reloads it
// whenever it changes on disk. Events are debounced so an editor's write
// burst coalesces into one reload. Each reload replaces the whole batch; a
// reload that fails keeps the previous batch and surfaces a "source"
// message. A missing file fails the attach.
//
// The file's directory is watched rather than the file itself, so
// rename-and-replace saves keep being observed.
func WatchFile(path string, opts ...Option) picker.Source {
	return &watchSource{path: filepath.Clean(path), o: buildOptions(opts)}
}

type watchSource struct {
	path string
	o    options
}

func (w *watchSource) Attach(ctx context.Context, sink picker.Sink) error {
	if err := w.load(sink); err != nil {
		return err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("source: watch %s: %w", w.path, err)
	}
	defer fw.Close()
	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("source: watch %s: %w", w.path, err)
	}

	reload := debounce.New(w.o.debounce, func() {
		if ctx.Err() != nil {
			return
		}
		if err := w.load(sink); err != nil {
			sink.Notify(picker.Message{Namespace: "source", Text: err.Error()})
		}
	})
	defer reload.Cancel()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if ev.Op.Has(fsnotify.Write) || ev.Op.Has(fsnotify.Create) {
				w.o.log.Debug("watch %s on %s", ev.Op, ev.Name)
				reload.Call()
			}
		case werr, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			sink.Notify(picker.Message{Namespace: "source", Text: fmt.Sprintf("watch %s: %v", w.path, werr)})
		}
	}
}

// load reads the file and replaces the batch.
func (w *watchSource) load(sink picker.Sink) error {
	done := sink.BeginLoad()
	defer done()

	data, err := os.ReadFile(w.path)
	if err != nil {
		return fmt.Errorf("source: read %s: %w", w.path, err)
	}
	col := stream.NewCollector()
	col.Write(data)
	values, err := w.o.transform(w.o.postProcess(col.Close()))
	if err != nil {
		return err
	}
	w.o.log.Debug("watch loaded %d items from %s", len(values), w.path)
	return sink.SetItems(values)
}
