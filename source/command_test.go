package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/dshills/quickpick/picker"
	"github.com/dshills/quickpick/stream"
)

func shCommand(script string) stream.Command {
	return stream.Command{Executable: "sh", Args: []string{"-c", script}}
}

func TestCommandDeliversLines(t *testing.T) {
	sink := newFakeSink()
	src := Command(shCommand(`printf 'one\ntwo\n'`))

	if err := src.Attach(context.Background(), sink); err != nil {
		t.Fatalf("Attach() error = %v", err)
	}
	got, _ := sink.lastBatch()
	if !reflect.DeepEqual(got, []any{"one", "two"}) {
		t.Errorf("batch = %v, want [one two]", got)
	}
}

func TestCommandStderrFailsLoad(t *testing.T) {
	sink := newFakeSink()
	src := Command(shCommand(`echo kept; echo boom >&2`))

	err := src.Attach(context.Background(), sink)
	var serr *stream.StderrError
	if !errors.As(err, &serr) {
		t.Fatalf("Attach() error = %v, want *StderrError", err)
	}
	if sink.batchCount() != 0 {
		t.Error("failed load must not deliver a batch")
	}
}

func TestCommandTransformError(t *testing.T) {
	want := errors.New("mapping broke")
	src := Command(shCommand(`echo x`), WithTransform(func([]string) ([]any, error) {
		return nil, want
	}))

	sink := newFakeSink()
	if err := src.Attach(context.Background(), sink); !errors.Is(err, want) {
		t.Fatalf("Attach() error = %v, want %v", err, want)
	}
	if sink.batchCount() != 0 {
		t.Error("failed transform must not deliver a batch")
	}
}

func TestCommandJSONTransform(t *testing.T) {
	sink := newFakeSink()
	src := Command(
		shCommand(`printf '{"msg":"hit","path":"a.go","lnum":3,"col":7}\n'`),
		WithTransform(JSONLines("msg")),
	)

	if err := src.Attach(context.Background(), sink); err != nil {
		t.Fatalf("Attach() error = %v", err)
	}
	got, _ := sink.lastBatch()
	if len(got) != 1 {
		t.Fatalf("batch = %v, want one item", got)
	}
	item, ok := got[0].(picker.Item)
	if !ok {
		t.Fatalf("item type = %T, want picker.Item", got[0])
	}
	if item.Text != "hit" || item.Path != "a.go" || item.Lnum != 3 || item.Col != 7 {
		t.Errorf("item = %+v, want text=hit path=a.go lnum=3 col=7", item)
	}
}

func TestCommandRunsInDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "present.txt"), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	sink := newFakeSink()
	src := Command(shCommand("ls"), WithDir(dir))

	if err := src.Attach(context.Background(), sink); err != nil {
		t.Fatalf("Attach() error = %v", err)
	}
	got, _ := sink.lastBatch()
	if !reflect.DeepEqual(got, []any{"present.txt"}) {
		t.Errorf("batch = %v, want [present.txt]", got)
	}
}

func TestCommandPassesEnv(t *testing.T) {
	sink := newFakeSink()
	src := Command(shCommand(`printf '%s\n' "$QUICKPICK_PROBE"`), WithEnv([]string{"QUICKPICK_PROBE=lit"}))

	if err := src.Attach(context.Background(), sink); err != nil {
		t.Fatalf("Attach() error = %v", err)
	}
	got, _ := sink.lastBatch()
	if !reflect.DeepEqual(got, []any{"lit"}) {
		t.Errorf("batch = %v, want [lit]", got)
	}
}

func TestCommandKeepsBlanksWithCustomPost(t *testing.T) {
	sink := newFakeSink()
	keep := func(lines []string) []string { return lines }
	src := Command(shCommand(`printf 'a\n\n'`), WithPostProcess(keep))

	if err := src.Attach(context.Background(), sink); err != nil {
		t.Fatalf("Attach() error = %v", err)
	}
	got, _ := sink.lastBatch()
	if !reflect.DeepEqual(got, []any{"a", ""}) {
		t.Errorf("batch = %v, want [a \"\"]", got)
	}
}
