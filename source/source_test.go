package source

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/dshills/quickpick/internal/logging"
	"github.com/dshills/quickpick/picker"
)

// fakeSink records everything a source pushes through it and lets tests
// drive query changes by hand.
type fakeSink struct {
	mu      sync.Mutex
	batches [][]any
	msgs    []picker.Message
	entries []string
	subs    []func([]string)
	active  int
}

func newFakeSink(entries ...string) *fakeSink {
	return &fakeSink{entries: entries}
}

func (f *fakeSink) SetItems(values []any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	batch := make([]any, len(values))
	copy(batch, values)
	f.batches = append(f.batches, batch)
	return nil
}

func (f *fakeSink) Notify(msg picker.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, msg)
}

func (f *fakeSink) QueryEntries() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.entries))
	copy(out, f.entries)
	return out
}

func (f *fakeSink) OnQueryChange(fn func(entries []string)) (cancel func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs = append(f.subs, fn)
	return func() {}
}

func (f *fakeSink) BeginLoad() (done func()) {
	f.mu.Lock()
	f.active++
	f.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			f.active--
			f.mu.Unlock()
		})
	}
}

// setQuery simulates an entry-changing edit: it replaces the entries and
// fans out to subscribers, the way a session does.
func (f *fakeSink) setQuery(entries ...string) {
	f.mu.Lock()
	f.entries = entries
	subs := append(([]func([]string))(nil), f.subs...)
	f.mu.Unlock()
	for _, fn := range subs {
		fn(entries)
	}
}

func (f *fakeSink) lastBatch() ([]any, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.batches) == 0 {
		return nil, false
	}
	return f.batches[len(f.batches)-1], true
}

func (f *fakeSink) batchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.batches)
}

func (f *fakeSink) activeLoads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active
}

func (f *fakeSink) messages() []picker.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]picker.Message(nil), f.msgs...)
}

func waitFor(t *testing.T, timeout time.Duration, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestStringsDeliversBatch(t *testing.T) {
	sink := newFakeSink()
	src := Strings([]string{"alpha", "beta"})

	if err := src.Attach(context.Background(), sink); err != nil {
		t.Fatalf("Attach() error = %v", err)
	}
	got, ok := sink.lastBatch()
	if !ok || !reflect.DeepEqual(got, []any{"alpha", "beta"}) {
		t.Errorf("batch = %v, want [alpha beta]", got)
	}
}

func TestItemsCopiesSlice(t *testing.T) {
	values := []any{"a", "b"}
	src := Items(values)
	values[0] = "mutated"

	sink := newFakeSink()
	if err := src.Attach(context.Background(), sink); err != nil {
		t.Fatalf("Attach() error = %v", err)
	}
	got, _ := sink.lastBatch()
	if !reflect.DeepEqual(got, []any{"a", "b"}) {
		t.Errorf("batch = %v, want the values as passed", got)
	}
}

func TestFuncBracketsLoad(t *testing.T) {
	sink := newFakeSink()
	entered := make(chan struct{})
	release := make(chan struct{})
	src := Func(func(ctx context.Context, s picker.Sink) error {
		close(entered)
		<-release
		return s.SetItems([]any{"x"})
	})

	go src.Attach(context.Background(), sink)
	<-entered
	if got := sink.activeLoads(); got != 1 {
		t.Errorf("activeLoads() = %d, want 1 while the producer runs", got)
	}

	close(release)
	waitFor(t, time.Second, "load token release", func() bool { return sink.activeLoads() == 0 })
	if _, ok := sink.lastBatch(); !ok {
		t.Error("producer batch never arrived")
	}
}

func TestFuncErrorPropagates(t *testing.T) {
	want := errors.New("producer broke")
	src := Func(func(ctx context.Context, s picker.Sink) error { return want })

	if err := src.Attach(context.Background(), newFakeSink()); !errors.Is(err, want) {
		t.Errorf("Attach() error = %v, want %v", err, want)
	}
}

func TestAttachToSession(t *testing.T) {
	s := picker.New(picker.Options{Sync: true, Logger: logging.Null})
	defer s.Stop()

	if err := s.SetItemsFromSource(context.Background(), Strings([]string{"alpha", "beta", "gamma"})); err != nil {
		t.Fatalf("SetItemsFromSource() error = %v", err)
	}
	waitFor(t, time.Second, "items", func() bool { return s.Len() == 3 })
	if got := s.StrItems(); !reflect.DeepEqual(got, []string{"alpha", "beta", "gamma"}) {
		t.Errorf("StrItems() = %q", got)
	}
}
