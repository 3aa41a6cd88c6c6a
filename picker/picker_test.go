package picker

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/dshills/quickpick/internal/logging"
)

// syncOptions makes every scheduled match run on the mutating goroutine, so
// state assertions need no waiting.
func syncOptions() Options {
	opts := DefaultOptions()
	opts.Sync = true
	opts.Logger = logging.Null
	return opts
}

func asAny(ss ...string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestSetItemsIdentityOrder(t *testing.T) {
	s := New(syncOptions())
	if err := s.SetItems(asAny("c", "a", "b")); err != nil {
		t.Fatalf("SetItems() error = %v", err)
	}

	if got := s.MatchIndices(); !reflect.DeepEqual(got, []int{0, 1, 2}) {
		t.Errorf("MatchIndices() = %v, want identity", got)
	}
	if got := s.State(); got != StateIdle {
		t.Errorf("State() = %v, want idle", got)
	}
	if got := s.Generation(); got == 0 {
		t.Error("SetItems should bump the generation")
	}
}

func TestSetItemsNilClearsEverything(t *testing.T) {
	s := New(syncOptions())
	s.SetItems(asAny("a", "b"))
	s.Mark(0)
	s.Type("a")

	if err := s.SetItems(nil); err != nil {
		t.Fatalf("SetItems(nil) error = %v", err)
	}
	if got := s.Len(); got != 0 {
		t.Errorf("Len() = %d, want 0", got)
	}
	if got := s.MatchIndices(); len(got) != 0 {
		t.Errorf("MatchIndices() = %v, want empty", got)
	}
	if got := s.Marked(); len(got) != 0 {
		t.Errorf("Marked() = %v, want empty", got)
	}
	if got := s.CurrentIndex(); got != -1 {
		t.Errorf("CurrentIndex() = %d, want -1", got)
	}
}

func TestSetItemsRematchesNonEmptyQuery(t *testing.T) {
	s := New(syncOptions())
	s.SetItems(asAny("alpha", "beta"))
	s.Type("a")

	s.SetItems(asAny("gamma", "aa", "none"))

	if got := s.MatchIndices(); !reflect.DeepEqual(got, []int{1, 0}) {
		t.Errorf("MatchIndices() after reset = %v, want [1 0]", got)
	}
	if got := s.State(); got != StateApplied {
		t.Errorf("State() = %v, want applied", got)
	}
}

func TestSetItemsClearsMarksAndCursor(t *testing.T) {
	s := New(syncOptions())
	s.SetItems(asAny("a", "b", "c"))
	s.Mark(1)
	s.MoveCursor(2)

	s.SetItems(asAny("x", "y"))

	if got := s.Marked(); len(got) != 0 {
		t.Errorf("Marked() = %v, want cleared", got)
	}
	if got := s.Cursor(); got != 0 {
		t.Errorf("Cursor() = %d, want 0", got)
	}
}

func TestSpanRankingThroughSession(t *testing.T) {
	s := New(syncOptions())
	s.SetItems(asAny("a_b_c", "abc", "a_b_b", "c_a_a", "b_c_c"))

	s.Type("a")
	s.Type("b")

	if got := s.MatchIndices(); !reflect.DeepEqual(got, []int{1, 0, 2}) {
		t.Errorf("MatchIndices() = %v, want [1 0 2]", got)
	}
}

func TestForcedExactThroughSession(t *testing.T) {
	s := New(syncOptions())
	s.SetItems(asAny("a", "ab", "a_b", "a_b_b"))

	if err := s.SetQuery([]string{"'", "a", "b"}); err != nil {
		t.Fatalf("SetQuery() error = %v", err)
	}
	if got := s.MatchIndices(); !reflect.DeepEqual(got, []int{1}) {
		t.Errorf("MatchIndices() = %v, want [1]", got)
	}
}

func TestClearingQueryRestoresIdentity(t *testing.T) {
	s := New(syncOptions())
	s.SetItems(asAny("b", "a"))
	s.Type("a")

	if got := s.MatchIndices(); !reflect.DeepEqual(got, []int{1}) {
		t.Fatalf("MatchIndices() = %v, want [1]", got)
	}

	s.Backspace()

	if got := s.MatchIndices(); !reflect.DeepEqual(got, []int{0, 1}) {
		t.Errorf("MatchIndices() = %v, want identity", got)
	}
	if got := s.State(); got != StateIdle {
		t.Errorf("State() = %v, want idle", got)
	}
}

func TestGenerationBumpsOnlyOnEntryChanges(t *testing.T) {
	s := New(syncOptions())
	s.SetItems(asAny("a"))
	base := s.Generation()

	s.Type("")
	s.Backspace() // empty query, nothing to delete
	s.CaretLeft()
	s.CaretHome()
	if got := s.Generation(); got != base {
		t.Fatalf("no-op edits moved generation %d -> %d", base, got)
	}

	s.Type("a")
	afterType := s.Generation()
	if afterType != base+1 {
		t.Fatalf("Type bumped generation to %d, want %d", afterType, base+1)
	}

	s.SetQuery([]string{"a"}) // same entries
	if got := s.Generation(); got != afterType {
		t.Errorf("identical SetQuery moved generation %d -> %d", afterType, got)
	}

	s.SetQuery([]string{"b"})
	if got := s.Generation(); got != afterType+1 {
		t.Errorf("SetQuery bumped generation to %d, want %d", got, afterType+1)
	}
}

func TestQueryEditWithoutItems(t *testing.T) {
	s := New(syncOptions())
	base := s.Generation()

	if err := s.Type("a"); err != nil {
		t.Fatalf("Type() error = %v", err)
	}
	if got := s.Generation(); got != base+1 {
		t.Errorf("Generation() = %d, want %d", got, base+1)
	}
	if got := s.State(); got != StateIdle {
		t.Errorf("State() = %v, want idle with no items", got)
	}
	if s.Busy() {
		t.Error("Busy() = true with no items")
	}
	if got := s.QueryEntries(); !reflect.DeepEqual(got, []string{"a"}) {
		t.Errorf("QueryEntries() = %q", got)
	}
}

func TestAccessorsReturnIndependentCopies(t *testing.T) {
	s := New(syncOptions())
	s.SetItems(asAny("a", "ab"))
	s.Type("a")
	s.Mark(0)

	items := s.Items()
	items[0].Text = "mutated"
	if got := s.Items()[0].Text; got != "a" {
		t.Errorf("Items() aliases internal state: %q", got)
	}

	strs := s.StrItems()
	strs[1] = "mutated"
	if got := s.StrItems()[1]; got != "ab" {
		t.Errorf("StrItems() aliases internal state: %q", got)
	}

	inds := s.MatchIndices()
	if len(inds) == 0 {
		t.Fatal("expected matches")
	}
	inds[0] = 99
	if got := s.MatchIndices()[0]; got == 99 {
		t.Error("MatchIndices() aliases internal state")
	}

	marks := s.Marked()
	marks[0] = 99
	if got := s.Marked()[0]; got == 99 {
		t.Error("Marked() aliases internal state")
	}

	entries := s.QueryEntries()
	entries[0] = "zz"
	if got := s.QueryEntries()[0]; got != "a" {
		t.Errorf("QueryEntries() aliases internal state: %q", got)
	}
}

func TestMarkOperations(t *testing.T) {
	s := New(syncOptions())
	s.SetItems(asAny("a", "b", "ab"))

	if err := s.Mark(5); !errors.Is(err, ErrInvalidIndex) {
		t.Errorf("Mark(5) error = %v, want ErrInvalidIndex", err)
	}
	if err := s.Mark(-1); !errors.Is(err, ErrInvalidIndex) {
		t.Errorf("Mark(-1) error = %v, want ErrInvalidIndex", err)
	}

	s.Mark(2)
	s.Mark(0)
	if got := s.Marked(); !reflect.DeepEqual(got, []int{0, 2}) {
		t.Errorf("Marked() = %v, want [0 2] ascending", got)
	}
	if got := s.MarkedItems(); len(got) != 2 || got[0].Text != "a" || got[1].Text != "ab" {
		t.Errorf("MarkedItems() = %+v", got)
	}

	s.ToggleMark(0)
	s.ToggleMark(1)
	if got := s.Marked(); !reflect.DeepEqual(got, []int{1, 2}) {
		t.Errorf("Marked() after toggles = %v, want [1 2]", got)
	}

	s.Unmark(1)
	if got := s.Marked(); !reflect.DeepEqual(got, []int{2}) {
		t.Errorf("Marked() after Unmark = %v, want [2]", got)
	}

	s.UnmarkAll()
	if got := s.Marked(); len(got) != 0 {
		t.Errorf("Marked() after UnmarkAll = %v, want empty", got)
	}
}

func TestMarkAllMarksOnlyMatched(t *testing.T) {
	s := New(syncOptions())
	s.SetItems(asAny("a", "b", "ab"))
	s.Type("a")

	if err := s.MarkAll(); err != nil {
		t.Fatalf("MarkAll() error = %v", err)
	}
	if got := s.Marked(); !reflect.DeepEqual(got, []int{0, 2}) {
		t.Errorf("Marked() = %v, want only matched items [0 2]", got)
	}
}

func TestMarksSurviveRematch(t *testing.T) {
	s := New(syncOptions())
	s.SetItems(asAny("a", "b", "ab"))
	s.Mark(1)

	s.Type("a") // item 1 no longer matches

	if got := s.Marked(); !reflect.DeepEqual(got, []int{1}) {
		t.Errorf("Marked() = %v, want marks untouched by rematch", got)
	}
}

func TestCursorOperations(t *testing.T) {
	s := New(syncOptions())
	s.SetItems(asAny("xa", "b", "ya"))
	s.Type("a") // matches [0 2]

	if got := s.CurrentIndex(); got != 0 {
		t.Fatalf("CurrentIndex() = %d, want 0", got)
	}

	s.MoveCursor(1)
	if got := s.CurrentIndex(); got != 2 {
		t.Errorf("CurrentIndex() after MoveCursor = %d, want 2", got)
	}
	cur, ok := s.Current()
	if !ok || cur.Text != "ya" {
		t.Errorf("Current() = %+v, %v", cur, ok)
	}

	s.MoveCursor(10)
	if got := s.Cursor(); got != 1 {
		t.Errorf("Cursor() = %d, want clamp at 1", got)
	}
	s.MoveCursor(-10)
	if got := s.Cursor(); got != 0 {
		t.Errorf("Cursor() = %d, want clamp at 0", got)
	}

	s.SetCursor(1)
	if got := s.Cursor(); got != 1 {
		t.Errorf("SetCursor(1): Cursor() = %d", got)
	}
	s.SetCursor(99)
	if got := s.Cursor(); got != 1 {
		t.Errorf("SetCursor(99): Cursor() = %d, want clamp", got)
	}
}

func TestCursorWithNoMatches(t *testing.T) {
	s := New(syncOptions())
	s.SetItems(asAny("a"))
	s.Type("zz")

	if got := s.MatchCount(); got != 0 {
		t.Fatalf("MatchCount() = %d, want 0", got)
	}
	if _, ok := s.Current(); ok {
		t.Error("Current() reported an item with no matches")
	}
	if got := s.CurrentIndex(); got != -1 {
		t.Errorf("CurrentIndex() = %d, want -1", got)
	}
	if err := s.MoveCursor(3); err != nil {
		t.Errorf("MoveCursor() error = %v", err)
	}
	if got := s.Cursor(); got != 0 {
		t.Errorf("Cursor() = %d, want 0", got)
	}
}

func TestSetMatchIndicesOverride(t *testing.T) {
	s := New(syncOptions())
	s.SetItems(asAny("a", "b", "c"))
	before := s.Generation()

	if err := s.SetMatchIndices([]int{2, 0}); err != nil {
		t.Fatalf("SetMatchIndices() error = %v", err)
	}
	if got := s.MatchIndices(); !reflect.DeepEqual(got, []int{2, 0}) {
		t.Errorf("MatchIndices() = %v, want [2 0]", got)
	}
	if got := s.State(); got != StateApplied {
		t.Errorf("State() = %v, want applied", got)
	}
	if got := s.Generation(); got != before+1 {
		t.Errorf("Generation() = %d, want %d", got, before+1)
	}
}

func TestSetMatchIndicesValidates(t *testing.T) {
	s := New(syncOptions())
	s.SetItems(asAny("a", "b"))
	want := s.MatchIndices()

	if err := s.SetMatchIndices([]int{0, 7}); !errors.Is(err, ErrInvalidIndex) {
		t.Fatalf("SetMatchIndices() error = %v, want ErrInvalidIndex", err)
	}
	if got := s.MatchIndices(); !reflect.DeepEqual(got, want) {
		t.Errorf("MatchIndices() = %v, want unchanged %v", got, want)
	}
}

func TestStopSemantics(t *testing.T) {
	s := New(syncOptions())
	s.SetItems(asAny("a", "b"))
	s.Type("a")
	gen := s.Generation()

	if err := s.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if got := s.Generation(); got != gen+1 {
		t.Errorf("Stop should bump generation: %d -> %d", gen, got)
	}
	if !s.Stopped() {
		t.Error("Stopped() = false after Stop")
	}

	mutators := map[string]func() error{
		"SetItems":       func() error { return s.SetItems(asAny("x")) },
		"Type":           func() error { return s.Type("x") },
		"Backspace":      s.Backspace,
		"DeleteAtCaret":  s.DeleteAtCaret,
		"Truncate":       s.TruncateBeforeCaret,
		"SetQuery":       func() error { return s.SetQuery([]string{"x"}) },
		"CaretLeft":      s.CaretLeft,
		"CaretRight":     s.CaretRight,
		"Mark":           func() error { return s.Mark(0) },
		"MarkAll":        s.MarkAll,
		"UnmarkAll":      s.UnmarkAll,
		"MoveCursor":     func() error { return s.MoveCursor(1) },
		"SetCursor":      func() error { return s.SetCursor(0) },
		"SetMatchInds":   func() error { return s.SetMatchIndices([]int{0}) },
		"Stop":           s.Stop,
	}
	for name, fn := range mutators {
		if err := fn(); !errors.Is(err, ErrStopped) {
			t.Errorf("%s after Stop: error = %v, want ErrStopped", name, err)
		}
	}

	// Snapshot accessors stay readable.
	if got := s.StrItems(); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("StrItems() after Stop = %q", got)
	}
	if got := s.MatchIndices(); !reflect.DeepEqual(got, []int{0}) {
		t.Errorf("MatchIndices() after Stop = %v", got)
	}
}

func TestSmartCaseThroughSession(t *testing.T) {
	s := New(syncOptions())
	s.SetItems(asAny("README", "readme"))

	s.Type("read")
	if got := s.MatchIndices(); !reflect.DeepEqual(got, []int{0, 1}) {
		t.Fatalf("lowercase query should ignore case, got %v", got)
	}

	s.SetQuery([]string{"READ"})
	if got := s.MatchIndices(); !reflect.DeepEqual(got, []int{0}) {
		t.Errorf("uppercase query should be case-sensitive, got %v", got)
	}
}
