package picker

import (
	"context"
	"slices"
)

// SetItems replaces the batch. Inputs are normalized and display text is
// derived once, here; deferred func() any inputs are resolved now. The match
// set resets to identity order, marks and the result cache clear, the
// generation bumps, and a rematch is scheduled if the query is non-empty.
// A nil batch is valid and empties the session.
func (s *Session) SetItems(values []any) error {
	return s.setItems(nil, values)
}

// setItems is SetItems gated on a source attach context: a detached source's
// push is refused under the state lock, so it can never land after its
// replacement's first batch.
func (s *Session) setItems(ctx context.Context, values []any) error {
	items, strs := normalizeBatch(values)

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return ErrStopped
	}
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			s.mu.Unlock()
			return err
		}
	}
	s.items = items
	s.stritems = strs
	s.itemsSeq++
	s.folded = nil
	s.marked = make(map[int]struct{})
	s.cursor = 0
	s.cache.Purge()
	s.gen.Add(1)
	s.matchInds = identityInds(len(items))
	s.state = StateIdle

	var run func()
	if !s.qry.Empty() {
		if s.deb != nil {
			s.deb.Call()
		} else {
			run = s.startMatchLocked()
		}
	}
	s.mu.Unlock()

	if run != nil {
		run()
	}
	return nil
}

// Type inserts one entry at the caret. An empty entry is a no-op.
func (s *Session) Type(entry string) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return ErrStopped
	}
	if !s.qry.Insert(entry) {
		s.mu.Unlock()
		return nil
	}
	run, fan := s.queryChangedLocked()
	s.mu.Unlock()
	dispatch(run, fan)
	return nil
}

// Backspace removes the entry before the caret.
func (s *Session) Backspace() error {
	return s.editQuery(func() bool { return s.qry.DeleteBefore() })
}

// DeleteAtCaret removes the entry at the caret.
func (s *Session) DeleteAtCaret() error {
	return s.editQuery(func() bool { return s.qry.DeleteAt() })
}

// TruncateBeforeCaret removes every entry before the caret.
func (s *Session) TruncateBeforeCaret() error {
	return s.editQuery(func() bool { return s.qry.TruncateBefore() })
}

// SetQuery replaces the query entries wholesale (empty entries are dropped)
// and moves the caret to the end. A replacement yielding identical entries
// does not bump the generation.
func (s *Session) SetQuery(entries []string) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return ErrStopped
	}
	before := s.qry.Entries()
	s.qry.Set(entries)
	if slices.Equal(before, s.qry.Entries()) {
		s.mu.Unlock()
		return nil
	}
	run, fan := s.queryChangedLocked()
	s.mu.Unlock()
	dispatch(run, fan)
	return nil
}

// editQuery wraps an entry-changing query op: no-ops skip the generation
// bump and reschedule.
func (s *Session) editQuery(op func() bool) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return ErrStopped
	}
	if !op() {
		s.mu.Unlock()
		return nil
	}
	run, fan := s.queryChangedLocked()
	s.mu.Unlock()
	dispatch(run, fan)
	return nil
}

// CaretLeft moves the caret one entry left. Caret moves never bump the
// generation.
func (s *Session) CaretLeft() error {
	return s.moveCaret(func() { s.qry.CaretLeft() })
}

// CaretRight moves the caret one entry right.
func (s *Session) CaretRight() error {
	return s.moveCaret(func() { s.qry.CaretRight() })
}

// CaretHome moves the caret before the first entry.
func (s *Session) CaretHome() error {
	return s.moveCaret(func() { s.qry.CaretHome() })
}

// CaretEnd moves the caret past the last entry.
func (s *Session) CaretEnd() error {
	return s.moveCaret(func() { s.qry.CaretEnd() })
}

func (s *Session) moveCaret(op func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return ErrStopped
	}
	op()
	return nil
}

// SetMatchIndices overrides the match set with externally computed indices,
// for embedders that run their own matcher. The indices are validated
// against the batch, the generation bumps so in-flight tasks abandon
// themselves, and the override applies immediately with the cursor on the
// first match.
func (s *Session) SetMatchIndices(inds []int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return ErrStopped
	}
	for _, idx := range inds {
		if idx < 0 || idx >= len(s.items) {
			return ErrInvalidIndex
		}
	}
	s.gen.Add(1)
	out := make([]int, len(inds))
	copy(out, inds)
	s.matchInds = out
	s.state = StateApplied
	s.cursor = 0
	return nil
}

// Mark adds the item index to the marked set.
func (s *Session) Mark(idx int) error {
	return s.editMarks(idx, func(i int) { s.marked[i] = struct{}{} })
}

// Unmark removes the item index from the marked set.
func (s *Session) Unmark(idx int) error {
	return s.editMarks(idx, func(i int) { delete(s.marked, i) })
}

// ToggleMark flips the mark on the item index.
func (s *Session) ToggleMark(idx int) error {
	return s.editMarks(idx, func(i int) {
		if _, ok := s.marked[i]; ok {
			delete(s.marked, i)
		} else {
			s.marked[i] = struct{}{}
		}
	})
}

func (s *Session) editMarks(idx int, op func(int)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return ErrStopped
	}
	if idx < 0 || idx >= len(s.items) {
		return ErrInvalidIndex
	}
	op(idx)
	return nil
}

// MarkAll marks every item in the current match set.
func (s *Session) MarkAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return ErrStopped
	}
	for _, idx := range s.matchInds {
		s.marked[idx] = struct{}{}
	}
	return nil
}

// UnmarkAll clears the marked set.
func (s *Session) UnmarkAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return ErrStopped
	}
	s.marked = make(map[int]struct{})
	return nil
}

// MoveCursor shifts the cursor by delta within the match set, clamped.
func (s *Session) MoveCursor(delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return ErrStopped
	}
	s.cursor += delta
	s.clampCursorLocked()
	return nil
}

// SetCursor places the cursor at pos within the match set, clamped.
func (s *Session) SetCursor(pos int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return ErrStopped
	}
	s.cursor = pos
	s.clampCursorLocked()
	return nil
}

func (s *Session) clampCursorLocked() {
	switch n := len(s.matchInds); {
	case n == 0:
		s.cursor = 0
	case s.cursor >= n:
		s.cursor = n - 1
	case s.cursor < 0:
		s.cursor = 0
	}
}

func dispatch(run, fan func()) {
	if run != nil {
		run()
	}
	if fan != nil {
		fan()
	}
}
