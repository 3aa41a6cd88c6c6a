package query

import "strings"

// Query is the editable query of one finder session: ordered entries plus a
// caret. The zero value is usable and empty.
//
// The caret ranges from 0 (before the first entry) to Len() (after the last
// entry). Every operation clamps it back into that range.
type Query struct {
	entries []string
	caret   int
}

// New returns an empty query with the caret at position 0.
func New() *Query {
	return &Query{}
}

// Len returns the number of entries.
func (q *Query) Len() int {
	return len(q.entries)
}

// Empty reports whether the query has no entries.
func (q *Query) Empty() bool {
	return len(q.entries) == 0
}

// Caret returns the caret position.
func (q *Query) Caret() int {
	return q.caret
}

// Entries returns a copy of the entries.
func (q *Query) Entries() []string {
	out := make([]string, len(q.entries))
	copy(out, q.entries)
	return out
}

// Joined returns all entries concatenated. Used as the match cache key.
func (q *Query) Joined() string {
	return strings.Join(q.entries, "")
}

// Set replaces all entries and moves the caret to the end. Empty-string
// entries are dropped; they match nothing and join invisibly.
func (q *Query) Set(entries []string) {
	q.entries = q.entries[:0]
	for _, e := range entries {
		if e != "" {
			q.entries = append(q.entries, e)
		}
	}
	q.caret = len(q.entries)
}

// Insert adds an entry at the caret and advances the caret past it.
// Inserting an empty entry is a no-op.
func (q *Query) Insert(entry string) bool {
	if entry == "" {
		return false
	}
	q.clamp()
	q.entries = append(q.entries, "")
	copy(q.entries[q.caret+1:], q.entries[q.caret:])
	q.entries[q.caret] = entry
	q.caret++
	return true
}

// DeleteBefore removes the entry left of the caret (backspace) and reports
// whether anything was removed.
func (q *Query) DeleteBefore() bool {
	q.clamp()
	if q.caret == 0 {
		return false
	}
	q.entries = append(q.entries[:q.caret-1], q.entries[q.caret:]...)
	q.caret--
	return true
}

// DeleteAt removes the entry under the caret (delete key) and reports
// whether anything was removed.
func (q *Query) DeleteAt() bool {
	q.clamp()
	if q.caret >= len(q.entries) {
		return false
	}
	q.entries = append(q.entries[:q.caret], q.entries[q.caret+1:]...)
	return true
}

// TruncateBefore removes every entry left of the caret and reports whether
// anything was removed.
func (q *Query) TruncateBefore() bool {
	q.clamp()
	if q.caret == 0 {
		return false
	}
	q.entries = append(q.entries[:0], q.entries[q.caret:]...)
	q.caret = 0
	return true
}

// CaretLeft moves the caret one position left. Reports whether it moved.
func (q *Query) CaretLeft() bool {
	q.clamp()
	if q.caret == 0 {
		return false
	}
	q.caret--
	return true
}

// CaretRight moves the caret one position right. Reports whether it moved.
func (q *Query) CaretRight() bool {
	q.clamp()
	if q.caret >= len(q.entries) {
		return false
	}
	q.caret++
	return true
}

// CaretHome moves the caret before the first entry.
func (q *Query) CaretHome() {
	q.caret = 0
}

// CaretEnd moves the caret after the last entry.
func (q *Query) CaretEnd() {
	q.caret = len(q.entries)
}

// Clone returns an independent copy.
func (q *Query) Clone() *Query {
	return &Query{entries: q.Entries(), caret: q.caret}
}

func (q *Query) clamp() {
	if q.caret < 0 {
		q.caret = 0
	}
	if q.caret > len(q.entries) {
		q.caret = len(q.entries)
	}
}
