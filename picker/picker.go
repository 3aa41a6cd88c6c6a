package picker

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/dshills/quickpick/internal/debounce"
	"github.com/dshills/quickpick/internal/logging"
	"github.com/dshills/quickpick/match"
	"github.com/dshills/quickpick/query"
)

var (
	// ErrStopped is returned by mutators after Stop.
	ErrStopped = errors.New("picker: session stopped")
	// ErrInvalidIndex reports an item index outside the current batch.
	ErrInvalidIndex = errors.New("picker: index out of range")
)

// Session is an embeddable picker instance. The zero value is not usable;
// construct with New. All methods are safe for concurrent use.
type Session struct {
	opts Options
	log  *logging.Logger

	gen       atomic.Uint64
	matchBusy atomic.Int64
	loadBusy  atomic.Int64

	mu        sync.RWMutex
	items     []Item
	stritems  []string
	itemsSeq  uint64 // bumped per batch; keys the folded cache
	folded    []string
	foldSeq   uint64
	foldLower bool
	foldNorm  bool
	qry       *query.Query
	matchInds []int
	marked    map[int]struct{}
	cursor    int // position within matchInds
	state     State
	stopped   bool
	cache     *match.Cache
	deb       *debounce.Debouncer
	srcCancel context.CancelFunc
	subs      map[int]func(entries []string)
	subSeq    int
}

// New returns an empty session.
func New(opts Options) *Session {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = match.DefaultCacheSize
	}
	log := opts.Logger
	if log == nil {
		log = logging.Default()
	}
	s := &Session{
		opts:   opts,
		log:    log.WithComponent("picker"),
		qry:    query.New(),
		marked: make(map[int]struct{}),
		cache:  match.NewCache(opts.CacheSize),
		subs:   make(map[int]func([]string)),
	}
	if opts.DebounceInterval > 0 {
		s.deb = debounce.New(opts.DebounceInterval, s.debouncedMatch)
	}
	return s
}

// Stop ends the session: it bumps the generation so in-flight tasks abandon
// themselves, detaches any attached source, and makes every further mutator
// return ErrStopped. Accessors keep working on the final snapshot.
func (s *Session) Stop() error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return ErrStopped
	}
	s.stopped = true
	s.gen.Add(1)
	if s.state == StateMatching {
		s.state = StateAborted
	}
	if s.deb != nil {
		s.deb.Cancel()
	}
	cancel := s.srcCancel
	s.srcCancel = nil
	s.subs = make(map[int]func([]string))
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.log.Debug("session stopped gen=%d", s.gen.Load())
	return nil
}

// Stopped reports whether Stop has been called.
func (s *Session) Stopped() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stopped
}

// Items returns a copy of the current batch.
func (s *Session) Items() []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Item, len(s.items))
	copy(out, s.items)
	return out
}

// StrItems returns a copy of the derived display texts, index-aligned with
// Items.
func (s *Session) StrItems() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.stritems))
	copy(out, s.stritems)
	return out
}

// Len returns the number of items in the current batch.
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// ItemAt returns the item at batch index i, so renderers can read single
// rows without copying the batch.
func (s *Session) ItemAt(i int) (Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i < 0 || i >= len(s.items) {
		return Item{}, false
	}
	return s.items[i], true
}

// MatchIndices returns a copy of the ranked item indices for the current
// match set.
func (s *Session) MatchIndices() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]int, len(s.matchInds))
	copy(out, s.matchInds)
	return out
}

// MatchCount returns the size of the current match set.
func (s *Session) MatchCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.matchInds)
}

// MatchIndexAt returns the item index at position pos of the ranked match
// set.
func (s *Session) MatchIndexAt(pos int) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if pos < 0 || pos >= len(s.matchInds) {
		return 0, false
	}
	return s.matchInds[pos], true
}

// Marked returns the marked item indices in ascending order.
func (s *Session) Marked() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.markedLocked()
}

func (s *Session) markedLocked() []int {
	out := make([]int, 0, len(s.marked))
	for idx := range s.marked {
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}

// MarkedItems returns the marked items in ascending index order.
func (s *Session) MarkedItems() []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inds := s.markedLocked()
	out := make([]Item, len(inds))
	for i, idx := range inds {
		out[i] = s.items[idx]
	}
	return out
}

// QueryEntries returns a copy of the query entries.
func (s *Session) QueryEntries() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.qry.Entries()
}

// QueryText returns the query entries joined into one string.
func (s *Session) QueryText() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.qry.Joined()
}

// Caret returns the caret position: an entry-boundary offset in [0, entry
// count].
func (s *Session) Caret() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.qry.Caret()
}

// Generation returns the current generation counter.
func (s *Session) Generation() uint64 {
	return s.gen.Load()
}

// Busy reports whether any match task or source load is in flight.
func (s *Session) Busy() bool {
	return s.matchBusy.Load() > 0 || s.loadBusy.Load() > 0
}

// State returns the coordinator state for the latest scheduled work.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Current returns the item under the cursor, if the match set is non-empty.
func (s *Session) Current() (Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.matchInds) == 0 {
		return Item{}, false
	}
	return s.items[s.matchInds[s.cursor]], true
}

// CurrentIndex returns the item index under the cursor, or -1 when the match
// set is empty.
func (s *Session) CurrentIndex() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.matchInds) == 0 {
		return -1
	}
	return s.matchInds[s.cursor]
}

// Cursor returns the cursor position within the match set.
func (s *Session) Cursor() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cursor
}
