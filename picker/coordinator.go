package picker

import (
	"fmt"
	"strings"

	"github.com/dshills/quickpick/match"
)

// entrySep separates entries in cache keys.
const entrySep = "\x1f"

func cacheKey(entries []string) string {
	return strings.Join(entries, entrySep)
}

func identityInds(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

// queryChangedLocked bumps the generation and schedules the rematch. It
// returns the synchronous runner (non-nil only in Sync mode) and the
// query-change fanout for attached sources; both must be invoked after the
// state lock is released.
func (s *Session) queryChangedLocked() (run, fan func()) {
	s.gen.Add(1)
	if s.deb != nil {
		s.deb.Call()
	} else {
		run = s.startMatchLocked()
	}
	return run, s.fanoutLocked()
}

// fanoutLocked snapshots the query-change subscribers so they can be invoked
// outside the lock.
func (s *Session) fanoutLocked() func() {
	if len(s.subs) == 0 {
		return nil
	}
	fns := make([]func([]string), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	entries := s.qry.Entries()
	return func() {
		for _, fn := range fns {
			fn(entries)
		}
	}
}

// debouncedMatch is the trailing-edge debouncer callback; it schedules from
// whatever the state is once the burst settles.
func (s *Session) debouncedMatch() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	run := s.startMatchLocked()
	s.mu.Unlock()
	if run != nil {
		run()
	}
}

// startMatchLocked resolves the current query against the current batch.
// The empty query and cache hits apply synchronously; otherwise it prepares
// a match task for the current generation. In Sync mode the task body is
// returned for the caller to run after unlocking; otherwise it is already
// on a worker goroutine and the return is nil.
func (s *Session) startMatchLocked() func() {
	if len(s.items) == 0 {
		s.state = StateIdle
		s.clampCursorLocked()
		return nil
	}
	entries := s.qry.Entries()
	if len(entries) == 0 {
		s.matchInds = identityInds(len(s.items))
		s.state = StateIdle
		s.cursor = 0
		return nil
	}
	key := cacheKey(entries)
	if res, ok := s.cache.Get(key); ok {
		s.matchInds = res
		s.state = StateApplied
		s.cursor = 0
		return nil
	}

	t := &matchTask{
		gen:      s.gen.Load(),
		itemsSeq: s.itemsSeq,
		key:      key,
		entries:  entries,
		stritems: s.stritems,
		cands:    s.candidatesLocked(entries),
	}
	s.state = StateMatching
	s.matchBusy.Add(1)
	if s.opts.Sync {
		return func() { s.runTask(t) }
	}
	go s.runTask(t)
	return nil
}

// candidatesLocked narrows the candidate set: when the query extends an
// already-matched one by a single appended entry, the previous result
// already contains every possible match. nil means the full batch.
func (s *Session) candidatesLocked(entries []string) []int {
	if len(entries) < 2 {
		return nil
	}
	if res, ok := s.cache.Get(cacheKey(entries[:len(entries)-1])); ok {
		return res
	}
	return nil
}

// matchTask is one scheduled match: a generation-stamped snapshot of
// everything the scan needs, so it runs without the state lock.
type matchTask struct {
	gen      uint64
	itemsSeq uint64
	key      string
	entries  []string
	stritems []string
	cands    []int
}

func (s *Session) runTask(t *matchTask) {
	defer s.matchBusy.Add(-1)

	res, err := s.evaluate(t)
	if err != nil {
		s.failTask(t, err)
		return
	}
	if res == nil {
		// Superseded mid-scan; the newer task owns the state.
		return
	}
	s.applyTask(t, res)
}

// evaluate runs the configured matcher over the task snapshot. A nil result
// with a nil error means the task noticed a newer generation and abandoned
// itself.
func (s *Session) evaluate(t *matchTask) ([]int, error) {
	if s.opts.Matcher != nil {
		return s.customMatch(t.stritems, t.cands, t.entries)
	}

	pat := match.NewPattern(t.entries, s.opts.Match)
	folded := t.stritems
	if pat.NeedsFold() {
		folded = s.foldedFor(pat, t.stritems, t.itemsSeq)
	}
	res, ok := pat.Scan(folded, t.cands, s.opts.ChunkSize, func() bool {
		return s.gen.Load() == t.gen
	})
	if !ok {
		return nil, nil
	}
	return res, nil
}

// customMatch invokes the user matcher with panic recovery and validates its
// result against the batch.
func (s *Session) customMatch(stritems []string, cands []int, entries []string) (res []int, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, fmt.Errorf("matcher panic: %v", r)
		}
	}()
	got, err := s.opts.Matcher(stritems, cands, entries)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(got))
	copy(out, got)
	for _, idx := range out {
		if idx < 0 || idx >= len(stritems) {
			return nil, fmt.Errorf("matcher returned index %d for a batch of %d", idx, len(stritems))
		}
	}
	return out, nil
}

// applyTask installs the result under the lock, only if the task's
// generation is still current. Losing the check is not an error: a newer
// edit owns the state. The cursor returns to the first match, as after any
// rewrite of the match set.
func (s *Session) applyTask(t *matchTask, res []int) {
	s.mu.Lock()
	if s.stopped || s.gen.Load() != t.gen {
		s.mu.Unlock()
		return
	}
	s.matchInds = res
	s.cache.Add(t.key, res)
	s.state = StateApplied
	s.cursor = 0
	s.mu.Unlock()

	s.log.Debug("match applied gen=%d matched=%d of %d", t.gen, len(res), len(t.stritems))
}

// failTask surfaces a matcher failure for the current generation, leaving
// the previous match set intact.
func (s *Session) failTask(t *matchTask, err error) {
	s.mu.Lock()
	if s.stopped || s.gen.Load() != t.gen {
		s.mu.Unlock()
		return
	}
	s.state = StateAborted
	s.mu.Unlock()

	s.notify(Message{Namespace: "matcher", Text: singleLine(err.Error())})
}

// foldedFor returns stritems folded for the pattern's fold key, reusing the
// per-batch cache when it matches; itemsSeq identifies the batch the caller
// captured.
func (s *Session) foldedFor(pat *match.Pattern, stritems []string, itemsSeq uint64) []string {
	lower, norm := pat.FoldKey()

	s.mu.RLock()
	if s.foldSeq == itemsSeq && s.folded != nil && s.foldLower == lower && s.foldNorm == norm {
		f := s.folded
		s.mu.RUnlock()
		return f
	}
	s.mu.RUnlock()

	f := match.FoldSlice(stritems, lower, norm)

	s.mu.Lock()
	if s.itemsSeq == itemsSeq {
		s.folded = f
		s.foldSeq = itemsSeq
		s.foldLower = lower
		s.foldNorm = norm
	}
	s.mu.Unlock()
	return f
}

// MatchNow runs the matcher synchronously on the caller's goroutine against
// the current query and batch and returns the ranked indices. It reads a
// snapshot and never touches session state, the result cache, or in-flight
// tasks.
func (s *Session) MatchNow() ([]int, error) {
	s.mu.RLock()
	entries := s.qry.Entries()
	stritems := s.stritems
	s.mu.RUnlock()

	if s.opts.Matcher != nil {
		return s.customMatch(stritems, nil, entries)
	}
	return match.Ranked(stritems, nil, entries, s.opts.Match), nil
}

func (s *Session) notify(msg Message) {
	if s.opts.Notify != nil {
		s.opts.Notify(msg)
		return
	}
	s.log.Warn("%s: %s", msg.Namespace, msg.Text)
}

func singleLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
