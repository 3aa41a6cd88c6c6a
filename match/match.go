package match

import (
	"sort"
	"strings"
	"unicode"

	"github.com/dshills/quickpick/query"
)

// Options controls case handling and text folding.
type Options struct {
	// IgnoreCase folds candidate text and query to lower case for
	// comparison.
	IgnoreCase bool
	// SmartCase keeps matching case-sensitive when any query entry contains
	// an uppercase letter, overriding IgnoreCase.
	SmartCase bool
	// Normalize strips diacritics from comparison copies, so "cafe" finds
	// "café".
	Normalize bool
}

// DefaultOptions returns the interactive defaults: ignore case unless the
// query itself uses uppercase.
func DefaultOptions() Options {
	return Options{
		IgnoreCase: true,
		SmartCase:  true,
	}
}

// Pattern is a query compiled against fixed options. Compile once per query
// edit, match against any number of candidates. A Pattern is immutable and
// safe for concurrent use.
type Pattern struct {
	parts       []string
	anchorStart bool
	anchorEnd   bool
	lower       bool
	normalize   bool
}

// NewPattern compiles query entries under the given options.
func NewPattern(entries []string, opts Options) *Pattern {
	plan := query.Compile(entries)

	lower := opts.IgnoreCase
	if lower && opts.SmartCase && anyUpper(entries) {
		lower = false
	}

	p := &Pattern{
		anchorStart: plan.AnchorStart,
		anchorEnd:   plan.AnchorEnd,
		lower:       lower,
		normalize:   opts.Normalize,
	}
	p.parts = make([]string, 0, len(plan.Parts))
	for _, part := range plan.Parts {
		p.parts = append(p.parts, Fold(part, lower, opts.Normalize))
	}
	return p
}

// Empty reports whether the pattern filters nothing. Matching an empty
// pattern returns the candidates unchanged.
func (p *Pattern) Empty() bool {
	return len(p.parts) == 0
}

// CaseSensitive reports the resolved case policy.
func (p *Pattern) CaseSensitive() bool {
	return !p.lower
}

// NeedsFold reports whether candidates must be folded before comparison.
// Callers that cache folded copies key them by FoldKey.
func (p *Pattern) NeedsFold() bool {
	return p.lower || p.normalize
}

// FoldKey identifies the folding this pattern applies to candidates.
func (p *Pattern) FoldKey() (lower, normalize bool) {
	return p.lower, p.normalize
}

// Fold returns the comparison copy of s under the pattern's policy.
func (p *Pattern) Fold(s string) string {
	return Fold(s, p.lower, p.normalize)
}

// Match ranks the candidates in inds whose stritems match the pattern.
// Candidates are folded on the fly; out-of-range indices are skipped. A nil
// inds matches every index of stritems. The result is a fresh slice and a
// subset of the candidate set.
func (p *Pattern) Match(stritems []string, inds []int) []int {
	if p.Empty() {
		return identityOver(inds, len(stritems))
	}
	hits := make([]hit, 0, 64)
	forEachIndex(inds, len(stritems), func(idx int) {
		if sp, ok := p.find(p.Fold(stritems[idx])); ok {
			hits = append(hits, hit{idx: idx, width: sp.end - sp.start, start: sp.start})
		}
	})
	return rank(hits)
}

// MatchFolded is Match over candidates that are already folded with the
// pattern's FoldKey.
func (p *Pattern) MatchFolded(folded []string, inds []int) []int {
	out, _ := p.Scan(folded, inds, 0, nil)
	return out
}

// Scan is MatchFolded with a cooperative cancellation hook for large
// candidate sets. It walks the candidates in runs of every indices, calling
// cont between runs and once more before ranking; a false return abandons
// the scan with ok=false and no result. Ranking happens once, over the
// complete hit set. every <= 0 means a single run; a nil cont never cancels.
func (p *Pattern) Scan(folded []string, inds []int, every int, cont func() bool) (ranked []int, ok bool) {
	if p.Empty() {
		return identityOver(inds, len(folded)), true
	}
	n := len(inds)
	if inds == nil {
		n = len(folded)
	}
	if every <= 0 {
		every = n + 1
	}
	hits := make([]hit, 0, 64)
	for k := 0; k < n; k++ {
		if k > 0 && k%every == 0 && cont != nil && !cont() {
			return nil, false
		}
		idx := k
		if inds != nil {
			idx = inds[k]
			if idx < 0 || idx >= len(folded) {
				continue
			}
		}
		if sp, ok := p.find(folded[idx]); ok {
			hits = append(hits, hit{idx: idx, width: sp.end - sp.start, start: sp.start})
		}
	}
	if cont != nil && !cont() {
		return nil, false
	}
	return rank(hits), true
}

// Ranked matches query entries against the stritems selected by inds and
// returns their indices ranked by (span width, span start, original index).
// An empty query returns the candidate set unchanged in a fresh slice; a nil
// inds means all indices. Indices are 0-based.
func Ranked(stritems []string, inds []int, entries []string, opts Options) []int {
	return NewPattern(entries, opts).Match(stritems, inds)
}

type span struct {
	start, end int
}

type hit struct {
	idx   int
	width int
	start int
}

// find locates the minimal-width, leftmost span of the parts in s, which
// must already be folded. Offsets are byte offsets into s.
func (p *Pattern) find(s string) (span, bool) {
	if p.anchorStart || p.anchorEnd {
		return p.findAnchored(s)
	}

	best, ok := chainFrom(s, p.parts, 0)
	if !ok {
		return span{}, false
	}
	cur := best
	for {
		next, ok := chainFrom(s, p.parts, cur.start+1)
		if !ok {
			break
		}
		if next.end-next.start < best.end-best.start {
			best = next
		}
		cur = next
	}
	return best, true
}

// findAnchored handles patterns pinned to the stritem start, end, or both.
func (p *Pattern) findAnchored(s string) (span, bool) {
	parts := p.parts

	if p.anchorEnd {
		last := parts[len(parts)-1]
		if !strings.HasSuffix(s, last) {
			return span{}, false
		}
		head := s[:len(s)-len(last)]
		rest := parts[:len(parts)-1]

		if len(rest) == 0 {
			start := len(head)
			if p.anchorStart && start != 0 {
				return span{}, false
			}
			return span{start: start, end: len(s)}, true
		}

		if p.anchorStart {
			sub, ok := chainAt(head, rest)
			if !ok {
				return span{}, false
			}
			return span{start: sub.start, end: len(s)}, true
		}

		// End is pinned, so the latest-starting chain gives the minimal
		// width.
		cur, ok := chainFrom(head, rest, 0)
		if !ok {
			return span{}, false
		}
		for {
			next, ok := chainFrom(head, rest, cur.start+1)
			if !ok {
				break
			}
			cur = next
		}
		return span{start: cur.start, end: len(s)}, true
	}

	sub, ok := chainAt(s, parts)
	if !ok {
		return span{}, false
	}
	return sub, true
}

// chainFrom finds the leftmost ordered chain of parts in s with the first
// part starting at or after from. Each part matches contiguously; parts may
// touch but not overlap.
func chainFrom(s string, parts []string, from int) (span, bool) {
	if from > len(s) {
		return span{}, false
	}
	i := strings.Index(s[from:], parts[0])
	if i < 0 {
		return span{}, false
	}
	start := from + i
	pos := start + len(parts[0])
	for _, part := range parts[1:] {
		j := strings.Index(s[pos:], part)
		if j < 0 {
			return span{}, false
		}
		pos += j + len(part)
	}
	return span{start: start, end: pos}, true
}

// chainAt is chainFrom with the first part pinned to position 0.
func chainAt(s string, parts []string) (span, bool) {
	if !strings.HasPrefix(s, parts[0]) {
		return span{}, false
	}
	pos := len(parts[0])
	for _, part := range parts[1:] {
		j := strings.Index(s[pos:], part)
		if j < 0 {
			return span{}, false
		}
		pos += j + len(part)
	}
	return span{start: 0, end: pos}, true
}

func rank(hits []hit) []int {
	sort.Slice(hits, func(i, j int) bool {
		a, b := hits[i], hits[j]
		if a.width != b.width {
			return a.width < b.width
		}
		if a.start != b.start {
			return a.start < b.start
		}
		return a.idx < b.idx
	})
	out := make([]int, len(hits))
	for i, h := range hits {
		out[i] = h.idx
	}
	return out
}

// identityOver copies inds, or builds 0..n-1 when inds is nil.
func identityOver(inds []int, n int) []int {
	if inds == nil {
		out := make([]int, n)
		for i := range out {
			out[i] = i
		}
		return out
	}
	out := make([]int, len(inds))
	copy(out, inds)
	return out
}

func forEachIndex(inds []int, n int, fn func(idx int)) {
	if inds == nil {
		for i := 0; i < n; i++ {
			fn(i)
		}
		return
	}
	for _, idx := range inds {
		if idx >= 0 && idx < n {
			fn(idx)
		}
	}
}

// Fold builds the comparison copy of s: rune-by-rune lowering (which
// preserves rune alignment with the original) and optional diacritic
// stripping.
func Fold(s string, lower, normalize bool) string {
	if normalize {
		s = stripMarks(s)
	}
	if lower {
		s = strings.ToLower(s)
	}
	return s
}

// FoldSlice folds every string in ss into a new slice. Used by callers that
// cache comparison copies per item batch.
func FoldSlice(ss []string, lower, normalize bool) []string {
	if !lower && !normalize {
		return ss
	}
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = Fold(s, lower, normalize)
	}
	return out
}

func anyUpper(entries []string) bool {
	for _, e := range entries {
		for _, r := range e {
			if unicode.IsUpper(r) {
				return true
			}
		}
	}
	return false
}
