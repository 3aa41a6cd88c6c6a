package match

import (
	"strings"

	"github.com/sahilm/fuzzy"
)

// indexedItems adapts a candidate-index view of stritems to fuzzy.Source.
type indexedItems struct {
	stritems []string
	inds     []int
}

func (s indexedItems) String(i int) string { return s.stritems[s.inds[i]] }
func (s indexedItems) Len() int            { return len(s.inds) }

// Relevance is an alternative ranker with the same shape as a custom picker
// matcher: it orders candidates by sahilm/fuzzy relevance scoring
// (subsequence matching with boundary and camel-case bonuses) instead of the
// span contract. Ties in score keep candidate order. An empty query returns
// the candidate set unchanged in a fresh slice; a nil inds means all indices.
func Relevance(stritems []string, inds []int, entries []string) []int {
	needle := strings.TrimSpace(strings.Join(entries, ""))
	if needle == "" {
		return identityOver(inds, len(stritems))
	}

	var valid []int
	if inds == nil {
		valid = identityOver(nil, len(stritems))
	} else {
		valid = make([]int, 0, len(inds))
		for _, idx := range inds {
			if idx >= 0 && idx < len(stritems) {
				valid = append(valid, idx)
			}
		}
	}

	matches := fuzzy.FindFrom(needle, indexedItems{stritems: stritems, inds: valid})
	out := make([]int, len(matches))
	for i, m := range matches {
		out[i] = valid[m.Index]
	}
	return out
}
