package picker

import (
	"time"

	"github.com/dshills/quickpick/internal/logging"
	"github.com/dshills/quickpick/match"
)

// DefaultChunkSize is the number of candidates a match task scans between
// generation checks.
const DefaultChunkSize = 10_000

// MatcherFunc replaces the built-in span matcher. It receives the current
// stritems, the candidate indices to consider (nil means all of them), and
// the query entries, and returns ranked indices that must stay within the
// batch. An error or panic leaves the previous match set intact and surfaces
// as a "matcher" message.
type MatcherFunc func(stritems []string, inds []int, entries []string) ([]int, error)

// Message is a single-line, namespaced notification for the embedding UI.
type Message struct {
	Namespace string
	Text      string
}

// State describes the coordinator's latest match task.
type State int

const (
	// StateIdle means no match is pending: the query is empty or there are
	// no items yet.
	StateIdle State = iota
	// StateMatching means a task for the current generation is running.
	StateMatching
	// StateApplied means the current match indices come from a completed
	// task, a cache hit, or an external override.
	StateApplied
	// StateAborted means the latest task was cut off by Stop or failed in a
	// custom matcher.
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateMatching:
		return "matching"
	case StateApplied:
		return "applied"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Options configures a Session.
type Options struct {
	// Match sets the case and normalization policy of the built-in matcher.
	Match match.Options
	// Matcher overrides the built-in matcher when non-nil.
	Matcher MatcherFunc
	// ChunkSize bounds how many candidates a match task scans between
	// generation checks. Zero or negative means DefaultChunkSize.
	ChunkSize int
	// CacheSize is the LRU capacity of the query result cache. Zero or
	// negative means match.DefaultCacheSize.
	CacheSize int
	// DebounceInterval delays match scheduling after a query edit so edit
	// bursts coalesce into one task. Zero, the default, matches on every
	// edit.
	DebounceInterval time.Duration
	// Sync runs each scheduled match synchronously on the mutating
	// goroutine instead of a worker.
	Sync bool
	// Notify receives user-facing messages. Nil routes them to the logger.
	Notify func(Message)
	// Logger for internal diagnostics. Nil means the package default.
	Logger *logging.Logger
}

// DefaultOptions returns the interactive defaults.
func DefaultOptions() Options {
	return Options{
		Match:     match.DefaultOptions(),
		ChunkSize: DefaultChunkSize,
		CacheSize: match.DefaultCacheSize,
	}
}
