package stream

import (
	"context"
	"sync"
)

// Collector reassembles stdout chunks into complete lines. A line may span
// chunk boundaries; the unterminated tail of each chunk is buffered and
// prepended to the next one. Lines are split on '\n' with a trailing '\r'
// stripped, so CRLF input is handled transparently.
//
// Write is safe to use as a Start chunk callback; Lines and Close may be
// called from other goroutines.
type Collector struct {
	mu    sync.Mutex
	lines []string
	frag  []byte
	done  bool
}

// NewCollector returns an empty Collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Write feeds one chunk of raw output. Chunks after Close are dropped.
func (c *Collector) Write(chunk []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done {
		return
	}
	start := 0
	for i, b := range chunk {
		if b != '\n' {
			continue
		}
		line := chunk[start:i]
		if len(c.frag) > 0 {
			line = append(c.frag, line...)
			c.frag = nil
		}
		c.lines = append(c.lines, string(trimCR(line)))
		start = i + 1
	}
	if start < len(chunk) {
		c.frag = append(c.frag, chunk[start:]...)
	}
}

// Close marks the end of the stream, flushing a non-empty trailing fragment
// as a final line, and returns all collected lines. Further Writes are
// ignored. Close is idempotent.
func (c *Collector) Close() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.done {
		c.done = true
		if len(c.frag) > 0 {
			c.lines = append(c.lines, string(trimCR(c.frag)))
			c.frag = nil
		}
	}
	out := make([]string, len(c.lines))
	copy(out, c.lines)
	return out
}

// Lines returns a copy of the lines collected so far, excluding any buffered
// fragment.
func (c *Collector) Lines() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.lines))
	copy(out, c.lines)
	return out
}

// Len returns the number of complete lines collected so far.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.lines)
}

func trimCR(line []byte) []byte {
	if n := len(line); n > 0 && line[n-1] == '\r' {
		return line[:n-1]
	}
	return line
}

// PostProcess rewrites the collected line set after a run completes. It runs
// once, on the full output, before lines are handed to the caller.
type PostProcess func(lines []string) []string

// DropTrailingBlanks removes blank lines from the end of the output. It is
// the default post-processing step; most line-producing tools terminate their
// final line, which would otherwise surface as an empty trailing item.
func DropTrailingBlanks(lines []string) []string {
	n := len(lines)
	for n > 0 && lines[n-1] == "" {
		n--
	}
	return lines[:n]
}

// Collect runs the command to completion and returns its stdout as lines with
// trailing blanks dropped. Any stderr output fails the call and no lines are
// returned.
func Collect(ctx context.Context, cmd Command) ([]string, error) {
	return CollectWith(ctx, cmd, nil)
}

// CollectWith is Collect with a custom post-processing step. A nil post
// applies DropTrailingBlanks.
func CollectWith(ctx context.Context, cmd Command, post PostProcess) ([]string, error) {
	col := NewCollector()
	h, err := Start(ctx, cmd, col.Write)
	if err != nil {
		return nil, err
	}
	defer h.Close()

	if err := h.Wait(); err != nil {
		return nil, err
	}
	lines := col.Close()
	if post == nil {
		post = DropTrailingBlanks
	}
	return post(lines), nil
}
