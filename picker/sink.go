package picker

import (
	"context"
	"sync"
)

// Source feeds items into a session. Attach runs on its own goroutine and
// may push batches through the sink zero or more times until ctx ends; a
// non-nil return surfaces as a "source" message unless the source was
// detached first. Sources that load should bracket each loading phase with
// sink.BeginLoad so the session's busy flag tracks them; long-lived sources
// hold the token only while a load is actually in flight.
type Source interface {
	Attach(ctx context.Context, sink Sink) error
}

// Sink is the only session surface a Source may touch.
type Sink interface {
	// SetItems replaces the batch. It fails once the source is detached or
	// the session stopped.
	SetItems(values []any) error
	// Notify forwards a user-facing message.
	Notify(msg Message)
	// QueryEntries returns the current query entries.
	QueryEntries() []string
	// OnQueryChange registers fn to run after every entry-changing edit.
	// The returned func cancels the registration.
	OnQueryChange(fn func(entries []string)) (cancel func())
	// BeginLoad counts loading work toward Busy until the returned func
	// runs. The func is idempotent.
	BeginLoad() (done func())
}

// SetItemsFromSource attaches src, detaching any previously attached source
// first. The source runs on its own goroutine; its loading phases count
// toward Busy through the sink. Stopping the session or attaching another
// source cancels its context, after which its pushes are refused.
func (s *Session) SetItemsFromSource(ctx context.Context, src Source) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return ErrStopped
	}
	prev := s.srcCancel
	sctx, cancel := context.WithCancel(ctx)
	s.srcCancel = cancel
	s.mu.Unlock()

	if prev != nil {
		prev()
	}

	sink := &sessionSink{s: s, ctx: sctx}
	go func() {
		if err := src.Attach(sctx, sink); err != nil && sctx.Err() == nil {
			s.notify(Message{Namespace: "source", Text: singleLine(err.Error())})
		}
	}()
	return nil
}

// onQueryChange registers a query-change subscriber; see Sink.OnQueryChange.
func (s *Session) onQueryChange(fn func([]string)) func() {
	s.mu.Lock()
	s.subSeq++
	id := s.subSeq
	s.subs[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// sessionSink scopes a source's session access to its attach context, so a
// detached source can never reach current state.
type sessionSink struct {
	s   *Session
	ctx context.Context
}

func (k *sessionSink) SetItems(values []any) error {
	return k.s.setItems(k.ctx, values)
}

func (k *sessionSink) Notify(msg Message) {
	if k.ctx.Err() != nil {
		return
	}
	k.s.notify(msg)
}

func (k *sessionSink) QueryEntries() []string {
	return k.s.QueryEntries()
}

func (k *sessionSink) OnQueryChange(fn func(entries []string)) (cancel func()) {
	return k.s.onQueryChange(fn)
}

func (k *sessionSink) BeginLoad() (done func()) {
	if k.ctx.Err() != nil {
		return func() {}
	}
	k.s.loadBusy.Add(1)
	var once sync.Once
	return func() {
		once.Do(func() { k.s.loadBusy.Add(-1) })
	}
}
