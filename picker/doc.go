// Package picker is the embeddable core of the fuzzy finder. A Session owns
// the item batch, the interactive query, the ranked match indices, marks and
// the cursor, and coordinates asynchronous matching, so an embedding UI only
// has to forward keystrokes and render snapshots.
//
// # Concurrency model
//
// A single mutex guards session state. Every item reset and entry-changing
// query edit bumps a monotonic generation counter; a match task captures the
// generation when it starts, re-checks it between candidate chunks, and
// applies its result only if the counter still holds. A superseded task
// abandons itself without touching state, so the most recent edit always
// wins. Accessors return independent copies and never expose internal
// slices.
//
// # Sources
//
// Items arrive either directly through SetItems or from a Source attached
// with SetItemsFromSource. A source runs on its own goroutine and reaches
// the session only through its Sink; once detached, its pushes are refused.
package picker
