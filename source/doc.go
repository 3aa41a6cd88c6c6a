// Package source adapts item producers to the picker's Source contract:
// fixed batches, producer functions, one-shot command output, live command
// re-runs driven by query edits, and watched files that reload on change.
//
// Command- and file-backed sources collect complete output lines through
// package stream and map them to raw item values with a Transform; the
// default keeps each line as its own text. Every loading phase is bracketed
// with the sink's load token, so the session's busy flag tracks it, and a
// load that fails delivers nothing: the previous batch stays intact.
package source
