// Package query holds the editable query state of a finder session and the
// tokenizer that classifies query entries into matcher instructions.
//
// A query is an ordered list of string entries plus a caret. Interactive
// typing appends one-character entries; paste may insert multi-character
// entries. The caret is an insertion point between entries and is always
// clamped to a valid position.
//
// Tokenize turns entries into a typed instruction stream understood by the
// matcher: ordered contiguous literals (groups), forced per-character or
// whole-string modes, and start/end anchors. Compile folds that stream into
// the flat Plan the matcher consumes.
package query
