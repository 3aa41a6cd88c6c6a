// Package match implements the finder's matching and ranking pipeline.
//
// # Semantics
//
// A query compiles to ordered parts (see package query). A stritem matches
// when every part appears in order: each part contiguous, arbitrary gaps
// between parts. Matches rank by the minimal span the parts can occupy:
//
//  1. span width ascending (tighter matches first)
//  2. span start ascending (earlier matches first)
//  3. original candidate index ascending
//
// The ordering is fully deterministic, so repeated invocations over the same
// inputs return identical slices.
//
// # Case policy
//
// Two options combine: IgnoreCase requests folding, SmartCase overrides it
// back to sensitive when any query entry contains an uppercase letter.
// Folding is rune-by-rune lowering of comparison copies; originals are never
// touched. Optional Normalize additionally strips diacritics from the
// comparison copies.
//
// # Entry points
//
// Ranked is the one-shot pure function. NewPattern compiles a query once for
// matching against many batches; MatchFolded lets a caller that maintains
// pre-folded comparison copies (the picker does, per item batch) skip
// per-call folding. Relevance is an alternative ranker built on
// sahilm/fuzzy scoring for callers that prefer relevance weighting over the
// span contract. Cache memoizes ranked results per joined query within one
// item batch.
package match
