// Package stream spawns OS processes and reassembles their stdout into
// lines for the finder's item sources.
//
// Start launches a process and delivers raw stdout chunks, in read order, to
// a callback; Collector turns chunks into lines, holding back a trailing
// fragment until the stream closes. Collect bundles both for the common
// run-to-completion case and applies a post-processing hook to the fully
// collected lines (by default, dropping trailing blanks).
//
// Error policy: anything the process writes to stderr fails the whole
// operation and no lines are returned. A non-zero exit with silent stderr is
// not an error by itself; tools like grep exit non-zero on empty result
// sets. Deliberate kills report ErrKilled so replacement logic can stay
// silent about them.
package stream
