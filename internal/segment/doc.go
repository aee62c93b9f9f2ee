// Package segment carves a time-ordered stream of exposure records into
// bracket groups.
//
// A Segmenter keeps at most one open candidate run. Each record either joins
// the run, closes it early (gap exceeded or out of order), or, when it lacks
// an exposure-bias value and no run is open, goes straight to the residual
// set. Runs are scored with the pattern package when they reach the pattern
// length, when they are closed early, and at end of stream. Emitted groups are
// never revisited, so one pass costs O(n·k) for a pattern of k shots.
//
// The segmenter accepts any valid pattern and never fails at runtime: every
// fed record ends up in exactly one group or in the residual set.
package segment
