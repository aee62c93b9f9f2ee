// Package preflight provides readiness checks for the directories bracketeer
// writes into.
//
// The organize and undo commands call RunAll before touching any file. If a
// check fails the run is aborted before the journal records a single move,
// so a permission problem never leaves a directory half organized.
package preflight
