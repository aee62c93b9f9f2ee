// Package store persists bracketeer state in SQLite.
//
// It holds three things: a metadata cache so rescanning a large directory
// skips unchanged files, a journal of organize runs with every planned file
// move (written before the move happens, so undo works after a crash), and
// small settings such as the last saved discovery pattern. Schema changes ship
// as embedded migrations applied on Open.
package store
