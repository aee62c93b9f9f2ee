// Package textutil turns file names and labels into folder names that are
// safe on every filesystem bracketeer writes to.
//
// Names are NFC-normalized first so that a stem read from a macOS volume
// (decomposed accents) and the same stem typed by hand produce the same
// folder.
package textutil
