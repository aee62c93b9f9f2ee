// Package organizer consumes a segmentation report and acts on it.
//
// The move action gives every accepted bracket its own folder inside the
// scanned directory, the textfile action appends the groups to a sequences
// file for downstream HDR tools. Moves are journaled in the store before
// they happen so a run can be undone even after a crash, and a per-directory
// lock keeps two runs from reorganizing the same folder at once.
package organizer
