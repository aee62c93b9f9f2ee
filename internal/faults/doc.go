// Package faults defines the error markers shared by the bracketeer stages.
//
// Configuration problems (an invalid bracket pattern, bad config values) are
// fatal and surface before any directory is processed. Extraction and I/O
// markers classify per-file or per-move failures that the callers aggregate
// instead of aborting. Wrap attaches stage and operation context while keeping
// both the marker and the cause visible to errors.Is.
package faults
