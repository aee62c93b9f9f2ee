package segment

import (
	"time"

	"bracketeer/internal/exposure"
	"bracketeer/internal/pattern"
)

// Completeness classifies an emitted group.
type Completeness int

const (
	// Complete groups matched the whole pattern.
	Complete Completeness = iota
	// Partial groups matched but hold fewer shots than the pattern.
	Partial
	// Ambiguous groups scored above zero but below the acceptance
	// threshold. They are kept for human review.
	Ambiguous
)

func (c Completeness) String() string {
	switch c {
	case Complete:
		return "complete"
	case Partial:
		return "partial"
	case Ambiguous:
		return "ambiguous"
	default:
		return "unknown"
	}
}

// MarshalText encodes the completeness by name.
func (c Completeness) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// Group is one detected bracket. Groups are immutable once emitted.
type Group struct {
	// Index is the 1-based position of the group in the output.
	Index        int
	Members      []string
	Records      []exposure.Record
	Pattern      pattern.Pattern
	Completeness Completeness
	Score        float64
	// Alignment maps member index to pattern slot, -1 when unassigned.
	Alignment []int
	// Baseline is the EV subtracted in relative mode.
	Baseline float64
}

// Start returns the capture time of the first member.
func (g Group) Start() time.Time {
	if len(g.Records) == 0 {
		return time.Time{}
	}
	return g.Records[0].CapturedAt
}

// End returns the capture time of the last member.
func (g Group) End() time.Time {
	if len(g.Records) == 0 {
		return time.Time{}
	}
	return g.Records[len(g.Records)-1].CapturedAt
}

// Len returns the number of members.
func (g Group) Len() int {
	return len(g.Members)
}

// Reason records why a file was left out of every group.
type Reason string

const (
	// ReasonUnseeded marks a record without exposure bias that arrived while
	// no run was open.
	ReasonUnseeded Reason = "unseeded"
	// ReasonRejected marks a member of a run that failed the hard-reject bound.
	ReasonRejected Reason = "rejected"
	// ReasonTooShort marks a member of a run shorter than the minimum group size.
	ReasonTooShort Reason = "too-short"
)

// Residual is a file no group claimed.
type Residual struct {
	FileID string
	Reason Reason
}

// Result is the outcome of one segmentation pass.
type Result struct {
	Groups   []Group
	Residual []Residual
}

// ResidualIDs returns the residual file ids in stream order.
func (r Result) ResidualIDs() []string {
	ids := make([]string, len(r.Residual))
	for i, res := range r.Residual {
		ids[i] = res.FileID
	}
	return ids
}

// ResidualCounts tallies residual files per reason.
func (r Result) ResidualCounts() map[Reason]int {
	counts := make(map[Reason]int)
	for _, res := range r.Residual {
		counts[res.Reason]++
	}
	return counts
}

// CompletenessCounts tallies groups per completeness.
func (r Result) CompletenessCounts() map[Completeness]int {
	counts := make(map[Completeness]int)
	for _, g := range r.Groups {
		counts[g.Completeness]++
	}
	return counts
}

// Members returns the number of files claimed by groups.
func (r Result) Members() int {
	var n int
	for _, g := range r.Groups {
		n += len(g.Members)
	}
	return n
}
