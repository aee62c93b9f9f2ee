package segment

import (
	"fmt"
	"log/slog"

	"bracketeer/internal/exposure"
	"bracketeer/internal/faults"
	"bracketeer/internal/logging"
	"bracketeer/internal/pattern"
)

const (
	// DefaultAcceptanceThreshold is the score a run needs to be Complete or Partial.
	DefaultAcceptanceThreshold = 0.9
	// DefaultMinGroupSize drops single-shot "groups" into the residual set.
	DefaultMinGroupSize = 2
)

// Options tune group acceptance. Zero values select the defaults.
type Options struct {
	AcceptanceThreshold float64
	MinGroupSize        int
	// Resync releases only the first member of a rejected run and feeds the
	// remaining members again, so a stray shot right before a bracket does
	// not take the bracket down with it.
	Resync bool
	Logger *slog.Logger
}

// Segmenter is the streaming state machine. It is not safe for concurrent
// use; bracket boundaries depend on total order.
type Segmenter struct {
	pattern pattern.Pattern
	opts    Options
	logger  *slog.Logger

	run      []exposure.Record
	groups   []Group
	residual []Residual
}

// New validates the pattern and options and returns an idle segmenter.
func New(p pattern.Pattern, opts Options) (*Segmenter, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if opts.AcceptanceThreshold == 0 {
		opts.AcceptanceThreshold = DefaultAcceptanceThreshold
	}
	if opts.MinGroupSize == 0 {
		opts.MinGroupSize = DefaultMinGroupSize
	}
	if !(opts.AcceptanceThreshold > 0) || opts.AcceptanceThreshold > 1 {
		return nil, faults.Wrap(faults.ErrConfiguration, "segment", "validate",
			fmt.Sprintf("acceptance threshold %v outside (0, 1]", opts.AcceptanceThreshold), nil)
	}
	if opts.MinGroupSize < 1 {
		return nil, faults.Wrap(faults.ErrConfiguration, "segment", "validate",
			fmt.Sprintf("min group size %d below 1", opts.MinGroupSize), nil)
	}
	return &Segmenter{
		pattern: p,
		opts:    opts,
		logger:  logging.NewComponentLogger(opts.Logger, "segment"),
	}, nil
}

// Pattern returns the pattern the segmenter matches against.
func (s *Segmenter) Pattern() pattern.Pattern {
	return s.pattern
}

// Accumulating reports whether a candidate run is open.
func (s *Segmenter) Accumulating() bool {
	return len(s.run) > 0
}

// Feed processes the next record of the stream.
func (s *Segmenter) Feed(rec exposure.Record) {
	// A resync reopens the run from released members, so the boundary is
	// checked again until it holds or the run is empty.
	for len(s.run) > 0 && s.breaks(rec) {
		s.evaluate()
	}
	if len(s.run) == 0 && !rec.HasBias() {
		s.release(ReasonUnseeded, rec)
		return
	}
	s.run = append(s.run, rec)
	if len(s.run) == s.pattern.Len() {
		s.evaluate()
	}
}

// Break closes the open run without ending the stream, for records the
// caller withholds that still sit between members.
func (s *Segmenter) Break() {
	for len(s.run) > 0 {
		s.evaluate()
	}
}

// Close flushes the open run and returns the accumulated result. The
// segmenter is idle and empty afterwards and can process another stream.
func (s *Segmenter) Close() Result {
	s.Break()
	res := Result{Groups: s.groups, Residual: s.residual}
	s.groups, s.residual = nil, nil
	return res
}

// breaks reports whether rec cannot extend the open run: it is earlier than
// the last member or further than the intra-bracket gap from it.
func (s *Segmenter) breaks(rec exposure.Record) bool {
	last := s.run[len(s.run)-1]
	return exposure.Less(rec, last) || rec.CapturedAt.Sub(last.CapturedAt) > s.pattern.MaxIntraGap
}

// evaluate scores and closes the open run. With Resync a rejected run of
// n members leaves at most n-1 of them in a new open run.
func (s *Segmenter) evaluate() {
	run := s.run
	s.run = nil
	if len(run) == 0 {
		return
	}

	obs := make([]pattern.Observation, len(run))
	for i, rec := range run {
		obs[i] = pattern.Observe(rec)
	}
	match := pattern.MatchScore(obs, s.pattern)

	switch {
	case match.Rejected || match.Score <= 0:
		if s.opts.Resync && len(run) > 1 {
			s.logger.Debug("run rejected, resyncing",
				logging.String("first", run[0].FileID),
				logging.Int("members", len(run)))
			s.release(ReasonRejected, run[0])
			for _, rec := range run[1:] {
				s.Feed(rec)
			}
			return
		}
		s.logger.Debug("run rejected",
			logging.String("first", run[0].FileID),
			logging.Int("members", len(run)))
		s.release(ReasonRejected, run...)
	case len(run) < s.opts.MinGroupSize:
		s.release(ReasonTooShort, run...)
	default:
		s.emit(run, match)
	}
}

func (s *Segmenter) emit(run []exposure.Record, match pattern.MatchResult) {
	completeness := Ambiguous
	if match.Score >= s.opts.AcceptanceThreshold {
		completeness = Partial
		if len(run) == s.pattern.Len() {
			completeness = Complete
		}
	}
	members := make([]string, len(run))
	for i, rec := range run {
		members[i] = rec.FileID
	}
	g := Group{
		Index:        len(s.groups) + 1,
		Members:      members,
		Records:      append([]exposure.Record(nil), run...),
		Pattern:      s.pattern,
		Completeness: completeness,
		Score:        match.Score,
		Alignment:    append([]int(nil), match.Alignment...),
		Baseline:     match.Baseline,
	}
	s.groups = append(s.groups, g)
	s.logger.Debug("group emitted",
		logging.Int("index", g.Index),
		logging.String("completeness", completeness.String()),
		logging.Float64("score", match.Score),
		logging.String("first", members[0]),
		logging.Int("members", len(members)))
}

func (s *Segmenter) release(reason Reason, records ...exposure.Record) {
	for _, rec := range records {
		s.residual = append(s.residual, Residual{FileID: rec.FileID, Reason: reason})
	}
}

// Segment sorts a copy of records into stream order and runs one pass.
func Segment(p pattern.Pattern, opts Options, records []exposure.Record) (Result, error) {
	s, err := New(p, opts)
	if err != nil {
		return Result{}, err
	}
	ordered := append([]exposure.Record(nil), records...)
	exposure.Sort(ordered)
	for _, rec := range ordered {
		s.Feed(rec)
	}
	return s.Close(), nil
}
