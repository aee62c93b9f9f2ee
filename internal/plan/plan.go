// Package plan joins extraction and segmentation into a report that accounts
// for every listed file exactly once.
package plan

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"bracketeer/internal/config"
	"bracketeer/internal/exposure"
	"bracketeer/internal/extract"
	"bracketeer/internal/faults"
	"bracketeer/internal/logging"
	"bracketeer/internal/pattern"
	"bracketeer/internal/runinfo"
	"bracketeer/internal/segment"
)

// ReasonFiltered marks records withheld by the auto-bracket filter.
const ReasonFiltered segment.Reason = "filtered"

// Bucket is the single place a file ends up in.
type Bucket string

const (
	BucketComplete  Bucket = "complete"
	BucketPartial   Bucket = "partial"
	BucketAmbiguous Bucket = "ambiguous"
	BucketResidual  Bucket = "residual"
	BucketFailed    Bucket = "failed"
)

// Buckets lists every bucket in report order.
var Buckets = []Bucket{BucketComplete, BucketPartial, BucketAmbiguous, BucketResidual, BucketFailed}

// Options configure one planning pass.
type Options struct {
	Pattern         pattern.Pattern
	Segment         segment.Options
	AutoBracketOnly bool
}

// OptionsFromConfig builds planning options from configuration and the
// resolved pattern offsets.
func OptionsFromConfig(cfg *config.Config, offsets []float64, logger *slog.Logger) (Options, error) {
	matchMode, err := pattern.ParseMatchMode(cfg.Detection.MatchMode)
	if err != nil {
		return Options{}, err
	}
	evMode, err := pattern.ParseEVMode(cfg.Detection.EVMode)
	if err != nil {
		return Options{}, err
	}
	p, err := pattern.New(offsets,
		pattern.WithTolerance(cfg.Detection.ToleranceEV),
		pattern.WithMaxIntraGap(cfg.MaxIntraGap()),
		pattern.WithMatchMode(matchMode),
		pattern.WithEVMode(evMode),
		pattern.WithAuxWeight(cfg.Detection.AuxWeight),
	)
	if err != nil {
		return Options{}, err
	}
	return Options{
		Pattern: p,
		Segment: segment.Options{
			AcceptanceThreshold: cfg.Detection.AcceptanceThreshold,
			MinGroupSize:        cfg.Detection.MinGroupSize,
			Resync:              cfg.Detection.Resync,
			Logger:              logger,
		},
		AutoBracketOnly: cfg.Scan.AutoBracketOnly,
	}, nil
}

// Entry is the placement of one file.
type Entry struct {
	Path   string
	Bucket Bucket
	// Group is the 1-based group index, 0 outside groups.
	Group  int
	Reason string
}

// Report is the full accounting of one directory.
type Report struct {
	Directory string
	Pattern   pattern.Pattern
	Groups    []segment.Group
	// Residual is in stream order and includes filtered records.
	Residual []segment.Residual
	Failures []extract.Failure
	Listed   int
	Missing  int
	Cached   int
	records  map[string]exposure.Record
}

// Build segments the scan result. Records withheld by the auto-bracket
// filter join the residual set and close any run they interrupt.
func Build(scan extract.ScanResult, opts Options) (*Report, error) {
	seg, err := segment.New(opts.Pattern, opts.Segment)
	if err != nil {
		return nil, err
	}

	records := append([]exposure.Record(nil), scan.Records...)
	exposure.Sort(records)
	order := make(map[string]int, len(records))
	byID := make(map[string]exposure.Record, len(records))
	var filtered []segment.Residual
	for i, rec := range records {
		order[rec.FileID] = i
		byID[rec.FileID] = rec
		if opts.AutoBracketOnly && rec.Mode != exposure.ModeUnknown && rec.Mode != exposure.ModeAutoBracket {
			filtered = append(filtered, segment.Residual{FileID: rec.FileID, Reason: ReasonFiltered})
			seg.Break()
			continue
		}
		seg.Feed(rec)
	}
	result := seg.Close()

	residual := append(result.Residual, filtered...)
	sort.SliceStable(residual, func(i, j int) bool { return order[residual[i].FileID] < order[residual[j].FileID] })

	report := &Report{
		Pattern:  opts.Pattern,
		Groups:   result.Groups,
		Residual: residual,
		Failures: scan.Failures,
		Listed:   scan.Listed,
		Missing:  scan.Missing,
		Cached:   scan.Cached,
		records:  byID,
	}
	if err := report.Verify(); err != nil {
		return nil, err
	}
	return report, nil
}

// Record returns the extracted record for a grouped or residual file.
func (r *Report) Record(path string) (exposure.Record, bool) {
	rec, ok := r.records[path]
	return rec, ok
}

// Entries returns one entry per accounted file: group members in group
// order, then residual files, then failures.
func (r *Report) Entries() []Entry {
	entries := make([]Entry, 0, r.Listed)
	for _, g := range r.Groups {
		bucket := groupBucket(g.Completeness)
		for _, id := range g.Members {
			entries = append(entries, Entry{Path: id, Bucket: bucket, Group: g.Index})
		}
	}
	for _, res := range r.Residual {
		entries = append(entries, Entry{Path: res.FileID, Bucket: BucketResidual, Reason: string(res.Reason)})
	}
	for _, f := range r.Failures {
		entries = append(entries, Entry{Path: f.Path, Bucket: BucketFailed, Reason: f.Kind.String()})
	}
	return entries
}

// Counts tallies files per bucket.
func (r *Report) Counts() map[Bucket]int {
	counts := make(map[Bucket]int, len(Buckets))
	for _, b := range Buckets {
		counts[b] = 0
	}
	for _, e := range r.Entries() {
		counts[e.Bucket]++
	}
	return counts
}

// GroupCounts tallies groups per completeness.
func (r *Report) GroupCounts() map[segment.Completeness]int {
	counts := make(map[segment.Completeness]int)
	for _, g := range r.Groups {
		counts[g.Completeness]++
	}
	return counts
}

// Verify checks that every listed file appears in exactly one bucket.
func (r *Report) Verify() error {
	seen := make(map[string]Bucket, r.Listed)
	for _, e := range r.Entries() {
		if prev, ok := seen[e.Path]; ok {
			return faults.Wrap(faults.ErrValidation, "plan", "verify",
				fmt.Sprintf("%s accounted twice (%s and %s)", e.Path, prev, e.Bucket), nil)
		}
		seen[e.Path] = e.Bucket
	}
	if len(seen) != r.Listed {
		return faults.Wrap(faults.ErrValidation, "plan", "verify",
			fmt.Sprintf("accounted %d of %d listed files", len(seen), r.Listed), nil)
	}
	return nil
}

func groupBucket(c segment.Completeness) Bucket {
	switch c {
	case segment.Complete:
		return BucketComplete
	case segment.Partial:
		return BucketPartial
	default:
		return BucketAmbiguous
	}
}

// Planner scans a directory and builds its report.
type Planner struct {
	Scanner *extract.Scanner
	Options Options
	Logger  *slog.Logger
}

// Plan extracts every file of dir and segments the records.
func (p *Planner) Plan(ctx context.Context, dir string) (*Report, error) {
	ctx = runinfo.WithDirectory(runinfo.WithStage(ctx, "scan"), dir)
	scan, err := p.Scanner.Scan(ctx, dir)
	if err != nil {
		return nil, err
	}
	report, err := Build(scan, p.Options)
	if err != nil {
		return nil, err
	}
	report.Directory = dir

	logger := logging.WithContext(runinfo.WithStage(ctx, "segment"), logging.NewComponentLogger(p.Logger, "plan"))
	counts := report.GroupCounts()
	logger.Info("segmentation complete",
		logging.String("pattern", p.Options.Pattern.String()),
		logging.Int("complete", counts[segment.Complete]),
		logging.Int("partial", counts[segment.Partial]),
		logging.Int("ambiguous", counts[segment.Ambiguous]),
		logging.Int("residual", len(report.Residual)),
		logging.Int("failed", len(report.Failures)),
	)
	if counts[segment.Ambiguous] > 0 {
		logging.WarnWithContext(logger, "ambiguous brackets need review", "ambiguous_groups",
			logging.Int("groups", counts[segment.Ambiguous]),
			logging.String(logging.FieldErrorHint, "inspect the review folder or adjust tolerance_ev"),
			logging.String(logging.FieldImpact, "ambiguous groups are routed per organize.ambiguous"),
		)
	}
	return report, nil
}
