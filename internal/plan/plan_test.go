package plan_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"bracketeer/internal/config"
	"bracketeer/internal/exposure"
	"bracketeer/internal/extract"
	"bracketeer/internal/faults"
	"bracketeer/internal/pattern"
	"bracketeer/internal/plan"
	"bracketeer/internal/segment"
	"bracketeer/internal/testsupport"
)

var start = time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

func options(t *testing.T, list string, opts ...testsupport.ConfigOption) plan.Options {
	t.Helper()
	cfg := testsupport.NewConfig(t, append([]testsupport.ConfigOption{testsupport.WithPattern(list)}, opts...)...)
	offsets, err := pattern.Parse(cfg.Detection.Pattern)
	if err != nil {
		t.Fatalf("parse pattern: %v", err)
	}
	o, err := plan.OptionsFromConfig(cfg, offsets, nil)
	if err != nil {
		t.Fatalf("OptionsFromConfig: %v", err)
	}
	return o
}

func TestBuildAccountsEveryFile(t *testing.T) {
	records := testsupport.Records(t, start, time.Second, "0", "-2", "+2", "0", "-2", "+2", "+1")
	scan := extract.ScanResult{
		Records:  records,
		Failures: []extract.Failure{{Path: "/photos/broken.ARW", Kind: extract.CorruptFile}},
		Listed:   len(records) + 1,
	}
	report, err := plan.Build(scan, options(t, "0, -2, +2"))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(report.Groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(report.Groups))
	}
	counts := report.Counts()
	want := map[plan.Bucket]int{
		plan.BucketComplete:  6,
		plan.BucketPartial:   0,
		plan.BucketAmbiguous: 0,
		plan.BucketResidual:  1,
		plan.BucketFailed:    1,
	}
	for bucket, n := range want {
		if counts[bucket] != n {
			t.Fatalf("bucket %s: expected %d, got %d", bucket, n, counts[bucket])
		}
	}
	entries := report.Entries()
	if len(entries) != scan.Listed {
		t.Fatalf("expected %d entries, got %d", scan.Listed, len(entries))
	}
	if entries[0].Group != 1 || entries[3].Group != 2 {
		t.Fatalf("unexpected group indices: %+v", entries[:4])
	}
	if last := entries[len(entries)-1]; last.Bucket != plan.BucketFailed || last.Reason != extract.CorruptFile.String() {
		t.Fatalf("unexpected failure entry: %+v", last)
	}
	if _, ok := report.Record(records[0].FileID); !ok {
		t.Fatal("expected grouped record to be retrievable")
	}
}

func TestBuildAutoBracketFilter(t *testing.T) {
	records := testsupport.Records(t, start, time.Second, "0", "0", "-2", "+2", "?")
	records[0].Mode = exposure.ModeManual
	for i := 1; i < 4; i++ {
		records[i].Mode = exposure.ModeAutoBracket
	}
	scan := extract.ScanResult{Records: records, Listed: len(records), Missing: 1}

	autoOnly := testsupport.WithConfig(func(c *config.Config) { c.Scan.AutoBracketOnly = true })
	report, err := plan.Build(scan, options(t, "0, -2, +2", autoOnly))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(report.Groups) != 1 || report.Groups[0].Completeness != segment.Complete {
		t.Fatalf("expected one complete group, got %+v", report.Groups)
	}
	if report.Groups[0].Members[0] != records[1].FileID {
		t.Fatalf("expected group to start at the second file, got %s", report.Groups[0].Members[0])
	}
	if len(report.Residual) != 2 {
		t.Fatalf("expected 2 residual files, got %+v", report.Residual)
	}
	if report.Residual[0].FileID != records[0].FileID || report.Residual[0].Reason != plan.ReasonFiltered {
		t.Fatalf("expected manual shot filtered first, got %+v", report.Residual[0])
	}
	if report.Residual[1].Reason != segment.ReasonUnseeded {
		t.Fatalf("expected unknown-mode shot without bias to stay unseeded, got %+v", report.Residual[1])
	}

	report, err = plan.Build(scan, options(t, "0, -2, +2"))
	if err != nil {
		t.Fatalf("Build without filter: %v", err)
	}
	if n := report.Counts()[plan.BucketComplete]; n != 0 {
		t.Fatalf("expected the manual shot to break the bracket without the filter, got %d complete", n)
	}
}

func TestBuildFilteredShotBreaksRun(t *testing.T) {
	records := testsupport.Records(t, start, time.Second, "0", "-2", "0", "+2")
	for i := range records {
		records[i].Mode = exposure.ModeAutoBracket
	}
	records[2].Mode = exposure.ModeManual
	scan := extract.ScanResult{Records: records, Listed: len(records)}

	autoOnly := testsupport.WithConfig(func(c *config.Config) { c.Scan.AutoBracketOnly = true })
	report, err := plan.Build(scan, options(t, "0, -2, +2", autoOnly))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	for _, g := range report.Groups {
		if g.Completeness == segment.Complete {
			t.Fatalf("group spans the filtered shot: %+v", g)
		}
		for _, id := range g.Members {
			if id == records[3].FileID && g.Members[0] != id {
				t.Fatalf("+2 shot joined a run opened before the filtered shot: %+v", g)
			}
		}
	}
	if n := report.Counts()[plan.BucketComplete]; n != 0 {
		t.Fatalf("expected no complete files, got %d", n)
	}
	if len(report.Entries()) != scan.Listed {
		t.Fatalf("expected every file accounted for, got %d entries", len(report.Entries()))
	}
}

func TestBuildRejectsInconsistentListing(t *testing.T) {
	records := testsupport.Records(t, start, time.Second, "0", "-2", "+2")
	_, err := plan.Build(extract.ScanResult{Records: records, Listed: 5}, options(t, "0, -2, +2"))
	if !errors.Is(err, faults.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := testsupport.NewConfig(t,
		testsupport.WithPattern("0, -1, +1"),
		testsupport.WithMatchMode("multiset"),
		testsupport.WithConfig(func(c *config.Config) {
			c.Detection.ToleranceEV = 0.25
			c.Detection.MaxIntraGapSeconds = 5
			c.Detection.Resync = true
		}),
	)
	offsets, err := pattern.Parse(cfg.Detection.Pattern)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	opts, err := plan.OptionsFromConfig(cfg, offsets, nil)
	if err != nil {
		t.Fatalf("OptionsFromConfig: %v", err)
	}
	if opts.Pattern.Mode != pattern.Multiset || opts.Pattern.Tolerance != 0.25 {
		t.Fatalf("unexpected pattern %+v", opts.Pattern)
	}
	if opts.Pattern.MaxIntraGap != 5*time.Second {
		t.Fatalf("expected 5s gap, got %s", opts.Pattern.MaxIntraGap)
	}
	if !opts.Segment.Resync {
		t.Fatal("expected resync to carry over")
	}
}

func TestPlannerPlan(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteBracket(t, dir, "IMG", 1, start, 0, -6, 6)
	testsupport.WriteFiller(t, dir, "broken.tif", 64)

	planner := &plan.Planner{
		Scanner: &extract.Scanner{Extractor: extract.ExifExtractor{}, Extensions: []string{"tif"}, Workers: 2},
		Options: options(t, "0, -2, +2"),
	}
	report, err := planner.Plan(context.Background(), dir)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if report.Directory != dir {
		t.Fatalf("expected directory %s, got %s", dir, report.Directory)
	}
	if len(report.Groups) != 1 || report.Groups[0].Len() != 3 {
		t.Fatalf("expected one 3-shot group, got %+v", report.Groups)
	}
	counts := report.Counts()
	if counts[plan.BucketComplete] != 3 || counts[plan.BucketFailed] != 1 {
		t.Fatalf("unexpected counts %v", counts)
	}
}
