package segment_test

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"testing"
	"time"

	"bracketeer/internal/exposure"
	"bracketeer/internal/faults"
	"bracketeer/internal/pattern"
	"bracketeer/internal/segment"
)

var epoch = time.Date(2025, 6, 14, 18, 30, 0, 0, time.UTC)

// shot describes one synthetic record. A NaN ev means no exposure bias.
type shot struct {
	ev     float64
	offset time.Duration
}

func stream(shots ...shot) []exposure.Record {
	out := make([]exposure.Record, len(shots))
	for i, s := range shots {
		rec := exposure.Record{
			FileID:     fmt.Sprintf("IMG_%04d.ARW", i+1),
			CapturedAt: epoch.Add(s.offset),
		}
		if !math.IsNaN(s.ev) {
			rec.Bias = exposure.NewEV(int64(math.Round(s.ev*300)), 300)
		}
		out[i] = rec
	}
	return out
}

// burst lays shots one second apart starting at start.
func burst(start time.Duration, evs ...float64) []shot {
	out := make([]shot, len(evs))
	for i, ev := range evs {
		out[i] = shot{ev: ev, offset: start + time.Duration(i)*time.Second}
	}
	return out
}

func join(parts ...[]shot) []shot {
	var out []shot
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func newPattern(t *testing.T, offsets []float64, opts ...pattern.Option) pattern.Pattern {
	t.Helper()
	p, err := pattern.New(offsets, opts...)
	if err != nil {
		t.Fatalf("pattern.New: %v", err)
	}
	return p
}

func run(t *testing.T, p pattern.Pattern, opts segment.Options, records []exposure.Record) segment.Result {
	t.Helper()
	res, err := segment.Segment(p, opts, records)
	if err != nil {
		t.Fatalf("Segment: %v", err)
	}
	return res
}

func TestCompleteGroup(t *testing.T) {
	p := newPattern(t, []float64{-2, 0, 2})
	res := run(t, p, segment.Options{}, stream(burst(0, -2, 0, 2)...))

	if len(res.Groups) != 1 || len(res.Residual) != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}
	g := res.Groups[0]
	if g.Completeness != segment.Complete || g.Len() != 3 || g.Index != 1 {
		t.Fatalf("unexpected group: %+v", g)
	}
	if !g.Start().Equal(epoch) || !g.End().Equal(epoch.Add(2*time.Second)) {
		t.Fatalf("unexpected span %v - %v", g.Start(), g.End())
	}
}

func TestConsecutiveBrackets(t *testing.T) {
	p := newPattern(t, []float64{0, -1, 1})
	// Back-to-back brackets only one second apart still split at pattern length.
	res := run(t, p, segment.Options{}, stream(burst(0, 0, -1, 1, 0, -1, 1, 0, -1, 1)...))
	if len(res.Groups) != 3 {
		t.Fatalf("expected 3 groups, got %d", len(res.Groups))
	}
	for i, g := range res.Groups {
		if g.Completeness != segment.Complete {
			t.Fatalf("group %d: %v", i, g.Completeness)
		}
		if g.Members[0] != fmt.Sprintf("IMG_%04d.ARW", i*3+1) {
			t.Fatalf("group %d starts at %s", i, g.Members[0])
		}
	}
}

func TestGapSplitsRun(t *testing.T) {
	p := newPattern(t, []float64{-2, 0, 2}, pattern.WithMaxIntraGap(2*time.Second))
	records := stream(
		shot{ev: -2, offset: 0},
		shot{ev: 0, offset: time.Second},
		shot{ev: 2, offset: 10 * time.Second},
	)
	res := run(t, p, segment.Options{}, records)

	if len(res.Groups) != 1 {
		t.Fatalf("expected one group, got %+v", res.Groups)
	}
	g := res.Groups[0]
	if g.Completeness != segment.Partial || g.Len() != 2 {
		t.Fatalf("expected partial group of two, got %v of %d", g.Completeness, g.Len())
	}
	// The third shot opens a new run; positionally it sits in the -2 slot.
	if len(res.Residual) != 1 || res.Residual[0].FileID != "IMG_0003.ARW" || res.Residual[0].Reason != segment.ReasonRejected {
		t.Fatalf("expected third shot to start its own run, got %+v", res.Residual)
	}

	multiset := newPattern(t, []float64{-2, 0, 2}, pattern.WithMaxIntraGap(2*time.Second), pattern.WithMatchMode(pattern.Multiset))
	short := run(t, multiset, segment.Options{}, records)
	if len(short.Residual) != 1 || short.Residual[0].Reason != segment.ReasonTooShort {
		t.Fatalf("expected lone shot to be too short, got %+v", short.Residual)
	}

	single := run(t, multiset, segment.Options{MinGroupSize: 1}, records)
	if len(single.Groups) != 2 || single.Groups[1].Members[0] != "IMG_0003.ARW" || single.Groups[1].Completeness != segment.Partial {
		t.Fatalf("with min size 1 the third shot forms its own run: %+v", single.Groups)
	}
}

func TestUnknownNeverSeedsRun(t *testing.T) {
	p := newPattern(t, []float64{-2, 0, 2})
	shots := join(
		burst(0, -2, 0, 2),
		[]shot{{ev: math.NaN(), offset: 30 * time.Second}},
		burst(60*time.Second, -2, 0, 2),
	)
	res := run(t, p, segment.Options{}, stream(shots...))

	if len(res.Groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(res.Groups))
	}
	if len(res.Residual) != 1 || res.Residual[0].FileID != "IMG_0004.ARW" || res.Residual[0].Reason != segment.ReasonUnseeded {
		t.Fatalf("unexpected residual: %+v", res.Residual)
	}
}

func TestUnknownJoinsOpenRun(t *testing.T) {
	p := newPattern(t, []float64{-2, 0, 2})
	records := stream(burst(0, -2, 0, math.NaN())...)
	// Shutter speeds: 1/250, 1/60, 1/15 at f/8 ISO 100.
	for i, tm := range []float64{1.0 / 250, 1.0 / 60, 1.0 / 15} {
		records[i].ExposureTime = tm
		records[i].FNumber = 8
		records[i].ISO = 100
	}
	res := run(t, p, segment.Options{}, records)
	if len(res.Groups) != 1 {
		t.Fatalf("expected one group, got %+v", res)
	}
	g := res.Groups[0]
	want := (2 + pattern.DefaultAuxWeight) / 3
	if math.Abs(g.Score-want) > 1e-9 {
		t.Fatalf("score = %v, want %v", g.Score, want)
	}
	if g.Completeness != segment.Ambiguous {
		t.Fatalf("expected ambiguous group, got %v", g.Completeness)
	}
}

func TestAmbiguousAndRejected(t *testing.T) {
	p := newPattern(t, []float64{-2, 0, 2})

	ambiguous := run(t, p, segment.Options{}, stream(burst(0, -2, 0.25, 2)...))
	if len(ambiguous.Groups) != 1 || ambiguous.Groups[0].Completeness != segment.Ambiguous {
		t.Fatalf("expected ambiguous group, got %+v", ambiguous)
	}

	rejected := run(t, p, segment.Options{}, stream(burst(0, -2, 1, 2)...))
	if len(rejected.Groups) != 0 || len(rejected.Residual) != 3 {
		t.Fatalf("expected all members released, got %+v", rejected)
	}
	for _, r := range rejected.Residual {
		if r.Reason != segment.ReasonRejected {
			t.Fatalf("unexpected reason %q", r.Reason)
		}
	}
}

func TestResyncRecoversBracketAfterStrayShot(t *testing.T) {
	p := newPattern(t, []float64{-2, 0, 2})
	records := stream(burst(0, 0, -2, 0, 2)...)

	plain := run(t, p, segment.Options{}, records)
	if len(plain.Groups) != 0 {
		t.Fatalf("greedy pass should reject the misaligned run, got %+v", plain.Groups)
	}

	resync := run(t, p, segment.Options{Resync: true}, records)
	if len(resync.Groups) != 1 || resync.Groups[0].Completeness != segment.Complete {
		t.Fatalf("expected one complete group, got %+v", resync.Groups)
	}
	if got := resync.Groups[0].Members; got[0] != "IMG_0002.ARW" || len(got) != 3 {
		t.Fatalf("unexpected members %v", got)
	}
	if len(resync.Residual) != 1 || resync.Residual[0].FileID != "IMG_0001.ARW" {
		t.Fatalf("unexpected residual %+v", resync.Residual)
	}
}

func TestResyncKeepsGapBoundary(t *testing.T) {
	p := newPattern(t, []float64{-2, 0, 2})
	tests := []struct {
		name     string
		shots    []shot
		complete []string
	}{
		{
			name:  "replayed member before gap",
			shots: join(burst(0, 5, -2), burst(11*time.Second, 0, 2)),
		},
		{
			name:     "bracket after gap",
			shots:    join(burst(0, 5, -2), burst(11*time.Second, -2, 0, 2)),
			complete: []string{"IMG_0003.ARW", "IMG_0004.ARW", "IMG_0005.ARW"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := stream(tt.shots...)
			res := run(t, p, segment.Options{Resync: true}, records)

			var complete []string
			for _, g := range res.Groups {
				for i := 1; i < len(g.Records); i++ {
					if gap := g.Records[i].CapturedAt.Sub(g.Records[i-1].CapturedAt); gap > p.MaxIntraGap {
						t.Fatalf("group %v spans a %s gap", g.Members, gap)
					}
				}
				if g.Completeness == segment.Complete {
					complete = append(complete, g.Members...)
				}
			}
			if !reflect.DeepEqual(complete, tt.complete) {
				t.Fatalf("complete members = %v, want %v", complete, tt.complete)
			}

			seen := 0
			for _, g := range res.Groups {
				seen += len(g.Members)
			}
			if seen+len(res.Residual) != len(records) {
				t.Fatalf("accounted %d of %d records: %+v", seen+len(res.Residual), len(records), res)
			}
		})
	}
}

func TestCloseFlushesResyncedRun(t *testing.T) {
	p := newPattern(t, []float64{-2, 0, 2})
	s, err := segment.New(p, segment.Options{Resync: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for _, rec := range stream(burst(0, 0, 2)...) {
		s.Feed(rec)
	}
	res := s.Close()
	if s.Accumulating() {
		t.Fatal("Close left a run open")
	}
	if len(res.Groups)+len(res.Residual) != 2 {
		t.Fatalf("expected both records accounted, got %+v", res)
	}
}

func TestBreakClosesRunMidStream(t *testing.T) {
	p := newPattern(t, []float64{-2, 0, 2})
	s, err := segment.New(p, segment.Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	records := stream(burst(0, -2, 0, 2)...)
	s.Feed(records[0])
	s.Feed(records[1])
	s.Break()
	if s.Accumulating() {
		t.Fatal("Break left a run open")
	}
	s.Feed(records[2])
	res := s.Close()
	if len(res.Groups) != 1 || res.Groups[0].Completeness != segment.Partial || res.Groups[0].Len() != 2 {
		t.Fatalf("expected partial group of two before the break, got %+v", res.Groups)
	}
	if len(res.Residual) != 1 || res.Residual[0].FileID != records[2].FileID || res.Residual[0].Reason != segment.ReasonTooShort {
		t.Fatalf("expected the shot after the break to stand alone, got %+v", res.Residual)
	}
}

func TestOutOfOrderFeedClosesRun(t *testing.T) {
	p := newPattern(t, []float64{-2, 0, 2}, pattern.WithMatchMode(pattern.Multiset))
	s, err := segment.New(p, segment.Options{MinGroupSize: 1})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	records := stream(burst(0, -2, 0, 2)...)
	s.Feed(records[1])
	s.Feed(records[0])
	if !s.Accumulating() {
		t.Fatal("expected an open run")
	}
	res := s.Close()
	if len(res.Groups) != 2 {
		t.Fatalf("expected the earlier record to start a new run, got %+v", res.Groups)
	}
	if s.Accumulating() || len(s.Close().Groups) != 0 {
		t.Fatal("Close should reset the segmenter")
	}
}

func TestMultisetDuplicatePattern(t *testing.T) {
	p := newPattern(t, []float64{0, -2, 0, 2}, pattern.WithMatchMode(pattern.Multiset))
	res := run(t, p, segment.Options{}, stream(burst(0, 0, -2, 0, 2)...))
	if len(res.Groups) != 1 || res.Groups[0].Completeness != segment.Complete {
		t.Fatalf("expected complete group, got %+v", res)
	}
	seen := map[int]bool{}
	for _, slot := range res.Groups[0].Alignment {
		if seen[slot] {
			t.Fatalf("slot %d assigned twice: %v", slot, res.Groups[0].Alignment)
		}
		seen[slot] = true
	}
}

func TestTimestampCollisionsOrderByFileID(t *testing.T) {
	p := newPattern(t, []float64{-2, 0, 2})
	records := stream(shot{ev: 2}, shot{ev: 0}, shot{ev: -2})
	records[0].FileID, records[1].FileID, records[2].FileID = "c.arw", "b.arw", "a.arw"

	res := run(t, p, segment.Options{}, records)
	if len(res.Groups) != 1 || res.Groups[0].Completeness != segment.Complete {
		t.Fatalf("expected complete group, got %+v", res)
	}
	if !reflect.DeepEqual(res.Groups[0].Members, []string{"a.arw", "b.arw", "c.arw"}) {
		t.Fatalf("unexpected members %v", res.Groups[0].Members)
	}
}

func TestEveryRecordAccountedOnceAndDeterministic(t *testing.T) {
	p := newPattern(t, []float64{-1, 0, 1})
	shots := join(
		burst(0, -1, 0, 1),
		burst(5*time.Second, math.NaN(), 3),
		burst(12*time.Second, -1, 0, math.NaN(), 0, 1),
		burst(30*time.Second, -1, 0),
		burst(40*time.Second, -1, 0.2, 1),
		[]shot{{ev: 4, offset: 50 * time.Second}},
	)
	records := stream(shots...)

	first := run(t, p, segment.Options{}, records)
	second := run(t, p, segment.Options{}, records)
	if !reflect.DeepEqual(first, second) {
		t.Fatal("segmentation is not deterministic")
	}

	seen := make(map[string]int)
	for _, g := range first.Groups {
		for _, id := range g.Members {
			seen[id]++
		}
	}
	for _, id := range first.ResidualIDs() {
		seen[id]++
	}
	if len(seen) != len(records) {
		t.Fatalf("accounted %d of %d records", len(seen), len(records))
	}
	for id, n := range seen {
		if n != 1 {
			t.Fatalf("%s accounted %d times", id, n)
		}
	}
	if first.Members()+len(first.Residual) != len(records) {
		t.Fatalf("members %d + residual %d != %d", first.Members(), len(first.Residual), len(records))
	}
}

func TestNewRejectsInvalidConfiguration(t *testing.T) {
	if _, err := segment.New(pattern.Pattern{}, segment.Options{}); !errors.Is(err, faults.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	p := newPattern(t, []float64{-2, 0, 2})
	if _, err := segment.New(p, segment.Options{AcceptanceThreshold: 1.5}); !errors.Is(err, faults.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if _, err := segment.New(p, segment.Options{MinGroupSize: -1}); !errors.Is(err, faults.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
