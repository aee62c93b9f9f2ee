package pattern

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"bracketeer/internal/exposure"
	"bracketeer/internal/faults"
)

// ErrNoBracket is returned when a sample window holds fewer than two
// distinct exposure-bias levels.
var ErrNoBracket = errors.New("sample window does not contain a bracket")

// clusterGapFactor multiplies the tolerance to obtain the split distance
// between adjacent sorted EV values.
const clusterGapFactor = 3

// Cluster is one exposure-bias level found in a sample window.
type Cluster struct {
	Center float64
	// Members counts the shots in the cluster.
	Members int
	// FirstIndex is the window position of the cluster's first shot.
	FirstIndex int
}

// Candidate is a proposed pattern. It is a suggestion for the caller to
// confirm, never applied automatically.
type Candidate struct {
	Offsets  []float64
	Clusters []Cluster
	// Skipped counts shots without an exposure-bias value.
	Skipped int
}

// Discover clusters the exposure-bias values of a sample window and proposes
// the distinct levels, ordered by first occurrence, as a pattern. Cluster
// centers within tolerance of a sixth of a stop are snapped to it.
func Discover(window []exposure.Record, tolerance float64) (Candidate, error) {
	if !(tolerance > 0) {
		return Candidate{}, faults.Wrap(faults.ErrConfiguration, "discover", "validate", "tolerance_ev must be positive", nil)
	}
	ordered := append([]exposure.Record(nil), window...)
	exposure.Sort(ordered)

	type sample struct {
		ev    float64
		index int
	}
	samples := make([]sample, 0, len(ordered))
	var skipped int
	for i, rec := range ordered {
		if !rec.HasBias() {
			skipped++
			continue
		}
		samples = append(samples, sample{ev: rec.Bias.Float(), index: i})
	}
	sort.SliceStable(samples, func(i, j int) bool { return samples[i].ev < samples[j].ev })

	var clusters []Cluster
	var sum float64
	start := 0
	flush := func(end int) {
		if end <= start {
			return
		}
		first := samples[start].index
		for _, s := range samples[start:end] {
			first = min(first, s.index)
		}
		clusters = append(clusters, Cluster{
			Center:     snap(sum/float64(end-start), tolerance),
			Members:    end - start,
			FirstIndex: first,
		})
	}
	for i, s := range samples {
		if i > start && s.ev-samples[i-1].ev > clusterGapFactor*tolerance {
			flush(i)
			start, sum = i, 0
		}
		sum += s.ev
	}
	flush(len(samples))

	if len(clusters) < 2 {
		return Candidate{Clusters: clusters, Skipped: skipped}, faults.Wrap(
			faults.ErrValidation, "discover", "cluster",
			fmt.Sprintf("found %d exposure level(s) in %d shots", len(clusters), len(ordered)),
			ErrNoBracket,
		)
	}

	sort.SliceStable(clusters, func(i, j int) bool { return clusters[i].FirstIndex < clusters[j].FirstIndex })
	offsets := make([]float64, len(clusters))
	for i, c := range clusters {
		offsets[i] = c.Center
	}
	return Candidate{Offsets: offsets, Clusters: clusters, Skipped: skipped}, nil
}

func snap(center, tolerance float64) float64 {
	snapped := math.Round(center*6) / 6
	if math.Abs(snapped-center) <= tolerance {
		if snapped == 0 {
			return 0
		}
		return snapped
	}
	return center
}
