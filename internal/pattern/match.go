package pattern

import (
	"math"

	"bracketeer/internal/exposure"
)

// Observation is what the matcher sees of one shot.
type Observation struct {
	EV    float64
	Known bool
	// Settings is the exposure value implied by shutter, aperture and ISO.
	Settings    float64
	HasSettings bool
}

// Observe extracts the matcher inputs from a record.
func Observe(r exposure.Record) Observation {
	obs := Observation{Known: r.HasBias()}
	if obs.Known {
		obs.EV = r.Bias.Float()
	}
	obs.Settings, obs.HasSettings = r.SettingsEV()
	return obs
}

// MatchResult is the outcome of scoring one candidate run.
type MatchResult struct {
	// Score is in [0,1]; 0 means hard reject.
	Score float64
	// Alignment maps candidate index to pattern index, -1 when unassigned.
	Alignment []int
	// Cost is the summed absolute deviation of the assigned positions.
	Cost float64
	// Rejected is set when a known offset deviated beyond the hard-reject bound.
	Rejected bool
	// Baseline is the EV subtracted from observations in relative mode.
	Baseline float64
}

// MatchScore scores a candidate run of observations against the pattern.
// The score is normalized over the candidate's positions so a truncated run
// that matches its prefix scores as well as a complete one.
func MatchScore(candidate []Observation, p Pattern) MatchResult {
	if len(candidate) == 0 {
		return MatchResult{Alignment: []int{}}
	}
	if p.Mode == Multiset {
		return matchMultiset(candidate, p)
	}
	return matchOrdered(candidate, p)
}

func matchOrdered(candidate []Observation, p Pattern) MatchResult {
	base := 0.0
	if p.EVMode == Relative {
		base = orderedBaseline(candidate, p)
	}
	values := effectiveValues(candidate, base)

	res := MatchResult{Alignment: make([]int, len(candidate)), Baseline: base}
	var credit float64
	for i := range candidate {
		if i >= len(p.Offsets) {
			res.Alignment[i] = -1
			continue
		}
		res.Alignment[i] = i
		c, d, reject := p.credit(values[i], p.Offsets[i])
		if reject {
			return MatchResult{Alignment: res.Alignment, Rejected: true, Baseline: base}
		}
		credit += c
		res.Cost += d
	}
	res.Score = credit / float64(len(candidate))
	return res
}

func matchMultiset(candidate []Observation, p Pattern) MatchResult {
	if p.EVMode != Relative {
		return assignAgainst(candidate, p, 0)
	}
	zero := p.Offsets[p.zeroSlot()]
	var (
		best  MatchResult
		found bool
	)
	for _, obs := range candidate {
		if !obs.Known {
			continue
		}
		res := assignAgainst(candidate, p, obs.EV-zero)
		if !found || better(res, best) {
			best, found = res, true
		}
	}
	if !found {
		return assignAgainst(candidate, p, 0)
	}
	return best
}

func better(a, b MatchResult) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.Cost < b.Cost
}

func assignAgainst(candidate []Observation, p Pattern, base float64) MatchResult {
	values := effectiveValues(candidate, base)
	rows, cols := len(candidate), len(p.Offsets)
	size := max(rows, cols)

	cost := make([][]float64, size)
	for i := range cost {
		cost[i] = make([]float64, size)
		if i >= rows || !values[i].usable() {
			continue
		}
		for j := 0; j < cols; j++ {
			cost[i][j] = math.Abs(values[i].ev - p.Offsets[j])
		}
	}
	rowToCol := assign(cost)

	res := MatchResult{Alignment: make([]int, rows), Baseline: base}
	var credit float64
	for i := 0; i < rows; i++ {
		j := rowToCol[i]
		if j >= cols {
			res.Alignment[i] = -1
			continue
		}
		res.Alignment[i] = j
		c, d, reject := p.credit(values[i], p.Offsets[j])
		if reject {
			return MatchResult{Alignment: res.Alignment, Rejected: true, Baseline: base}
		}
		if values[i].known {
			c = assignedCredit(d, p.HardReject())
		}
		credit += c
		res.Cost += d
	}
	res.Score = credit / float64(rows)
	return res
}

// assignedCredit turns the assignment cost of one known shot into credit:
// 1 at zero deviation, falling linearly to 0 at the hard reject distance.
func assignedCredit(d, hardReject float64) float64 {
	if hardReject <= 0 {
		if d == 0 {
			return 1
		}
		return 0
	}
	return min(1, max(0, 1-d/hardReject))
}

// value is an observation after baseline correction. Inferred values come
// from the exposure triangle of an EV-less shot.
type value struct {
	ev       float64
	known    bool
	inferred bool
}

func (v value) usable() bool { return v.known || v.inferred }

func effectiveValues(candidate []Observation, base float64) []value {
	values := make([]value, len(candidate))
	ref := -1
	for i, obs := range candidate {
		if obs.Known && obs.HasSettings {
			ref = i
			break
		}
	}
	for i, obs := range candidate {
		switch {
		case obs.Known:
			values[i] = value{ev: obs.EV - base, known: true}
		case ref >= 0 && obs.HasSettings:
			r := candidate[ref]
			inferred := r.EV + (r.Settings - obs.Settings)
			values[i] = value{ev: inferred - base, inferred: true}
		}
	}
	return values
}

func orderedBaseline(candidate []Observation, p Pattern) float64 {
	z := p.zeroSlot()
	if z < len(candidate) && candidate[z].Known {
		return candidate[z].EV - p.Offsets[z]
	}
	for i, obs := range candidate {
		if obs.Known && i < len(p.Offsets) {
			return obs.EV - p.Offsets[i]
		}
	}
	return 0
}

// credit returns the position credit, its deviation and whether it forces a
// hard reject. EV-less positions never reject.
func (p Pattern) credit(v value, expected float64) (float64, float64, bool) {
	if !v.usable() {
		return 0, 0, false
	}
	d := math.Abs(v.ev - expected)
	if v.known {
		switch {
		case d <= p.Tolerance:
			return 1, d, false
		case d > p.HardReject():
			return 0, d, true
		default:
			return 0, d, false
		}
	}
	if d <= p.Tolerance {
		return p.AuxWeight, 0, false
	}
	return 0, 0, false
}
