package pattern

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"bracketeer/internal/exposure"
	"bracketeer/internal/faults"
)

const (
	// DefaultTolerance is one sixth of a stop.
	DefaultTolerance = 1.0 / 6
	// DefaultMaxIntraGap covers typical bracket burst rates including slow
	// shutter speeds in the brightest frame.
	DefaultMaxIntraGap = 2 * time.Second
	// DefaultAuxWeight is the credit share an EV-less shot can earn from its
	// shutter/aperture/ISO settings.
	DefaultAuxWeight = 0.5
)

// MatchMode selects positional or order-insensitive matching.
type MatchMode int

const (
	Ordered MatchMode = iota
	Multiset
)

func (m MatchMode) String() string {
	if m == Multiset {
		return "multiset"
	}
	return "ordered"
}

// ParseMatchMode accepts "ordered" or "multiset".
func ParseMatchMode(value string) (MatchMode, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "ordered", "positional":
		return Ordered, nil
	case "multiset", "unordered":
		return Multiset, nil
	default:
		return Ordered, faults.Wrap(faults.ErrConfiguration, "pattern", "parse match mode", fmt.Sprintf("unsupported value %q", value), nil)
	}
}

// EVMode selects how observed exposure-bias values relate to the offsets.
type EVMode int

const (
	// Absolute compares raw exposure-bias values with the offsets.
	Absolute EVMode = iota
	// Relative subtracts a per-run baseline first, so brackets shot with
	// exposure compensation still match.
	Relative
)

func (m EVMode) String() string {
	if m == Relative {
		return "relative"
	}
	return "absolute"
}

// ParseEVMode accepts "absolute" or "relative" ("delta" is an alias).
func ParseEVMode(value string) (EVMode, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "absolute":
		return Absolute, nil
	case "relative", "delta":
		return Relative, nil
	default:
		return Absolute, faults.Wrap(faults.ErrConfiguration, "pattern", "parse ev mode", fmt.Sprintf("unsupported value %q", value), nil)
	}
}

// Pattern is one complete bracket as the camera shoots it.
type Pattern struct {
	// Offsets are in shooting order, not sorted by magnitude.
	Offsets     []float64
	Tolerance   float64
	MaxIntraGap time.Duration
	Mode        MatchMode
	EVMode      EVMode
	AuxWeight   float64
}

// Option customizes a Pattern built by New.
type Option func(*Pattern)

func WithTolerance(tol float64) Option { return func(p *Pattern) { p.Tolerance = tol } }

func WithMaxIntraGap(gap time.Duration) Option { return func(p *Pattern) { p.MaxIntraGap = gap } }

func WithMatchMode(mode MatchMode) Option { return func(p *Pattern) { p.Mode = mode } }

func WithEVMode(mode EVMode) Option { return func(p *Pattern) { p.EVMode = mode } }

func WithAuxWeight(weight float64) Option { return func(p *Pattern) { p.AuxWeight = weight } }

// New builds a validated pattern with default tolerances.
func New(offsets []float64, opts ...Option) (Pattern, error) {
	p := Pattern{
		Offsets:     append([]float64(nil), offsets...),
		Tolerance:   DefaultTolerance,
		MaxIntraGap: DefaultMaxIntraGap,
		Mode:        Ordered,
		EVMode:      Absolute,
		AuxWeight:   DefaultAuxWeight,
	}
	for _, opt := range opts {
		opt(&p)
	}
	if err := p.Validate(); err != nil {
		return Pattern{}, err
	}
	return p, nil
}

// Validate rejects patterns that cannot be matched.
func (p Pattern) Validate() error {
	if len(p.Offsets) == 0 {
		return configErr("ev offsets must not be empty")
	}
	if len(p.Offsets) < 2 {
		return configErr("a bracket needs at least two ev offsets")
	}
	for i, v := range p.Offsets {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return configErr(fmt.Sprintf("ev offset %d is not a finite number", i))
		}
	}
	if !(p.Tolerance > 0) {
		return configErr("tolerance_ev must be positive")
	}
	if p.MaxIntraGap <= 0 {
		return configErr("max_intra_gap must be positive")
	}
	if p.AuxWeight < 0 || p.AuxWeight > 1 {
		return configErr("aux_weight must be between 0 and 1")
	}
	if p.EVMode == Relative && p.zeroSlot() < 0 {
		return configErr("relative ev mode requires a 0 offset to act as the reference")
	}
	return nil
}

// Len returns the number of shots in one bracket.
func (p Pattern) Len() int {
	return len(p.Offsets)
}

// HardReject is the deviation beyond which a known offset disqualifies a run.
func (p Pattern) HardReject() float64 {
	return 2 * p.Tolerance
}

func (p Pattern) String() string {
	return Format(p.Offsets)
}

func (p Pattern) zeroSlot() int {
	for i, v := range p.Offsets {
		if math.Abs(v) < 1e-9 {
			return i
		}
	}
	return -1
}

func configErr(message string) error {
	return faults.Wrap(faults.ErrConfiguration, "pattern", "validate", message, nil)
}

// Parse converts a comma separated EV list ("0, -2, +2", "0/10, -20/10") to offsets.
func Parse(list string) ([]float64, error) {
	evs, err := exposure.ParseList(list)
	if err != nil {
		return nil, faults.Wrap(faults.ErrConfiguration, "pattern", "parse", "invalid ev list", err)
	}
	out := make([]float64, len(evs))
	for i, ev := range evs {
		out[i] = ev.Float()
	}
	return out, nil
}

// Format renders offsets the way Parse reads them. Values close to sixths of
// a stop print as rationals.
func Format(offsets []float64) string {
	parts := make([]string, len(offsets))
	for i, v := range offsets {
		parts[i] = formatOffset(v)
	}
	return strings.Join(parts, ", ")
}

func formatOffset(v float64) string {
	if math.Abs(v) < 1e-9 {
		return "0"
	}
	sixths := math.Round(v * 6)
	if math.Abs(v-sixths/6) < 1e-3 {
		return exposure.NewEV(int64(sixths), 6).String()
	}
	s := strconv.FormatFloat(v, 'f', 3, 64)
	s = strings.TrimRight(strings.TrimRight(s, "0"), ".")
	if v > 0 {
		s = "+" + s
	}
	return s
}
