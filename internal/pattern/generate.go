package pattern

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"bracketeer/internal/faults"
)

// Order is the shooting order a camera uses for symmetric brackets.
type Order int

const (
	// ZeroMinusPlus shoots 0, -s, +s, -2s, +2s, ...
	ZeroMinusPlus Order = iota
	// MinusZeroPlus shoots from the darkest to the brightest frame.
	MinusZeroPlus
)

func (o Order) String() string {
	if o == MinusZeroPlus {
		return "minus-zero-plus"
	}
	return "zero-minus-plus"
}

// ParseOrder accepts "zero-minus-plus" or "minus-zero-plus".
func ParseOrder(value string) (Order, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "zero-minus-plus", "0-+":
		return ZeroMinusPlus, nil
	case "minus-zero-plus", "-0+", "ascending":
		return MinusZeroPlus, nil
	default:
		return ZeroMinusPlus, faults.Wrap(faults.ErrConfiguration, "pattern", "parse order", fmt.Sprintf("unsupported value %q", value), nil)
	}
}

// Generate builds a symmetric bracket of count shots spaced step stops apart.
func Generate(step float64, count int, order Order) ([]float64, error) {
	if !(step > 0) {
		return nil, configErr("ev step must be positive")
	}
	if count < 3 || count%2 == 0 || count > 15 {
		return nil, configErr("bracket shot count must be odd and between 3 and 15")
	}
	half := (count - 1) / 2
	offsets := make([]float64, 0, count)
	switch order {
	case MinusZeroPlus:
		for i := -half; i <= half; i++ {
			offsets = append(offsets, round3(step*float64(i)))
		}
		sort.Float64s(offsets)
	default:
		offsets = append(offsets, 0)
		for i := 1; i <= half; i++ {
			offsets = append(offsets, round3(-step*float64(i)), round3(step*float64(i)))
		}
	}
	return offsets, nil
}

func round3(v float64) float64 {
	r := math.Round(v*1000) / 1000
	if r == 0 {
		return 0
	}
	return r
}
