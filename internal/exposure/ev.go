package exposure

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
)

// EV is an exposure offset in stops. The zero value is Unknown.
type EV struct {
	num int64
	den int64
}

// Unknown marks an absent exposure-bias value.
var Unknown = EV{}

// ErrInvalidEV is returned when an EV token cannot be parsed.
var ErrInvalidEV = errors.New("invalid exposure value")

// NewEV builds a reduced rational EV. A zero denominator yields Unknown.
func NewEV(num, den int64) EV {
	if den == 0 {
		return Unknown
	}
	if den < 0 {
		num, den = -num, -den
	}
	if g := gcd(abs64(num), den); g > 1 {
		num /= g
		den /= g
	}
	if num == 0 {
		den = 1
	}
	return EV{num: num, den: den}
}

// Stops returns an integral EV.
func Stops(n int64) EV {
	return EV{num: n, den: 1}
}

// Known reports whether the value was present.
func (e EV) Known() bool {
	return e.den != 0
}

// Num returns the reduced numerator.
func (e EV) Num() int64 { return e.num }

// Den returns the reduced denominator, 0 when unknown.
func (e EV) Den() int64 { return e.den }

// Float returns the offset in stops. Unknown values return NaN.
func (e EV) Float() float64 {
	if !e.Known() {
		return math.NaN()
	}
	return float64(e.num) / float64(e.den)
}

// String renders the value with an explicit sign, e.g. "+2", "-2/3", "0".
func (e EV) String() string {
	if !e.Known() {
		return "unknown"
	}
	var sign string
	if e.num > 0 {
		sign = "+"
	}
	if e.den == 1 {
		return sign + strconv.FormatInt(e.num, 10)
	}
	return fmt.Sprintf("%s%d/%d", sign, e.num, e.den)
}

// ParseEV parses an integer ("-2"), decimal ("0.7") or rational ("-2/3") token.
// A leading "+" is accepted.
func ParseEV(token string) (EV, error) {
	value := strings.TrimSpace(token)
	value = strings.TrimPrefix(value, "+")
	if value == "" {
		return Unknown, fmt.Errorf("%w: empty token", ErrInvalidEV)
	}
	if num, den, ok := strings.Cut(value, "/"); ok {
		n, err := strconv.ParseInt(strings.TrimSpace(num), 10, 64)
		if err != nil {
			return Unknown, fmt.Errorf("%w: %q", ErrInvalidEV, token)
		}
		d, err := strconv.ParseInt(strings.TrimSpace(den), 10, 64)
		if err != nil || d == 0 {
			return Unknown, fmt.Errorf("%w: %q", ErrInvalidEV, token)
		}
		return NewEV(n, d), nil
	}
	r, ok := new(big.Rat).SetString(value)
	if !ok || !r.Num().IsInt64() || !r.Denom().IsInt64() {
		return Unknown, fmt.Errorf("%w: %q", ErrInvalidEV, token)
	}
	return NewEV(r.Num().Int64(), r.Denom().Int64()), nil
}

// ParseList parses a comma separated list of EV tokens.
func ParseList(list string) ([]EV, error) {
	trimmed := strings.TrimSpace(list)
	if trimmed == "" {
		return nil, nil
	}
	parts := strings.Split(trimmed, ",")
	out := make([]EV, 0, len(parts))
	for _, part := range parts {
		ev, err := ParseEV(part)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, nil
}

func gcd(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
