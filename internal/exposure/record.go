package exposure

import (
	"math"
	"sort"
	"time"
)

// Mode is the EXIF ExposureMode reported by the camera.
type Mode uint8

const (
	ModeUnknown Mode = iota
	ModeAuto
	ModeManual
	ModeAutoBracket
)

// ModeFromEXIF maps the raw EXIF ExposureMode tag value.
func ModeFromEXIF(value int) Mode {
	switch value {
	case 0:
		return ModeAuto
	case 1:
		return ModeManual
	case 2:
		return ModeAutoBracket
	default:
		return ModeUnknown
	}
}

func (m Mode) String() string {
	switch m {
	case ModeAuto:
		return "Auto exposure"
	case ModeManual:
		return "Manual exposure"
	case ModeAutoBracket:
		return "Auto bracket"
	default:
		return "Unknown"
	}
}

// Record is the normalized metadata of one physical file.
type Record struct {
	FileID     string
	CapturedAt time.Time
	Bias       EV
	// ExposureTime is the shutter speed in seconds, 0 when absent.
	ExposureTime float64
	// FNumber is the aperture, 0 when absent.
	FNumber float64
	// ISO is the sensitivity, 0 when absent.
	ISO   int
	Model string
	Mode  Mode
}

// HasBias reports whether the record carries an exposure-bias value.
func (r Record) HasBias() bool {
	return r.Bias.Known()
}

// SettingsEV returns the exposure value implied by shutter, aperture and ISO,
// normalized to ISO 100. A brighter exposure yields a lower value. The second
// result is false when shutter or aperture are missing.
func (r Record) SettingsEV() (float64, bool) {
	if r.ExposureTime <= 0 || r.FNumber <= 0 {
		return 0, false
	}
	ev := math.Log2(r.FNumber * r.FNumber / r.ExposureTime)
	if r.ISO > 0 {
		ev -= math.Log2(float64(r.ISO) / 100)
	}
	return ev, true
}

// Less orders records by capture time, then by file id.
func Less(a, b Record) bool {
	if !a.CapturedAt.Equal(b.CapturedAt) {
		return a.CapturedAt.Before(b.CapturedAt)
	}
	return a.FileID < b.FileID
}

// Sort orders records in place into the canonical stream order.
func Sort(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		return Less(records[i], records[j])
	})
}
