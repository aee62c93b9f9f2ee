package testsupport

import (
	"fmt"
	"testing"
	"time"

	"bracketeer/internal/exposure"
)

// Records builds an in-memory stream with one record per EV token, spaced gap
// apart from start. The token "?" yields a record without exposure bias.
func Records(t testing.TB, start time.Time, gap time.Duration, evs ...string) []exposure.Record {
	t.Helper()
	out := make([]exposure.Record, len(evs))
	for i, token := range evs {
		rec := exposure.Record{
			FileID:     fmt.Sprintf("/photos/DSC%05d.ARW", i+1),
			CapturedAt: start.Add(time.Duration(i) * gap),
		}
		if token != "?" {
			ev, err := exposure.ParseEV(token)
			if err != nil {
				t.Fatalf("parse ev %q: %v", token, err)
			}
			rec.Bias = ev
		}
		out[i] = rec
	}
	return out
}
