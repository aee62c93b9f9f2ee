package extract_test

import (
	"context"
	"errors"
	"math"
	"os"
	"testing"
	"time"

	"bracketeer/internal/exposure"
	"bracketeer/internal/extract"
	"bracketeer/internal/faults"
	"bracketeer/internal/testsupport"
)

var taken = time.Date(2025, 2, 3, 10, 20, 30, 0, time.Local)

func TestExtractContainers(t *testing.T) {
	shot := testsupport.Bias(-2, taken)
	shot.Mode = 3 // Auto bracket
	shot.SubSec = "25"

	tests := []struct {
		name string
		data []byte
	}{
		{name: "a.tif", data: testsupport.TIFF(shot)},
		{name: "a.jpg", data: testsupport.JPEG(shot)},
		{name: "a.raf", data: testsupport.RAF(shot)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := testsupport.WritePhoto(t, t.TempDir(), tt.name, tt.data)
			rec, err := extract.ExifExtractor{}.Extract(context.Background(), path)
			if err != nil {
				t.Fatalf("Extract: %v", err)
			}
			if rec.FileID != path {
				t.Fatalf("file id = %q", rec.FileID)
			}
			if rec.Bias != exposure.NewEV(-2, 3) {
				t.Fatalf("bias = %v", rec.Bias)
			}
			if math.Abs(rec.ExposureTime-1.0/125) > 1e-12 || rec.FNumber != 8 || rec.ISO != 100 {
				t.Fatalf("settings = %v %v %v", rec.ExposureTime, rec.FNumber, rec.ISO)
			}
			if rec.Model != "TEST-CAM" || rec.Mode != exposure.ModeAutoBracket {
				t.Fatalf("model/mode = %q %v", rec.Model, rec.Mode)
			}
			if want := taken.Add(250 * time.Millisecond); !rec.CapturedAt.Equal(want) {
				t.Fatalf("captured = %v, want %v", rec.CapturedAt, want)
			}
		})
	}
}

func TestExtractVendorTIFFMagic(t *testing.T) {
	data := testsupport.TIFF(testsupport.Bias(3, taken))
	data[2], data[3] = 'R', 'O' // Olympus ORF
	path := testsupport.WritePhoto(t, t.TempDir(), "a.orf", data)

	rec, err := extract.ExifExtractor{}.Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if rec.Bias != exposure.Stops(1) {
		t.Fatalf("bias = %v", rec.Bias)
	}
}

func TestExtractMissingBiasFallsBackToModTime(t *testing.T) {
	shot := testsupport.Shot{ShutterDen: 60, FNumberTenths: 40, ISO: 400}
	path := testsupport.WritePhoto(t, t.TempDir(), "manual.jpg", testsupport.JPEG(shot))
	mod := time.Date(2024, 12, 24, 8, 0, 0, 0, time.UTC)
	if err := os.Chtimes(path, mod, mod); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	rec, err := extract.ExifExtractor{}.Extract(context.Background(), path)
	if extract.KindOf(err) != extract.MissingExposureTag {
		t.Fatalf("expected missing exposure tag, got %v", err)
	}
	if !errors.Is(err, faults.ErrExtraction) || extract.Fatal(err) {
		t.Fatalf("missing tag must be a non-fatal extraction error: %v", err)
	}
	if rec.HasBias() || !rec.CapturedAt.Equal(mod) || rec.ISO != 400 {
		t.Fatalf("unexpected record %+v", rec)
	}
}

func TestExtractFailures(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		path string
		want extract.Kind
	}{
		{name: "unsupported", path: testsupport.WriteFiller(t, dir, "notes.cr3", 256), want: extract.UnsupportedFormat},
		{name: "corrupt jpeg", path: testsupport.WritePhoto(t, dir, "broken.jpg", []byte{0xFF, 0xD8, 0xFF, 0xD9}), want: extract.CorruptFile},
		{name: "missing file", path: dir + "/gone.arw", want: extract.CorruptFile},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := extract.ExifExtractor{}.Extract(context.Background(), tt.path)
			if got := extract.KindOf(err); got != tt.want {
				t.Fatalf("kind = %v, want %v (err %v)", got, tt.want, err)
			}
			if !extract.Fatal(err) {
				t.Fatalf("expected fatal error, got %v", err)
			}
		})
	}
}
