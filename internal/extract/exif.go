package extract

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"

	"bracketeer/internal/exposure"
)

// Extractor reads one file into a record.
type Extractor interface {
	Extract(ctx context.Context, path string) (exposure.Record, error)
}

// ExifExtractor is the goexif-backed Extractor.
type ExifExtractor struct{}

const (
	rafMagic       = "FUJIFILMCCD-RAW"
	rafJPEGOffset  = 84
	sniffSize      = 96
	tiffMagicValue = 42
)

// Extract decodes the EXIF block of path. A file without DateTimeOriginal is
// timestamped with its modification time. A file without ExposureBiasValue
// yields the record together with a MissingExposureTag error.
func (ExifExtractor) Extract(ctx context.Context, path string) (exposure.Record, error) {
	rec := exposure.Record{FileID: path}
	if err := ctx.Err(); err != nil {
		return rec, err
	}

	f, err := os.Open(path)
	if err != nil {
		return rec, &Error{Kind: CorruptFile, Path: path, Err: err}
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return rec, &Error{Kind: CorruptFile, Path: path, Err: err}
	}

	src, err := exifSource(f, info.Size())
	if err != nil {
		return rec, &Error{Kind: UnsupportedFormat, Path: path, Err: err}
	}

	x, err := exif.Decode(src)
	if err != nil && (x == nil || exif.IsCriticalError(err)) {
		return rec, &Error{Kind: CorruptFile, Path: path, Err: err}
	}

	fill(&rec, x)
	if rec.CapturedAt.IsZero() {
		rec.CapturedAt = info.ModTime()
	}
	if !rec.HasBias() {
		return rec, &Error{Kind: MissingExposureTag, Path: path}
	}
	return rec, nil
}

// exifSource sniffs the container and returns a reader positioned on data
// exif.Decode understands.
func exifSource(f *os.File, size int64) (io.Reader, error) {
	head := make([]byte, sniffSize)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, fmt.Errorf("read header: %w", err)
	}
	head = head[:n]

	switch {
	case n >= 2 && head[0] == 0xFF && head[1] == 0xD8:
		return io.NewSectionReader(f, 0, size), nil
	case n >= 4 && isTIFF(head):
		return io.NewSectionReader(f, 0, size), nil
	case n >= 4 && isTIFFVariant(head):
		// ORF and RW2 are TIFF with a vendor magic number.
		fixed := append([]byte(nil), head[:4]...)
		order := byteOrder(fixed)
		order.PutUint16(fixed[2:4], tiffMagicValue)
		return io.MultiReader(bytes.NewReader(fixed), io.NewSectionReader(f, 4, size-4)), nil
	case bytes.HasPrefix(head, []byte(rafMagic)):
		if n < rafJPEGOffset+8 {
			return nil, errors.New("truncated raf header")
		}
		offset := int64(binary.BigEndian.Uint32(head[rafJPEGOffset:]))
		length := int64(binary.BigEndian.Uint32(head[rafJPEGOffset+4:]))
		if offset <= 0 || length <= 0 || offset+length > size {
			return nil, errors.New("raf preview outside file")
		}
		return io.NewSectionReader(f, offset, length), nil
	default:
		return nil, errors.New("no exif container signature")
	}
}

func isTIFF(head []byte) bool {
	return bytes.HasPrefix(head, []byte("II*\x00")) || bytes.HasPrefix(head, []byte("MM\x00*"))
}

func isTIFFVariant(head []byte) bool {
	for _, magic := range []string{"IIRO", "IIRS", "MMOR", "IIU\x00"} {
		if bytes.HasPrefix(head, []byte(magic)) {
			return true
		}
	}
	return false
}

func byteOrder(head []byte) binary.ByteOrder {
	if head[0] == 'M' {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

func fill(rec *exposure.Record, x *exif.Exif) {
	if num, den, ok := rational(x, exif.ExposureBiasValue); ok {
		rec.Bias = exposure.NewEV(num, den)
	}
	if num, den, ok := rational(x, exif.ExposureTime); ok && den != 0 {
		rec.ExposureTime = float64(num) / float64(den)
	}
	if num, den, ok := rational(x, exif.FNumber); ok && den != 0 {
		rec.FNumber = float64(num) / float64(den)
	}
	if v, ok := integer(x, exif.ISOSpeedRatings); ok {
		rec.ISO = v
	}
	if v, ok := integer(x, exif.ExposureMode); ok {
		rec.Mode = exposure.ModeFromEXIF(v)
	}
	if tag, err := x.Get(exif.Model); err == nil {
		if s, err := tag.StringVal(); err == nil {
			rec.Model = strings.TrimSpace(strings.TrimRight(s, "\x00"))
		}
	}
	if ts, err := x.DateTime(); err == nil {
		rec.CapturedAt = ts.Add(subSeconds(x))
	}
}

func rational(x *exif.Exif, name exif.FieldName) (int64, int64, bool) {
	tag, err := x.Get(name)
	if err != nil || tag.Format() != tiff.RatVal || tag.Count == 0 {
		return 0, 0, false
	}
	num, den, err := tag.Rat2(0)
	if err != nil {
		return 0, 0, false
	}
	return num, den, true
}

func integer(x *exif.Exif, name exif.FieldName) (int, bool) {
	tag, err := x.Get(name)
	if err != nil || tag.Format() != tiff.IntVal || tag.Count == 0 {
		return 0, false
	}
	v, err := tag.Int(0)
	if err != nil {
		return 0, false
	}
	return v, true
}

// subSeconds reads SubSecTimeOriginal ("04" means 40ms).
func subSeconds(x *exif.Exif) time.Duration {
	tag, err := x.Get(exif.SubSecTimeOriginal)
	if err != nil {
		return 0
	}
	s, err := tag.StringVal()
	if err != nil {
		return 0
	}
	s = strings.TrimSpace(strings.TrimRight(s, "\x00"))
	if s == "" || len(s) > 9 {
		return 0
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return 0
	}
	for i := len(s); i < 9; i++ {
		v *= 10
	}
	return time.Duration(v)
}
