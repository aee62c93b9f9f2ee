package testsupport

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// Shot describes the EXIF tags written by the fixture encoders. Zero values
// omit the tag.
type Shot struct {
	// BiasNum/BiasDen is ExposureBiasValue; HasBias must be set to write it.
	BiasNum, BiasDen int32
	HasBias          bool
	// ExposureTime is written as 1/ShutterDen seconds.
	ShutterDen uint32
	// FNumber is written as FNumberTenths/10.
	FNumberTenths uint32
	ISO           uint16
	Model         string
	// Mode is the EXIF ExposureMode value plus one; 0 omits the tag.
	Mode   uint16
	Taken  time.Time
	SubSec string
}

// Bias returns a shot with the given exposure bias in thirds of a stop.
func Bias(thirds int32, taken time.Time) Shot {
	return Shot{BiasNum: thirds, BiasDen: 3, HasBias: true, ShutterDen: 125, FNumberTenths: 80, ISO: 100, Model: "TEST-CAM", Taken: taken}
}

const (
	tagModel        = 0x0110
	tagExifIFD      = 0x8769
	tagExposureTime = 0x829A
	tagFNumber      = 0x829D
	tagISO          = 0x8827
	tagDateOriginal = 0x9003
	tagExposureBias = 0x9204
	tagSubSecOrig   = 0x9291
	tagExposureMode = 0xA402

	typeASCII     = 2
	typeShort     = 3
	typeLong      = 4
	typeRational  = 5
	typeSRational = 10
)

type entry struct {
	tag   uint16
	typ   uint16
	count uint32
	data  []byte
}

var le = binary.LittleEndian

func ascii(tag uint16, s string) entry {
	data := append([]byte(s), 0)
	return entry{tag: tag, typ: typeASCII, count: uint32(len(data)), data: data}
}

func short(tag uint16, v uint16) entry {
	data := make([]byte, 2)
	le.PutUint16(data, v)
	return entry{tag: tag, typ: typeShort, count: 1, data: data}
}

func rational(tag uint16, typ uint16, num, den uint32) entry {
	data := make([]byte, 8)
	le.PutUint32(data, num)
	le.PutUint32(data[4:], den)
	return entry{tag: tag, typ: typ, count: 1, data: data}
}

// encodeIFD lays out an IFD at offset base followed by its out-of-line data.
func encodeIFD(entries []entry, base uint32) []byte {
	var ifd, data bytes.Buffer
	dataStart := base + 2 + uint32(len(entries))*12 + 4
	ifd.Write(le.AppendUint16(nil, uint16(len(entries))))
	for _, e := range entries {
		ifd.Write(le.AppendUint16(nil, e.tag))
		ifd.Write(le.AppendUint16(nil, e.typ))
		ifd.Write(le.AppendUint32(nil, e.count))
		if len(e.data) <= 4 {
			val := make([]byte, 4)
			copy(val, e.data)
			ifd.Write(val)
			continue
		}
		ifd.Write(le.AppendUint32(nil, dataStart+uint32(data.Len())))
		data.Write(e.data)
		if data.Len()%2 == 1 {
			data.WriteByte(0)
		}
	}
	ifd.Write(le.AppendUint32(nil, 0))
	return append(ifd.Bytes(), data.Bytes()...)
}

// TIFF encodes a little-endian TIFF stream with IFD0 and an EXIF sub-IFD.
func TIFF(s Shot) []byte {
	var exifEntries []entry
	if s.ShutterDen > 0 {
		exifEntries = append(exifEntries, rational(tagExposureTime, typeRational, 1, s.ShutterDen))
	}
	if s.FNumberTenths > 0 {
		exifEntries = append(exifEntries, rational(tagFNumber, typeRational, s.FNumberTenths, 10))
	}
	if s.ISO > 0 {
		exifEntries = append(exifEntries, short(tagISO, s.ISO))
	}
	if !s.Taken.IsZero() {
		exifEntries = append(exifEntries, ascii(tagDateOriginal, s.Taken.Format("2006:01:02 15:04:05")))
	}
	if s.HasBias {
		exifEntries = append(exifEntries, rational(tagExposureBias, typeSRational, uint32(s.BiasNum), uint32(s.BiasDen)))
	}
	if s.SubSec != "" {
		exifEntries = append(exifEntries, ascii(tagSubSecOrig, s.SubSec))
	}
	if s.Mode > 0 {
		exifEntries = append(exifEntries, short(tagExposureMode, s.Mode-1))
	}

	ifd0Entries := []entry{}
	if s.Model != "" {
		ifd0Entries = append(ifd0Entries, ascii(tagModel, s.Model))
	}
	pointer := entry{tag: tagExifIFD, typ: typeLong, count: 1, data: make([]byte, 4)}
	ifd0Entries = append(ifd0Entries, pointer)

	ifd0 := encodeIFD(ifd0Entries, 8)
	exifOffset := 8 + uint32(len(ifd0))
	le.PutUint32(pointer.data, exifOffset)
	ifd0 = encodeIFD(ifd0Entries, 8)

	out := []byte("II*\x00")
	out = le.AppendUint32(out, 8)
	out = append(out, ifd0...)
	return append(out, encodeIFD(exifEntries, exifOffset)...)
}

// JPEG wraps the TIFF stream in a minimal JPEG APP1 segment.
func JPEG(s Shot) []byte {
	payload := append([]byte("Exif\x00\x00"), TIFF(s)...)
	out := []byte{0xFF, 0xD8, 0xFF, 0xE1}
	out = binary.BigEndian.AppendUint16(out, uint16(len(payload)+2))
	out = append(out, payload...)
	return append(out, 0xFF, 0xD9)
}

// RAF wraps a JPEG preview in a Fujifilm RAF header.
func RAF(s Shot) []byte {
	preview := JPEG(s)
	header := make([]byte, 100)
	copy(header, "FUJIFILMCCD-RAW 0201FF383501")
	binary.BigEndian.PutUint32(header[84:], uint32(len(header)))
	binary.BigEndian.PutUint32(header[88:], uint32(len(preview)))
	return append(header, preview...)
}

// WritePhoto writes data to dir/name and returns the path.
func WritePhoto(t testing.TB, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// WriteBracket writes one TIFF-encoded file per bias (in thirds of a stop),
// one second apart starting at start, named prefix_0001.tif onwards from first.
func WriteBracket(t testing.TB, dir, prefix string, first int, start time.Time, thirds ...int32) []string {
	t.Helper()
	paths := make([]string, len(thirds))
	for i, b := range thirds {
		name := fmt.Sprintf("%s_%04d.tif", prefix, first+i)
		paths[i] = WritePhoto(t, dir, name, TIFF(Bias(b, start.Add(time.Duration(i)*time.Second))))
	}
	return paths
}
