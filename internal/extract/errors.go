package extract

import (
	"errors"
	"fmt"

	"bracketeer/internal/faults"
)

// Kind classifies extraction failures.
type Kind int

const (
	// UnsupportedFormat means the container carries no EXIF block goexif can read.
	UnsupportedFormat Kind = iota + 1
	// CorruptFile means the file could not be opened or its EXIF block is damaged.
	CorruptFile
	// MissingExposureTag means the record was extracted without an exposure
	// bias value. The record is still usable.
	MissingExposureTag
)

func (k Kind) String() string {
	switch k {
	case UnsupportedFormat:
		return "unsupported-format"
	case CorruptFile:
		return "corrupt-file"
	case MissingExposureTag:
		return "missing-exposure-tag"
	default:
		return "unknown"
	}
}

// Error is returned by Extractor implementations.
type Error struct {
	Kind Kind
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Path, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Path, e.Kind, e.Err)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{faults.ErrExtraction}
	}
	return []error{faults.ErrExtraction, e.Err}
}

// KindOf returns the extraction kind of err, or 0 when err is not an *Error.
func KindOf(err error) Kind {
	var extractErr *Error
	if errors.As(err, &extractErr) {
		return extractErr.Kind
	}
	return 0
}

// Fatal reports whether err means the file contributes nothing to the pass.
func Fatal(err error) bool {
	return err != nil && KindOf(err) != MissingExposureTag
}
