// Package extract turns photo files into exposure records.
//
// ExifExtractor reads the EXIF block of JPEG, TIFF and TIFF-based RAW files
// (and the embedded preview of Fujifilm RAF files) with goexif. Scanner lists
// a flat directory, fans extraction out to a bounded worker pool and returns
// the records sorted into stream order together with per-kind failure counts.
package extract
