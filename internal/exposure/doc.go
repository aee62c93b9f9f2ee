// Package exposure models the per-file exposure metadata consumed by bracket
// detection.
//
// An EV is a signed rational exposure offset in stops, matching the way EXIF
// stores ExposureBiasValue. The zero EV is "unknown" so records decoded from
// files without the tag carry that state explicitly instead of pretending to
// be a 0 EV shot. Record bundles the EV with the capture time and the
// auxiliary exposure triangle, and Sort establishes the canonical
// (captured_at, file_id) stream order every later stage relies on.
package exposure
