// Package pattern describes what one exposure bracket looks like and scores
// candidate runs of shots against it.
//
// A Pattern is the ordered list of EV offsets a camera produces for a single
// bracket plus the tolerances that decide whether an observed run plausibly
// instantiates it. MatchScore compares a candidate run either positionally
// (camera shooting order) or as a multiset through a minimum-cost assignment,
// so cameras that reorder shots under continuous drive still match. Discover
// proposes a pattern from a sample window for a caller to confirm, and
// Generate builds the symmetric patterns most cameras offer.
package pattern
