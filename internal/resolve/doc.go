// Package resolve turns title fingerprints into ranked external
// candidates. The TMDB resolver scores search results on title, year
// and director agreement and probes collections for box-set shaped
// queries.
package resolve
