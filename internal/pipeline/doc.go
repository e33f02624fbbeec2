// Package pipeline runs the matching engine over every eligible
// staging record on a bounded worker pool. One flock per database
// keeps concurrent runs from interleaving.
package pipeline
