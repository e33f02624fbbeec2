// Package catalog owns the canonical film graph: films, genres,
// people and credits, source availability, physical copies and NAS
// assets. All writes are keyed upserts so merges stay idempotent and
// race-safe.
package catalog
