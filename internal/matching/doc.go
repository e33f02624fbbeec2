// Package matching drives the per-record match state machine: resolve
// a staging record into candidates, decide matched, ambiguous,
// not_found, boxset or error, and hand matched records straight to the
// merge engine so they finish as applied.
package matching
