// Package merge folds matched staging records into the canonical film
// graph. Apply is idempotent: re-running it for the same record
// converges on the same film, copies, assets and user state.
package merge
