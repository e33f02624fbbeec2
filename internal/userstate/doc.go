// Package userstate owns the viewing side of the catalog: per-film
// user status, the append-only watch history, tags and lists. Merge
// paths go through RecordWatch and EnsureWatchlisted, which preserve
// existing state instead of overwriting it.
package userstate
