// Package ingest loads source CSV exports into the staging tables. One
// adapter per source kind, all sharing delimiter sniffing, BOM
// handling and tolerant header mapping, so exports from different
// tools land without manual column renames.
package ingest
