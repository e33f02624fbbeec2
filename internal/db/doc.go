// Package db opens the shared SQLite database and provides the scan
// helpers the stores use.
package db
