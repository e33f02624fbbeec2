// Package services defines the shared error taxonomy used to classify
// per-record failures in run summaries and staging notes.
package services
