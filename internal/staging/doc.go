// Package staging persists raw import records, one table per source
// kind, and owns the match state machine fields on each record. Records
// are immutable once staged except for the match fields; they are never
// deleted by the engines and double as the audit trail for every
// reconciliation decision.
package staging
