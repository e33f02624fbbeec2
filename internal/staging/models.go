package staging

import (
	"strings"
	"time"
)

// Status is the closed match lifecycle of a staging record.
type Status string

const (
	StatusPending   Status = "pending"
	StatusMatched   Status = "matched"
	StatusAmbiguous Status = "ambiguous"
	StatusNotFound  Status = "not_found"
	StatusError     Status = "error"
	StatusBoxset    Status = "boxset"
	StatusApplied   Status = "applied"
	StatusReplaced  Status = "replaced"
)

var allStatuses = []Status{
	StatusPending,
	StatusMatched,
	StatusAmbiguous,
	StatusNotFound,
	StatusError,
	StatusBoxset,
	StatusApplied,
	StatusReplaced,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// terminalStatuses are never picked up by a run; they change only via an
// explicit rematch or replace-boxset.
var terminalStatuses = map[Status]struct{}{
	StatusApplied:   {},
	StatusAmbiguous: {},
	StatusNotFound:  {},
	StatusBoxset:    {},
	StatusReplaced:  {},
}

// EligibleStatuses are the statuses a batch run processes.
var EligibleStatuses = []Status{StatusPending, StatusError}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether a status ends processing for a record.
func (s Status) IsTerminal() bool {
	_, ok := terminalStatuses[s]
	return ok
}

// SourceKind identifies which import stream a record came from.
type SourceKind string

const (
	SourceDisc      SourceKind = "disc"
	SourceNas       SourceKind = "nas"
	SourceStreaming SourceKind = "streaming"
	SourceWatchlist SourceKind = "watchlist"
)

var allSourceKinds = []SourceKind{SourceDisc, SourceNas, SourceStreaming, SourceWatchlist}

// AllSourceKinds returns the ordered list of known source kinds.
func AllSourceKinds() []SourceKind {
	cp := make([]SourceKind, len(allSourceKinds))
	copy(cp, allSourceKinds)
	return cp
}

// ParseSourceKind converts a string into a known SourceKind.
func ParseSourceKind(value string) (SourceKind, bool) {
	normalized := SourceKind(strings.ToLower(strings.TrimSpace(value)))
	for _, kind := range allSourceKinds {
		if kind == normalized {
			return kind, true
		}
	}
	return "", false
}

func (k SourceKind) table() string {
	switch k {
	case SourceDisc:
		return "staging_disc"
	case SourceNas:
		return "staging_nas"
	case SourceStreaming:
		return "staging_streaming"
	case SourceWatchlist:
		return "staging_watchlist"
	default:
		return ""
	}
}

// Record is the unified view over the per-source staging tables. Kind
// selects which of the source-specific field groups are meaningful.
type Record struct {
	ID   int64
	Kind SourceKind

	RawTitle    string
	CleanTitle  string
	RawYear     *int
	RawDirector string

	// Disc fields.
	EAN           string
	Publisher     string
	PublishDate   *time.Time
	Notes         string
	Price         *float64
	LengthMin     *int
	DiscCount     *int
	Copies        *int
	Edition       string
	FormatsRaw    string
	SplitGroupKey string

	// NAS fields.
	FileName    string
	FilePath    string
	Container   string
	Resolution  string
	ContentHash string
	RawLanguage string
	RawActors   string
	RawSynopsis string
	DateAdded   *time.Time

	// Streaming fields.
	Rating10    *float64
	WatchedDate *time.Time
	RawNotes    string

	// Watchlist fields.
	ListName  string
	AddedDate *time.Time

	MatchStatus Status
	TMDBID      *int64
	MatchNote   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// HasExternalID reports whether the record carries a resolved identity,
// which the model permits only in matched or applied states (or on rows
// seeded by a manual boxset replacement).
func (r *Record) HasExternalID() bool {
	return r.TMDBID != nil && *r.TMDBID != 0
}

// AppendNote extends the rationale trail without losing prior notes.
func (r *Record) AppendNote(note string) {
	note = strings.TrimSpace(note)
	if note == "" {
		return
	}
	if r.MatchNote == "" {
		r.MatchNote = note
		return
	}
	r.MatchNote = r.MatchNote + " | " + note
}
