package userstate

import "time"

// DefaultUserID is the single implicit user of the catalog.
const DefaultUserID int64 = 1

// Status values for a user's relationship to a film.
const (
	StatusSeen = "SEEN"
	StatusWant = "WANT"
)

// UserFilm aggregates a user's state for one film.
type UserFilm struct {
	UserID       int64
	FilmID       int64
	Status       string
	Rating10     *float64
	FirstSeenAt  *time.Time
	LastSeenAt   *time.Time
	RewatchCount int
	UpdatedAt    time.Time
}

// WatchEvent is one entry of the append-only watch history.
type WatchEvent struct {
	ID         int64
	UserID     int64
	FilmID     int64
	WatchedAt  *time.Time
	Rating10   *float64
	Context    string
	StagingRef string
	CreatedAt  time.Time
}

// WatchInput describes one watch to record. StagingRef, when set,
// deduplicates re-applies of the same staging record.
type WatchInput struct {
	UserID     int64
	FilmID     int64
	WatchedAt  *time.Time
	Rating10   *float64
	Context    string
	StagingRef string
}

// ListItem is one positioned film inside a named list.
type ListItem struct {
	FilmID   int64
	Position int
	AddedAt  time.Time
}
