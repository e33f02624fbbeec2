package userstate_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"cinelog/internal/catalog"
	"cinelog/internal/db"
	"cinelog/internal/userstate"
)

func newStores(t *testing.T) (*catalog.Store, *userstate.Store) {
	t.Helper()
	handle, err := db.Open(filepath.Join(t.TempDir(), "cinelog.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = handle.Close() })
	films, err := catalog.NewStore(context.Background(), handle)
	if err != nil {
		t.Fatalf("catalog store: %v", err)
	}
	users, err := userstate.NewStore(context.Background(), handle)
	if err != nil {
		t.Fatalf("userstate store: %v", err)
	}
	return films, users
}

func newFilm(t *testing.T, films *catalog.Store) int64 {
	t.Helper()
	filmID, err := films.UpsertFilm(context.Background(), catalog.FilmInput{
		TMDBID: 949, Title: "Heat", ReleaseDate: "1995-12-15",
	})
	if err != nil {
		t.Fatalf("upsert film: %v", err)
	}
	return filmID
}

func floatPtr(v float64) *float64 { return &v }

func timePtr(t time.Time) *time.Time { return &t }

func TestRecordWatchCreatesSeenState(t *testing.T) {
	films, users := newStores(t)
	ctx := context.Background()
	filmID := newFilm(t, films)

	watched := time.Date(2023, 4, 12, 0, 0, 0, 0, time.UTC)
	err := users.RecordWatch(ctx, userstate.WatchInput{
		FilmID:     filmID,
		WatchedAt:  timePtr(watched),
		Rating10:   floatPtr(8),
		Context:    "streaming_import",
		StagingRef: "streaming:42",
	})
	if err != nil {
		t.Fatalf("record watch: %v", err)
	}

	uf, err := users.GetUserFilm(ctx, 0, filmID)
	if err != nil {
		t.Fatalf("get user film: %v", err)
	}
	if uf == nil || uf.Status != userstate.StatusSeen {
		t.Fatalf("expected SEEN state, got %+v", uf)
	}
	if uf.Rating10 == nil || *uf.Rating10 != 8 {
		t.Fatalf("rating lost: %+v", uf.Rating10)
	}
	if uf.RewatchCount != 0 {
		t.Fatalf("first watch is not a rewatch: %d", uf.RewatchCount)
	}
}

func TestRecordWatchDedupesByStagingRef(t *testing.T) {
	films, users := newStores(t)
	ctx := context.Background()
	filmID := newFilm(t, films)

	input := userstate.WatchInput{FilmID: filmID, Rating10: floatPtr(7), StagingRef: "streaming:42"}
	if err := users.RecordWatch(ctx, input); err != nil {
		t.Fatalf("record watch: %v", err)
	}
	if err := users.RecordWatch(ctx, input); err != nil {
		t.Fatalf("re-apply: %v", err)
	}

	events, err := users.WatchEvents(ctx, 0, filmID)
	if err != nil {
		t.Fatalf("watch events: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("re-apply must not duplicate the event, got %d", len(events))
	}
	uf, err := users.GetUserFilm(ctx, 0, filmID)
	if err != nil {
		t.Fatalf("get user film: %v", err)
	}
	if uf.RewatchCount != 0 {
		t.Fatalf("re-apply must not bump rewatch count, got %d", uf.RewatchCount)
	}
}

func TestRecordWatchDistinctEventsBumpRewatch(t *testing.T) {
	films, users := newStores(t)
	ctx := context.Background()
	filmID := newFilm(t, films)

	first := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	second := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	if err := users.RecordWatch(ctx, userstate.WatchInput{FilmID: filmID, WatchedAt: timePtr(first), StagingRef: "streaming:1"}); err != nil {
		t.Fatalf("first watch: %v", err)
	}
	if err := users.RecordWatch(ctx, userstate.WatchInput{FilmID: filmID, WatchedAt: timePtr(second), StagingRef: "streaming:2"}); err != nil {
		t.Fatalf("second watch: %v", err)
	}

	uf, err := users.GetUserFilm(ctx, 0, filmID)
	if err != nil {
		t.Fatalf("get user film: %v", err)
	}
	if uf.RewatchCount != 1 {
		t.Fatalf("expected one rewatch, got %d", uf.RewatchCount)
	}
	if uf.FirstSeenAt == nil || !uf.FirstSeenAt.Equal(first) {
		t.Fatalf("first seen should stay the earliest: %+v", uf.FirstSeenAt)
	}
	if uf.LastSeenAt == nil || !uf.LastSeenAt.Equal(second) {
		t.Fatalf("last seen should advance: %+v", uf.LastSeenAt)
	}
}

func TestRecordWatchPreservesRatingWhenImportHasNone(t *testing.T) {
	films, users := newStores(t)
	ctx := context.Background()
	filmID := newFilm(t, films)

	if err := users.RecordWatch(ctx, userstate.WatchInput{FilmID: filmID, Rating10: floatPtr(9), StagingRef: "streaming:1"}); err != nil {
		t.Fatalf("rated watch: %v", err)
	}
	if err := users.RecordWatch(ctx, userstate.WatchInput{FilmID: filmID, StagingRef: "streaming:2"}); err != nil {
		t.Fatalf("unrated watch: %v", err)
	}

	uf, err := users.GetUserFilm(ctx, 0, filmID)
	if err != nil {
		t.Fatalf("get user film: %v", err)
	}
	if uf.Rating10 == nil || *uf.Rating10 != 9 {
		t.Fatalf("existing rating must survive, got %+v", uf.Rating10)
	}
}

func TestRecordWatchReapplyKeepsLaterUserRating(t *testing.T) {
	films, users := newStores(t)
	ctx := context.Background()
	filmID := newFilm(t, films)

	input := userstate.WatchInput{FilmID: filmID, Rating10: floatPtr(7), StagingRef: "streaming:42"}
	if err := users.RecordWatch(ctx, input); err != nil {
		t.Fatalf("record watch: %v", err)
	}
	if err := users.Rate(ctx, 0, filmID, 9); err != nil {
		t.Fatalf("rate: %v", err)
	}
	if err := users.RecordWatch(ctx, input); err != nil {
		t.Fatalf("re-apply: %v", err)
	}

	uf, err := users.GetUserFilm(ctx, 0, filmID)
	if err != nil {
		t.Fatalf("get user film: %v", err)
	}
	if uf.Rating10 == nil || *uf.Rating10 != 9 {
		t.Fatalf("re-apply must not overwrite the user's rating, got %+v", uf.Rating10)
	}
	if uf.RewatchCount != 0 {
		t.Fatalf("re-apply must not bump rewatch count, got %d", uf.RewatchCount)
	}
}

func TestEnsureWatchlistedNeverDowngradesSeen(t *testing.T) {
	films, users := newStores(t)
	ctx := context.Background()
	filmID := newFilm(t, films)

	if err := users.RecordWatch(ctx, userstate.WatchInput{FilmID: filmID, StagingRef: "streaming:1"}); err != nil {
		t.Fatalf("record watch: %v", err)
	}
	if err := users.EnsureWatchlisted(ctx, 0, filmID); err != nil {
		t.Fatalf("ensure watchlisted: %v", err)
	}

	uf, err := users.GetUserFilm(ctx, 0, filmID)
	if err != nil {
		t.Fatalf("get user film: %v", err)
	}
	if uf.Status != userstate.StatusSeen {
		t.Fatalf("SEEN must not downgrade to WANT, got %s", uf.Status)
	}
}

func TestEnsureWatchlistedCreatesWant(t *testing.T) {
	films, users := newStores(t)
	ctx := context.Background()
	filmID := newFilm(t, films)

	if err := users.EnsureWatchlisted(ctx, 0, filmID); err != nil {
		t.Fatalf("ensure watchlisted: %v", err)
	}
	uf, err := users.GetUserFilm(ctx, 0, filmID)
	if err != nil {
		t.Fatalf("get user film: %v", err)
	}
	if uf == nil || uf.Status != userstate.StatusWant {
		t.Fatalf("expected WANT state, got %+v", uf)
	}
}

func TestRateRequiresExistingState(t *testing.T) {
	films, users := newStores(t)
	ctx := context.Background()
	filmID := newFilm(t, films)

	if err := users.Rate(ctx, 0, filmID, 7.5); err == nil {
		t.Fatal("rating without state should fail")
	}
	if err := users.EnsureWatchlisted(ctx, 0, filmID); err != nil {
		t.Fatalf("ensure watchlisted: %v", err)
	}
	if err := users.Rate(ctx, 0, filmID, 7.5); err != nil {
		t.Fatalf("rate: %v", err)
	}
	if err := users.Rate(ctx, 0, filmID, 11); err == nil {
		t.Fatal("rating out of range should fail")
	}
}

func TestTagsAndLists(t *testing.T) {
	films, users := newStores(t)
	ctx := context.Background()
	filmID := newFilm(t, films)

	if err := users.AddTag(ctx, 0, filmID, "noir"); err != nil {
		t.Fatalf("add tag: %v", err)
	}
	if err := users.AddTag(ctx, 0, filmID, "noir"); err != nil {
		t.Fatalf("re-add tag: %v", err)
	}
	tags, err := users.FilmTags(ctx, 0, filmID)
	if err != nil {
		t.Fatalf("film tags: %v", err)
	}
	if len(tags) != 1 || tags[0] != "noir" {
		t.Fatalf("unexpected tags: %v", tags)
	}

	otherID, err := films.UpsertFilm(ctx, catalog.FilmInput{TMDBID: 11645, Title: "Ran", ReleaseDate: "1985-06-01"})
	if err != nil {
		t.Fatalf("upsert ran: %v", err)
	}
	if err := users.AddToList(ctx, "favorites", filmID); err != nil {
		t.Fatalf("add to list: %v", err)
	}
	if err := users.AddToList(ctx, "favorites", otherID); err != nil {
		t.Fatalf("add second: %v", err)
	}
	if err := users.AddToList(ctx, "favorites", filmID); err != nil {
		t.Fatalf("re-add: %v", err)
	}

	items, err := users.ListItems(ctx, "favorites")
	if err != nil {
		t.Fatalf("list items: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].FilmID != filmID || items[0].Position != 1 || items[1].Position != 2 {
		t.Fatalf("positions wrong: %+v", items)
	}
}
