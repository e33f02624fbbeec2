package userstate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"cinelog/internal/db"
)

// Store manages the user state tables backed by the shared SQLite
// database.
type Store struct {
	db *sql.DB
}

// NewStore wires the user tables onto an open database handle and
// applies pending migrations. The catalog store must be constructed
// first so the film table the foreign keys point at exists.
func NewStore(ctx context.Context, handle *sql.DB) (*Store, error) {
	if handle == nil {
		return nil, errors.New("nil database handle")
	}
	if err := applyMigrations(ctx, handle); err != nil {
		return nil, err
	}
	return &Store{db: handle}, nil
}

// RecordWatch appends a watch event and folds it into the SEEN
// aggregate. A duplicate staging ref leaves the aggregate untouched,
// so re-applying a staging record never double-counts and never
// clobbers state the user changed in between. An existing rating
// survives an import that carries none.
func (s *Store) RecordWatch(ctx context.Context, input WatchInput) error {
	if input.FilmID <= 0 {
		return errors.New("film id is required")
	}
	userID := input.UserID
	if userID == 0 {
		userID = DefaultUserID
	}
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin record watch tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	eventQuery := `INSERT INTO watch_event (user_id, film_id, watched_at, rating_10, context, staging_ref, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)`
	if input.StagingRef != "" {
		eventQuery = `INSERT INTO watch_event (user_id, film_id, watched_at, rating_10, context, staging_ref, created_at)
            VALUES (?, ?, ?, ?, ?, ?, ?)
            ON CONFLICT(film_id, staging_ref) WHERE staging_ref IS NOT NULL DO NOTHING`
	}
	res, err := tx.ExecContext(
		ctx,
		eventQuery,
		userID,
		input.FilmID,
		db.NullableTime(input.WatchedAt),
		db.NullableFloat(input.Rating10),
		db.NullableString(input.Context),
		db.NullableString(input.StagingRef),
		db.FormatTime(now),
	)
	if err != nil {
		return fmt.Errorf("insert watch event: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	newEvent := affected > 0

	existing, err := getUserFilmTx(ctx, tx, userID, input.FilmID)
	if err != nil {
		return err
	}

	// A deduplicated event means this staging record already folded into
	// the aggregate; leave the row alone so state the user changed since
	// (a later rating, say) survives the re-apply.
	if existing != nil && !newEvent {
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit record watch: %w", err)
		}
		return nil
	}

	if existing == nil {
		_, err = tx.ExecContext(
			ctx,
			`INSERT INTO user_film (user_id, film_id, status, rating_10, first_seen_at, last_seen_at, rewatch_count, updated_at)
             VALUES (?, ?, ?, ?, ?, ?, 0, ?)`,
			userID,
			input.FilmID,
			StatusSeen,
			db.NullableFloat(input.Rating10),
			db.NullableTime(input.WatchedAt),
			db.NullableTime(input.WatchedAt),
			db.FormatTime(now),
		)
		if err != nil {
			return fmt.Errorf("insert user film: %w", err)
		}
	} else {
		rewatchBump := 0
		if newEvent && existing.Status == StatusSeen {
			rewatchBump = 1
		}
		rating := existing.Rating10
		if input.Rating10 != nil {
			rating = input.Rating10
		}
		firstSeen := existing.FirstSeenAt
		if firstSeen == nil || (input.WatchedAt != nil && input.WatchedAt.Before(*firstSeen)) {
			firstSeen = input.WatchedAt
		}
		lastSeen := existing.LastSeenAt
		if lastSeen == nil || (input.WatchedAt != nil && input.WatchedAt.After(*lastSeen)) {
			lastSeen = input.WatchedAt
		}
		_, err = tx.ExecContext(
			ctx,
			`UPDATE user_film
             SET status = ?, rating_10 = ?, first_seen_at = ?, last_seen_at = ?,
                 rewatch_count = rewatch_count + ?, updated_at = ?
             WHERE user_id = ? AND film_id = ?`,
			StatusSeen,
			db.NullableFloat(rating),
			db.NullableTime(firstSeen),
			db.NullableTime(lastSeen),
			rewatchBump,
			db.FormatTime(now),
			userID,
			input.FilmID,
		)
		if err != nil {
			return fmt.Errorf("update user film: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit record watch: %w", err)
	}
	return nil
}

// EnsureWatchlisted marks a film WANT unless the user already has any
// state for it. SEEN is never downgraded.
func (s *Store) EnsureWatchlisted(ctx context.Context, userID, filmID int64) error {
	if filmID <= 0 {
		return errors.New("film id is required")
	}
	if userID == 0 {
		userID = DefaultUserID
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO user_film (user_id, film_id, status, rewatch_count, updated_at)
         VALUES (?, ?, ?, 0, ?)
         ON CONFLICT(user_id, film_id) DO NOTHING`,
		userID,
		filmID,
		StatusWant,
		db.FormatTime(time.Now().UTC()),
	)
	if err != nil {
		return fmt.Errorf("ensure watchlisted: %w", err)
	}
	return nil
}

// Rate sets the user's rating without touching status or history.
func (s *Store) Rate(ctx context.Context, userID, filmID int64, rating float64) error {
	if rating < 0 || rating > 10 {
		return fmt.Errorf("rating %v out of range", rating)
	}
	if userID == 0 {
		userID = DefaultUserID
	}
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE user_film SET rating_10 = ?, updated_at = ? WHERE user_id = ? AND film_id = ?`,
		rating,
		db.FormatTime(time.Now().UTC()),
		userID,
		filmID,
	)
	if err != nil {
		return fmt.Errorf("rate film: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("no user state for film %d", filmID)
	}
	return nil
}

// AddTag attaches a named tag to the user's film.
func (s *Store) AddTag(ctx context.Context, userID, filmID int64, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("tag name is required")
	}
	if userID == 0 {
		userID = DefaultUserID
	}
	var tagID int64
	err := s.db.QueryRowContext(
		ctx,
		`INSERT INTO tag (name) VALUES (?)
         ON CONFLICT(name) DO UPDATE SET name = excluded.name
         RETURNING tag_id`,
		name,
	).Scan(&tagID)
	if err != nil {
		return fmt.Errorf("upsert tag: %w", err)
	}
	if _, err := s.db.ExecContext(
		ctx,
		`INSERT OR IGNORE INTO user_film_tag (user_id, film_id, tag_id) VALUES (?, ?, ?)`,
		userID,
		filmID,
		tagID,
	); err != nil {
		return fmt.Errorf("attach tag: %w", err)
	}
	return nil
}

// AddToList appends a film to a named list, creating the list on first
// use. Re-adding keeps the original position.
func (s *Store) AddToList(ctx context.Context, listName string, filmID int64) error {
	listName = strings.TrimSpace(listName)
	if listName == "" {
		return errors.New("list name is required")
	}
	timestamp := db.FormatTime(time.Now().UTC())

	var listID int64
	err := s.db.QueryRowContext(
		ctx,
		`INSERT INTO list (name, created_at) VALUES (?, ?)
         ON CONFLICT(name) DO UPDATE SET name = excluded.name
         RETURNING list_id`,
		listName,
		timestamp,
	).Scan(&listID)
	if err != nil {
		return fmt.Errorf("upsert list: %w", err)
	}
	if _, err := s.db.ExecContext(
		ctx,
		`INSERT OR IGNORE INTO list_item (list_id, film_id, position, added_at)
         VALUES (?, ?, (SELECT COALESCE(MAX(position), 0) + 1 FROM list_item WHERE list_id = ?), ?)`,
		listID,
		filmID,
		listID,
		timestamp,
	); err != nil {
		return fmt.Errorf("add list item: %w", err)
	}
	return nil
}

// GetUserFilm returns the user's state for one film, nil when absent.
func (s *Store) GetUserFilm(ctx context.Context, userID, filmID int64) (*UserFilm, error) {
	if userID == 0 {
		userID = DefaultUserID
	}
	return getUserFilm(ctx, s.db, userID, filmID)
}

// WatchEvents returns the watch history for one film, oldest first.
func (s *Store) WatchEvents(ctx context.Context, userID, filmID int64) ([]WatchEvent, error) {
	if userID == 0 {
		userID = DefaultUserID
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT event_id, user_id, film_id, watched_at, rating_10,
            COALESCE(context, ''), COALESCE(staging_ref, ''), created_at
         FROM watch_event WHERE user_id = ? AND film_id = ? ORDER BY event_id`,
		userID,
		filmID,
	)
	if err != nil {
		return nil, fmt.Errorf("watch events: %w", err)
	}
	defer rows.Close()

	var events []WatchEvent
	for rows.Next() {
		var (
			event      WatchEvent
			watchedRaw sql.NullString
			rating     sql.NullFloat64
			createdRaw string
		)
		if err := rows.Scan(
			&event.ID, &event.UserID, &event.FilmID, &watchedRaw, &rating,
			&event.Context, &event.StagingRef, &createdRaw,
		); err != nil {
			return nil, err
		}
		event.WatchedAt = db.TimePtr(watchedRaw)
		event.Rating10 = db.FloatPtr(rating)
		if created, err := db.ParseTime(createdRaw); err == nil {
			event.CreatedAt = created
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

// FilmTags returns the tag names on the user's film.
func (s *Store) FilmTags(ctx context.Context, userID, filmID int64) ([]string, error) {
	if userID == 0 {
		userID = DefaultUserID
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT t.name FROM tag t
         JOIN user_film_tag uft ON uft.tag_id = t.tag_id
         WHERE uft.user_id = ? AND uft.film_id = ? ORDER BY t.name`,
		userID,
		filmID,
	)
	if err != nil {
		return nil, fmt.Errorf("film tags: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// ListItems returns the films of a named list in position order.
func (s *Store) ListItems(ctx context.Context, listName string) ([]ListItem, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT li.film_id, li.position, li.added_at
         FROM list_item li JOIN list l ON l.list_id = li.list_id
         WHERE l.name = ? ORDER BY li.position`,
		listName,
	)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var items []ListItem
	for rows.Next() {
		var (
			item     ListItem
			addedRaw string
		)
		if err := rows.Scan(&item.FilmID, &item.Position, &addedRaw); err != nil {
			return nil, err
		}
		if added, err := db.ParseTime(addedRaw); err == nil {
			item.AddedAt = added
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getUserFilm(ctx context.Context, q querier, userID, filmID int64) (*UserFilm, error) {
	row := q.QueryRowContext(
		ctx,
		`SELECT user_id, film_id, status, rating_10, first_seen_at, last_seen_at, rewatch_count, updated_at
         FROM user_film WHERE user_id = ? AND film_id = ?`,
		userID,
		filmID,
	)
	var (
		uf         UserFilm
		rating     sql.NullFloat64
		firstRaw   sql.NullString
		lastRaw    sql.NullString
		updatedRaw string
	)
	err := row.Scan(&uf.UserID, &uf.FilmID, &uf.Status, &rating, &firstRaw, &lastRaw, &uf.RewatchCount, &updatedRaw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user film: %w", err)
	}
	uf.Rating10 = db.FloatPtr(rating)
	uf.FirstSeenAt = db.TimePtr(firstRaw)
	uf.LastSeenAt = db.TimePtr(lastRaw)
	if updated, err := db.ParseTime(updatedRaw); err == nil {
		uf.UpdatedAt = updated
	}
	return &uf, nil
}

func getUserFilmTx(ctx context.Context, tx *sql.Tx, userID, filmID int64) (*UserFilm, error) {
	return getUserFilm(ctx, tx, userID, filmID)
}
