package catalog

import (
	"context"
	"fmt"
)

// UpsertGenres writes the genre rows and film_genre associations for a
// film. Existing associations are left in place.
func (s *Store) UpsertGenres(ctx context.Context, filmID int64, genres []GenreInput) error {
	for _, genre := range genres {
		if genre.TMDBGenreID <= 0 || genre.Name == "" {
			continue
		}
		var genreID int64
		err := s.db.QueryRowContext(
			ctx,
			`INSERT INTO genre (tmdb_genre_id, name) VALUES (?, ?)
             ON CONFLICT(tmdb_genre_id) DO UPDATE SET name = excluded.name
             RETURNING genre_id`,
			genre.TMDBGenreID,
			genre.Name,
		).Scan(&genreID)
		if err != nil {
			return fmt.Errorf("upsert genre %q: %w", genre.Name, err)
		}
		if _, err := s.db.ExecContext(
			ctx,
			`INSERT OR IGNORE INTO film_genre (film_id, genre_id) VALUES (?, ?)`,
			filmID,
			genreID,
		); err != nil {
			return fmt.Errorf("link genre %q: %w", genre.Name, err)
		}
	}
	return nil
}

// FilmGenres returns the genre names attached to a film.
func (s *Store) FilmGenres(ctx context.Context, filmID int64) ([]Genre, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT g.genre_id, g.tmdb_genre_id, g.name FROM genre g
         JOIN film_genre fg ON fg.genre_id = g.genre_id
         WHERE fg.film_id = ? ORDER BY g.name`,
		filmID,
	)
	if err != nil {
		return nil, fmt.Errorf("film genres: %w", err)
	}
	defer rows.Close()

	var genres []Genre
	for rows.Next() {
		var genre Genre
		if err := rows.Scan(&genre.ID, &genre.TMDBGenreID, &genre.Name); err != nil {
			return nil, err
		}
		genres = append(genres, genre)
	}
	return genres, rows.Err()
}
