package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"cinelog/internal/db"
	"cinelog/internal/normalize"
)

// Store manages the film graph backed by the shared SQLite database.
type Store struct {
	db *sql.DB
}

// NewStore wires the catalog tables onto an open database handle and
// applies pending migrations.
func NewStore(ctx context.Context, handle *sql.DB) (*Store, error) {
	if handle == nil {
		return nil, errors.New("nil database handle")
	}
	if err := applyMigrations(ctx, handle); err != nil {
		return nil, err
	}
	return &Store{db: handle}, nil
}

// UpsertFilm writes external metadata keyed by tmdb_id and returns the
// film id. The INSERT ... ON CONFLICT ... RETURNING form makes
// concurrent merges of the same film converge on one row.
func (s *Store) UpsertFilm(ctx context.Context, input FilmInput) (int64, error) {
	if input.TMDBID <= 0 {
		return 0, errors.New("tmdb id must be positive")
	}
	if strings.TrimSpace(input.Title) == "" {
		return 0, errors.New("title is required")
	}
	var year any
	if len(input.ReleaseDate) >= 4 {
		var y int
		if _, err := fmt.Sscanf(input.ReleaseDate[:4], "%d", &y); err == nil {
			year = y
		}
	}
	timestamp := db.FormatTime(time.Now().UTC())

	var filmID int64
	err := s.db.QueryRowContext(
		ctx,
		`INSERT INTO film (
            tmdb_id, imdb_id, title, title_norm, original_title, release_date, year,
            runtime_min, overview, original_language, poster_path, backdrop_path,
            tmdb_popularity, tmdb_vote_avg, tmdb_vote_count, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(tmdb_id) DO UPDATE SET
            imdb_id = excluded.imdb_id,
            title = excluded.title,
            title_norm = excluded.title_norm,
            original_title = excluded.original_title,
            release_date = excluded.release_date,
            year = excluded.year,
            runtime_min = excluded.runtime_min,
            overview = excluded.overview,
            original_language = excluded.original_language,
            poster_path = excluded.poster_path,
            backdrop_path = excluded.backdrop_path,
            tmdb_popularity = excluded.tmdb_popularity,
            tmdb_vote_avg = excluded.tmdb_vote_avg,
            tmdb_vote_count = excluded.tmdb_vote_count,
            updated_at = excluded.updated_at
        RETURNING film_id`,
		input.TMDBID,
		db.NullableString(input.IMDBID),
		input.Title,
		normalize.Fold(input.Title),
		db.NullableString(input.OriginalTitle),
		db.NullableString(input.ReleaseDate),
		year,
		zeroAsNull(input.RuntimeMin),
		db.NullableString(input.Overview),
		db.NullableString(input.OriginalLanguage),
		db.NullableString(input.PosterPath),
		db.NullableString(input.BackdropPath),
		input.Popularity,
		input.VoteAverage,
		input.VoteCount,
		timestamp,
		timestamp,
	).Scan(&filmID)
	if err != nil {
		return 0, fmt.Errorf("upsert film: %w", err)
	}
	return filmID, nil
}

// CreateManualFilm adds a film without an external identity, unique by
// folded title and year. An existing manual film is returned as-is.
func (s *Store) CreateManualFilm(ctx context.Context, title string, year *int) (int64, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return 0, errors.New("title is required")
	}
	timestamp := db.FormatTime(time.Now().UTC())
	titleNorm := normalize.Fold(title)

	var filmID int64
	err := s.db.QueryRowContext(
		ctx,
		`INSERT INTO film (title, title_norm, year, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?)
         ON CONFLICT(title_norm, year) WHERE tmdb_id IS NULL DO UPDATE SET updated_at = excluded.updated_at
         RETURNING film_id`,
		title,
		titleNorm,
		db.NullableInt(year),
		timestamp,
		timestamp,
	).Scan(&filmID)
	if err != nil {
		return 0, fmt.Errorf("create manual film: %w", err)
	}
	return filmID, nil
}

// GetFilmByID fetches one film, nil when absent.
func (s *Store) GetFilmByID(ctx context.Context, id int64) (*Film, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+filmColumns+` FROM film WHERE film_id = ?`, id)
	film, err := scanFilm(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get film: %w", err)
	}
	return film, nil
}

// GetFilmByTMDBID fetches one film by external id, nil when absent.
func (s *Store) GetFilmByTMDBID(ctx context.Context, tmdbID int64) (*Film, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+filmColumns+` FROM film WHERE tmdb_id = ?`, tmdbID)
	film, err := scanFilm(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get film by tmdb id: %w", err)
	}
	return film, nil
}

// ListFilms returns the catalog ordered by title, optionally filtered
// to films available on one source code.
func (s *Store) ListFilms(ctx context.Context, sourceCode string, limit int) ([]*Film, error) {
	query := `SELECT ` + filmColumns + ` FROM film`
	var args []any
	if sourceCode != "" {
		query = `SELECT ` + prefixedFilmColumns("f") + ` FROM film f
            JOIN film_source fs ON fs.film_id = f.film_id
            JOIN source s ON s.source_id = fs.source_id
            WHERE s.code = ? AND fs.is_available = 1`
		args = append(args, strings.ToUpper(sourceCode))
	}
	query += ` ORDER BY title`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list films: %w", err)
	}
	defer rows.Close()

	var films []*Film
	for rows.Next() {
		film, err := scanFilm(rows)
		if err != nil {
			return nil, err
		}
		films = append(films, film)
	}
	return films, rows.Err()
}

// CountFilms returns the catalog size.
func (s *Store) CountFilms(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM film`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count films: %w", err)
	}
	return count, nil
}

const filmColumns = "film_id, tmdb_id, imdb_id, title, original_title, release_date, year, runtime_min, overview, original_language, poster_path, backdrop_path, tmdb_popularity, tmdb_vote_avg, tmdb_vote_count, created_at, updated_at"

func prefixedFilmColumns(alias string) string {
	parts := strings.Split(filmColumns, ", ")
	for i, part := range parts {
		parts[i] = alias + "." + part
	}
	return strings.Join(parts, ", ")
}

func scanFilm(scanner interface{ Scan(dest ...any) error }) (*Film, error) {
	var (
		film        Film
		tmdbID      sql.NullInt64
		imdbID      sql.NullString
		original    sql.NullString
		releaseDate sql.NullString
		year        sql.NullInt64
		runtime     sql.NullInt64
		overview    sql.NullString
		language    sql.NullString
		poster      sql.NullString
		backdrop    sql.NullString
		popularity  sql.NullFloat64
		voteAvg     sql.NullFloat64
		voteCount   sql.NullInt64
		createdRaw  string
		updatedRaw  string
	)
	if err := scanner.Scan(
		&film.ID, &tmdbID, &imdbID, &film.Title, &original, &releaseDate, &year,
		&runtime, &overview, &language, &poster, &backdrop,
		&popularity, &voteAvg, &voteCount, &createdRaw, &updatedRaw,
	); err != nil {
		return nil, err
	}
	if tmdbID.Valid {
		v := tmdbID.Int64
		film.TMDBID = &v
	}
	film.IMDBID = imdbID.String
	film.OriginalTitle = original.String
	film.ReleaseDate = releaseDate.String
	film.Year = db.IntPtr(year)
	film.RuntimeMin = db.IntPtr(runtime)
	film.Overview = overview.String
	film.OriginalLanguage = language.String
	film.PosterPath = poster.String
	film.BackdropPath = backdrop.String
	film.Popularity = db.FloatPtr(popularity)
	film.VoteAverage = db.FloatPtr(voteAvg)
	film.VoteCount = db.IntPtr(voteCount)
	if created, err := db.ParseTime(createdRaw); err == nil {
		film.CreatedAt = created
	}
	if updated, err := db.ParseTime(updatedRaw); err == nil {
		film.UpdatedAt = updated
	}
	return &film, nil
}

func zeroAsNull(value int) any {
	if value == 0 {
		return nil
	}
	return value
}
