package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"cinelog/internal/db"
)

// Source codes seeded by migration.
const (
	SourceCodeBR        = "BR"
	SourceCodeNAS       = "NAS"
	SourceCodeStreaming = "STREAMING"
	SourceCodeDVD       = "DVD"
)

// SourceID resolves a source code to its row id.
func (s *Store) SourceID(ctx context.Context, code string) (int64, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	var id int64
	err := s.db.QueryRowContext(ctx, `SELECT source_id FROM source WHERE code = ?`, code).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("unknown source code %q", code)
	}
	if err != nil {
		return 0, fmt.Errorf("source id: %w", err)
	}
	return id, nil
}

// UpsertFilmSource records that a film is available on a source. A
// re-merge flips availability back on and refreshes notes; it never
// creates a second row for the pair.
func (s *Store) UpsertFilmSource(ctx context.Context, filmID int64, sourceCode string, available bool, notes string) error {
	sourceID, err := s.SourceID(ctx, sourceCode)
	if err != nil {
		return err
	}
	availableInt := 0
	if available {
		availableInt = 1
	}
	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO film_source (film_id, source_id, is_available, notes)
         VALUES (?, ?, ?, ?)
         ON CONFLICT(film_id, source_id) DO UPDATE SET
             is_available = excluded.is_available,
             notes = excluded.notes`,
		filmID,
		sourceID,
		availableInt,
		db.NullableString(notes),
	)
	if err != nil {
		return fmt.Errorf("upsert film source: %w", err)
	}
	return nil
}

// FilmSources returns the availability facts for one film.
func (s *Store) FilmSources(ctx context.Context, filmID int64) ([]FilmSource, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT fs.film_id, s.code, fs.is_available, COALESCE(fs.notes, '')
         FROM film_source fs JOIN source s ON s.source_id = fs.source_id
         WHERE fs.film_id = ? ORDER BY s.code`,
		filmID,
	)
	if err != nil {
		return nil, fmt.Errorf("film sources: %w", err)
	}
	defer rows.Close()

	var sources []FilmSource
	for rows.Next() {
		var fs FilmSource
		var available int
		if err := rows.Scan(&fs.FilmID, &fs.SourceCode, &available, &fs.Notes); err != nil {
			return nil, err
		}
		fs.IsAvailable = available != 0
		sources = append(sources, fs)
	}
	return sources, rows.Err()
}
