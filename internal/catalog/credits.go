package catalog

import (
	"context"
	"fmt"

	"cinelog/internal/db"
)

// UpsertCredits writes person rows and film credits. Each credit is
// keyed by (film, person, job) so re-enrichment is a no-op.
func (s *Store) UpsertCredits(ctx context.Context, filmID int64, credits []CreditInput) error {
	for _, credit := range credits {
		if credit.TMDBPersonID <= 0 || credit.Name == "" || credit.Job == "" {
			continue
		}
		var personID int64
		err := s.db.QueryRowContext(
			ctx,
			`INSERT INTO person (tmdb_person_id, name) VALUES (?, ?)
             ON CONFLICT(tmdb_person_id) DO UPDATE SET name = excluded.name
             RETURNING person_id`,
			credit.TMDBPersonID,
			credit.Name,
		).Scan(&personID)
		if err != nil {
			return fmt.Errorf("upsert person %q: %w", credit.Name, err)
		}
		if _, err := s.db.ExecContext(
			ctx,
			`INSERT INTO film_credit (film_id, person_id, department, job, billing_order)
             VALUES (?, ?, ?, ?, ?)
             ON CONFLICT(film_id, person_id, job) DO UPDATE SET
                 department = excluded.department,
                 billing_order = excluded.billing_order`,
			filmID,
			personID,
			db.NullableString(credit.Department),
			credit.Job,
			db.NullableInt(credit.BillingOrder),
		); err != nil {
			return fmt.Errorf("upsert credit %q/%q: %w", credit.Name, credit.Job, err)
		}
	}
	return nil
}

// FilmCredits returns the credits for one film, directors first, then
// by billing order.
func (s *Store) FilmCredits(ctx context.Context, filmID int64) ([]Credit, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT p.person_id, p.tmdb_person_id, p.name,
            COALESCE(fc.department, ''), fc.job, fc.billing_order
         FROM film_credit fc JOIN person p ON p.person_id = fc.person_id
         WHERE fc.film_id = ?
         ORDER BY CASE WHEN fc.job = 'Director' THEN 0 ELSE 1 END,
             COALESCE(fc.billing_order, 9999), p.name`,
		filmID,
	)
	if err != nil {
		return nil, fmt.Errorf("film credits: %w", err)
	}
	defer rows.Close()

	var credits []Credit
	for rows.Next() {
		var (
			credit Credit
			order  nullableOrder
		)
		if err := rows.Scan(
			&credit.PersonID, &credit.TMDBPersonID, &credit.Name,
			&credit.Department, &credit.Job, &order,
		); err != nil {
			return nil, err
		}
		credit.BillingOrder = order.ptr
		credits = append(credits, credit)
	}
	return credits, rows.Err()
}

// FilmsMissingCredits returns film ids with an external identity but
// no credits yet, oldest first, for lazy enrichment.
func (s *Store) FilmsMissingCredits(ctx context.Context, limit int) ([]*Film, error) {
	query := `SELECT ` + filmColumns + ` FROM film
        WHERE tmdb_id IS NOT NULL
          AND film_id NOT IN (SELECT DISTINCT film_id FROM film_credit)
        ORDER BY film_id`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("films missing credits: %w", err)
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

type nullableOrder struct {
	ptr *int
}

func (n *nullableOrder) Scan(value any) error {
	n.ptr = nil
	switch v := value.(type) {
	case int64:
		order := int(v)
		n.ptr = &order
	}
	return nil
}
