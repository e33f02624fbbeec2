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

// UpsertPhysicalCopy writes one physical copy keyed by (film, format,
// edition). The UHD half and Blu-ray half of a combo release are two
// separate rows.
func (s *Store) UpsertPhysicalCopy(ctx context.Context, input PhysicalCopyInput) error {
	format := strings.ToUpper(strings.TrimSpace(input.Format))
	if !normalize.KnownFormat(format) {
		return fmt.Errorf("unknown physical format %q", input.Format)
	}
	copies := input.Copies
	if copies <= 0 {
		copies = 1
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO physical_copy (
            film_id, format, edition, region, copies, ean, disc_count, notes, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(film_id, format, edition) DO UPDATE SET
            region = excluded.region,
            copies = excluded.copies,
            ean = excluded.ean,
            disc_count = excluded.disc_count,
            notes = excluded.notes,
            updated_at = excluded.updated_at`,
		input.FilmID,
		format,
		strings.TrimSpace(input.Edition),
		db.NullableString(input.Region),
		copies,
		db.NullableString(input.EAN),
		db.NullableInt(input.DiscCount),
		db.NullableString(input.Notes),
		db.FormatTime(time.Now().UTC()),
	)
	if err != nil {
		return fmt.Errorf("upsert physical copy: %w", err)
	}
	return nil
}

// PhysicalCopies returns the copies held for one film.
func (s *Store) PhysicalCopies(ctx context.Context, filmID int64) ([]PhysicalCopy, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT copy_id, film_id, format, edition, COALESCE(region, ''), copies,
            COALESCE(ean, ''), disc_count, COALESCE(notes, ''), updated_at
         FROM physical_copy WHERE film_id = ? ORDER BY format, edition`,
		filmID,
	)
	if err != nil {
		return nil, fmt.Errorf("physical copies: %w", err)
	}
	defer rows.Close()

	var result []PhysicalCopy
	for rows.Next() {
		var (
			pc         PhysicalCopy
			discCount  sql.NullInt64
			updatedRaw string
		)
		if err := rows.Scan(
			&pc.ID, &pc.FilmID, &pc.Format, &pc.Edition, &pc.Region,
			&pc.Copies, &pc.EAN, &discCount, &pc.Notes, &updatedRaw,
		); err != nil {
			return nil, err
		}
		pc.DiscCount = db.IntPtr(discCount)
		if updated, err := db.ParseTime(updatedRaw); err == nil {
			pc.UpdatedAt = updated
		}
		result = append(result, pc)
	}
	return result, rows.Err()
}

// UpsertNasAsset writes one NAS file keyed by its unique path. A
// rescan of the same path refreshes the metadata and may repoint the
// asset at a different film.
func (s *Store) UpsertNasAsset(ctx context.Context, input NasAssetInput) error {
	path := strings.TrimSpace(input.Path)
	if path == "" {
		return errors.New("asset path is required")
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO nas_asset (
            film_id, path, file_name, container, resolution, content_hash, scanned_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(path) DO UPDATE SET
            film_id = excluded.film_id,
            file_name = excluded.file_name,
            container = excluded.container,
            resolution = excluded.resolution,
            content_hash = excluded.content_hash,
            scanned_at = excluded.scanned_at`,
		input.FilmID,
		path,
		db.NullableString(input.FileName),
		db.NullableString(input.Container),
		db.NullableString(input.Resolution),
		db.NullableString(input.ContentHash),
		db.NullableTime(input.ScannedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert nas asset: %w", err)
	}
	return nil
}

// NasAssets returns the NAS files attached to one film.
func (s *Store) NasAssets(ctx context.Context, filmID int64) ([]NasAsset, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT asset_id, film_id, path, COALESCE(file_name, ''), COALESCE(container, ''),
            COALESCE(resolution, ''), COALESCE(content_hash, ''), scanned_at
         FROM nas_asset WHERE film_id = ? ORDER BY path`,
		filmID,
	)
	if err != nil {
		return nil, fmt.Errorf("nas assets: %w", err)
	}
	defer rows.Close()

	var assets []NasAsset
	for rows.Next() {
		var (
			asset      NasAsset
			scannedRaw sql.NullString
		)
		if err := rows.Scan(
			&asset.ID, &asset.FilmID, &asset.Path, &asset.FileName,
			&asset.Container, &asset.Resolution, &asset.ContentHash, &scannedRaw,
		); err != nil {
			return nil, err
		}
		asset.ScannedAt = db.TimePtr(scannedRaw)
		assets = append(assets, asset)
	}
	return assets, rows.Err()
}
