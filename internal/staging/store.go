package staging

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"cinelog/internal/db"
)

// Store manages the staging tables backed by the shared SQLite database.
type Store struct {
	db *sql.DB
}

// NewStore wires the staging tables onto an open database handle and
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

func kindColumns(kind SourceKind) string {
	switch kind {
	case SourceDisc:
		return "id, raw_title, clean_title, raw_year, raw_director, ean, publisher, publish_date, notes, price, length_min, disc_count, copies, edition, formats_raw, split_group_key, match_status, tmdb_id, match_note, created_at, updated_at"
	case SourceNas:
		return "id, raw_title, clean_title, raw_year, raw_director, raw_language, raw_actors, raw_synopsis, file_name, file_path, container, resolution, content_hash, date_added, match_status, tmdb_id, match_note, created_at, updated_at"
	case SourceStreaming:
		return "id, raw_title, clean_title, raw_year, raw_director, rating_10, watched_date, raw_notes, match_status, tmdb_id, match_note, created_at, updated_at"
	case SourceWatchlist:
		return "id, raw_title, clean_title, raw_year, raw_director, list_name, added_date, match_status, tmdb_id, match_note, created_at, updated_at"
	default:
		return ""
	}
}

// Insert stages a new record in the table selected by rec.Kind. NAS
// records deduplicate on file path; a duplicate returns the existing
// row with inserted set to false.
func (s *Store) Insert(ctx context.Context, rec *Record) (inserted bool, err error) {
	if rec == nil {
		return false, errors.New("record is nil")
	}
	if strings.TrimSpace(rec.RawTitle) == "" {
		return false, errors.New("raw title is required")
	}
	if rec.MatchStatus == "" {
		rec.MatchStatus = StatusPending
	}
	now := time.Now().UTC()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	timestamp := db.FormatTime(now)

	switch rec.Kind {
	case SourceDisc:
		res, execErr := s.db.ExecContext(
			ctx,
			`INSERT INTO staging_disc (
                raw_title, clean_title, raw_year, raw_director,
                ean, publisher, publish_date, notes, price, length_min,
                disc_count, copies, edition, formats_raw, split_group_key,
                match_status, tmdb_id, match_note, created_at, updated_at
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.RawTitle,
			db.NullableString(rec.CleanTitle),
			db.NullableInt(rec.RawYear),
			db.NullableString(rec.RawDirector),
			db.NullableString(rec.EAN),
			db.NullableString(rec.Publisher),
			db.NullableTime(rec.PublishDate),
			db.NullableString(rec.Notes),
			db.NullableFloat(rec.Price),
			db.NullableInt(rec.LengthMin),
			db.NullableInt(rec.DiscCount),
			db.NullableInt(rec.Copies),
			db.NullableString(rec.Edition),
			db.NullableString(rec.FormatsRaw),
			db.NullableString(rec.SplitGroupKey),
			rec.MatchStatus,
			nullableInt64(rec.TMDBID),
			db.NullableString(rec.MatchNote),
			timestamp,
			timestamp,
		)
		if execErr != nil {
			return false, fmt.Errorf("insert disc record: %w", execErr)
		}
		rec.ID, err = res.LastInsertId()
		if err != nil {
			return false, fmt.Errorf("last insert id: %w", err)
		}
		return true, nil

	case SourceNas:
		res, execErr := s.db.ExecContext(
			ctx,
			`INSERT INTO staging_nas (
                raw_title, clean_title, raw_year, raw_director,
                raw_language, raw_actors, raw_synopsis,
                file_name, file_path, container, resolution, content_hash, date_added,
                match_status, tmdb_id, match_note, created_at, updated_at
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
            ON CONFLICT(file_path) DO NOTHING`,
			rec.RawTitle,
			db.NullableString(rec.CleanTitle),
			db.NullableInt(rec.RawYear),
			db.NullableString(rec.RawDirector),
			db.NullableString(rec.RawLanguage),
			db.NullableString(rec.RawActors),
			db.NullableString(rec.RawSynopsis),
			db.NullableString(rec.FileName),
			db.NullableString(rec.FilePath),
			db.NullableString(rec.Container),
			db.NullableString(rec.Resolution),
			db.NullableString(rec.ContentHash),
			db.NullableTime(rec.DateAdded),
			rec.MatchStatus,
			nullableInt64(rec.TMDBID),
			db.NullableString(rec.MatchNote),
			timestamp,
			timestamp,
		)
		if execErr != nil {
			return false, fmt.Errorf("insert nas record: %w", execErr)
		}
		affected, affErr := res.RowsAffected()
		if affErr != nil {
			return false, fmt.Errorf("rows affected: %w", affErr)
		}
		if affected == 0 {
			existing, findErr := s.findNasByPath(ctx, rec.FilePath)
			if findErr != nil {
				return false, findErr
			}
			if existing != nil {
				*rec = *existing
			}
			return false, nil
		}
		rec.ID, err = res.LastInsertId()
		if err != nil {
			return false, fmt.Errorf("last insert id: %w", err)
		}
		return true, nil

	case SourceStreaming:
		res, execErr := s.db.ExecContext(
			ctx,
			`INSERT INTO staging_streaming (
                raw_title, clean_title, raw_year, raw_director,
                rating_10, watched_date, raw_notes,
                match_status, tmdb_id, match_note, created_at, updated_at
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.RawTitle,
			db.NullableString(rec.CleanTitle),
			db.NullableInt(rec.RawYear),
			db.NullableString(rec.RawDirector),
			db.NullableFloat(rec.Rating10),
			db.NullableTime(rec.WatchedDate),
			db.NullableString(rec.RawNotes),
			rec.MatchStatus,
			nullableInt64(rec.TMDBID),
			db.NullableString(rec.MatchNote),
			timestamp,
			timestamp,
		)
		if execErr != nil {
			return false, fmt.Errorf("insert streaming record: %w", execErr)
		}
		rec.ID, err = res.LastInsertId()
		if err != nil {
			return false, fmt.Errorf("last insert id: %w", err)
		}
		return true, nil

	case SourceWatchlist:
		res, execErr := s.db.ExecContext(
			ctx,
			`INSERT INTO staging_watchlist (
                raw_title, clean_title, raw_year, raw_director,
                list_name, added_date,
                match_status, tmdb_id, match_note, created_at, updated_at
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.RawTitle,
			db.NullableString(rec.CleanTitle),
			db.NullableInt(rec.RawYear),
			db.NullableString(rec.RawDirector),
			db.NullableString(rec.ListName),
			db.NullableTime(rec.AddedDate),
			rec.MatchStatus,
			nullableInt64(rec.TMDBID),
			db.NullableString(rec.MatchNote),
			timestamp,
			timestamp,
		)
		if execErr != nil {
			return false, fmt.Errorf("insert watchlist record: %w", execErr)
		}
		rec.ID, err = res.LastInsertId()
		if err != nil {
			return false, fmt.Errorf("last insert id: %w", err)
		}
		return true, nil

	default:
		return false, fmt.Errorf("unknown source kind %q", rec.Kind)
	}
}

// GetByID fetches a record from the kind's table.
func (s *Store) GetByID(ctx context.Context, kind SourceKind, id int64) (*Record, error) {
	table := kind.table()
	if table == "" {
		return nil, fmt.Errorf("unknown source kind %q", kind)
	}
	row := s.db.QueryRowContext(ctx, `SELECT `+kindColumns(kind)+` FROM `+table+` WHERE id = ?`, id)
	rec, err := scanRecord(kind, row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	return rec, nil
}

// Eligible returns the oldest records awaiting a match pass.
func (s *Store) Eligible(ctx context.Context, kind SourceKind, limit int) ([]*Record, error) {
	table := kind.table()
	if table == "" {
		return nil, fmt.Errorf("unknown source kind %q", kind)
	}
	statuses := make([]any, len(EligibleStatuses))
	for i, status := range EligibleStatuses {
		statuses[i] = status
	}
	query := `SELECT ` + kindColumns(kind) + ` FROM ` + table +
		` WHERE match_status IN (` + db.Placeholders(len(statuses)) + `) ORDER BY id`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	rows, err := s.db.QueryContext(ctx, query, statuses...)
	if err != nil {
		return nil, fmt.Errorf("query eligible records: %w", err)
	}
	defer rows.Close()
	return collectRecords(kind, rows)
}

// List returns records filtered by status set, or every record when no
// status is provided.
func (s *Store) List(ctx context.Context, kind SourceKind, statuses ...Status) ([]*Record, error) {
	table := kind.table()
	if table == "" {
		return nil, fmt.Errorf("unknown source kind %q", kind)
	}
	query := `SELECT ` + kindColumns(kind) + ` FROM ` + table
	var args []any
	if len(statuses) > 0 {
		args = make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		query += ` WHERE match_status IN (` + db.Placeholders(len(statuses)) + `)`
	}
	query += ` ORDER BY id`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()
	return collectRecords(kind, rows)
}

// UpdateMatch records a match decision on a staging record. The note
// is appended to any existing note.
func (s *Store) UpdateMatch(ctx context.Context, kind SourceKind, id int64, status Status, tmdbID *int64, note string) error {
	table := kind.table()
	if table == "" {
		return fmt.Errorf("unknown source kind %q", kind)
	}
	if _, ok := statusSet[status]; !ok {
		return fmt.Errorf("unknown status %q", status)
	}
	rec, err := s.GetByID(ctx, kind, id)
	if err != nil {
		return err
	}
	if rec == nil {
		return fmt.Errorf("record %d not found in %s", id, table)
	}
	rec.AppendNote(note)
	_, err = s.db.ExecContext(
		ctx,
		`UPDATE `+table+` SET match_status = ?, tmdb_id = ?, match_note = ?, updated_at = ? WHERE id = ?`,
		status,
		nullableInt64(tmdbID),
		db.NullableString(rec.MatchNote),
		db.FormatTime(time.Now().UTC()),
		id,
	)
	if err != nil {
		return fmt.Errorf("update match: %w", err)
	}
	return nil
}

// SetStatus changes only the match status of a record.
func (s *Store) SetStatus(ctx context.Context, kind SourceKind, id int64, status Status) error {
	table := kind.table()
	if table == "" {
		return fmt.Errorf("unknown source kind %q", kind)
	}
	if _, ok := statusSet[status]; !ok {
		return fmt.Errorf("unknown status %q", status)
	}
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE `+table+` SET match_status = ?, updated_at = ? WHERE id = ?`,
		status,
		db.FormatTime(time.Now().UTC()),
		id,
	)
	if err != nil {
		return fmt.Errorf("set status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("record %d not found in %s", id, table)
	}
	return nil
}

// AppendNote adds to the rationale trail without touching the status.
func (s *Store) AppendNote(ctx context.Context, kind SourceKind, id int64, note string) error {
	rec, err := s.GetByID(ctx, kind, id)
	if err != nil {
		return err
	}
	if rec == nil {
		return fmt.Errorf("record %d not found in %s", id, kind.table())
	}
	rec.AppendNote(note)
	_, err = s.db.ExecContext(
		ctx,
		`UPDATE `+kind.table()+` SET match_note = ?, updated_at = ? WHERE id = ?`,
		db.NullableString(rec.MatchNote),
		db.FormatTime(time.Now().UTC()),
		id,
	)
	if err != nil {
		return fmt.Errorf("append note: %w", err)
	}
	return nil
}

// RetryErrors moves errored records back to pending. With no ids it
// retries every errored record of the kind.
func (s *Store) RetryErrors(ctx context.Context, kind SourceKind, ids ...int64) (int64, error) {
	table := kind.table()
	if table == "" {
		return 0, fmt.Errorf("unknown source kind %q", kind)
	}
	timestamp := db.FormatTime(time.Now().UTC())
	if len(ids) == 0 {
		res, err := s.db.ExecContext(
			ctx,
			`UPDATE `+table+` SET match_status = ?, updated_at = ? WHERE match_status = ?`,
			StatusPending, timestamp, StatusError,
		)
		if err != nil {
			return 0, fmt.Errorf("retry errored records: %w", err)
		}
		return res.RowsAffected()
	}
	args := make([]any, 0, len(ids)+3)
	args = append(args, StatusPending, timestamp, StatusError)
	for _, id := range ids {
		args = append(args, id)
	}
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE `+table+` SET match_status = ?, updated_at = ? WHERE match_status = ? AND id IN (`+db.Placeholders(len(ids))+`)`,
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("retry selected records: %w", err)
	}
	return res.RowsAffected()
}

// ResetForRematch clears the match decision so the next run resolves
// the records again. Applied records are left alone.
func (s *Store) ResetForRematch(ctx context.Context, kind SourceKind, ids ...int64) (int64, error) {
	table := kind.table()
	if table == "" {
		return 0, fmt.Errorf("unknown source kind %q", kind)
	}
	timestamp := db.FormatTime(time.Now().UTC())
	query := `UPDATE ` + table + ` SET match_status = ?, tmdb_id = NULL, match_note = NULL, updated_at = ?
        WHERE match_status NOT IN (?, ?)`
	args := []any{StatusPending, timestamp, StatusApplied, StatusReplaced}
	if len(ids) > 0 {
		query += ` AND id IN (` + db.Placeholders(len(ids)) + `)`
		for _, id := range ids {
			args = append(args, id)
		}
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("reset for rematch: %w", err)
	}
	return res.RowsAffected()
}

// MarkReplaced retires a boxset record whose titles were re-staged as
// individual matched rows.
func (s *Store) MarkReplaced(ctx context.Context, id int64, note string) error {
	rec, err := s.GetByID(ctx, SourceDisc, id)
	if err != nil {
		return err
	}
	if rec == nil {
		return fmt.Errorf("record %d not found in staging_disc", id)
	}
	rec.AppendNote(note)
	_, err = s.db.ExecContext(
		ctx,
		`UPDATE staging_disc SET match_status = ?, match_note = ?, updated_at = ? WHERE id = ?`,
		StatusReplaced,
		db.NullableString(rec.MatchNote),
		db.FormatTime(time.Now().UTC()),
		id,
	)
	if err != nil {
		return fmt.Errorf("mark replaced: %w", err)
	}
	return nil
}

// Stats counts records per status for one kind.
func (s *Store) Stats(ctx context.Context, kind SourceKind) (map[Status]int, error) {
	table := kind.table()
	if table == "" {
		return nil, fmt.Errorf("unknown source kind %q", kind)
	}
	rows, err := s.db.QueryContext(ctx, `SELECT match_status, COUNT(1) FROM `+table+` GROUP BY match_status`)
	if err != nil {
		return nil, fmt.Errorf("staging stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// Truncate removes every record of a kind, used by replace-mode imports.
func (s *Store) Truncate(ctx context.Context, kind SourceKind) (int64, error) {
	table := kind.table()
	if table == "" {
		return 0, fmt.Errorf("unknown source kind %q", kind)
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM `+table)
	if err != nil {
		return 0, fmt.Errorf("truncate %s: %w", table, err)
	}
	return res.RowsAffected()
}

func (s *Store) findNasByPath(ctx context.Context, path string) (*Record, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+kindColumns(SourceNas)+` FROM staging_nas WHERE file_path = ?`,
		path,
	)
	rec, err := scanRecord(SourceNas, row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find nas by path: %w", err)
	}
	return rec, nil
}

func collectRecords(kind SourceKind, rows *sql.Rows) ([]*Record, error) {
	var records []*Record
	for rows.Next() {
		rec, err := scanRecord(kind, rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func scanRecord(kind SourceKind, scanner interface{ Scan(dest ...any) error }) (*Record, error) {
	rec := &Record{Kind: kind}
	var (
		cleanTitle  sql.NullString
		rawYear     sql.NullInt64
		rawDirector sql.NullString
		statusStr   string
		tmdbID      sql.NullInt64
		matchNote   sql.NullString
		createdRaw  string
		updatedRaw  string
	)

	switch kind {
	case SourceDisc:
		var (
			ean, publisher, notes         sql.NullString
			publishRaw                    sql.NullString
			price                         sql.NullFloat64
			lengthMin, discCount, copies  sql.NullInt64
			edition, formats, splitGroup  sql.NullString
		)
		if err := scanner.Scan(
			&rec.ID, &rec.RawTitle, &cleanTitle, &rawYear, &rawDirector,
			&ean, &publisher, &publishRaw, &notes, &price, &lengthMin,
			&discCount, &copies, &edition, &formats, &splitGroup,
			&statusStr, &tmdbID, &matchNote, &createdRaw, &updatedRaw,
		); err != nil {
			return nil, err
		}
		rec.EAN = ean.String
		rec.Publisher = publisher.String
		rec.PublishDate = db.TimePtr(publishRaw)
		rec.Notes = notes.String
		rec.Price = db.FloatPtr(price)
		rec.LengthMin = db.IntPtr(lengthMin)
		rec.DiscCount = db.IntPtr(discCount)
		rec.Copies = db.IntPtr(copies)
		rec.Edition = edition.String
		rec.FormatsRaw = formats.String
		rec.SplitGroupKey = splitGroup.String

	case SourceNas:
		var (
			language, actors, synopsis        sql.NullString
			fileName, filePath, container     sql.NullString
			resolution, contentHash, addedRaw sql.NullString
		)
		if err := scanner.Scan(
			&rec.ID, &rec.RawTitle, &cleanTitle, &rawYear, &rawDirector,
			&language, &actors, &synopsis,
			&fileName, &filePath, &container, &resolution, &contentHash, &addedRaw,
			&statusStr, &tmdbID, &matchNote, &createdRaw, &updatedRaw,
		); err != nil {
			return nil, err
		}
		rec.RawLanguage = language.String
		rec.RawActors = actors.String
		rec.RawSynopsis = synopsis.String
		rec.FileName = fileName.String
		rec.FilePath = filePath.String
		rec.Container = container.String
		rec.Resolution = resolution.String
		rec.ContentHash = contentHash.String
		rec.DateAdded = db.TimePtr(addedRaw)

	case SourceStreaming:
		var (
			rating     sql.NullFloat64
			watchedRaw sql.NullString
			rawNotes   sql.NullString
		)
		if err := scanner.Scan(
			&rec.ID, &rec.RawTitle, &cleanTitle, &rawYear, &rawDirector,
			&rating, &watchedRaw, &rawNotes,
			&statusStr, &tmdbID, &matchNote, &createdRaw, &updatedRaw,
		); err != nil {
			return nil, err
		}
		rec.Rating10 = db.FloatPtr(rating)
		rec.WatchedDate = db.TimePtr(watchedRaw)
		rec.RawNotes = rawNotes.String

	case SourceWatchlist:
		var (
			listName sql.NullString
			addedRaw sql.NullString
		)
		if err := scanner.Scan(
			&rec.ID, &rec.RawTitle, &cleanTitle, &rawYear, &rawDirector,
			&listName, &addedRaw,
			&statusStr, &tmdbID, &matchNote, &createdRaw, &updatedRaw,
		); err != nil {
			return nil, err
		}
		rec.ListName = listName.String
		rec.AddedDate = db.TimePtr(addedRaw)

	default:
		return nil, fmt.Errorf("unknown source kind %q", kind)
	}

	rec.CleanTitle = cleanTitle.String
	rec.RawYear = db.IntPtr(rawYear)
	rec.RawDirector = rawDirector.String
	rec.MatchStatus = Status(statusStr)
	if tmdbID.Valid {
		v := tmdbID.Int64
		rec.TMDBID = &v
	}
	rec.MatchNote = matchNote.String
	if created, err := db.ParseTime(createdRaw); err == nil {
		rec.CreatedAt = created
	}
	if updated, err := db.ParseTime(updatedRaw); err == nil {
		rec.UpdatedAt = updated
	}
	return rec, nil
}

func nullableInt64(value *int64) any {
	if value == nil {
		return nil
	}
	return *value
}
