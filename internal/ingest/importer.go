package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"cinelog/internal/logging"
	"cinelog/internal/normalize"
	"cinelog/internal/services"
	"cinelog/internal/staging"
)

// Importer loads CSV exports into the staging store.
type Importer struct {
	store  *staging.Store
	logger *slog.Logger
}

// New builds an importer.
func New(store *staging.Store, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Importer{
		store:  store,
		logger: logging.WithComponent(logger, "ingest"),
	}
}

// Result summarizes one import.
type Result struct {
	// Inserted counts new staging rows, after bundle splitting.
	Inserted int
	// Skipped counts rows deduplicated against existing staging rows.
	Skipped int
	// Rejected counts CSV lines dropped for a missing title or, for
	// NAS exports, a missing file path.
	Rejected int
}

// Import reads one CSV export for the given source kind. With replace
// set, the staging table is emptied first. Rejected rows are counted,
// never fatal; an export with no importable row at all is a validation
// error.
func (im *Importer) Import(ctx context.Context, kind staging.SourceKind, r io.Reader, replace bool) (*Result, error) {
	reader := newCSVReader(r)
	headerRow, err := reader.Read()
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "ingest", string(kind), "read csv header", err)
	}
	head := buildHeader(headerRow)
	if !head.has("title") {
		return nil, services.Wrap(services.ErrValidation, "ingest", string(kind), "no title column found in csv header", nil)
	}

	if replace {
		removed, err := im.store.Truncate(ctx, kind)
		if err != nil {
			return nil, services.Wrap(services.ErrTransient, "ingest", string(kind), "truncate staging table", err)
		}
		im.logger.Info("staging table emptied",
			logging.String(logging.FieldSource, string(kind)),
			logging.Int64("removed", removed))
	}

	result := &Result{}
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			result.Rejected++
			continue
		}
		if err != nil {
			return nil, services.Wrap(services.ErrValidation, "ingest", string(kind), "read csv row", err)
		}

		records := buildRecords(kind, head, row)
		if len(records) == 0 {
			result.Rejected++
			continue
		}
		for _, rec := range records {
			inserted, err := im.store.Insert(ctx, rec)
			if err != nil {
				return nil, services.Wrap(services.ErrTransient, "ingest", string(kind), "insert staging record", err)
			}
			if inserted {
				result.Inserted++
			} else {
				result.Skipped++
			}
		}
	}

	if result.Inserted == 0 && result.Skipped == 0 {
		return result, services.Wrap(
			services.ErrValidation,
			"ingest",
			string(kind),
			fmt.Sprintf("no importable rows (%d rejected)", result.Rejected),
			nil,
		)
	}

	im.logger.Info("import finished",
		logging.String(logging.FieldSource, string(kind)),
		logging.Int("inserted", result.Inserted),
		logging.Int("skipped", result.Skipped),
		logging.Int("rejected", result.Rejected))
	return result, nil
}

func buildRecords(kind staging.SourceKind, head header, row []string) []*staging.Record {
	switch kind {
	case staging.SourceDisc:
		return discRecords(head, row)
	case staging.SourceNas:
		return nasRecord(head, row)
	case staging.SourceStreaming:
		return streamingRecord(head, row)
	case staging.SourceWatchlist:
		return watchlistRecord(head, row)
	default:
		return nil
	}
}

// discRecords splits bundle titles at ingest time: one staging row per
// logical film, all sharing the split group key. Bracket tokens are
// preserved verbatim in formats_raw for audit.
func discRecords(head header, row []string) []*staging.Record {
	rawTitle := head.value(row, "title")
	if rawTitle == "" {
		return nil
	}

	titles, groupKey := normalize.SplitTitle(rawTitle)
	formatsRaw := strings.Join(normalize.ExtractBracketTokens(rawTitle), ", ")

	records := make([]*staging.Record, 0, len(titles))
	for _, title := range titles {
		records = append(records, &staging.Record{
			Kind:          staging.SourceDisc,
			RawTitle:      title,
			CleanTitle:    normalize.CleanTitle(title),
			RawYear:       parseYear(head.value(row, "year")),
			RawDirector:   head.value(row, "director"),
			EAN:           normalizeEAN(head.value(row, "ean")),
			Publisher:     head.value(row, "publisher"),
			PublishDate:   parseDate(head.value(row, "publishdate")),
			Notes:         head.value(row, "notes"),
			Price:         parseFloatField(head.value(row, "price")),
			LengthMin:     parseIntField(head.value(row, "length")),
			DiscCount:     parseIntField(head.value(row, "disccount")),
			Copies:        parseIntField(head.value(row, "copies")),
			Edition:       head.value(row, "edition"),
			FormatsRaw:    formatsRaw,
			SplitGroupKey: groupKey,
		})
	}
	return records
}

func nasRecord(head header, row []string) []*staging.Record {
	rawTitle := head.value(row, "title")
	filePath := head.value(row, "filepath")
	if rawTitle == "" || filePath == "" {
		return nil
	}

	fileName := head.value(row, "file")
	if fileName == "" {
		fileName = filepath.Base(filePath)
	}
	container := head.value(row, "container")
	if container == "" {
		container = strings.ToLower(strings.TrimPrefix(filepath.Ext(fileName), "."))
	}

	return []*staging.Record{{
		Kind:        staging.SourceNas,
		RawTitle:    rawTitle,
		CleanTitle:  normalize.CleanTitle(rawTitle),
		RawYear:     parseYear(head.value(row, "year")),
		RawDirector: head.value(row, "director"),
		RawLanguage: normalizeLanguage(head.value(row, "language")),
		RawActors:   head.value(row, "actors"),
		RawSynopsis: head.value(row, "synopsis"),
		FileName:    fileName,
		FilePath:    filePath,
		Container:   container,
		Resolution:  head.value(row, "resolution"),
		ContentHash: head.value(row, "hash"),
		DateAdded:   parseDate(head.value(row, "dateadded")),
	}}
}

func streamingRecord(head header, row []string) []*staging.Record {
	rawTitle := head.value(row, "title")
	if rawTitle == "" {
		return nil
	}
	return []*staging.Record{{
		Kind:        staging.SourceStreaming,
		RawTitle:    rawTitle,
		CleanTitle:  normalize.CleanTitle(rawTitle),
		RawYear:     parseYear(head.value(row, "year")),
		RawDirector: head.value(row, "director"),
		Rating10:    parseFloatField(head.value(row, "rating")),
		WatchedDate: parseDate(head.value(row, "watched")),
		RawNotes:    head.value(row, "notes"),
	}}
}

func watchlistRecord(head header, row []string) []*staging.Record {
	rawTitle := head.value(row, "title")
	if rawTitle == "" {
		return nil
	}
	return []*staging.Record{{
		Kind:        staging.SourceWatchlist,
		RawTitle:    rawTitle,
		CleanTitle:  normalize.CleanTitle(rawTitle),
		RawYear:     parseYear(head.value(row, "year")),
		RawDirector: head.value(row, "director"),
		ListName:    head.value(row, "list"),
		AddedDate:   parseDate(head.value(row, "dateadded")),
	}}
}
