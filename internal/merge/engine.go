package merge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"cinelog/internal/catalog"
	"cinelog/internal/logging"
	"cinelog/internal/normalize"
	"cinelog/internal/resolve"
	"cinelog/internal/services"
	"cinelog/internal/staging"
	"cinelog/internal/tmdb"
	"cinelog/internal/userstate"
)

// Engine applies match decisions to the catalog.
type Engine struct {
	films  *catalog.Store
	users  *userstate.Store
	client tmdb.Searcher
	logger *slog.Logger
}

// New builds a merge engine over the catalog and user state stores.
func New(films *catalog.Store, users *userstate.Store, client tmdb.Searcher, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Engine{
		films:  films,
		users:  users,
		client: client,
		logger: logging.WithComponent(logger, "merge"),
	}
}

// Apply merges one matched record into the catalog and returns the
// film id. Collection candidates are never applied; they belong to the
// boxset path.
func (e *Engine) Apply(ctx context.Context, rec *staging.Record, cand resolve.Candidate) (int64, error) {
	if rec == nil {
		return 0, services.Wrap(services.ErrValidation, "merge", "apply", "nil record", nil)
	}
	if cand.IsCollection {
		return 0, services.Wrap(services.ErrValidation, "merge", "apply", "collection candidate cannot be applied", nil)
	}
	if cand.ExternalID <= 0 {
		return 0, services.Wrap(services.ErrValidation, "merge", "apply", "candidate has no external id", nil)
	}

	details, err := e.client.GetMovieDetails(ctx, cand.ExternalID)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return 0, services.Wrap(services.ErrTimeout, "merge", "details", "tmdb details timed out", err)
		}
		return 0, services.Wrap(services.ErrTransient, "merge", "details", "tmdb details fetch failed", err)
	}

	if err := e.checkTitleConflict(ctx, details); err != nil {
		return 0, err
	}

	filmID, err := e.films.UpsertFilm(ctx, filmInput(details))
	if err != nil {
		return 0, services.Wrap(services.ErrTransient, "merge", "film", "film upsert failed", err)
	}
	if err := e.films.UpsertGenres(ctx, filmID, genreInputs(details.Genres)); err != nil {
		return 0, services.Wrap(services.ErrTransient, "merge", "genres", "genre upsert failed", err)
	}

	switch rec.Kind {
	case staging.SourceDisc:
		err = e.applyDisc(ctx, rec, filmID)
	case staging.SourceNas:
		err = e.applyNas(ctx, rec, filmID)
	case staging.SourceStreaming:
		err = e.applyStreaming(ctx, rec, filmID)
	case staging.SourceWatchlist:
		err = e.applyWatchlist(ctx, rec, filmID)
	default:
		err = services.Wrap(services.ErrValidation, "merge", "apply", fmt.Sprintf("unknown source kind %q", rec.Kind), nil)
	}
	if err != nil {
		return 0, err
	}

	e.logger.Info("record merged",
		logging.Int64(logging.FieldRecordID, rec.ID),
		logging.String(logging.FieldSource, string(rec.Kind)),
		logging.Int64("film_id", filmID),
		logging.Int64("tmdb_id", details.ID))
	return filmID, nil
}

// checkTitleConflict refuses to overwrite an existing film whose title
// disagrees with the incoming metadata beyond fold tolerance.
func (e *Engine) checkTitleConflict(ctx context.Context, details *tmdb.MovieDetails) error {
	existing, err := e.films.GetFilmByTMDBID(ctx, details.ID)
	if err != nil {
		return services.Wrap(services.ErrTransient, "merge", "film", "film lookup failed", err)
	}
	if existing == nil {
		return nil
	}
	existingFold := normalize.Fold(existing.Title)
	if existingFold == "" {
		return nil
	}
	if existingFold == normalize.Fold(details.Title) || existingFold == normalize.Fold(details.OriginalTitle) {
		return nil
	}
	return services.Wrap(
		services.ErrMergeConflict,
		"merge",
		"film",
		fmt.Sprintf("tmdb id %d already cataloged as %q, refusing %q", details.ID, existing.Title, details.Title),
		nil,
	)
}

func (e *Engine) applyDisc(ctx context.Context, rec *staging.Record, filmID int64) error {
	formats := normalize.InferFormats(rec.RawTitle, rec.FormatsRaw, rec.DiscCount)
	if len(formats) == 0 {
		// A disc export row with no parseable format is still a
		// physical copy; Blu-ray is the collection's default medium.
		formats = []normalize.Format{normalize.FormatBluray}
	}

	sourceCode := catalog.SourceCodeBR
	if len(formats) == 1 && formats[0] == normalize.FormatDVD {
		sourceCode = catalog.SourceCodeDVD
	}
	if err := e.films.UpsertFilmSource(ctx, filmID, sourceCode, true, rec.Notes); err != nil {
		return services.Wrap(services.ErrTransient, "merge", "film_source", "film source upsert failed", err)
	}

	copies := 1
	if rec.Copies != nil && *rec.Copies > 0 {
		copies = *rec.Copies
	}
	for _, format := range formats {
		input := catalog.PhysicalCopyInput{
			FilmID:    filmID,
			Format:    string(format),
			Edition:   rec.Edition,
			Copies:    copies,
			EAN:       rec.EAN,
			DiscCount: rec.DiscCount,
			Notes:     rec.Notes,
		}
		if err := e.films.UpsertPhysicalCopy(ctx, input); err != nil {
			return services.Wrap(services.ErrTransient, "merge", "physical_copy", "physical copy upsert failed", err)
		}
	}
	return nil
}

func (e *Engine) applyNas(ctx context.Context, rec *staging.Record, filmID int64) error {
	if rec.FilePath == "" {
		return services.Wrap(services.ErrValidation, "merge", "nas_asset", "nas record has no file path", nil)
	}
	if err := e.films.UpsertFilmSource(ctx, filmID, catalog.SourceCodeNAS, true, ""); err != nil {
		return services.Wrap(services.ErrTransient, "merge", "film_source", "film source upsert failed", err)
	}
	asset := catalog.NasAssetInput{
		FilmID:      filmID,
		Path:        rec.FilePath,
		FileName:    rec.FileName,
		Container:   rec.Container,
		Resolution:  rec.Resolution,
		ContentHash: rec.ContentHash,
		ScannedAt:   rec.DateAdded,
	}
	if err := e.films.UpsertNasAsset(ctx, asset); err != nil {
		return services.Wrap(services.ErrTransient, "merge", "nas_asset", "nas asset upsert failed", err)
	}
	return nil
}

func (e *Engine) applyStreaming(ctx context.Context, rec *staging.Record, filmID int64) error {
	if err := e.films.UpsertFilmSource(ctx, filmID, catalog.SourceCodeStreaming, true, ""); err != nil {
		return services.Wrap(services.ErrTransient, "merge", "film_source", "film source upsert failed", err)
	}
	watch := userstate.WatchInput{
		FilmID:     filmID,
		WatchedAt:  rec.WatchedDate,
		Rating10:   rec.Rating10,
		Context:    "streaming_import",
		StagingRef: stagingRef(rec),
	}
	if err := e.users.RecordWatch(ctx, watch); err != nil {
		return services.Wrap(services.ErrTransient, "merge", "watch_event", "record watch failed", err)
	}
	return nil
}

func (e *Engine) applyWatchlist(ctx context.Context, rec *staging.Record, filmID int64) error {
	if err := e.users.EnsureWatchlisted(ctx, userstate.DefaultUserID, filmID); err != nil {
		return services.Wrap(services.ErrTransient, "merge", "user_film", "ensure watchlisted failed", err)
	}
	if rec.ListName != "" {
		if err := e.users.AddToList(ctx, rec.ListName, filmID); err != nil {
			return services.Wrap(services.ErrTransient, "merge", "list", "add to list failed", err)
		}
	}
	return nil
}

func stagingRef(rec *staging.Record) string {
	return fmt.Sprintf("%s:%d", rec.Kind, rec.ID)
}

func filmInput(details *tmdb.MovieDetails) catalog.FilmInput {
	return catalog.FilmInput{
		TMDBID:           details.ID,
		IMDBID:           details.IMDBID,
		Title:            details.Title,
		OriginalTitle:    details.OriginalTitle,
		ReleaseDate:      details.ReleaseDate,
		RuntimeMin:       details.Runtime,
		Overview:         details.Overview,
		OriginalLanguage: details.OriginalLanguage,
		PosterPath:       details.PosterPath,
		BackdropPath:     details.BackdropPath,
		Popularity:       details.Popularity,
		VoteAverage:      details.VoteAverage,
		VoteCount:        int(details.VoteCount),
	}
}

func genreInputs(genres []tmdb.Genre) []catalog.GenreInput {
	inputs := make([]catalog.GenreInput, 0, len(genres))
	for _, genre := range genres {
		inputs = append(inputs, catalog.GenreInput{TMDBGenreID: genre.ID, Name: genre.Name})
	}
	return inputs
}
