package resolve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"cinelog/internal/logging"
	"cinelog/internal/normalize"
	"cinelog/internal/services"
	"cinelog/internal/tmdb"
)

const defaultCandidateLimit = 5

// TMDBResolver resolves fingerprints against the TMDB API.
type TMDBResolver struct {
	client         tmdb.Searcher
	logger         *slog.Logger
	candidateLimit int
	yearTolerance  int
}

var _ Resolver = (*TMDBResolver)(nil)

// NewTMDBResolver builds a resolver over a TMDB client.
func NewTMDBResolver(client tmdb.Searcher, logger *slog.Logger, candidateLimit, yearTolerance int) *TMDBResolver {
	if logger == nil {
		logger = logging.NewNop()
	}
	if candidateLimit <= 0 {
		candidateLimit = defaultCandidateLimit
	}
	if yearTolerance < 0 {
		yearTolerance = 0
	}
	return &TMDBResolver{
		client:         client,
		logger:         logging.WithComponent(logger, "resolver"),
		candidateLimit: candidateLimit,
		yearTolerance:  yearTolerance,
	}
}

// Resolve searches TMDB and scores the results. Candidates come back
// ordered by confidence, at most candidateLimit of them.
func (r *TMDBResolver) Resolve(ctx context.Context, query Query) ([]Candidate, error) {
	title := strings.TrimSpace(query.Title)
	if title == "" {
		return nil, services.Wrap(services.ErrValidation, "resolver", "resolve", "empty title", nil)
	}

	var candidates []Candidate

	if LooksLikeCollection(query) {
		collection, err := r.probeCollection(ctx, title)
		if err != nil {
			return nil, err
		}
		if collection != nil {
			candidates = append(candidates, *collection)
		}
	}

	results, err := r.searchMovies(ctx, query)
	if err != nil {
		return nil, err
	}

	queryFold := normalize.Fold(title)
	scored := make([]Candidate, 0, len(results))
	for _, result := range results {
		scored = append(scored, Candidate{
			ExternalID:    result.ID,
			Title:         result.Title,
			OriginalTitle: result.OriginalTitle,
			Year:          result.ReleaseYear(),
			Confidence:    r.scoreResult(queryFold, query.Year, result),
		})
	}

	scored = r.breakTies(ctx, query, scored)
	candidates = append(candidates, scored...)

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Confidence > candidates[j].Confidence
	})
	if len(candidates) > r.candidateLimit {
		candidates = candidates[:r.candidateLimit]
	}

	r.logger.Debug("resolved fingerprint",
		logging.String("title", title),
		logging.Int("candidates", len(candidates)))
	return candidates, nil
}

func (r *TMDBResolver) searchMovies(ctx context.Context, query Query) ([]tmdb.Result, error) {
	opts := tmdb.SearchOptions{}
	if query.Year != nil {
		opts.Year = *query.Year
	}
	resp, err := r.client.SearchMovie(ctx, query.Title, opts)
	if err != nil {
		return nil, r.wrapSearchErr("search movie", err)
	}
	// A year-filtered search can miss releases dated a year off in
	// TMDB; fall back to an unfiltered search before giving up.
	if len(resp.Results) == 0 && opts.Year > 0 {
		resp, err = r.client.SearchMovie(ctx, query.Title, tmdb.SearchOptions{})
		if err != nil {
			return nil, r.wrapSearchErr("search movie", err)
		}
	}
	return resp.Results, nil
}

func (r *TMDBResolver) probeCollection(ctx context.Context, title string) (*Candidate, error) {
	resp, err := r.client.SearchCollection(ctx, title)
	if err != nil {
		return nil, r.wrapSearchErr("search collection", err)
	}
	if len(resp.Results) == 0 {
		return nil, nil
	}
	titleFold := normalize.Fold(title)
	top := resp.Results[0]
	nameFold := normalize.Fold(top.Name)
	confidence := 0.0
	switch {
	case nameFold == titleFold:
		confidence = 0.90
	case strings.Contains(nameFold, titleFold) || strings.Contains(titleFold, nameFold):
		confidence = 0.70
	default:
		return nil, nil
	}
	return &Candidate{
		ExternalID:   top.ID,
		Title:        top.Name,
		Confidence:   confidence,
		IsCollection: true,
	}, nil
}

func (r *TMDBResolver) scoreResult(queryFold string, queryYear *int, result tmdb.Result) float64 {
	titleFold := normalize.Fold(result.Title)
	originalFold := normalize.Fold(result.OriginalTitle)

	score := 0.0
	switch {
	case queryFold != "" && (titleFold == queryFold || originalFold == queryFold):
		score += weightExactTitle
	case queryFold != "" && (strings.Contains(titleFold, queryFold) || strings.Contains(originalFold, queryFold)):
		score += weightContainsTitle
	}

	if queryYear != nil {
		resultYear := result.ReleaseYear()
		if resultYear > 0 && abs(resultYear-*queryYear) <= r.yearTolerance {
			score += weightYear
		}
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}

// breakTies adds the director weight when the top candidates tie on
// score and the query names a director. Credits are only fetched for
// the tied head of the list.
func (r *TMDBResolver) breakTies(ctx context.Context, query Query, candidates []Candidate) []Candidate {
	director := normalize.FoldLoose(query.Director)
	if director == "" || len(candidates) < 2 {
		return candidates
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Confidence > candidates[j].Confidence
	})
	top := candidates[0].Confidence
	tied := 0
	for _, cand := range candidates {
		if cand.Confidence != top {
			break
		}
		tied++
	}
	if tied < 2 {
		return candidates
	}
	if tied > 3 {
		tied = 3
	}

	for i := 0; i < tied; i++ {
		credits, err := r.client.GetMovieCredits(ctx, candidates[i].ExternalID)
		if err != nil {
			r.logger.Warn("credits lookup failed during tie break",
				logging.Int64("tmdb_id", candidates[i].ExternalID),
				logging.Error(err))
			continue
		}
		for _, name := range credits.Directors() {
			candDirector := normalize.FoldLoose(name)
			if candDirector == "" {
				continue
			}
			if strings.Contains(candDirector, director) || strings.Contains(director, candDirector) {
				candidates[i].Confidence += weightDirector
				if candidates[i].Confidence > 1.0 {
					candidates[i].Confidence = 1.0
				}
				break
			}
		}
	}
	return candidates
}

func (r *TMDBResolver) wrapSearchErr(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return services.Wrap(services.ErrTimeout, "resolver", op, "tmdb call timed out", err)
	}
	return services.Wrap(services.ErrResolver, "resolver", op, fmt.Sprintf("tmdb %s failed", op), err)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
