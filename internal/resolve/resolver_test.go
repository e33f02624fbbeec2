package resolve_test

import (
	"context"
	"errors"
	"testing"

	"cinelog/internal/normalize"
	"cinelog/internal/resolve"
	"cinelog/internal/services"
	"cinelog/internal/tmdb"
)

type fakeSearcher struct {
	movies      map[string]*tmdb.Response
	collections map[string]*tmdb.CollectionResponse
	credits     map[int64]*tmdb.Credits
	searchErr   error
	creditCalls int
}

func (f *fakeSearcher) SearchMovie(ctx context.Context, query string, opts tmdb.SearchOptions) (*tmdb.Response, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	if resp, ok := f.movies[query]; ok {
		return resp, nil
	}
	return &tmdb.Response{}, nil
}

func (f *fakeSearcher) SearchCollection(ctx context.Context, query string) (*tmdb.CollectionResponse, error) {
	if resp, ok := f.collections[query]; ok {
		return resp, nil
	}
	return &tmdb.CollectionResponse{}, nil
}

func (f *fakeSearcher) GetMovieDetails(ctx context.Context, movieID int64) (*tmdb.MovieDetails, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeSearcher) GetMovieCredits(ctx context.Context, movieID int64) (*tmdb.Credits, error) {
	f.creditCalls++
	if credits, ok := f.credits[movieID]; ok {
		return credits, nil
	}
	return &tmdb.Credits{ID: movieID}, nil
}

func intPtr(v int) *int { return &v }

func query(title string, year *int, director string) resolve.Query {
	return resolve.Query{Fingerprint: normalize.Fingerprint{Title: title, Year: year, Director: director}}
}

func TestResolveExactTitleAndYear(t *testing.T) {
	searcher := &fakeSearcher{movies: map[string]*tmdb.Response{
		"Heat": {Results: []tmdb.Result{
			{ID: 949, Title: "Heat", OriginalTitle: "Heat", ReleaseDate: "1995-12-15"},
			{ID: 2, Title: "Heat of the Night", ReleaseDate: "1967-08-02"},
		}},
	}}
	resolver := resolve.NewTMDBResolver(searcher, nil, 5, 1)

	candidates, err := resolver.Resolve(context.Background(), query("Heat", intPtr(1995), ""))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(candidates))
	}
	if candidates[0].ExternalID != 949 {
		t.Fatalf("expected Heat first, got %d", candidates[0].ExternalID)
	}
	// exact title 0.50 + year 0.30
	if candidates[0].Confidence != 0.80 {
		t.Fatalf("expected confidence 0.80, got %v", candidates[0].Confidence)
	}
	// "Heat of the Night" contains the query title
	if candidates[1].Confidence != 0.20 {
		t.Fatalf("expected confidence 0.20, got %v", candidates[1].Confidence)
	}
}

func TestResolveYearWithinTolerance(t *testing.T) {
	searcher := &fakeSearcher{movies: map[string]*tmdb.Response{
		"Ran": {Results: []tmdb.Result{{ID: 11645, Title: "Ran", ReleaseDate: "1985-06-01"}}},
	}}
	resolver := resolve.NewTMDBResolver(searcher, nil, 5, 1)

	candidates, err := resolver.Resolve(context.Background(), query("Ran", intPtr(1986), ""))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if candidates[0].Confidence != 0.80 {
		t.Fatalf("year within tolerance should score, got %v", candidates[0].Confidence)
	}
}

func TestResolveDirectorTieBreak(t *testing.T) {
	searcher := &fakeSearcher{
		movies: map[string]*tmdb.Response{
			"Solaris": {Results: []tmdb.Result{
				{ID: 593, Title: "Solaris", OriginalTitle: "Солярис", ReleaseDate: "1972-03-20"},
				{ID: 2043, Title: "Solaris", ReleaseDate: "2002-11-27"},
			}},
		},
		credits: map[int64]*tmdb.Credits{
			593:  {Crew: []tmdb.CrewMember{{Name: "Andrei Tarkovsky", Job: "Director"}}},
			2043: {Crew: []tmdb.CrewMember{{Name: "Steven Soderbergh", Job: "Director"}}},
		},
	}
	resolver := resolve.NewTMDBResolver(searcher, nil, 5, 1)

	candidates, err := resolver.Resolve(context.Background(), query("Solaris", nil, "Andrei Tarkovsky"))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if candidates[0].ExternalID != 593 {
		t.Fatalf("director should break the tie toward 593, got %d", candidates[0].ExternalID)
	}
	if candidates[0].Confidence != 0.70 {
		t.Fatalf("expected 0.50 title + 0.20 director, got %v", candidates[0].Confidence)
	}
	if searcher.creditCalls == 0 {
		t.Fatal("expected credits lookups for the tied head")
	}
}

func TestResolveNoDirectorNoCreditsCalls(t *testing.T) {
	searcher := &fakeSearcher{movies: map[string]*tmdb.Response{
		"Solaris": {Results: []tmdb.Result{
			{ID: 593, Title: "Solaris", ReleaseDate: "1972-03-20"},
			{ID: 2043, Title: "Solaris", ReleaseDate: "2002-11-27"},
		}},
	}}
	resolver := resolve.NewTMDBResolver(searcher, nil, 5, 1)

	if _, err := resolver.Resolve(context.Background(), query("Solaris", nil, "")); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if searcher.creditCalls != 0 {
		t.Fatalf("credits must only be fetched with a director hint, got %d calls", searcher.creditCalls)
	}
}

func TestResolveCollectionProbe(t *testing.T) {
	searcher := &fakeSearcher{
		movies: map[string]*tmdb.Response{
			"Three Colours Trilogy": {Results: []tmdb.Result{{ID: 108, Title: "Three Colours: Blue", ReleaseDate: "1993-09-08"}}},
		},
		collections: map[string]*tmdb.CollectionResponse{
			"Three Colours Trilogy": {Results: []tmdb.CollectionResult{{ID: 131, Name: "Three Colours Trilogy"}}},
		},
	}
	resolver := resolve.NewTMDBResolver(searcher, nil, 5, 1)

	candidates, err := resolver.Resolve(context.Background(), query("Three Colours Trilogy", nil, ""))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(candidates) == 0 || !candidates[0].IsCollection {
		t.Fatalf("expected a collection candidate first, got %+v", candidates)
	}
	if candidates[0].ExternalID != 131 {
		t.Fatalf("unexpected collection id %d", candidates[0].ExternalID)
	}
}

func TestResolveCollectionProbeByDiscCount(t *testing.T) {
	q := query("Back to the Future", nil, "")
	q.DiscCount = intPtr(3)
	if !resolve.LooksLikeCollection(q) {
		t.Fatal("three discs should smell like a box set")
	}
	q.DiscCount = intPtr(2)
	if resolve.LooksLikeCollection(q) {
		t.Fatal("two discs alone should not")
	}
}

func TestResolveCandidateLimit(t *testing.T) {
	results := make([]tmdb.Result, 10)
	for i := range results {
		results[i] = tmdb.Result{ID: int64(i + 1), Title: "Dracula"}
	}
	searcher := &fakeSearcher{movies: map[string]*tmdb.Response{"Dracula": {Results: results}}}
	resolver := resolve.NewTMDBResolver(searcher, nil, 5, 1)

	candidates, err := resolver.Resolve(context.Background(), query("Dracula", nil, ""))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(candidates) != 5 {
		t.Fatalf("expected candidate limit 5, got %d", len(candidates))
	}
}

func TestResolveWrapsTimeout(t *testing.T) {
	searcher := &fakeSearcher{searchErr: context.DeadlineExceeded}
	resolver := resolve.NewTMDBResolver(searcher, nil, 5, 1)

	_, err := resolver.Resolve(context.Background(), query("Stalker", nil, ""))
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected timeout marker, got %v", err)
	}
}

func TestResolveWrapsResolverError(t *testing.T) {
	searcher := &fakeSearcher{searchErr: errors.New("boom")}
	resolver := resolve.NewTMDBResolver(searcher, nil, 5, 1)

	_, err := resolver.Resolve(context.Background(), query("Stalker", nil, ""))
	if !errors.Is(err, services.ErrResolver) {
		t.Fatalf("expected resolver marker, got %v", err)
	}
}

func TestResolveEmptyTitleRejected(t *testing.T) {
	resolver := resolve.NewTMDBResolver(&fakeSearcher{}, nil, 5, 1)
	_, err := resolver.Resolve(context.Background(), query("  ", nil, ""))
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation marker, got %v", err)
	}
}
