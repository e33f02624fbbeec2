package catalog

import "time"

// Film is one canonical catalog entry. TMDBID is nil for films added
// by hand; those are unique by (folded title, year) instead.
type Film struct {
	ID               int64
	TMDBID           *int64
	IMDBID           string
	Title            string
	OriginalTitle    string
	ReleaseDate      string
	Year             *int
	RuntimeMin       *int
	Overview         string
	OriginalLanguage string
	PosterPath       string
	BackdropPath     string
	Popularity       *float64
	VoteAverage      *float64
	VoteCount        *int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// FilmInput carries the external metadata the merge engine writes.
type FilmInput struct {
	TMDBID           int64
	IMDBID           string
	Title            string
	OriginalTitle    string
	ReleaseDate      string
	RuntimeMin       int
	Overview         string
	OriginalLanguage string
	PosterPath       string
	BackdropPath     string
	Popularity       float64
	VoteAverage      float64
	VoteCount        int
}

// GenreInput is one genre as delivered by the metadata provider.
type GenreInput struct {
	TMDBGenreID int64
	Name        string
}

// Genre is a stored genre row.
type Genre struct {
	ID          int64
	TMDBGenreID int64
	Name        string
}

// CreditInput is one person credit to attach to a film.
type CreditInput struct {
	TMDBPersonID int64
	Name         string
	Department   string
	Job          string
	BillingOrder *int
}

// Credit is a stored film credit joined with its person.
type Credit struct {
	PersonID     int64
	TMDBPersonID int64
	Name         string
	Department   string
	Job          string
	BillingOrder *int
}

// PhysicalCopyInput identifies one physical copy by its natural key
// (film, format, edition) plus the mutable detail fields.
type PhysicalCopyInput struct {
	FilmID    int64
	Format    string
	Edition   string
	Region    string
	Copies    int
	EAN       string
	DiscCount *int
	Notes     string
}

// PhysicalCopy is a stored physical copy row.
type PhysicalCopy struct {
	ID        int64
	FilmID    int64
	Format    string
	Edition   string
	Region    string
	Copies    int
	EAN       string
	DiscCount *int
	Notes     string
	UpdatedAt time.Time
}

// NasAssetInput identifies one NAS file by its unique path.
type NasAssetInput struct {
	FilmID      int64
	Path        string
	FileName    string
	Container   string
	Resolution  string
	ContentHash string
	ScannedAt   *time.Time
}

// NasAsset is a stored NAS asset row.
type NasAsset struct {
	ID          int64
	FilmID      int64
	Path        string
	FileName    string
	Container   string
	Resolution  string
	ContentHash string
	ScannedAt   *time.Time
}

// FilmSource is the availability fact linking a film to a source.
type FilmSource struct {
	FilmID      int64
	SourceCode  string
	IsAvailable bool
	Notes       string
}
