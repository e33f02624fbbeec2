package resolve

import (
	"context"
	"strings"

	"cinelog/internal/normalize"
)

// Candidate is one ranked external identity for a fingerprint.
type Candidate struct {
	ExternalID    int64
	Title         string
	OriginalTitle string
	Year          int
	Confidence    float64
	IsCollection  bool
}

// Query is a fingerprint plus the record-level hints the resolver uses
// for collection detection.
type Query struct {
	normalize.Fingerprint

	// DiscCount carries the physical disc count when known.
	DiscCount *int

	// Bundle marks a fingerprint that came from a multi-title split.
	Bundle bool
}

// Confidence weights. The total for a perfect match caps at 1.0.
const (
	weightExactTitle    = 0.50
	weightContainsTitle = 0.20
	weightYear          = 0.30
	weightDirector      = 0.20
)

// Resolver maps a query onto candidates ordered by confidence.
type Resolver interface {
	Resolve(ctx context.Context, query Query) ([]Candidate, error)
}

var collectionKeywords = []string{
	"trilogy",
	"trilogie",
	"collection",
	"coffret",
	"integrale",
	"intégrale",
	"saga",
	"anthology",
	"anthologie",
	"box set",
	"boxset",
}

// LooksLikeCollection reports whether a query smells like a box set:
// a split bundle, a three-or-more disc release, or a collection
// keyword in the title.
func LooksLikeCollection(query Query) bool {
	if query.Bundle {
		return true
	}
	if query.DiscCount != nil && *query.DiscCount >= 3 {
		return true
	}
	lowered := strings.ToLower(query.Title)
	for _, keyword := range collectionKeywords {
		if strings.Contains(lowered, keyword) {
			return true
		}
	}
	return false
}
