// Package tmdb provides a minimal client for the TMDB HTTP API
// covering the lookups the resolver needs: movie search, movie
// details, credits, and collection search.
package tmdb
