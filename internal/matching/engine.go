package matching

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"cinelog/internal/logging"
	"cinelog/internal/normalize"
	"cinelog/internal/resolve"
	"cinelog/internal/services"
	"cinelog/internal/staging"
)

// Merger applies a matched candidate to the catalog.
type Merger interface {
	Apply(ctx context.Context, rec *staging.Record, cand resolve.Candidate) (int64, error)
}

// RecordStore persists match transitions.
type RecordStore interface {
	UpdateMatch(ctx context.Context, kind staging.SourceKind, id int64, status staging.Status, tmdbID *int64, note string) error
}

// Options carry the match decision thresholds.
type Options struct {
	AcceptThreshold float64
	TieMargin       float64
}

// Engine decides the fate of one staging record at a time.
type Engine struct {
	store    RecordStore
	resolver resolve.Resolver
	merger   Merger
	logger   *slog.Logger
	opts     Options
}

// New builds a matching engine.
func New(store RecordStore, resolver resolve.Resolver, merger Merger, logger *slog.Logger, opts Options) *Engine {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Engine{
		store:    store,
		resolver: resolver,
		merger:   merger,
		logger:   logging.WithComponent(logger, "matching"),
		opts:     opts,
	}
}

// Outcome is where one record landed after processing.
type Outcome struct {
	Status staging.Status
	// ErrKind is the classified failure kind when Status is error.
	ErrKind string
}

// ProcessRecord runs the state machine for one record and returns the
// outcome it landed on. Every failure path classifies the record as
// error and stays retryable; ProcessRecord itself only returns an
// error when the store cannot be written.
func (e *Engine) ProcessRecord(ctx context.Context, rec *staging.Record) (Outcome, error) {
	// Records are split at ingest, so one fingerprint is the norm; a
	// bundle title slipping through still resolves by its first member.
	fingerprints := normalize.Normalize(rec.RawTitle, rec.RawYear, rec.RawDirector, rec.FormatsRaw, rec.DiscCount)
	var fingerprint normalize.Fingerprint
	if len(fingerprints) > 0 {
		fingerprint = fingerprints[0]
	}
	if rec.CleanTitle != "" {
		fingerprint.Title = rec.CleanTitle
	}
	if strings.TrimSpace(fingerprint.Title) == "" {
		return Outcome{Status: staging.StatusNotFound}, e.store.UpdateMatch(ctx, rec.Kind, rec.ID, staging.StatusNotFound, nil, "empty title after normalization")
	}

	query := resolve.Query{
		Fingerprint: fingerprint,
		DiscCount:   rec.DiscCount,
		Bundle:      len(fingerprints) > 1,
	}

	candidates, err := e.resolver.Resolve(ctx, query)
	if err != nil {
		kind := services.Classify(err)
		note := fmt.Sprintf("resolve failed (%s): %v", kind, err)
		e.logger.Warn("resolution failed",
			logging.Int64(logging.FieldRecordID, rec.ID),
			logging.String(logging.FieldSource, string(rec.Kind)),
			logging.Error(err))
		return Outcome{Status: staging.StatusError, ErrKind: kind}, e.store.UpdateMatch(ctx, rec.Kind, rec.ID, staging.StatusError, nil, note)
	}

	accepted := candidates[:0:0]
	for _, cand := range candidates {
		if cand.Confidence >= e.opts.AcceptThreshold {
			accepted = append(accepted, cand)
		}
	}

	if len(accepted) == 0 {
		note := fmt.Sprintf("no candidate above threshold %.2f", e.opts.AcceptThreshold)
		if len(candidates) > 0 {
			note = fmt.Sprintf("%s (best %.2f)", note, candidates[0].Confidence)
		}
		return Outcome{Status: staging.StatusNotFound}, e.store.UpdateMatch(ctx, rec.Kind, rec.ID, staging.StatusNotFound, nil, note)
	}

	top := accepted[0]
	if top.IsCollection {
		note := fmt.Sprintf("box set detected: %q (collection %d), split before matching", top.Title, top.ExternalID)
		return Outcome{Status: staging.StatusBoxset}, e.store.UpdateMatch(ctx, rec.Kind, rec.ID, staging.StatusBoxset, nil, note)
	}

	if len(accepted) >= 2 && accepted[1].Confidence >= top.Confidence-e.opts.TieMargin {
		ids := make([]string, 0, len(accepted))
		for _, cand := range accepted {
			if cand.Confidence >= top.Confidence-e.opts.TieMargin {
				ids = append(ids, fmt.Sprintf("%d (%.2f)", cand.ExternalID, cand.Confidence))
			}
		}
		note := "ambiguous between " + strings.Join(ids, ", ")
		return Outcome{Status: staging.StatusAmbiguous}, e.store.UpdateMatch(ctx, rec.Kind, rec.ID, staging.StatusAmbiguous, nil, note)
	}

	note := fmt.Sprintf("matched %q confidence=%.2f", top.Title, top.Confidence)
	if rec.RawYear != nil && top.Year > 0 {
		note = fmt.Sprintf("%s year_delta=%d", note, abs(top.Year-*rec.RawYear))
	}
	externalID := top.ExternalID
	if err := e.store.UpdateMatch(ctx, rec.Kind, rec.ID, staging.StatusMatched, &externalID, note); err != nil {
		return Outcome{Status: staging.StatusMatched}, err
	}

	if _, err := e.merger.Apply(ctx, rec, top); err != nil {
		kind := services.Classify(err)
		applyNote := fmt.Sprintf("apply failed (%s): %v", kind, err)
		e.logger.Warn("merge failed",
			logging.Int64(logging.FieldRecordID, rec.ID),
			logging.String(logging.FieldSource, string(rec.Kind)),
			logging.Error(err))
		return Outcome{Status: staging.StatusError, ErrKind: kind}, e.store.UpdateMatch(ctx, rec.Kind, rec.ID, staging.StatusError, nil, applyNote)
	}

	if err := e.store.UpdateMatch(ctx, rec.Kind, rec.ID, staging.StatusApplied, &externalID, "applied"); err != nil {
		// A record left at matched would never be eligible again; fall
		// back to error so the next run retries the idempotent apply.
		kind := services.Classify(err)
		failNote := fmt.Sprintf("applied but status write failed (%s): %v", kind, err)
		e.logger.Warn("applied status write failed",
			logging.Int64(logging.FieldRecordID, rec.ID),
			logging.String(logging.FieldSource, string(rec.Kind)),
			logging.Error(err))
		if revertErr := e.store.UpdateMatch(ctx, rec.Kind, rec.ID, staging.StatusError, nil, failNote); revertErr != nil {
			return Outcome{Status: staging.StatusMatched, ErrKind: kind}, revertErr
		}
		return Outcome{Status: staging.StatusError, ErrKind: kind}, nil
	}
	e.logger.Info("record applied",
		logging.Int64(logging.FieldRecordID, rec.ID),
		logging.String(logging.FieldSource, string(rec.Kind)),
		logging.Int64("tmdb_id", externalID))
	return Outcome{Status: staging.StatusApplied}, nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
