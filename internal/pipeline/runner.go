package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"cinelog/internal/logging"
	"cinelog/internal/matching"
	"cinelog/internal/notifications"
	"cinelog/internal/services"
	"cinelog/internal/staging"
)

// Processor handles one staging record end to end.
type Processor interface {
	ProcessRecord(ctx context.Context, rec *staging.Record) (matching.Outcome, error)
}

// Options tune one batch run.
type Options struct {
	// Workers bounds the pool; values below one fall back to the default.
	Workers int
	// BatchLimit caps eligible records per source kind; zero means all.
	BatchLimit int
	// RecordTimeout bounds resolver and merge work per record.
	RecordTimeout time.Duration
	// LockPath is the flock path guarding the database. Required.
	LockPath string
}

const defaultWorkers = 4

// Summary is the aggregate outcome of one run.
type Summary struct {
	RunID        string
	Processed    int
	PerStatus    map[staging.Status]int
	PerErrorKind map[string]int
	Duration     time.Duration
}

// Applied counts records that made it into the catalog.
func (s *Summary) Applied() int { return s.PerStatus[staging.StatusApplied] }

// Failed counts records that ended the run in error.
func (s *Summary) Failed() int { return s.PerStatus[staging.StatusError] }

// Runner drains the staging tables through a Processor.
type Runner struct {
	store     *staging.Store
	processor Processor
	notifier  notifications.Service
	logger    *slog.Logger
	opts      Options
}

// New builds a runner.
func New(store *staging.Store, processor Processor, notifier notifications.Service, logger *slog.Logger, opts Options) *Runner {
	if logger == nil {
		logger = logging.NewNop()
	}
	if opts.Workers < 1 {
		opts.Workers = defaultWorkers
	}
	return &Runner{
		store:     store,
		processor: processor,
		notifier:  notifier,
		logger:    logging.WithComponent(logger, "pipeline"),
		opts:      opts,
	}
}

// Run processes every eligible record once. A record failure never
// aborts the run; the record is classified and the run moves on.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	lock := flock.New(r.opts.LockPath)
	locked, err := lock.TryLock()
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "pipeline", "lock", "acquire run lock", err)
	}
	if !locked {
		return nil, services.Wrap(services.ErrValidation, "pipeline", "lock", fmt.Sprintf("another run holds %s", r.opts.LockPath), nil)
	}
	defer func() { _ = lock.Unlock() }()

	runID := uuid.NewString()
	logger := r.logger.With(logging.String(logging.FieldRunID, runID))
	started := time.Now()

	var records []*staging.Record
	for _, kind := range staging.AllSourceKinds() {
		eligible, err := r.store.Eligible(ctx, kind, r.opts.BatchLimit)
		if err != nil {
			return nil, services.Wrap(services.ErrTransient, "pipeline", "scan", "list eligible records", err)
		}
		records = append(records, eligible...)
	}

	summary := &Summary{
		RunID:        runID,
		PerStatus:    make(map[staging.Status]int),
		PerErrorKind: make(map[string]int),
	}
	if len(records) == 0 {
		logger.Info("nothing to process")
		summary.Duration = time.Since(started)
		return summary, nil
	}

	logger.Info("run started",
		logging.Int("eligible", len(records)),
		logging.Int("workers", r.opts.Workers))
	if r.notifier != nil {
		if err := r.notifier.NotifyRunStarted(ctx, len(records)); err != nil {
			logger.Warn("run started notification failed", logging.Error(err))
		}
	}

	jobs := make(chan *staging.Record)
	var wg sync.WaitGroup
	var mu sync.Mutex

	for i := 0; i < r.opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for rec := range jobs {
				outcome := r.processOne(ctx, logger, rec)
				mu.Lock()
				summary.Processed++
				summary.PerStatus[outcome.Status]++
				if outcome.ErrKind != "" {
					summary.PerErrorKind[outcome.ErrKind]++
				}
				mu.Unlock()
			}
		}()
	}

dispatch:
	for _, rec := range records {
		select {
		case <-ctx.Done():
			break dispatch
		case jobs <- rec:
		}
	}
	close(jobs)
	wg.Wait()

	summary.Duration = time.Since(started)
	logger.Info("run finished",
		logging.Int("processed", summary.Processed),
		logging.Int("applied", summary.Applied()),
		logging.Int("failed", summary.Failed()),
		logging.Duration("duration", summary.Duration))

	if r.notifier != nil {
		if err := r.notifier.NotifyRunCompleted(ctx, summary.Applied(), summary.Failed(), summary.Duration); err != nil {
			logger.Warn("run completed notification failed", logging.Error(err))
		}
	}
	if err := ctx.Err(); err != nil {
		return summary, services.Wrap(services.ErrTimeout, "pipeline", "run", "run interrupted", err)
	}
	return summary, nil
}

func (r *Runner) processOne(ctx context.Context, logger *slog.Logger, rec *staging.Record) matching.Outcome {
	recordCtx := ctx
	if r.opts.RecordTimeout > 0 {
		var cancel context.CancelFunc
		recordCtx, cancel = context.WithTimeout(ctx, r.opts.RecordTimeout)
		defer cancel()
	}

	outcome, err := r.processor.ProcessRecord(recordCtx, rec)
	if err != nil {
		// The store write failed; the record keeps its previous status
		// and stays eligible for the next run.
		logger.Error("record processing failed",
			logging.Int64(logging.FieldRecordID, rec.ID),
			logging.String(logging.FieldSource, string(rec.Kind)),
			logging.Error(err))
		return matching.Outcome{Status: staging.StatusError, ErrKind: services.Classify(err)}
	}
	logger.Debug("record processed",
		logging.Int64(logging.FieldRecordID, rec.ID),
		logging.String(logging.FieldSource, string(rec.Kind)),
		logging.String(logging.FieldStatus, string(outcome.Status)))
	return outcome
}
