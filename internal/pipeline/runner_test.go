package pipeline_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"cinelog/internal/db"
	"cinelog/internal/matching"
	"cinelog/internal/pipeline"
	"cinelog/internal/services"
	"cinelog/internal/staging"
)

type fakeProcessor struct {
	mu       sync.Mutex
	seen     []int64
	outcomes map[int64]matching.Outcome
	err      error
}

func (f *fakeProcessor) ProcessRecord(_ context.Context, rec *staging.Record) (matching.Outcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = append(f.seen, rec.ID)
	if f.err != nil {
		return matching.Outcome{}, f.err
	}
	if outcome, ok := f.outcomes[rec.ID]; ok {
		return outcome, nil
	}
	return matching.Outcome{Status: staging.StatusApplied}, nil
}

type fakeNotifier struct {
	mu        sync.Mutex
	started   []int
	completed [][2]int
}

func (f *fakeNotifier) NotifyRunStarted(_ context.Context, eligible int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = append(f.started, eligible)
	return nil
}

func (f *fakeNotifier) NotifyRunCompleted(_ context.Context, applied, failed int, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completed = append(f.completed, [2]int{applied, failed})
	return nil
}

func (f *fakeNotifier) NotifyError(context.Context, error, string) error { return nil }
func (f *fakeNotifier) TestNotification(context.Context) error           { return nil }

func newStore(t *testing.T) (*staging.Store, string) {
	t.Helper()
	dir := t.TempDir()
	handle, err := db.Open(filepath.Join(dir, "cinelog.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = handle.Close() })
	store, err := staging.NewStore(context.Background(), handle)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return store, filepath.Join(dir, "cinelog.db.lock")
}

func insertRecords(t *testing.T, store *staging.Store, kind staging.SourceKind, titles ...string) []int64 {
	t.Helper()
	ids := make([]int64, 0, len(titles))
	for _, title := range titles {
		rec := &staging.Record{Kind: kind, RawTitle: title}
		if kind == staging.SourceNas {
			rec.FilePath = "/films/" + title + ".mkv"
		}
		if _, err := store.Insert(context.Background(), rec); err != nil {
			t.Fatalf("insert: %v", err)
		}
		ids = append(ids, rec.ID)
	}
	return ids
}

func TestRunProcessesAllKinds(t *testing.T) {
	store, lockPath := newStore(t)
	discIDs := insertRecords(t, store, staging.SourceDisc, "Heat [4K]", "Ran")
	nasIDs := insertRecords(t, store, staging.SourceNas, "Stalker")

	processor := &fakeProcessor{outcomes: map[int64]matching.Outcome{
		discIDs[1]: {Status: staging.StatusNotFound},
		nasIDs[0]:  {Status: staging.StatusError, ErrKind: "timeout"},
	}}
	notifier := &fakeNotifier{}
	runner := pipeline.New(store, processor, notifier, nil, pipeline.Options{Workers: 2, LockPath: lockPath})

	summary, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.Processed != 3 {
		t.Fatalf("expected 3 processed, got %d", summary.Processed)
	}
	if summary.PerStatus[staging.StatusApplied] != 1 || summary.PerStatus[staging.StatusNotFound] != 1 || summary.PerStatus[staging.StatusError] != 1 {
		t.Fatalf("unexpected status counts: %+v", summary.PerStatus)
	}
	if summary.PerErrorKind["timeout"] != 1 {
		t.Fatalf("unexpected error kinds: %+v", summary.PerErrorKind)
	}
	if summary.RunID == "" {
		t.Fatal("expected a run id")
	}
	if len(notifier.started) != 1 || notifier.started[0] != 3 {
		t.Fatalf("expected run started notification with 3 eligible, got %+v", notifier.started)
	}
	if len(notifier.completed) != 1 || notifier.completed[0] != [2]int{1, 1} {
		t.Fatalf("expected run completed notification with 1 applied 1 failed, got %+v", notifier.completed)
	}
}

func TestRunRespectsBatchLimit(t *testing.T) {
	store, lockPath := newStore(t)
	insertRecords(t, store, staging.SourceDisc, "A", "B", "C")

	processor := &fakeProcessor{}
	runner := pipeline.New(store, processor, nil, nil, pipeline.Options{BatchLimit: 2, LockPath: lockPath})

	summary, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.Processed != 2 {
		t.Fatalf("expected batch limit to cap at 2, got %d", summary.Processed)
	}
}

func TestRunRefusesWhenLockHeld(t *testing.T) {
	store, lockPath := newStore(t)
	insertRecords(t, store, staging.SourceDisc, "Heat")

	held := flock.New(lockPath)
	locked, err := held.TryLock()
	if err != nil || !locked {
		t.Fatalf("take lock: locked=%v err=%v", locked, err)
	}
	defer func() { _ = held.Unlock() }()

	runner := pipeline.New(store, &fakeProcessor{}, nil, nil, pipeline.Options{LockPath: lockPath})
	if _, err := runner.Run(context.Background()); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected lock refusal, got %v", err)
	}
}

func TestRunWithNothingEligible(t *testing.T) {
	store, lockPath := newStore(t)
	notifier := &fakeNotifier{}
	runner := pipeline.New(store, &fakeProcessor{}, notifier, nil, pipeline.Options{LockPath: lockPath})

	summary, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.Processed != 0 {
		t.Fatalf("expected empty run, got %d processed", summary.Processed)
	}
	if len(notifier.started) != 0 || len(notifier.completed) != 0 {
		t.Fatal("empty runs must not notify")
	}
}

func TestRunStoreFailureCountsAsError(t *testing.T) {
	store, lockPath := newStore(t)
	insertRecords(t, store, staging.SourceDisc, "Heat")

	processor := &fakeProcessor{err: errors.New("database is locked")}
	runner := pipeline.New(store, processor, nil, nil, pipeline.Options{LockPath: lockPath})

	summary, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("run must survive record failures: %v", err)
	}
	if summary.PerStatus[staging.StatusError] != 1 {
		t.Fatalf("expected failure counted as error, got %+v", summary.PerStatus)
	}
	if summary.PerErrorKind["transient"] != 1 {
		t.Fatalf("expected transient kind, got %+v", summary.PerErrorKind)
	}
}
