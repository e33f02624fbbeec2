package testsupport

import (
	"context"
	"database/sql"
	"testing"

	"cinelog/internal/catalog"
	"cinelog/internal/config"
	"cinelog/internal/db"
	"cinelog/internal/staging"
	"cinelog/internal/userstate"
)

// Stores bundles every store over one test database.
type Stores struct {
	DB        *sql.DB
	Staging   *staging.Store
	Catalog   *catalog.Store
	UserState *userstate.Store
}

// MustOpenStores opens the full store stack for tests and registers
// cleanup. The catalog store is constructed before the user state store
// so the film foreign keys exist.
func MustOpenStores(t testing.TB, cfg *config.Config) *Stores {
	t.Helper()
	ctx := context.Background()

	handle, err := db.Open(cfg.DatabasePath())
	if err != nil {
		t.Fatalf("db.Open: %v", err)
	}
	t.Cleanup(func() { _ = handle.Close() })

	stagingStore, err := staging.NewStore(ctx, handle)
	if err != nil {
		t.Fatalf("staging.NewStore: %v", err)
	}
	catalogStore, err := catalog.NewStore(ctx, handle)
	if err != nil {
		t.Fatalf("catalog.NewStore: %v", err)
	}
	userStore, err := userstate.NewStore(ctx, handle)
	if err != nil {
		t.Fatalf("userstate.NewStore: %v", err)
	}

	return &Stores{
		DB:        handle,
		Staging:   stagingStore,
		Catalog:   catalogStore,
		UserState: userStore,
	}
}
