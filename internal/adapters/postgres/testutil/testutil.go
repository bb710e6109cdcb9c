// Package testutil opens real Postgres pools for adapter contract tests.
// Tests are skipped unless TEST_DATABASE_URL points at a disposable
// database.
package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/fivesquad/pickup-planner-api/internal/adapters/postgres"
)

// OpenMigratedPool connects to TEST_DATABASE_URL, applies the schema and
// empties every table so each test starts clean. The pool is closed with the
// test.
func OpenMigratedPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping postgres contract tests")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := postgres.NewPool(ctx, url)
	if err != nil {
		t.Fatalf("open pool: %v", err)
	}
	t.Cleanup(pool.Close)

	if _, err := pool.Exec(ctx, postgres.Schema); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
	if _, err := pool.Exec(ctx, `
		TRUNCATE availability_slots, run_notifications, calls, call_responses, players, idempotency_keys
	`); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return pool
}
