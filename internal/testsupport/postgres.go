package testsupport

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"

	"fincal/internal/adapters/config"
	"fincal/internal/adapters/postgres"
	"fincal/migrations"
)

// PostgresTestHelper manages a migrated connection for integration tests.
type PostgresTestHelper struct {
	client     *postgres.Client
	tx         *sqlx.Tx
	rolledBack bool
}

// NewPostgresTestHelper opens a connection, applies migrations and begins a
// transaction that is always rolled back.
func NewPostgresTestHelper(t *testing.T, cfg config.PostgresConfig) *PostgresTestHelper {
	t.Helper()

	ctx := context.Background()
	client, err := postgres.NewClient(ctx, cfg)
	if err != nil {
		t.Fatalf("failed to create postgres client: %v", err)
	}
	t.Cleanup(func() {
		_ = client.Close()
	})

	stmts, err := migrations.Postgres()
	if err != nil {
		t.Fatalf("failed to read migrations: %v", err)
	}
	for _, stmt := range stmts {
		if _, err := client.DB().ExecContext(ctx, stmt); err != nil {
			t.Fatalf("failed to apply migration: %v", err)
		}
	}

	tx, err := client.DB().BeginTxx(ctx, nil)
	if err != nil {
		t.Fatalf("failed to start transaction: %v", err)
	}

	helper := &PostgresTestHelper{client: client, tx: tx}
	t.Cleanup(helper.Rollback)

	return helper
}

// Tx returns the active transaction for the test.
func (h *PostgresTestHelper) Tx() *sqlx.Tx {
	return h.tx
}

// DB returns the underlying database handle.
func (h *PostgresTestHelper) DB() *sqlx.DB {
	return h.client.DB()
}

// Rollback rolls back the transaction once.
func (h *PostgresTestHelper) Rollback() {
	if h.rolledBack {
		return
	}
	_ = h.tx.Rollback()
	h.rolledBack = true
}

// CleanupRows deletes rows matching condition once the test finishes.
// Repositories that manage their own transactions commit outside Tx.
func (h *PostgresTestHelper) CleanupRows(t *testing.T, table, condition string, args ...interface{}) {
	t.Helper()
	t.Cleanup(func() {
		_, _ = h.client.DB().ExecContext(context.Background(), "DELETE FROM "+table+" WHERE "+condition, args...)
	})
}

// NewTestPostgres creates a test postgres helper with config loaded from the environment
func NewTestPostgres(t *testing.T) *PostgresTestHelper {
	t.Helper()

	return NewPostgresTestHelper(t, LoadDatabaseConfigsFromEnv(t).Postgres)
}
