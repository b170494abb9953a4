//go:build integration

package postgres_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/marmos91/cipherdrop/pkg/state"
	"github.com/marmos91/cipherdrop/pkg/state/store/postgres"
	"github.com/marmos91/cipherdrop/pkg/state/storetest"
)

// TestPostgresStoreConformance runs the shared store suite against a real
// PostgreSQL instance. Set CIPHERDROP_TEST_POSTGRES_DSN to reuse an external
// database; otherwise a throwaway container is started, which requires a
// running Docker daemon.
func TestPostgresStoreConformance(t *testing.T) {
	dsn := os.Getenv("CIPHERDROP_TEST_POSTGRES_DSN")
	if dsn == "" {
		dsn = startPostgres(t)
	}

	storetest.RunConformanceSuite(t, func(t *testing.T) state.Store {
		store, err := postgres.New(t.Context(), dsn)
		if err != nil {
			t.Fatalf("open postgres store: %v", err)
		}
		t.Cleanup(func() {
			if err := store.Close(); err != nil {
				t.Errorf("close postgres store: %v", err)
			}
		})

		// Subtests share one database; start each from a clean slate.
		if _, err := store.Pool().Exec(t.Context(), "TRUNCATE clients, files"); err != nil {
			t.Fatalf("truncate tables: %v", err)
		}
		return store
	})
}

// startPostgres launches a PostgreSQL container and returns its connection
// string. PostgreSQL logs the ready line twice during startup (once during
// bootstrap, once when fully up), so the wait strategy requires two
// occurrences.
func startPostgres(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("cipherdrop_test"),
		tcpostgres.WithUsername("cipherdrop_test"),
		tcpostgres.WithPassword("cipherdrop_test"),
		testcontainers.WithWaitStrategyAndDeadline(5*time.Minute,
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2),
			wait.ForListeningPort("5432/tcp"),
		),
	)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("terminate postgres container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("container port: %v", err)
	}

	return fmt.Sprintf("postgres://cipherdrop_test:cipherdrop_test@%s:%d/cipherdrop_test?sslmode=disable",
		host, port.Int())
}
