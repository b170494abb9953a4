//go:build e2e

// Package e2e exercises the transfer server over a real TCP socket: a full
// in-process server with the memory store backs every test, and the tests
// play the client side of the wire protocol.
package e2e

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/marmos91/cipherdrop/pkg/adapter"
	"github.com/marmos91/cipherdrop/pkg/dispatch"
	"github.com/marmos91/cipherdrop/pkg/state"
	"github.com/marmos91/cipherdrop/pkg/state/store/memory"
	"github.com/marmos91/cipherdrop/pkg/vault"
	"github.com/stretchr/testify/require"
)

// env is a running server instance scoped to one test.
type env struct {
	addr     string
	registry *state.Registry
	vault    *vault.Vault
}

// defaultMaxPayload is generous enough for every scenario payload while
// keeping the oversize test cheap to trigger.
const defaultMaxPayload = 1 << 20

// startServer boots a complete server on a random loopback port with the
// memory store and a vault under the test's temp directory. The server is
// shut down when the test finishes.
func startServer(t *testing.T) *env {
	t.Helper()

	registry := state.NewRegistry(memory.New())
	require.NoError(t, registry.Load(context.Background()))

	files, err := vault.New(vault.DefaultConfig(filepath.Join(t.TempDir(), "vault")))
	require.NoError(t, err)

	srv := adapter.New(adapter.Config{
		Host:            "127.0.0.1",
		Port:            0,
		MaxConnections:  16,
		MaxPayload:      defaultMaxPayload,
		IdleTimeout:     time.Minute,
		ShutdownTimeout: 5 * time.Second,
	}, dispatch.New(registry, files, nil), nil)

	ctx, cancel := context.WithCancel(context.Background())
	serverDone := make(chan error, 1)
	go func() {
		serverDone <- srv.Serve(ctx)
	}()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-serverDone:
			require.NoError(t, err, "server should shut down cleanly")
		case <-time.After(10 * time.Second):
			t.Error("server did not shut down in time")
		}
	})

	return &env{
		addr:     srv.Addr(),
		registry: registry,
		vault:    files,
	}
}
