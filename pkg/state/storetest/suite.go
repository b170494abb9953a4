// Package storetest provides a conformance suite every state.Store backend
// must pass. Backends run it from their own conformance test file with a
// factory that builds a fresh store per test.
package storetest

import (
	"bytes"
	"testing"

	"github.com/marmos91/cipherdrop/pkg/state"
	"github.com/marmos91/cipherdrop/pkg/state/models"
)

// Factory creates a fresh Store instance for each test. The factory
// receives *testing.T so it can use t.TempDir() for file-backed stores and
// t.Cleanup() for teardown.
type Factory func(t *testing.T) state.Store

// RunConformanceSuite runs the full suite against the provided factory.
// Each subtest gets a fresh store for isolation.
func RunConformanceSuite(t *testing.T, factory Factory) {
	t.Helper()

	t.Run("EmptyLoad", func(t *testing.T) {
		store := factory(t)
		ctx := t.Context()

		clients, err := store.LoadClients(ctx)
		if err != nil {
			t.Fatalf("LoadClients failed: %v", err)
		}
		if len(clients) != 0 {
			t.Errorf("fresh store returned %d clients", len(clients))
		}

		files, err := store.LoadFiles(ctx)
		if err != nil {
			t.Fatalf("LoadFiles failed: %v", err)
		}
		if len(files) != 0 {
			t.Errorf("fresh store returned %d files", len(files))
		}
	})

	t.Run("SaveAndLoadClient", func(t *testing.T) {
		store := factory(t)
		ctx := t.Context()

		saved := &models.Client{
			ID:         "00112233445566778899aabbccddeeff",
			Name:       "alice",
			LastSeen:   "2026-03-14 09:26:53.589793",
			PublicKey:  []byte{0x30, 0x81, 0x9f, 0x01},
			SessionKey: bytes.Repeat([]byte{0x42}, 32),
		}
		if err := store.SaveClient(ctx, saved); err != nil {
			t.Fatalf("SaveClient failed: %v", err)
		}

		clients, err := store.LoadClients(ctx)
		if err != nil {
			t.Fatalf("LoadClients failed: %v", err)
		}
		if len(clients) != 1 {
			t.Fatalf("loaded %d clients, want 1", len(clients))
		}
		got := clients[0]
		if got.ID != saved.ID || got.Name != saved.Name || got.LastSeen != saved.LastSeen {
			t.Errorf("loaded client = %+v, want %+v", got, saved)
		}
		if !bytes.Equal(got.PublicKey, saved.PublicKey) {
			t.Error("public key did not round trip")
		}
		if !bytes.Equal(got.SessionKey, saved.SessionKey) {
			t.Error("session key did not round trip")
		}
	})

	t.Run("ClientWithoutKeys", func(t *testing.T) {
		store := factory(t)
		ctx := t.Context()

		saved := &models.Client{
			ID:       "ffeeddccbbaa99887766554433221100",
			Name:     "bob",
			LastSeen: "2026-03-14 09:26:53.589793",
		}
		if err := store.SaveClient(ctx, saved); err != nil {
			t.Fatalf("SaveClient failed: %v", err)
		}

		clients, err := store.LoadClients(ctx)
		if err != nil {
			t.Fatalf("LoadClients failed: %v", err)
		}
		if len(clients) != 1 {
			t.Fatalf("loaded %d clients, want 1", len(clients))
		}
		if clients[0].HasPublicKey() || clients[0].HasSessionKey() {
			t.Error("keyless client loaded back with key material")
		}
	})

	t.Run("UpsertClient", func(t *testing.T) {
		store := factory(t)
		ctx := t.Context()

		client := &models.Client{
			ID:       "00112233445566778899aabbccddeeff",
			Name:     "alice",
			LastSeen: "2026-03-14 09:00:00.000000",
		}
		if err := store.SaveClient(ctx, client); err != nil {
			t.Fatalf("SaveClient failed: %v", err)
		}

		client.LastSeen = "2026-03-14 10:00:00.000000"
		client.SessionKey = bytes.Repeat([]byte{0x24}, 32)
		if err := store.SaveClient(ctx, client); err != nil {
			t.Fatalf("SaveClient upsert failed: %v", err)
		}

		clients, err := store.LoadClients(ctx)
		if err != nil {
			t.Fatalf("LoadClients failed: %v", err)
		}
		if len(clients) != 1 {
			t.Fatalf("upsert produced %d rows, want 1", len(clients))
		}
		if clients[0].LastSeen != "2026-03-14 10:00:00.000000" {
			t.Errorf("last_seen = %q, want the updated value", clients[0].LastSeen)
		}
		if !clients[0].HasSessionKey() {
			t.Error("upsert lost the session key")
		}
	})

	t.Run("SaveAndLoadFile", func(t *testing.T) {
		store := factory(t)
		ctx := t.Context()

		saved := &models.File{
			ClientID: "00112233445566778899aabbccddeeff",
			Name:     "report.pdf",
			PathName: "transferred_files/00112233445566778899aabbccddeeff/report.pdf",
		}
		if err := store.SaveFile(ctx, saved); err != nil {
			t.Fatalf("SaveFile failed: %v", err)
		}

		files, err := store.LoadFiles(ctx)
		if err != nil {
			t.Fatalf("LoadFiles failed: %v", err)
		}
		if len(files) != 1 {
			t.Fatalf("loaded %d files, want 1", len(files))
		}
		got := files[0]
		if got.ClientID != saved.ClientID || got.Name != saved.Name || got.PathName != saved.PathName {
			t.Errorf("loaded file = %+v, want %+v", got, saved)
		}
		if got.Verified {
			t.Error("verified flag must default to false")
		}
	})

	t.Run("UpsertFileVerified", func(t *testing.T) {
		store := factory(t)
		ctx := t.Context()

		file := &models.File{
			ClientID: "00112233445566778899aabbccddeeff",
			Name:     "report.pdf",
			PathName: "transferred_files/00112233445566778899aabbccddeeff/report.pdf",
		}
		if err := store.SaveFile(ctx, file); err != nil {
			t.Fatalf("SaveFile failed: %v", err)
		}

		file.Verified = true
		if err := store.SaveFile(ctx, file); err != nil {
			t.Fatalf("SaveFile upsert failed: %v", err)
		}

		files, err := store.LoadFiles(ctx)
		if err != nil {
			t.Fatalf("LoadFiles failed: %v", err)
		}
		if len(files) != 1 {
			t.Fatalf("upsert produced %d rows, want 1", len(files))
		}
		if !files[0].Verified {
			t.Error("verified flag did not persist through upsert")
		}
	})

	t.Run("DeleteFile", func(t *testing.T) {
		store := factory(t)
		ctx := t.Context()

		file := &models.File{
			ClientID: "00112233445566778899aabbccddeeff",
			Name:     "gone.bin",
			PathName: "transferred_files/00112233445566778899aabbccddeeff/gone.bin",
		}
		if err := store.SaveFile(ctx, file); err != nil {
			t.Fatalf("SaveFile failed: %v", err)
		}

		if err := store.DeleteFile(ctx, file.PathName); err != nil {
			t.Fatalf("DeleteFile failed: %v", err)
		}
		files, err := store.LoadFiles(ctx)
		if err != nil {
			t.Fatalf("LoadFiles failed: %v", err)
		}
		if len(files) != 0 {
			t.Errorf("file still present after delete: %v", files)
		}

		// Deleting an absent row is not an error.
		if err := store.DeleteFile(ctx, "no/such/path"); err != nil {
			t.Errorf("DeleteFile of absent row failed: %v", err)
		}
	})

	t.Run("MultipleClientsAndFiles", func(t *testing.T) {
		store := factory(t)
		ctx := t.Context()

		ids := []string{
			"00000000000000000000000000000001",
			"00000000000000000000000000000002",
			"00000000000000000000000000000003",
		}
		for i, id := range ids {
			c := &models.Client{ID: id, Name: string(rune('a' + i)), LastSeen: "2026-03-14 09:00:00.000000"}
			if err := store.SaveClient(ctx, c); err != nil {
				t.Fatalf("SaveClient failed: %v", err)
			}
			f := &models.File{ClientID: id, Name: "f.bin", PathName: "transferred_files/" + id + "/f.bin"}
			if err := store.SaveFile(ctx, f); err != nil {
				t.Fatalf("SaveFile failed: %v", err)
			}
		}

		clients, err := store.LoadClients(ctx)
		if err != nil {
			t.Fatalf("LoadClients failed: %v", err)
		}
		files, err := store.LoadFiles(ctx)
		if err != nil {
			t.Fatalf("LoadFiles failed: %v", err)
		}
		if len(clients) != 3 || len(files) != 3 {
			t.Errorf("loaded %d clients and %d files, want 3 and 3", len(clients), len(files))
		}
	})

	t.Run("Ping", func(t *testing.T) {
		store := factory(t)
		if err := store.Ping(t.Context()); err != nil {
			t.Errorf("Ping failed: %v", err)
		}
	})
}
