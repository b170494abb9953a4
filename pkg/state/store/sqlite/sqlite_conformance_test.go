package sqlite_test

import (
	"path/filepath"
	"testing"

	"github.com/marmos91/cipherdrop/pkg/state"
	"github.com/marmos91/cipherdrop/pkg/state/store/sqlite"
	"github.com/marmos91/cipherdrop/pkg/state/storetest"
)

func TestConformance(t *testing.T) {
	storetest.RunConformanceSuite(t, func(t *testing.T) state.Store {
		store, err := sqlite.New(filepath.Join(t.TempDir(), "state.db"))
		if err != nil {
			t.Fatalf("sqlite.New failed: %v", err)
		}
		t.Cleanup(func() { _ = store.Close() })
		return store
	})
}

func TestNew_RequiresPath(t *testing.T) {
	if _, err := sqlite.New(""); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestNew_CreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "state.db")
	store, err := sqlite.New(path)
	if err != nil {
		t.Fatalf("sqlite.New failed: %v", err)
	}
	_ = store.Close()
}
