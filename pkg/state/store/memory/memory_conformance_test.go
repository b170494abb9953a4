package memory_test

import (
	"testing"

	"github.com/marmos91/cipherdrop/pkg/state"
	"github.com/marmos91/cipherdrop/pkg/state/store/memory"
	"github.com/marmos91/cipherdrop/pkg/state/storetest"
)

func TestConformance(t *testing.T) {
	storetest.RunConformanceSuite(t, func(t *testing.T) state.Store {
		return memory.New()
	})
}
