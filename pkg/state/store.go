// Package state holds the server's client and file state: an in-memory
// registry backed by a durable store. Handlers go through the Registry; the
// Store interface is the persistence seam the backends implement.
package state

import (
	"context"

	"github.com/marmos91/cipherdrop/pkg/state/models"
)

// Store is the durability layer under the Registry. Implementations must be
// safe for concurrent use; the Registry serializes its own mutations but
// admin commands may read concurrently.
//
// Save operations are upserts: they insert the row or fully replace it.
type Store interface {
	// LoadClients returns every stored client row.
	LoadClients(ctx context.Context) ([]*models.Client, error)

	// LoadFiles returns every stored file row.
	LoadFiles(ctx context.Context) ([]*models.File, error)

	// SaveClient inserts or replaces a client row keyed by id.
	SaveClient(ctx context.Context, client *models.Client) error

	// SaveFile inserts or replaces a file row keyed by path name.
	SaveFile(ctx context.Context, file *models.File) error

	// DeleteFile removes a file row. Deleting an absent row is not an
	// error.
	DeleteFile(ctx context.Context, pathName string) error

	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases the backend.
	Close() error
}
