// Package memory provides a non-durable state.Store backed by maps. It is
// the backend for tests and for throwaway servers where persistence across
// restarts does not matter.
package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/marmos91/cipherdrop/pkg/state"
	"github.com/marmos91/cipherdrop/pkg/state/models"
)

// Store implements state.Store in process memory.
type Store struct {
	mu      sync.RWMutex
	closed  bool
	clients map[string]*models.Client
	files   map[string]*models.File
}

var _ state.Store = (*Store)(nil)

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		clients: make(map[string]*models.Client),
		files:   make(map[string]*models.File),
	}
}

func (s *Store) LoadClients(ctx context.Context) ([]*models.Client, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Client, 0, len(s.clients))
	for _, c := range s.clients {
		out = append(out, c.Clone())
	}
	return out, nil
}

func (s *Store) LoadFiles(ctx context.Context) ([]*models.File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.File, 0, len(s.files))
	for _, f := range s.files {
		out = append(out, f.Clone())
	}
	return out, nil
}

func (s *Store) SaveClient(ctx context.Context, client *models.Client) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clients[client.ID] = client.Clone()
	return nil
}

func (s *Store) SaveFile(ctx context.Context, file *models.File) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.files[file.PathName] = file.Clone()
	return nil
}

func (s *Store) DeleteFile(ctx context.Context, pathName string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.files, pathName)
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return errors.New("memory store is closed")
	}
	return ctx.Err()
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
