package state

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/marmos91/cipherdrop/internal/keys"
	"github.com/marmos91/cipherdrop/pkg/state/models"
)

// Registry is the authoritative view of clients and files. It keeps a full
// in-memory mirror for request-path lookups and writes every mutation
// through the Store before the mirror is updated, so a mutation that
// reaches the mirror is always durable.
//
// A single mutex serializes all access. The request path is short critical
// sections around map operations; the store round-trip happens inside the
// lock so concurrent handlers observe mutations in durable order.
type Registry struct {
	mu    sync.Mutex
	store Store

	clients map[string]*models.Client // by id
	names   map[string]string         // name -> id
	files   map[string]*models.File   // by path name
}

// Stats summarizes registry contents for the admin surfaces.
type Stats struct {
	Clients       int `json:"clients"`
	Files         int `json:"files"`
	VerifiedFiles int `json:"verified_files"`
}

// NewRegistry creates an empty registry over the given store. Call Load
// before serving requests.
func NewRegistry(store Store) *Registry {
	return &Registry{
		store:   store,
		clients: make(map[string]*models.Client),
		names:   make(map[string]string),
		files:   make(map[string]*models.File),
	}
}

// Load fills the mirror from the store. Earlier state survives restarts;
// clients reconnect against what Load brings back.
func (r *Registry) Load(ctx context.Context) error {
	clients, err := r.store.LoadClients(ctx)
	if err != nil {
		return fmt.Errorf("load clients: %w", err)
	}
	files, err := r.store.LoadFiles(ctx)
	if err != nil {
		return fmt.Errorf("load files: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.clients = make(map[string]*models.Client, len(clients))
	r.names = make(map[string]string, len(clients))
	for _, c := range clients {
		r.clients[c.ID] = c
		r.names[c.Name] = c.ID
	}

	r.files = make(map[string]*models.File, len(files))
	for _, f := range files {
		r.files[f.PathName] = f
	}
	return nil
}

// Register creates a new client under the given name. Returns ErrNameTaken
// if another client already holds the name.
func (r *Registry) Register(ctx context.Context, name string) (*models.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.names[name]; taken {
		return nil, models.ErrNameTaken
	}

	var id string
	for {
		id = keys.FormatID(keys.NewClientID())
		if _, exists := r.clients[id]; !exists {
			break
		}
	}

	client := &models.Client{
		ID:       id,
		Name:     name,
		LastSeen: models.Now(),
	}
	if err := r.store.SaveClient(ctx, client); err != nil {
		return nil, fmt.Errorf("persist client: %w", err)
	}

	r.clients[id] = client
	r.names[name] = id
	return client.Clone(), nil
}

// Get returns a copy of the client with the given id.
func (r *Registry) Get(id string) (*models.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	client, ok := r.clients[id]
	if !ok {
		return nil, models.ErrClientNotFound
	}
	return client.Clone(), nil
}

// GetNamed returns a copy of the client with the given id, but only when
// its registered name matches. A known id presented with the wrong name is
// reported as not found.
func (r *Registry) GetNamed(id, name string) (*models.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	client, ok := r.clients[id]
	if !ok || client.Name != name {
		return nil, models.ErrClientNotFound
	}
	return client.Clone(), nil
}

// Touch refreshes the client's last_seen timestamp.
func (r *Registry) Touch(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.updateClient(ctx, id, func(c *models.Client) {
		c.LastSeen = models.Now()
	})
	return err
}

// SetPublicKey stores the client's RSA public key. The key is recorded
// before any wrap attempt, so a failed key exchange still leaves the
// delivered key on file.
func (r *Registry) SetPublicKey(ctx context.Context, id string, publicKey []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.updateClient(ctx, id, func(c *models.Client) {
		c.PublicKey = bytes.Clone(publicKey)
	})
	return err
}

// SetSessionKey stores a fresh AES session key, replacing any previous one.
func (r *Registry) SetSessionKey(ctx context.Context, id string, key []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.updateClient(ctx, id, func(c *models.Client) {
		c.SessionKey = bytes.Clone(key)
	})
	return err
}

// updateClient applies mutate to a copy of the client, persists it, then
// swaps it into the mirror. Callers hold r.mu.
func (r *Registry) updateClient(ctx context.Context, id string, mutate func(*models.Client)) (*models.Client, error) {
	current, ok := r.clients[id]
	if !ok {
		return nil, models.ErrClientNotFound
	}

	next := current.Clone()
	mutate(next)
	if err := r.store.SaveClient(ctx, next); err != nil {
		return nil, fmt.Errorf("persist client: %w", err)
	}

	r.clients[id] = next
	return next, nil
}

// RecordFile registers a received file as unverified. A client re-sending
// the same file replaces the earlier record.
func (r *Registry) RecordFile(ctx context.Context, clientID, name, pathName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	file := &models.File{
		ClientID: clientID,
		Name:     name,
		PathName: pathName,
	}
	if err := r.store.SaveFile(ctx, file); err != nil {
		return fmt.Errorf("persist file: %w", err)
	}

	r.files[pathName] = file
	return nil
}

// MarkVerified flags the file at pathName as checksum-verified.
func (r *Registry) MarkVerified(ctx context.Context, pathName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.files[pathName]
	if !ok {
		return models.ErrFileNotFound
	}

	next := current.Clone()
	next.Verified = true
	if err := r.store.SaveFile(ctx, next); err != nil {
		return fmt.Errorf("persist file: %w", err)
	}

	r.files[pathName] = next
	return nil
}

// GetFile returns a copy of the file record at pathName.
func (r *Registry) GetFile(pathName string) (*models.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	file, ok := r.files[pathName]
	if !ok {
		return nil, models.ErrFileNotFound
	}
	return file.Clone(), nil
}

// Clients returns a snapshot of all clients sorted by name.
func (r *Registry) Clients() []*models.Client {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*models.Client, 0, len(r.clients))
	for _, c := range r.clients {
		out = append(out, c.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Files returns a snapshot of all file records sorted by path.
func (r *Registry) Files() []*models.File {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*models.File, 0, len(r.files))
	for _, f := range r.files {
		out = append(out, f.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PathName < out[j].PathName })
	return out
}

// Stats returns registry counters.
func (r *Registry) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := Stats{Clients: len(r.clients), Files: len(r.files)}
	for _, f := range r.files {
		if f.Verified {
			s.VerifiedFiles++
		}
	}
	return s
}

// PruneUnverified removes every unverified file record and returns the
// removed records so the caller can delete the content on disk. On a store
// error the records removed so far stay removed.
func (r *Registry) PruneUnverified(ctx context.Context) ([]*models.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed []*models.File
	for path, f := range r.files {
		if f.Verified {
			continue
		}
		if err := r.store.DeleteFile(ctx, path); err != nil {
			return removed, fmt.Errorf("delete file record %s: %w", path, err)
		}
		delete(r.files, path)
		removed = append(removed, f.Clone())
	}

	sort.Slice(removed, func(i, j int) bool { return removed[i].PathName < removed[j].PathName })
	return removed, nil
}
