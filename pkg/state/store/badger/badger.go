// Package badger provides a state.Store on BadgerDB, for deployments that
// want embedded persistence with LSM characteristics instead of SQLite.
//
// Storage model:
//   - client:{id}        -> JSON(clientRecord)
//   - file:{path_name}   -> JSON(fileRecord)
//
// Records are dedicated persistence types rather than the runtime models:
// the models hide key material from JSON so the admin API cannot leak it,
// while the store must round-trip every column.
//
// All operations use Badger transactions for atomicity.
package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	badgerdb "github.com/dgraph-io/badger/v4"

	"github.com/marmos91/cipherdrop/pkg/state"
	"github.com/marmos91/cipherdrop/pkg/state/models"
)

const (
	prefixClient = "client:"
	prefixFile   = "file:"
)

// clientRecord is the persisted form of models.Client.
type clientRecord struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	LastSeen   string `json:"last_seen"`
	PublicKey  []byte `json:"rsa_public_key,omitempty"`
	SessionKey []byte `json:"aes_key,omitempty"`
}

// fileRecord is the persisted form of models.File.
type fileRecord struct {
	ClientID string `json:"id"`
	Name     string `json:"name"`
	PathName string `json:"path_name"`
	Verified bool   `json:"verified"`
}

// Store implements state.Store on a Badger database directory.
type Store struct {
	db *badgerdb.DB
}

var _ state.Store = (*Store)(nil)

// New opens (creating if necessary) the Badger database in dir.
func New(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("badger directory is required")
	}

	opts := badgerdb.DefaultOptions(dir)
	opts.Logger = nil // Badger's own logging is too chatty for a side store
	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) LoadClients(ctx context.Context) ([]*models.Client, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []*models.Client
	err := s.db.View(func(txn *badgerdb.Txn) error {
		return iterate(txn, prefixClient, func(val []byte) error {
			var rec clientRecord
			if err := json.Unmarshal(val, &rec); err != nil {
				return fmt.Errorf("decode client record: %w", err)
			}
			out = append(out, &models.Client{
				ID:         rec.ID,
				Name:       rec.Name,
				LastSeen:   rec.LastSeen,
				PublicKey:  rec.PublicKey,
				SessionKey: rec.SessionKey,
			})
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) LoadFiles(ctx context.Context) ([]*models.File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []*models.File
	err := s.db.View(func(txn *badgerdb.Txn) error {
		return iterate(txn, prefixFile, func(val []byte) error {
			var rec fileRecord
			if err := json.Unmarshal(val, &rec); err != nil {
				return fmt.Errorf("decode file record: %w", err)
			}
			out = append(out, &models.File{
				ClientID: rec.ClientID,
				Name:     rec.Name,
				PathName: rec.PathName,
				Verified: rec.Verified,
			})
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) SaveClient(ctx context.Context, client *models.Client) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(clientRecord{
		ID:         client.ID,
		Name:       client.Name,
		LastSeen:   client.LastSeen,
		PublicKey:  client.PublicKey,
		SessionKey: client.SessionKey,
	})
	if err != nil {
		return fmt.Errorf("encode client record: %w", err)
	}
	return s.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set([]byte(prefixClient+client.ID), data)
	})
}

func (s *Store) SaveFile(ctx context.Context, file *models.File) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(fileRecord{
		ClientID: file.ClientID,
		Name:     file.Name,
		PathName: file.PathName,
		Verified: file.Verified,
	})
	if err != nil {
		return fmt.Errorf("encode file record: %w", err)
	}
	return s.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set([]byte(prefixFile+file.PathName), data)
	})
}

func (s *Store) DeleteFile(ctx context.Context, pathName string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badgerdb.Txn) error {
		err := txn.Delete([]byte(prefixFile + pathName))
		if errors.Is(err, badgerdb.ErrKeyNotFound) {
			return nil
		}
		return err
	})
}

func (s *Store) Ping(ctx context.Context) error {
	if s.db.IsClosed() {
		return errors.New("badger store is closed")
	}
	return ctx.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}

// iterate walks all values under prefix within txn.
func iterate(txn *badgerdb.Txn, prefix string, fn func(val []byte) error) error {
	opts := badgerdb.DefaultIteratorOptions
	opts.Prefix = []byte(prefix)

	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Rewind(); it.Valid(); it.Next() {
		if err := it.Item().Value(fn); err != nil {
			return err
		}
	}
	return nil
}
