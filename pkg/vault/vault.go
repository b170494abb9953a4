// Package vault stores received file content on the local filesystem.
//
// Files land under <root>/<client id>/<base name>. The base-name step is
// mandatory: file names arrive from the wire and may carry path separators
// or parent references, and nothing a client sends may place content outside
// its own directory.
package vault

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/marmos91/cipherdrop/internal/keys"
)

// DefaultRoot is the vault directory used when none is configured.
const DefaultRoot = "transferred_files"

var (
	// ErrOutsideRoot is returned for any path that does not resolve to a
	// location strictly inside the vault root.
	ErrOutsideRoot = errors.New("vault: path escapes the vault root")
)

// Config holds configuration for the vault.
type Config struct {
	// Root is the directory all received files live under.
	Root string

	// DirMode is the permission mode for created directories.
	// Default: 0755
	DirMode os.FileMode

	// FileMode is the permission mode for created files.
	// Default: 0644
	FileMode os.FileMode
}

// DefaultConfig returns the default configuration for the given root.
func DefaultConfig(root string) Config {
	return Config{
		Root:     root,
		DirMode:  0755,
		FileMode: 0644,
	}
}

// Vault is a directory tree of received files, one subdirectory per client.
type Vault struct {
	root     string
	dirMode  os.FileMode
	fileMode os.FileMode
}

// New creates the vault root if needed and returns the vault.
func New(cfg Config) (*Vault, error) {
	if cfg.Root == "" {
		return nil, errors.New("vault root is required")
	}
	if cfg.DirMode == 0 {
		cfg.DirMode = 0755
	}
	if cfg.FileMode == 0 {
		cfg.FileMode = 0644
	}

	root := filepath.Clean(cfg.Root)
	if err := os.MkdirAll(root, cfg.DirMode); err != nil {
		return nil, fmt.Errorf("create vault root: %w", err)
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, errors.New("vault root is not a directory")
	}

	return &Vault{
		root:     root,
		dirMode:  cfg.DirMode,
		fileMode: cfg.FileMode,
	}, nil
}

// NewWithRoot creates a vault with default permissions.
func NewWithRoot(root string) (*Vault, error) {
	return New(DefaultConfig(root))
}

// Root returns the vault root directory.
func (v *Vault) Root() string {
	return v.root
}

// PathFor returns the canonical storage path for a client's file. Only the
// base name of fileName is used.
func (v *Vault) PathFor(clientID, fileName string) string {
	return filepath.Join(v.root, clientID, filepath.Base(fileName))
}

// contains rejects paths that resolve to the root itself or anywhere
// outside it.
func (v *Vault) contains(path string) error {
	clean := filepath.Clean(path)
	if clean == v.root || !strings.HasPrefix(clean, v.root+string(filepath.Separator)) {
		return fmt.Errorf("%w: %s", ErrOutsideRoot, path)
	}
	return nil
}

// WriteFragment appends one upload fragment to the client's file and returns
// the canonical path. The first fragment truncates whatever an earlier,
// abandoned upload may have left behind; later fragments append.
func (v *Vault) WriteFragment(clientID, fileName string, data []byte, first bool) (string, error) {
	path := v.PathFor(clientID, fileName)
	if err := v.contains(path); err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(path), v.dirMode); err != nil {
		return "", fmt.Errorf("create client directory: %w", err)
	}

	flags := os.O_WRONLY | os.O_CREATE
	if first {
		flags |= os.O_TRUNC
	} else {
		flags |= os.O_APPEND
	}

	f, err := os.OpenFile(path, flags, v.fileMode)
	if err != nil {
		return "", err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return path, nil
}

// DecryptInPlace decrypts the file at path with the given AES key,
// overwrites it with the plaintext and returns the plaintext so the caller
// can checksum it without a second read. The overwrite goes through a
// temporary file and rename, so a crash mid-decrypt cannot leave a
// half-written file at the canonical path.
func (v *Vault) DecryptInPlace(path string, key []byte) ([]byte, error) {
	if err := v.contains(path); err != nil {
		return nil, err
	}

	ciphertext, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	plaintext, err := keys.Decrypt(ciphertext, key)
	if err != nil {
		return nil, err
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, plaintext, v.fileMode); err != nil {
		return nil, err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return nil, err
	}
	return plaintext, nil
}

// Size returns the size of the file at path.
func (v *Vault) Size(path string) (int64, error) {
	if err := v.contains(path); err != nil {
		return 0, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// Remove deletes the file at path. Removing an absent file is not an error.
// Empty client directories left behind are cleaned up.
func (v *Vault) Remove(path string) error {
	if err := v.contains(path); err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	v.cleanEmptyDirs(filepath.Dir(path))
	return nil
}

// cleanEmptyDirs removes empty directories up to the vault root.
func (v *Vault) cleanEmptyDirs(dir string) {
	for dir != v.root && strings.HasPrefix(dir, v.root+string(filepath.Separator)) {
		if err := os.Remove(dir); err != nil {
			break
		}
		dir = filepath.Dir(dir)
	}
}
