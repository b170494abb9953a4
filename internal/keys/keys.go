// Package keys manages transfer-session key material: client identifiers,
// symmetric session keys, the RSA key wrap used during key exchange, and the
// AES cipher the files travel under.
//
// All parameters are fixed by the deployed clients and cannot change without
// a protocol version bump:
//   - Session keys are 32 bytes (AES-256).
//   - Key wrap is RSA-OAEP with SHA-1 over a 1024-bit client key, delivered
//     as a 160-byte DER SubjectPublicKeyInfo.
//   - File content is AES-256-CBC with PKCS#7 padding and an all-zero IV.
//     The zero IV is a client-side defect the server must tolerate: equal
//     plaintext prefixes under the same session key produce equal ciphertext
//     prefixes.
package keys

import (
	"crypto/rand"
	"errors"
	"fmt"
)

// KeySize is the session key length in bytes (AES-256).
const KeySize = 32

var (
	// ErrNotRSA indicates the client delivered a well-formed public key of
	// the wrong algorithm.
	ErrNotRSA = errors.New("public key is not RSA")

	// ErrCiphertextSize indicates ciphertext that is empty or not a
	// multiple of the AES block size.
	ErrCiphertextSize = errors.New("ciphertext length is not a multiple of the block size")

	// ErrBadPadding indicates PKCS#7 padding that does not verify, which
	// usually means decryption under the wrong key.
	ErrBadPadding = errors.New("invalid padding")
)

// NewSessionKey generates a fresh random session key.
func NewSessionKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate session key: %w", err)
	}
	return key, nil
}
