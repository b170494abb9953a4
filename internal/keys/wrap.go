package keys

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/x509"
	"fmt"
)

// Wrap encrypts a session key with a client's RSA public key.
//
// publicKeyDER is the DER-encoded SubjectPublicKeyInfo exactly as received
// in the key exchange request. SHA-1 is the OAEP hash the deployed clients
// expect; it is a compatibility constraint, not a choice.
func Wrap(publicKeyDER, key []byte) ([]byte, error) {
	parsed, err := x509.ParsePKIXPublicKey(publicKeyDER)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}
	pub, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, ErrNotRSA
	}

	wrapped, err := rsa.EncryptOAEP(sha1.New(), rand.Reader, pub, key, nil)
	if err != nil {
		return nil, fmt.Errorf("wrap session key: %w", err)
	}
	return wrapped, nil
}
