package keys

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"
)

// zeroIV is the IV the deployed clients use for every file.
var zeroIV [aes.BlockSize]byte

// Decrypt decrypts AES-256-CBC ciphertext produced by a client and strips
// the PKCS#7 padding. Padding failure means the wrong session key, not
// necessarily a malformed message.
func Decrypt(ciphertext, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, ErrCiphertextSize
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, zeroIV[:]).CryptBlocks(plaintext, ciphertext)
	return unpad(plaintext)
}

// Encrypt is the inverse of Decrypt: PKCS#7 pad then AES-256-CBC under the
// zero IV. The server never encrypts file content; this exists for tooling
// and tests that play the client side of a transfer.
func Encrypt(plaintext, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}

	n := aes.BlockSize - len(plaintext)%aes.BlockSize
	padded := make([]byte, len(plaintext)+n)
	copy(padded, plaintext)
	for i := len(plaintext); i < len(padded); i++ {
		padded[i] = byte(n)
	}

	cipher.NewCBCEncrypter(block, zeroIV[:]).CryptBlocks(padded, padded)
	return padded, nil
}

// unpad validates and removes PKCS#7 padding.
func unpad(b []byte) ([]byte, error) {
	n := int(b[len(b)-1])
	if n == 0 || n > aes.BlockSize || n > len(b) {
		return nil, ErrBadPadding
	}
	for _, p := range b[len(b)-n:] {
		if int(p) != n {
			return nil, ErrBadPadding
		}
	}
	return b[:len(b)-n], nil
}
