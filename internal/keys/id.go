package keys

import (
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
)

// IDSize is the client identifier length in bytes.
const IDSize = 16

// NewClientID generates a random client identifier. The raw bytes travel on
// the wire; FormatID renders them for storage and display.
func NewClientID() [IDSize]byte {
	return [IDSize]byte(uuid.New())
}

// FormatID renders a client identifier as 32 lowercase hex characters, the
// form used in the database and in vault directory names.
func FormatID(id [IDSize]byte) string {
	return hex.EncodeToString(id[:])
}

// ParseID decodes a 32-character hex identifier back to its wire form.
func ParseID(s string) ([IDSize]byte, error) {
	var id [IDSize]byte
	if len(s) != IDSize*2 {
		return id, fmt.Errorf("client id must be %d hex characters, got %d", IDSize*2, len(s))
	}
	if _, err := hex.Decode(id[:], []byte(s)); err != nil {
		return id, fmt.Errorf("parse client id: %w", err)
	}
	return id, nil
}
