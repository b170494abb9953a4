package models

import "errors"

// Common errors for registry and store operations.
var (
	// ErrClientNotFound reports an unknown client id, or an id whose stored
	// name does not match the presented one.
	ErrClientNotFound = errors.New("client not found")

	// ErrNameTaken reports a registration attempt with a name that already
	// belongs to another client.
	ErrNameTaken = errors.New("client name already registered")

	// ErrNoPublicKey reports a reconnect from a client that never finished
	// a key exchange.
	ErrNoPublicKey = errors.New("client has no stored public key")

	// ErrFileNotFound reports a file operation on a path with no record.
	ErrFileNotFound = errors.New("file record not found")
)
