// Package models defines the persistent records of the transfer service:
// registered clients and received files. The field layout matches the wire
// protocol and the database schema shared with earlier deployments, so
// column names are pinned explicitly.
package models

import (
	"bytes"
	"time"
)

// TimeLayout renders timestamps with microsecond precision in a form that
// sorts lexicographically, so last_seen comparisons work as strings across
// every backend.
const TimeLayout = "2006-01-02 15:04:05.000000"

// Timestamp formats t in the canonical last_seen layout.
func Timestamp(t time.Time) string {
	return t.Format(TimeLayout)
}

// Now returns the current time in the canonical last_seen layout.
func Now() string {
	return Timestamp(time.Now())
}

// Client is a registered transfer client.
//
// ID is the 32-character lowercase hex form of the wire identifier.
// PublicKey holds the DER-encoded RSA key delivered during key exchange;
// SessionKey holds the current AES-256 key. Both are nil until the client
// completes a key exchange.
type Client struct {
	ID         string `gorm:"primaryKey;size:32" json:"id"`
	Name       string `gorm:"not null;size:255" json:"name"`
	LastSeen   string `gorm:"column:last_seen;size:26;not null" json:"last_seen"`
	PublicKey  []byte `gorm:"column:rsa_public_key" json:"-"`
	SessionKey []byte `gorm:"column:aes_key" json:"-"`
}

// TableName returns the table name for Client.
func (Client) TableName() string {
	return "clients"
}

// HasPublicKey reports whether a key exchange has delivered an RSA key.
func (c *Client) HasPublicKey() bool {
	return len(c.PublicKey) > 0
}

// HasSessionKey reports whether the client holds a usable session key.
func (c *Client) HasSessionKey() bool {
	return len(c.SessionKey) > 0
}

// Clone returns a deep copy. Key material is duplicated so callers cannot
// mutate shared state through the copy.
func (c *Client) Clone() *Client {
	out := *c
	out.PublicKey = bytes.Clone(c.PublicKey)
	out.SessionKey = bytes.Clone(c.SessionKey)
	return &out
}

// File is a received file. PathName is the canonical on-disk location and
// the primary key: a client re-sending the same file overwrites its row.
// ClientID maps to the legacy "id" column, which holds the owner's id.
type File struct {
	ClientID string `gorm:"column:id;size:32;not null;index" json:"client_id"`
	Name     string `gorm:"not null;size:255" json:"name"`
	PathName string `gorm:"column:path_name;primaryKey;size:512" json:"path_name"`
	Verified bool   `gorm:"not null;default:false" json:"verified"`
}

// TableName returns the table name for File.
func (File) TableName() string {
	return "files"
}

// Clone returns a copy of the record.
func (f *File) Clone() *File {
	out := *f
	return &out
}

// AllModels returns every model for schema migration.
func AllModels() []any {
	return []any{&Client{}, &File{}}
}
