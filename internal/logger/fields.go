package logger

import (
	"fmt"
	"log/slog"
)

// Standard field keys for structured logging. Use these consistently across
// all log statements so aggregated logs stay queryable.
const (
	// Distributed tracing
	KeyTraceID = "trace_id"
	KeySpanID  = "span_id"

	// Protocol
	KeyOpcode       = "opcode"        // request opcode name (register, send-file, ...)
	KeyCode         = "code"          // numeric request or response code
	KeyResponseCode = "response_code" // numeric response code
	KeyPayloadSize  = "payload_size"  // declared payload size in bytes
	KeyVersion      = "version"       // client protocol version from the header

	// Client identity
	KeyClientID   = "client_id"   // 32-char hex client id
	KeyClientName = "client_name" // registered client name
	KeyRemoteAddr = "remote_addr" // peer address

	// Transfers
	KeyFile         = "file"          // original file name (basename)
	KeyPath         = "path"          // canonical storage path
	KeyPacket       = "packet"        // fragment number
	KeyTotalPackets = "total_packets" // total fragments in the upload
	KeyBytes        = "bytes"         // byte count
	KeyCRC          = "crc"           // checksum of decrypted content

	// Operation metadata
	KeyDurationMs = "duration_ms"
	KeyError      = "error"
	KeyDriver     = "driver" // state store driver name
	KeyBucket     = "bucket" // backup bucket
	KeyKey        = "key"    // object key in cloud storage
)

// Err returns a slog.Attr for an error, or an empty attr for nil.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// Opcode returns a slog.Attr for a request opcode name
func Opcode(name string) slog.Attr {
	return slog.String(KeyOpcode, name)
}

// Code returns a slog.Attr for a numeric protocol code
func Code(code uint16) slog.Attr {
	return slog.Int(KeyCode, int(code))
}

// ClientID returns a slog.Attr for a hex client id
func ClientID(id string) slog.Attr {
	return slog.String(KeyClientID, id)
}

// ClientIDBytes returns a slog.Attr for a raw client id, hex encoded
func ClientIDBytes(id []byte) slog.Attr {
	return slog.String(KeyClientID, fmt.Sprintf("%x", id))
}

// File returns a slog.Attr for a transferred file name
func File(name string) slog.Attr {
	return slog.String(KeyFile, name)
}

// Path returns a slog.Attr for a canonical storage path
func Path(p string) slog.Attr {
	return slog.String(KeyPath, p)
}

// RemoteAddr returns a slog.Attr for a peer address
func RemoteAddr(addr string) slog.Attr {
	return slog.String(KeyRemoteAddr, addr)
}

// Bytes returns a slog.Attr for a byte count
func Bytes(n int) slog.Attr {
	return slog.Int(KeyBytes, n)
}

// DurationMs returns a slog.Attr for duration in milliseconds
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Bucket returns a slog.Attr for a backup bucket name
func Bucket(name string) slog.Attr {
	return slog.String(KeyBucket, name)
}

// Key returns a slog.Attr for an object key in cloud storage
func Key(key string) slog.Attr {
	return slog.String(KeyKey, key)
}
