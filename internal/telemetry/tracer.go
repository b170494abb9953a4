package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/marmos91/cipherdrop/internal/logger"
)

// Common attribute keys for transfer operations.
// These follow OpenTelemetry semantic conventions where applicable.
const (
	// ========================================================================
	// Client attributes
	// ========================================================================
	AttrClientAddr = "client.address"
	AttrClientID   = "client.id"
	AttrClientName = "client.name"

	// ========================================================================
	// Transfer protocol attributes
	// ========================================================================
	AttrOperation    = "transfer.operation"     // Opcode name (register, send-file, ...)
	AttrOpcode       = "transfer.opcode"        // Numeric request opcode
	AttrResponseCode = "transfer.response_code" // Numeric response code
	AttrPayloadSize  = "transfer.payload_size"  // Request payload bytes
	AttrVersion      = "transfer.version"       // Protocol version from the header

	// ========================================================================
	// File attributes
	// ========================================================================
	AttrFileName     = "file.name"
	AttrFilePath     = "file.path"
	AttrFileSize     = "file.size"
	AttrContentSize  = "file.content_size"
	AttrPacket       = "file.packet"
	AttrTotalPackets = "file.total_packets"
	AttrChecksum     = "file.checksum"

	// ========================================================================
	// State store attributes
	// ========================================================================
	AttrStoreDriver = "store.driver"

	// ========================================================================
	// Backup storage attributes
	// ========================================================================
	AttrBucket = "storage.bucket"
	AttrKey    = "storage.key"
	AttrRegion = "storage.region"
)

// Span names for internal operations.
// Request spans are built by StartRequestSpan as "transfer.<operation>".
const (
	SpanStateLoad  = "state.load"
	SpanBackupRun  = "backup.run"
	SpanBackupFile = "backup.upload"
)

// ClientAddr returns an attribute for the peer address
func ClientAddr(addr string) attribute.KeyValue {
	return attribute.String(AttrClientAddr, addr)
}

// ClientID returns an attribute for the hex client identifier
func ClientID(id string) attribute.KeyValue {
	return attribute.String(AttrClientID, id)
}

// ClientName returns an attribute for the registered client name
func ClientName(name string) attribute.KeyValue {
	return attribute.String(AttrClientName, name)
}

// Operation returns an attribute for the opcode name
func Operation(name string) attribute.KeyValue {
	return attribute.String(AttrOperation, name)
}

// Opcode returns an attribute for the numeric request opcode
func Opcode(code uint16) attribute.KeyValue {
	return attribute.Int(AttrOpcode, int(code))
}

// ResponseCode returns an attribute for the numeric response code
func ResponseCode(code uint16) attribute.KeyValue {
	return attribute.Int(AttrResponseCode, int(code))
}

// PayloadSize returns an attribute for the request payload size
func PayloadSize(size uint32) attribute.KeyValue {
	return attribute.Int64(AttrPayloadSize, int64(size))
}

// ProtocolVersion returns an attribute for the header version byte
func ProtocolVersion(v uint8) attribute.KeyValue {
	return attribute.Int(AttrVersion, int(v))
}

// FileName returns an attribute for the transferred file name
func FileName(name string) attribute.KeyValue {
	return attribute.String(AttrFileName, name)
}

// FilePath returns an attribute for the vault path
func FilePath(path string) attribute.KeyValue {
	return attribute.String(AttrFilePath, path)
}

// FileSize returns an attribute for the file size before encryption
func FileSize(size uint32) attribute.KeyValue {
	return attribute.Int64(AttrFileSize, int64(size))
}

// ContentSize returns an attribute for the encrypted content size
func ContentSize(size uint32) attribute.KeyValue {
	return attribute.Int64(AttrContentSize, int64(size))
}

// Packet returns an attribute for the fragment number
func Packet(n uint16) attribute.KeyValue {
	return attribute.Int(AttrPacket, int(n))
}

// TotalPackets returns an attribute for the fragment count
func TotalPackets(n uint16) attribute.KeyValue {
	return attribute.Int(AttrTotalPackets, int(n))
}

// Checksum returns an attribute for the file checksum, rendered in decimal
// the way clients print it
func Checksum(crc uint32) attribute.KeyValue {
	return attribute.String(AttrChecksum, fmt.Sprintf("%d", crc))
}

// StoreDriver returns an attribute for the state store driver name
func StoreDriver(driver string) attribute.KeyValue {
	return attribute.String(AttrStoreDriver, driver)
}

// Bucket returns an attribute for an S3 bucket name
func Bucket(name string) attribute.KeyValue {
	return attribute.String(AttrBucket, name)
}

// StorageKey returns an attribute for an S3 object key
func StorageKey(key string) attribute.KeyValue {
	return attribute.String(AttrKey, key)
}

// Region returns an attribute for a cloud region
func Region(region string) attribute.KeyValue {
	return attribute.String(AttrRegion, region)
}

// StartRequestSpan starts a span for one protocol request.
// This is a convenience function that sets common attributes.
func StartRequestSpan(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{
		Operation(operation),
	}
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, "transfer."+operation, trace.WithAttributes(allAttrs...))
}

// StartBackupSpan starts a span for a backup operation.
func StartBackupSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return StartSpan(ctx, name, trace.WithAttributes(attrs...))
}

// InjectTraceContext copies the active span's trace and span IDs into the
// request's logging context so every log line can be correlated with its
// trace. A context without a logging context is returned unchanged.
func InjectTraceContext(ctx context.Context) context.Context {
	lc := logger.FromContext(ctx)
	if lc == nil {
		return ctx
	}

	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.HasTraceID() {
		return ctx
	}

	return logger.WithContext(ctx, lc.WithTrace(sc.TraceID().String(), sc.SpanID().String()))
}
