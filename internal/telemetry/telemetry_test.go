package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"

	"github.com/marmos91/cipherdrop/internal/logger"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.False(t, cfg.Enabled)
	assert.Equal(t, "cipherdrop", cfg.ServiceName)
	assert.Equal(t, "dev", cfg.ServiceVersion)
	assert.Equal(t, "localhost:4317", cfg.Endpoint)
	assert.True(t, cfg.Insecure)
	assert.Equal(t, 1.0, cfg.SampleRate)
}

func TestInitDisabled(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.Enabled = false

	shutdown, err := Init(ctx, cfg)
	require.NoError(t, err)
	require.NotNil(t, shutdown)

	// Should be able to call shutdown without error
	err = shutdown(ctx)
	assert.NoError(t, err)

	// Should not be enabled
	assert.False(t, IsEnabled())
}

func TestTracerReturnsNoOp(t *testing.T) {
	// Reset state
	tracer = nil
	enabled = false

	// Without initialization, should return no-op tracer
	tr := Tracer()
	require.NotNil(t, tr)
}

func TestStartSpan(t *testing.T) {
	ctx := context.Background()

	// Even without initialization, StartSpan should work (no-op)
	newCtx, span := StartSpan(ctx, "test.operation")
	require.NotNil(t, newCtx)
	require.NotNil(t, span)

	// Should be able to end the span
	span.End()
}

func TestSpanFromContext(t *testing.T) {
	ctx := context.Background()

	// Should return a span even without active span
	span := SpanFromContext(ctx)
	require.NotNil(t, span)
}

func TestAddEvent(t *testing.T) {
	ctx := context.Background()

	// Should not panic with no active span
	require.NotPanics(t, func() {
		AddEvent(ctx, "test.event")
	})
}

func TestRecordError(t *testing.T) {
	ctx := context.Background()

	// Should not panic with nil error
	require.NotPanics(t, func() {
		RecordError(ctx, nil)
	})

	// Should not panic with error
	require.NotPanics(t, func() {
		RecordError(ctx, errors.New("test error"))
	})
}

func TestSetStatus(t *testing.T) {
	ctx := context.Background()

	// Should not panic
	require.NotPanics(t, func() {
		SetStatus(ctx, codes.Ok, "success")
	})

	require.NotPanics(t, func() {
		SetStatus(ctx, codes.Error, "failed")
	})
}

func TestSetAttributes(t *testing.T) {
	ctx := context.Background()

	// Should not panic
	require.NotPanics(t, func() {
		SetAttributes(ctx, ClientAddr("192.168.1.1:45000"))
	})
}

func TestTraceID(t *testing.T) {
	ctx := context.Background()

	// Without active span, should return empty string
	traceID := TraceID(ctx)
	assert.Equal(t, "", traceID)
}

func TestSpanID(t *testing.T) {
	ctx := context.Background()

	// Without active span, should return empty string
	spanID := SpanID(ctx)
	assert.Equal(t, "", spanID)
}

func TestAttributeHelpers(t *testing.T) {
	t.Run("ClientAddr", func(t *testing.T) {
		attr := ClientAddr("192.168.1.100:12345")
		assert.Equal(t, AttrClientAddr, string(attr.Key))
		assert.Equal(t, "192.168.1.100:12345", attr.Value.AsString())
	})

	t.Run("ClientID", func(t *testing.T) {
		attr := ClientID("00112233445566778899aabbccddeeff")
		assert.Equal(t, AttrClientID, string(attr.Key))
		assert.Equal(t, "00112233445566778899aabbccddeeff", attr.Value.AsString())
	})

	t.Run("ClientName", func(t *testing.T) {
		attr := ClientName("alice")
		assert.Equal(t, AttrClientName, string(attr.Key))
		assert.Equal(t, "alice", attr.Value.AsString())
	})

	t.Run("Operation", func(t *testing.T) {
		attr := Operation("send-file")
		assert.Equal(t, AttrOperation, string(attr.Key))
		assert.Equal(t, "send-file", attr.Value.AsString())
	})

	t.Run("Opcode", func(t *testing.T) {
		attr := Opcode(828)
		assert.Equal(t, AttrOpcode, string(attr.Key))
		assert.Equal(t, int64(828), attr.Value.AsInt64())
	})

	t.Run("ResponseCode", func(t *testing.T) {
		attr := ResponseCode(1603)
		assert.Equal(t, AttrResponseCode, string(attr.Key))
		assert.Equal(t, int64(1603), attr.Value.AsInt64())
	})

	t.Run("PayloadSize", func(t *testing.T) {
		attr := PayloadSize(4096)
		assert.Equal(t, AttrPayloadSize, string(attr.Key))
		assert.Equal(t, int64(4096), attr.Value.AsInt64())
	})

	t.Run("FileName", func(t *testing.T) {
		attr := FileName("report.pdf")
		assert.Equal(t, AttrFileName, string(attr.Key))
		assert.Equal(t, "report.pdf", attr.Value.AsString())
	})

	t.Run("FilePath", func(t *testing.T) {
		attr := FilePath("transferred_files/00ff/report.pdf")
		assert.Equal(t, AttrFilePath, string(attr.Key))
		assert.Equal(t, "transferred_files/00ff/report.pdf", attr.Value.AsString())
	})

	t.Run("FileSize", func(t *testing.T) {
		attr := FileSize(1048576)
		assert.Equal(t, AttrFileSize, string(attr.Key))
		assert.Equal(t, int64(1048576), attr.Value.AsInt64())
	})

	t.Run("Packet", func(t *testing.T) {
		attr := Packet(3)
		assert.Equal(t, AttrPacket, string(attr.Key))
		assert.Equal(t, int64(3), attr.Value.AsInt64())
	})

	t.Run("TotalPackets", func(t *testing.T) {
		attr := TotalPackets(16)
		assert.Equal(t, AttrTotalPackets, string(attr.Key))
		assert.Equal(t, int64(16), attr.Value.AsInt64())
	})

	t.Run("Checksum", func(t *testing.T) {
		attr := Checksum(930766865)
		assert.Equal(t, AttrChecksum, string(attr.Key))
		assert.Equal(t, "930766865", attr.Value.AsString())
	})

	t.Run("StoreDriver", func(t *testing.T) {
		attr := StoreDriver("sqlite")
		assert.Equal(t, AttrStoreDriver, string(attr.Key))
		assert.Equal(t, "sqlite", attr.Value.AsString())
	})

	t.Run("Bucket", func(t *testing.T) {
		attr := Bucket("my-bucket")
		assert.Equal(t, AttrBucket, string(attr.Key))
		assert.Equal(t, "my-bucket", attr.Value.AsString())
	})

	t.Run("StorageKey", func(t *testing.T) {
		attr := StorageKey("path/to/object")
		assert.Equal(t, AttrKey, string(attr.Key))
		assert.Equal(t, "path/to/object", attr.Value.AsString())
	})
}

func TestStartRequestSpan(t *testing.T) {
	ctx := context.Background()

	newCtx, span := StartRequestSpan(ctx, "send-file",
		ClientAddr("127.0.0.1:50000"),
		Opcode(828))
	require.NotNil(t, newCtx)
	require.NotNil(t, span)
	span.End()
}

func TestInjectTraceContext_NoLogContext(t *testing.T) {
	ctx := context.Background()

	// Without a logging context, the context passes through unchanged.
	out := InjectTraceContext(ctx)
	assert.Equal(t, ctx, out)
}

func TestInjectTraceContext_NoActiveSpan(t *testing.T) {
	ctx := logger.WithContext(context.Background(), logger.NewLogContext("127.0.0.1:50000"))

	// A no-op span has no trace ID, so nothing is injected.
	out := InjectTraceContext(ctx)
	lc := logger.FromContext(out)
	require.NotNil(t, lc)
	assert.Equal(t, "", lc.TraceID)
}
