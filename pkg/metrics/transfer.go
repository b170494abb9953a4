package metrics

import (
	"time"
)

// TransferMetrics provides observability for the transfer server.
//
// Implementations collect metrics about requests, connection lifecycle,
// received bytes and file outcomes. The interface is optional - pass nil
// to disable metrics collection with zero overhead.
//
// Example usage:
//
//	// With metrics enabled
//	metrics.InitRegistry()
//	m := metrics.NewTransferMetrics()
//	srv := adapter.New(cfg, dispatcher, m)
//
//	// Without metrics (pass nil for zero overhead)
//	srv := adapter.New(cfg, dispatcher, nil)
type TransferMetrics interface {
	// RecordRequest records a completed request with its opcode name,
	// response code and duration.
	//
	// Parameters:
	//   - opcode: request opcode name (e.g., "register", "send-file")
	//   - code: numeric response code as a string ("1600"), or "none"
	//     for requests that produce no response
	//   - duration: time taken to process the request
	RecordRequest(opcode string, code string, duration time.Duration)

	// RecordRequestStart increments the in-flight request counter.
	RecordRequestStart(opcode string)

	// RecordRequestEnd decrements the in-flight request counter.
	RecordRequestEnd(opcode string)

	// RecordBytesReceived records payload bytes read off the wire.
	RecordBytesReceived(opcode string, bytes uint64)

	// RecordFileAccepted increments the accepted-files counter. A file is
	// accepted when its final fragment decrypts and the row is recorded.
	RecordFileAccepted()

	// RecordFileVerified increments the verified-files counter. A file is
	// verified when the client confirms the checksum.
	RecordFileVerified()

	// RecordFileRejected increments the rejected-files counter: zero-size
	// uploads, decryption failures and clients without a session key.
	RecordFileRejected()

	// SetActiveConnections updates the current connection count.
	SetActiveConnections(count int32)

	// RecordConnectionAccepted increments the total accepted connections counter.
	RecordConnectionAccepted()

	// RecordConnectionClosed increments the total closed connections counter.
	RecordConnectionClosed()

	// RecordConnectionForceClosed increments the force-closed connections
	// counter. Called when connections are closed after the shutdown timeout.
	RecordConnectionForceClosed()
}

// NewTransferMetrics creates a Prometheus-backed TransferMetrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
// When nil is returned, callers should pass nil onward, which results in
// zero overhead.
func NewTransferMetrics() TransferMetrics {
	if !IsEnabled() {
		return nil
	}
	return newPrometheusTransferMetrics()
}

// newPrometheusTransferMetrics is implemented in pkg/metrics/prometheus.
// This indirection avoids an import cycle while keeping the API clean.
var newPrometheusTransferMetrics func() TransferMetrics

// RegisterTransferMetricsConstructor registers the Prometheus transfer
// metrics constructor. Called by pkg/metrics/prometheus during package
// initialization.
func RegisterTransferMetricsConstructor(constructor func() TransferMetrics) {
	newPrometheusTransferMetrics = constructor
}
