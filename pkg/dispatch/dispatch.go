// Package dispatch routes decoded requests to their opcode handlers and owns
// the per-opcode protocol contracts: which lookups run, which state mutations
// persist, and which response (if any) goes back on the wire.
//
// The dispatcher keeps no state between requests. Everything a handler
// needs lives in the durable registry or in the request itself, so a
// client may drop its connection and resume on a new one at any point.
package dispatch

import (
	"context"

	"github.com/marmos91/cipherdrop/internal/logger"
	"github.com/marmos91/cipherdrop/pkg/metrics"
	"github.com/marmos91/cipherdrop/pkg/protocol"
	"github.com/marmos91/cipherdrop/pkg/state"
	"github.com/marmos91/cipherdrop/pkg/vault"
)

// procedure describes a single opcode: its log name, the smallest payload
// it accepts, and its handler.
type procedure struct {
	// Name is the opcode name for logging (e.g., "register", "send-file")
	Name string

	// MinPayload is the smallest valid payload in bytes. Shorter payloads
	// are answered with a general failure before the handler runs.
	MinPayload int

	// Handle processes the request. A nil response means the opcode
	// produces no reply (intermediate fragments, crc-not-ok).
	Handle func(ctx context.Context, d *Dispatcher, req *protocol.Request) *protocol.Response
}

// procedures maps request opcodes to their handlers.
var procedures = map[uint16]*procedure{
	protocol.CodeRegister: {
		Name:       "register",
		MinPayload: protocol.NameSize,
		Handle:     handleRegister,
	},
	protocol.CodeSendPublicKey: {
		Name:       "send-public-key",
		MinPayload: protocol.NameSize + protocol.PublicKeySize,
		Handle:     handleSendPublicKey,
	},
	protocol.CodeReconnect: {
		Name:       "reconnect",
		MinPayload: protocol.NameSize,
		Handle:     handleReconnect,
	},
	protocol.CodeSendFile: {
		Name:       "send-file",
		MinPayload: protocol.FileChunkHeaderSize,
		Handle:     handleSendFile,
	},
	protocol.CodeCRCOk: {
		Name:       "crc-ok",
		MinPayload: protocol.NameSize,
		Handle:     handleCRCOk,
	},
	protocol.CodeCRCRetry: {
		Name:       "crc-retry",
		MinPayload: protocol.NameSize,
		Handle:     handleCRCRetry,
	},
	protocol.CodeCRCAbort: {
		Name:       "crc-abort",
		MinPayload: protocol.NameSize,
		Handle:     handleCRCAbort,
	},
}

// Dispatcher executes requests against the durable registry and the file
// vault. It holds no per-connection state; a single Dispatcher serves every
// connection concurrently.
type Dispatcher struct {
	registry *state.Registry
	files    *vault.Vault
	metrics  metrics.TransferMetrics // may be nil
}

// New creates a Dispatcher. metrics may be nil to disable file outcome
// counters with zero overhead.
func New(registry *state.Registry, files *vault.Vault, m metrics.TransferMetrics) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		files:    files,
		metrics:  m,
	}
}

// OpcodeName returns the log name for a request opcode, falling back to
// the protocol-level rendering for unknown codes.
func OpcodeName(code uint16) string {
	if proc, ok := procedures[code]; ok {
		return proc.Name
	}
	return protocol.RequestName(code)
}

// Dispatch executes the handler for req and returns the response to send,
// or nil when the opcode produces none.
//
// Unknown opcodes and payloads below the opcode minimum are answered with a
// general failure; the connection stays usable because the payload was
// already consumed by the reader.
func (d *Dispatcher) Dispatch(ctx context.Context, req *protocol.Request) *protocol.Response {
	proc, ok := procedures[req.Header.Code]
	if !ok {
		logger.WarnCtx(ctx, "Unknown opcode",
			logger.Code(req.Header.Code),
			logger.KeyPayloadSize, req.Header.PayloadSize)
		return protocol.MakeFailure()
	}

	if len(req.Payload) < proc.MinPayload {
		logger.WarnCtx(ctx, "Payload below opcode minimum",
			logger.Opcode(proc.Name),
			logger.KeyPayloadSize, len(req.Payload),
			"min_payload", proc.MinPayload)
		return protocol.MakeFailure()
	}

	return proc.Handle(ctx, d, req)
}

// touch refreshes last_seen for the requesting client. Unknown ids are a
// no-op: verdicts and fragments from ids the store never saw still get the
// normal protocol treatment.
func (d *Dispatcher) touch(ctx context.Context, id string) {
	if err := d.registry.Touch(ctx, id); err != nil {
		logger.DebugCtx(ctx, "Touch skipped", logger.ClientID(id), logger.Err(err))
	}
}

func (d *Dispatcher) recordFileAccepted() {
	if d.metrics != nil {
		d.metrics.RecordFileAccepted()
	}
}

func (d *Dispatcher) recordFileVerified() {
	if d.metrics != nil {
		d.metrics.RecordFileVerified()
	}
}

func (d *Dispatcher) recordFileRejected() {
	if d.metrics != nil {
		d.metrics.RecordFileRejected()
	}
}
