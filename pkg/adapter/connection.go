package adapter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/marmos91/cipherdrop/internal/keys"
	"github.com/marmos91/cipherdrop/internal/logger"
	"github.com/marmos91/cipherdrop/internal/telemetry"
	"github.com/marmos91/cipherdrop/pkg/dispatch"
	"github.com/marmos91/cipherdrop/pkg/protocol"
)

// connection serves requests for a single accepted TCP connection.
type connection struct {
	server *Server
	conn   net.Conn
}

// serve reads and handles requests until the connection closes.
//
// The connection is closed when:
//   - The context is cancelled (server shutdown)
//   - The idle timeout expires
//   - A request declares a payload above the configured maximum
//   - A read or write fails
//   - The client closes its end
//
// Requests are processed synchronously: the protocol pairs each request
// with at most one response, and clients send the next request only after
// reading the previous answer, so a single reader keeps responses ordered
// without a write lock.
func (c *connection) serve(ctx context.Context) {
	defer c.handleClose()

	addr := c.conn.RemoteAddr().String()
	logger.Debug("New connection", logger.RemoteAddr(addr))

	if c.server.config.IdleTimeout > 0 {
		if err := c.conn.SetDeadline(time.Now().Add(c.server.config.IdleTimeout)); err != nil {
			logger.Warn("Failed to set deadline", logger.RemoteAddr(addr), logger.Err(err))
		}
	}

	for {
		// Check for shutdown before blocking on the next request
		select {
		case <-ctx.Done():
			logger.Debug("Connection closed due to shutdown", logger.RemoteAddr(addr))
			return
		case <-c.server.shutdown:
			logger.Debug("Connection closed due to server shutdown", logger.RemoteAddr(addr))
			return
		default:
		}

		req, err := protocol.ReadRequest(c.conn, c.server.config.MaxPayload)
		if err != nil {
			if errors.Is(err, protocol.ErrPayloadTooLarge) {
				// The header parsed but the payload was never consumed, so
				// the stream is no longer framed. Tell the client and close.
				logger.Warn("Oversized payload declared",
					logger.RemoteAddr(addr),
					logger.Opcode(dispatch.OpcodeName(req.Header.Code)),
					logger.KeyPayloadSize, req.Header.PayloadSize)
				if werr := protocol.WriteResponse(c.conn, protocol.MakeFailure()); werr != nil {
					logger.Debug("Failed to write failure response", logger.RemoteAddr(addr), logger.Err(werr))
				}
				return
			}
			if errors.Is(err, io.EOF) {
				logger.Debug("Connection closed by client", logger.RemoteAddr(addr))
			} else if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				logger.Debug("Connection timed out", logger.RemoteAddr(addr), logger.Err(err))
			} else if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				logger.Debug("Connection cancelled", logger.RemoteAddr(addr), logger.Err(err))
			} else {
				logger.Debug("Error reading request", logger.RemoteAddr(addr), logger.Err(err))
			}
			return
		}

		if err := c.handleRequest(ctx, req); err != nil {
			logger.Debug("Error handling request", logger.RemoteAddr(addr), logger.Err(err))
			return
		}

		// Reset the idle timeout after each completed request
		if c.server.config.IdleTimeout > 0 {
			if err := c.conn.SetDeadline(time.Now().Add(c.server.config.IdleTimeout)); err != nil {
				logger.Warn("Failed to reset deadline", logger.RemoteAddr(addr), logger.Err(err))
			}
		}
	}
}

// handleRequest dispatches a single request and writes the response, if any.
func (c *connection) handleRequest(ctx context.Context, req *protocol.Request) error {
	addr := c.conn.RemoteAddr().String()
	opcode := dispatch.OpcodeName(req.Header.Code)
	clientID := keys.FormatID(req.Header.ClientID)

	lc := logger.NewLogContext(addr).WithOpcode(opcode).WithClient(clientID)
	ctx = logger.WithContext(ctx, lc)

	ctx, span := telemetry.StartRequestSpan(ctx, opcode,
		telemetry.ClientAddr(addr),
		telemetry.ClientID(clientID),
		telemetry.Opcode(req.Header.Code),
		telemetry.PayloadSize(req.Header.PayloadSize),
		telemetry.ProtocolVersion(req.Header.Version),
	)
	defer span.End()

	ctx = telemetry.InjectTraceContext(ctx)

	logger.DebugCtx(ctx, "Request received",
		logger.KeyVersion, req.Header.Version,
		logger.KeyPayloadSize, req.Header.PayloadSize)

	// Abort early if shutdown started while this request was being read
	select {
	case <-ctx.Done():
		telemetry.RecordError(ctx, ctx.Err())
		return ctx.Err()
	default:
	}

	if c.server.metrics != nil {
		c.server.metrics.RecordRequestStart(opcode)
		defer c.server.metrics.RecordRequestEnd(opcode)
		c.server.metrics.RecordBytesReceived(opcode, uint64(len(req.Payload)))
	}

	start := time.Now()
	resp := c.server.dispatcher.Dispatch(ctx, req)
	duration := time.Since(start)

	code := "none"
	if resp != nil {
		code = strconv.Itoa(int(resp.Code))
		telemetry.SetAttributes(ctx, telemetry.ResponseCode(resp.Code))
	}

	if c.server.metrics != nil {
		c.server.metrics.RecordRequest(opcode, code, duration)
	}

	logger.DebugCtx(ctx, "Request completed",
		logger.KeyResponseCode, code,
		logger.KeyDurationMs, logger.Duration(start))

	if resp == nil {
		return nil
	}

	if err := protocol.WriteResponse(c.conn, resp); err != nil {
		telemetry.RecordError(ctx, err)
		return fmt.Errorf("write response: %w", err)
	}
	return nil
}

// handleClose recovers from handler panics and closes the connection. It
// runs as a deferred function in serve so cleanup happens on every exit
// path, keeping one misbehaving connection from crashing the server.
func (c *connection) handleClose() {
	if r := recover(); r != nil {
		logger.Error("Panic in connection handler",
			logger.RemoteAddr(c.conn.RemoteAddr().String()),
			"error", r,
			"stack", string(debug.Stack()))
	}
	_ = c.conn.Close()
}
