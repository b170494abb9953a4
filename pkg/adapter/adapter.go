// Package adapter runs the TCP front end of the transfer server. It owns
// the listener, connection limits and graceful shutdown; the wire format
// lives in pkg/protocol and request semantics in pkg/dispatch.
package adapter

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/marmos91/cipherdrop/internal/logger"
	"github.com/marmos91/cipherdrop/pkg/dispatch"
	"github.com/marmos91/cipherdrop/pkg/metrics"
)

// Config holds the listener settings for a Server.
type Config struct {
	// Host is the interface to bind to. Empty binds all interfaces.
	Host string

	// Port is the TCP port to listen on. 0 picks a free port; the bound
	// address is available from Addr once the server is serving.
	Port int

	// MaxConnections limits concurrent client connections. 0 means unlimited.
	MaxConnections int

	// MaxPayload is the largest request payload the server will read.
	// Requests declaring more are refused and the connection closed.
	MaxPayload uint32

	// IdleTimeout closes connections with no complete request for this
	// long. 0 disables the idle timeout.
	IdleTimeout time.Duration

	// ShutdownTimeout bounds how long graceful shutdown waits for active
	// connections before force-closing them.
	ShutdownTimeout time.Duration
}

// Server accepts transfer protocol connections and feeds each request to
// the dispatcher.
//
// Thread safety:
// All exported methods are safe for concurrent use. Shutdown is idempotent
// via sync.Once, so Stop may be called multiple times and concurrently
// with Serve.
type Server struct {
	config     Config
	dispatcher *dispatch.Dispatcher

	// metrics is optional; nil disables collection with zero overhead.
	metrics metrics.TransferMetrics

	// listener accepts client connections. Closed during shutdown to stop
	// accepting new ones.
	listener   net.Listener
	listenerMu sync.RWMutex

	// listenerReady is closed once the listener is bound. Addr blocks on
	// it so tests can synchronize with startup.
	listenerReady chan struct{}

	// activeConns tracks connection goroutines for graceful shutdown.
	activeConns sync.WaitGroup

	// connCount is the current number of active connections.
	connCount atomic.Int32

	// connections maps remote address to net.Conn so shutdown can
	// interrupt blocking reads and force-close stragglers.
	connections sync.Map

	// connSemaphore limits concurrent connections when MaxConnections > 0.
	// A slot is acquired before Accept and released when the connection
	// goroutine exits. nil means unlimited.
	connSemaphore chan struct{}

	// shutdown is closed by initiateShutdown and monitored by the accept
	// loop and every connection.
	shutdown     chan struct{}
	shutdownOnce sync.Once

	// requestCtx is the context handed to request handlers. Cancelled
	// during shutdown so in-flight operations can abort.
	requestCtx     context.Context
	cancelRequests context.CancelFunc
}

// New creates a Server in a stopped state. Call Serve to start accepting.
// m may be nil to disable metrics.
func New(cfg Config, dispatcher *dispatch.Dispatcher, m metrics.TransferMetrics) *Server {
	var connSemaphore chan struct{}
	if cfg.MaxConnections > 0 {
		connSemaphore = make(chan struct{}, cfg.MaxConnections)
		logger.Debug("Connection limit", "max_connections", cfg.MaxConnections)
	} else {
		logger.Debug("Connection limit", "max_connections", "unlimited")
	}

	requestCtx, cancelRequests := context.WithCancel(context.Background())

	return &Server{
		config:         cfg,
		dispatcher:     dispatcher,
		metrics:        m,
		listenerReady:  make(chan struct{}),
		connSemaphore:  connSemaphore,
		shutdown:       make(chan struct{}),
		requestCtx:     requestCtx,
		cancelRequests: cancelRequests,
	}
}

// Serve listens on the configured address and accepts connections until
// ctx is cancelled or Stop is called.
//
// Returns:
//   - nil on graceful shutdown
//   - error if the listener fails to start or shutdown was not graceful
func (s *Server) Serve(ctx context.Context) error {
	listenAddr := net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))
	listener, err := net.Listen("tcp", listenAddr)
	if err != nil {
		close(s.listenerReady)
		return fmt.Errorf("listen on %s: %w", listenAddr, err)
	}

	s.listenerMu.Lock()
	s.listener = listener
	s.listenerMu.Unlock()
	close(s.listenerReady)

	logger.Info("Transfer server listening", "address", listener.Addr().String())

	// Monitor context cancellation in a separate goroutine
	go func() {
		<-ctx.Done()
		logger.Info("Shutdown signal received", logger.Err(ctx.Err()))
		s.initiateShutdown()
	}()

	for {
		// Acquire a semaphore slot before accepting when limiting is on
		if s.connSemaphore != nil {
			select {
			case s.connSemaphore <- struct{}{}:
			case <-s.shutdown:
				return s.gracefulShutdown()
			}
		}

		tcpConn, err := listener.Accept()
		if err != nil {
			if s.connSemaphore != nil {
				<-s.connSemaphore
			}

			// The listener is closed during shutdown, so an accept error
			// there is expected
			select {
			case <-s.shutdown:
				return s.gracefulShutdown()
			default:
				logger.Debug("Error accepting connection", logger.Err(err))
				continue
			}
		}

		// Requests are small and latency-sensitive; disable Nagle
		if tcp, ok := tcpConn.(*net.TCPConn); ok {
			if err := tcp.SetNoDelay(true); err != nil {
				logger.Debug("Failed to set TCP_NODELAY", logger.Err(err))
			}
		}

		s.activeConns.Add(1)
		s.connCount.Add(1)

		addr := tcpConn.RemoteAddr().String()
		s.connections.Store(addr, tcpConn)

		current := s.connCount.Load()
		if s.metrics != nil {
			s.metrics.RecordConnectionAccepted()
			s.metrics.SetActiveConnections(current)
		}
		logger.Debug("Connection accepted", logger.RemoteAddr(addr), "active", current)

		conn := &connection{server: s, conn: tcpConn}

		go func(addr string) {
			defer func() {
				s.connections.Delete(addr)
				s.activeConns.Done()
				s.connCount.Add(-1)
				if s.connSemaphore != nil {
					<-s.connSemaphore
				}

				if s.metrics != nil {
					s.metrics.RecordConnectionClosed()
					s.metrics.SetActiveConnections(s.connCount.Load())
				}
				logger.Debug("Connection closed", logger.RemoteAddr(addr), "active", s.connCount.Load())
			}()

			conn.serve(s.requestCtx)
		}(addr)
	}
}

// initiateShutdown signals the server to begin graceful shutdown.
//
// Shutdown sequence:
//  1. Close the shutdown channel (stops the accept loop and serve loops)
//  2. Close the listener (stops accepting new connections)
//  3. Interrupt blocking reads on all active connections
//  4. Cancel the request context (aborts in-flight handlers)
func (s *Server) initiateShutdown() {
	s.shutdownOnce.Do(func() {
		logger.Debug("Shutdown initiated")

		close(s.shutdown)

		s.listenerMu.Lock()
		if s.listener != nil {
			if err := s.listener.Close(); err != nil {
				logger.Debug("Error closing listener", logger.Err(err))
			}
		}
		s.listenerMu.Unlock()

		s.interruptBlockingReads()

		s.cancelRequests()
	})
}

// interruptBlockingReads sets a short deadline on every active connection
// so reads blocked on idle clients return promptly during shutdown.
func (s *Server) interruptBlockingReads() {
	deadline := time.Now().Add(100 * time.Millisecond)

	s.connections.Range(func(key, value any) bool {
		if conn, ok := value.(net.Conn); ok {
			if err := conn.SetReadDeadline(deadline); err != nil {
				logger.Debug("Error setting shutdown deadline", "address", key, logger.Err(err))
			}
		}
		return true
	})
}

// gracefulShutdown waits for active connections to finish or the shutdown
// timeout to expire, force-closing whatever remains.
func (s *Server) gracefulShutdown() error {
	active := s.connCount.Load()
	logger.Info("Graceful shutdown: waiting for active connections",
		"active", active, "timeout", s.config.ShutdownTimeout)

	done := make(chan struct{})
	go func() {
		s.activeConns.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("Graceful shutdown complete: all connections closed")
		return nil

	case <-time.After(s.config.ShutdownTimeout):
		remaining := s.connCount.Load()
		logger.Warn("Shutdown timeout exceeded - forcing closure",
			"active", remaining, "timeout", s.config.ShutdownTimeout)

		s.forceCloseConnections()

		return fmt.Errorf("shutdown timeout: %d connections force-closed", remaining)
	}
}

// forceCloseConnections closes all tracked connections outright.
func (s *Server) forceCloseConnections() {
	closed := 0
	s.connections.Range(func(key, value any) bool {
		addr := key.(string)
		conn := value.(net.Conn)

		if err := conn.Close(); err != nil {
			logger.Debug("Error force-closing connection", logger.RemoteAddr(addr), logger.Err(err))
		} else {
			closed++
			logger.Debug("Force-closed connection", logger.RemoteAddr(addr))
			if s.metrics != nil {
				s.metrics.RecordConnectionForceClosed()
			}
		}
		return true
	})

	if closed > 0 {
		logger.Info("Force-closed connections", "count", closed)
	}
}

// Stop initiates graceful shutdown and waits for active connections.
//
// With a nil ctx the configured ShutdownTimeout bounds the wait; otherwise
// Stop returns ctx.Err() as soon as the context is done.
func (s *Server) Stop(ctx context.Context) error {
	s.initiateShutdown()

	if ctx == nil {
		return s.gracefulShutdown()
	}

	logger.Info("Graceful shutdown: waiting for active connections",
		"active", s.connCount.Load())

	done := make(chan struct{})
	go func() {
		s.activeConns.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("Graceful shutdown complete: all connections closed")
		return nil

	case <-ctx.Done():
		remaining := s.connCount.Load()
		logger.Warn("Shutdown context cancelled", "active", remaining, logger.Err(ctx.Err()))
		return ctx.Err()
	}
}

// ActiveConnections returns the current number of active connections.
func (s *Server) ActiveConnections() int32 {
	return s.connCount.Load()
}

// Addr returns the address the server is listening on. It blocks until
// Serve has bound the listener, which makes it safe to call right after
// starting Serve in a goroutine. Returns "" when Serve failed to bind.
func (s *Server) Addr() string {
	<-s.listenerReady

	s.listenerMu.RLock()
	defer s.listenerMu.RUnlock()

	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}
