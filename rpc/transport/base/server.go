package base

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/dRec/rpc/common"
	"github.com/ValentinKolb/dRec/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var Logger = logger.GetLogger("transport/rpc")

// ErrServerClosed is returned by Listen when called on a transport that was already shut down
var ErrServerClosed = errors.New("server transport closed")

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IServerConnector defines the interface for transport-specific server operations
type IServerConnector interface {
	// Listen creates a listener and returns it
	Listen(config common.ServerConfig) (net.Listener, error)

	// UpgradeConnection applies protocol-specific settings to an accepted connection
	UpgradeConnection(conn net.Conn, config common.ServerConfig) error

	// GetName returns the name of the transport type (e.g., "tcp")
	GetName() string
}

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// serverTransport implements the accept loop, the worker pool hand off and the
// graceful shutdown independent of the socket type
type serverTransport struct {
	connector IServerConnector
	handler   transport.ConnHandleFunc
	config    common.ServerConfig

	listener net.Listener
	pool     atomic.Pointer[WorkerPool]
	ready    chan struct{}
	addr     atomic.Pointer[net.Addr]

	shutdown     chan struct{} // closed when shutdown begins
	stopped      chan struct{} // closed when shutdown finished, stopErr is set
	stopErr      error
	shutdownOnce sync.Once
	started      atomic.Bool

	conns    *xsync.MapOf[uint64, net.Conn]
	nextConn atomic.Uint64
	accepted atomic.Uint64
}

// connTask runs the connection handler on the worker pool
type connTask struct {
	t    *serverTransport
	id   uint64
	conn net.Conn
}

func (c *connTask) Run() {
	defer c.t.release(c.id, c.conn)
	c.t.handler(c.conn)
}

func (c *connTask) Cancel() {
	// closing the socket unblocks the handler's read or write
	_ = c.conn.Close()
}

// -----------------------------------------------------------
// Transport Factory Method (used for tcp, etc.)
// -----------------------------------------------------------

// NewBaseServerTransport creates a new base server transport using the given connector
func NewBaseServerTransport(connector IServerConnector) transport.IRPCServerTransport {
	return &serverTransport{
		connector: connector,
		ready:     make(chan struct{}),
		shutdown:  make(chan struct{}),
		stopped:   make(chan struct{}),
		conns:     xsync.NewMapOf[uint64, net.Conn](),
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCServerTransport)
// --------------------------------------------------------------------------

func (t *serverTransport) RegisterHandler(handler transport.ConnHandleFunc) {
	t.handler = handler
}

func (t *serverTransport) Ready() <-chan struct{} {
	return t.ready
}

func (t *serverTransport) Addr() net.Addr {
	if addr := t.addr.Load(); addr != nil {
		return *addr
	}
	return nil
}

func (t *serverTransport) Stats() transport.Stats {
	stats := transport.Stats{
		Accepted: t.accepted.Load(),
		Open:     t.conns.Size(),
	}
	if pool := t.pool.Load(); pool != nil {
		ps := pool.Stats()
		stats.Workers = ps.Workers
		stats.Busy = ps.Busy
		stats.Queued = ps.Queued
		stats.Saturations = ps.Saturations
		stats.CallerRuns = ps.CallerRuns
	}
	return stats
}

func (t *serverTransport) Listen(ctx context.Context, config common.ServerConfig) error {
	if t.handler == nil {
		return fmt.Errorf("no connection handler registered")
	}
	if !t.started.CompareAndSwap(false, true) {
		return ErrServerClosed
	}
	t.config = config

	saturation, err := SaturationHandlerFor(config.SaturationPolicy)
	if err != nil {
		return err
	}

	// Create listener using the connector
	listener, err := t.connector.Listen(config)
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}
	t.listener = listener
	addr := listener.Addr()
	t.addr.Store(&addr)

	pool := NewWorkerPool(PoolConfig{
		Workers:     config.Workers,
		Backlog:     config.Backlog,
		OnSaturated: saturation,
	})
	t.pool.Store(pool)
	close(t.ready)

	Logger.Infof("Starting %s server on %s with %d workers (backlog %d, policy %s)",
		t.connector.GetName(), addr, config.Workers, config.Backlog, config.SaturationPolicy)

	// stop accepting once the context is cancelled
	loopDone := make(chan struct{})
	defer close(loopDone)
	go func() {
		select {
		case <-ctx.Done():
			t.stop()
		case <-loopDone:
		}
	}()

	var backoff time.Duration
	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-t.shutdown:
				<-t.stopped
				return t.stopErr
			default:
			}

			// the listening socket itself failed, nothing more can be accepted
			if errors.Is(err, net.ErrClosed) {
				Logger.Errorf("Listener failed: %v", err)
				if shutdownErr := t.stop(); shutdownErr != nil {
					return errors.Join(err, shutdownErr)
				}
				return err
			}

			if backoff == 0 {
				backoff = 5 * time.Millisecond
			} else if backoff *= 2; backoff > time.Second {
				backoff = time.Second
			}
			Logger.Warningf("Accept error: %v; retrying in %v", err, backoff)
			time.Sleep(backoff)
			continue
		}
		backoff = 0
		t.accepted.Add(1)

		if err := t.connector.UpgradeConnection(conn, config); err != nil {
			Logger.Warningf("Failed to tune connection from %s: %v", conn.RemoteAddr(), err)
		}
		conn = newIdleTimeoutConn(conn, config.IdleTimeout)

		task := &connTask{t: t, id: t.nextConn.Add(1), conn: conn}
		t.conns.Store(task.id, conn)
		Logger.Debugf("Accepted connection %d from %s", task.id, conn.RemoteAddr())

		// with the caller-runs policy this may serve the connection on this goroutine
		if err := pool.Submit(task); err != nil {
			Logger.Warningf("Rejected connection from %s: %v", conn.RemoteAddr(), err)
			t.release(task.id, conn)
		}
	}
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// stop closes the listener and drains the pool exactly once. Concurrent callers
// wait for the first one and get the same result.
func (t *serverTransport) stop() error {
	t.shutdownOnce.Do(func() {
		Logger.Infof("Shutting down %s server, no longer accepting connections", t.connector.GetName())
		close(t.shutdown)
		_ = t.listener.Close()
		t.stopErr = t.gracefulShutdown()
		close(t.stopped)
	})
	<-t.stopped
	return t.stopErr
}

// gracefulShutdown waits for running connections up to the shutdown timeout and
// then closes whatever is still open
func (t *serverTransport) gracefulShutdown() error {
	timeout := t.config.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	open := t.conns.Size()
	if open > 0 {
		Logger.Infof("Waiting up to %v for %d open connection(s)", timeout, open)
	}

	err := t.pool.Load().Shutdown(ctx)

	// anything left over was never handed to a handler
	t.conns.Range(func(id uint64, conn net.Conn) bool {
		t.release(id, conn)
		return true
	})

	if err != nil {
		Logger.Warningf("Forced shutdown: %v", err)
		return err
	}
	Logger.Infof("Server stopped, all connections closed")
	return nil
}

// release closes a connection and forgets it
func (t *serverTransport) release(id uint64, conn net.Conn) {
	if _, ok := t.conns.LoadAndDelete(id); ok {
		_ = conn.Close()
	}
}
