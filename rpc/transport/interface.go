package transport

import (
	"context"
	"net"

	"github.com/ValentinKolb/dRec/rpc/common"
)

// --------------------------------------------------------------------------
// Server Transport
// --------------------------------------------------------------------------

// ConnHandleFunc serves one accepted connection until the conversation ends.
// It is called on a worker of the transport's pool (or on the accepting goroutine
// when the pool is saturated) and owns the connection for the duration of the call.
type ConnHandleFunc func(conn net.Conn)

// Stats is a snapshot of the listener and worker pool counters
type Stats struct {
	// Accepted is the number of connections accepted since Listen was called
	Accepted uint64
	// Open is the number of connections currently owned by a handler or waiting in the backlog
	Open int
	// Workers is the configured number of executors
	Workers int
	// Busy is the number of tasks currently running (on workers or on the caller)
	Busy int
	// Queued is the number of tasks waiting in the backlog
	Queued int
	// Saturations counts submissions that found executors and backlog full
	Saturations uint64
	// CallerRuns counts tasks that were executed by the submitting goroutine
	CallerRuns uint64
}

// IRPCServerTransport is the interface for the server side transport layer
type IRPCServerTransport interface {
	// RegisterHandler registers the handler that serves accepted connections.
	// It must be called before Listen.
	RegisterHandler(handler ConnHandleFunc)
	// Listen binds the configured endpoint and accepts connections until ctx is
	// cancelled. On cancellation it stops accepting, waits for running handlers up to
	// the configured shutdown timeout and force closes the remaining connections.
	// It returns an error if binding fails, the listening socket fails or the
	// shutdown had to force close connections.
	Listen(ctx context.Context, config common.ServerConfig) error
	// Ready is closed once the listener is bound
	Ready() <-chan struct{}
	// Addr returns the bound address, nil before Ready is closed
	Addr() net.Addr
	// Stats returns a snapshot of the transport counters
	Stats() Stats
}

// --------------------------------------------------------------------------
// Client Transport
// --------------------------------------------------------------------------

// IRPCClientTransport is the interface for the client side transport layer
type IRPCClientTransport interface {
	// Connect opens a single connection to the configured endpoint
	Connect(ctx context.Context, config common.ClientConfig) (net.Conn, error)
}
