// Package base provides the protocol independent part of the record service
// transport: the accept loop, the worker pool that runs connection handlers and
// the client side connection setup. Socket specific behavior is injected through
// the IServerConnector and IClientConnector interfaces (see the tcp package).
//
// Key Components:
//
//   - WorkerPool: a fixed number of executors fed by a bounded backlog channel.
//     When executors and backlog are full a SaturationHandler decides: CallerRuns
//     (default) runs the task on the submitting goroutine, so an overloaded accept
//     loop stalls and throttles new connections; BlockUntilFree waits for room in
//     the backlog. Running tasks are tracked so that shutdown can cancel them, and
//     a panicking task is recovered without losing its executor.
//
//   - serverTransport: accepts connections, tunes them, applies the read idle
//     timeout and submits one task per connection. Cancelling the Listen context
//     closes the listener, waits for running connections up to the shutdown timeout
//     and then force closes the rest.
//
//   - clientTransport: dials an endpoint with a timeout and tunes the connection.
//
// Thread Safety:
//
//	All exported methods are safe for concurrent use.
package base
