// Package transport defines the interfaces between the record server and the
// network. A server transport owns the listening socket and the worker pool and
// hands every accepted connection to a ConnHandleFunc; a client transport opens
// connections to a server.
//
// Key Components:
//
//   - IRPCServerTransport: accepts connections, runs their handlers on a bounded
//     worker pool and shuts down gracefully.
//
//   - IRPCClientTransport: dials a server and returns a tuned connection.
//
//   - ConnHandleFunc: callback that serves one connection.
//
// The protocol agnostic implementations live in the base package, the tcp package
// only supplies the socket specific parts.
package transport
