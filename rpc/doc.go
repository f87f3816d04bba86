// Package rpc provides the line protocol layer of dRec. It is the communication
// layer between record clients and the server.
//
// The package is organized into several subpackages:
//
//   - common: The request and response types of the protocol, the error codes,
//     configuration structures and logging.
//
//   - transport: Network communication abstractions. The base transport owns the
//     accept loop and the worker pool, tcp adds TCP specific socket options.
//
//   - serializer: Encoding of requests and responses, one JSON object per line.
//
//   - client: A record client that sends one request at a time over a single connection.
//
//   - server: The RPC server, the per connection session loop and the adapter
//     that dispatches requests to the record repository.
package rpc
