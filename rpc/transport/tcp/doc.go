// Package tcp implements the TCP socket transport of the record service. It
// supplies the socket specific connectors for the base package: listening and
// dialing over TCP and tuning accepted or dialed connections (no delay, keep alive).
//
// Key Components:
//
//   - serverConnector: TCP implementation of base.IServerConnector
//
//   - clientConnector: TCP implementation of base.IClientConnector
//
// See the base package for the accept loop, the worker pool and the shutdown behavior.
package tcp
