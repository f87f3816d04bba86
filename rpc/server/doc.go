// Package server implements the record server: the connection session, the
// request dispatcher and the wiring of transport, serializer and repository.
//
// Key Components:
//
//   - session: owns one accepted connection. It reads one line, decodes it,
//     lets the adapter handle it and writes one response line, until the client
//     sends QUIT, closes the stream, stays idle longer than the idle timeout or
//     sends something that cannot be decoded. Idle timeouts and undecodable input
//     get a final TIMEOUT or SERVER_ERROR response. The connection is always closed.
//
//   - IRPCServerAdapter / NewRecordServerAdapter: the dispatcher. It validates the
//     payload field by field (absent and invalid values are treated alike), calls
//     the repository and maps every outcome to a response. Repository failures
//     become DB_ERROR responses and never end the session.
//
//   - NewRPCServer: creates a server from a config, a transport, a serializer and
//     a repository factory. Serve runs until its context is cancelled.
//
//   - NewRepositoryFactory: selects the memory, badger or pebble repository.
//
// Usage Example:
//
//	config := common.DefaultServerConfig()
//
//	s := server.NewRPCServer(
//	  config,
//	  tcp.NewTCPServerTransport(),
//	  serializer.NewJSONSerializer(),
//	  server.NewRepositoryFactory(config),
//	)
//
//	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
//	defer stop()
//	if err := s.Serve(ctx); err != nil {
//	  log.Fatalf("Server error: %v", err)
//	}
//
// Thread Safety:
//
//	Sessions run concurrently on the transport's worker pool and share only the
//	repository, which must be safe for concurrent use. Requests of one connection
//	are handled strictly in order.
package server
