package server

import (
	"context"
	"fmt"
	"net"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/ValentinKolb/dRec/lib/repo"
	"github.com/ValentinKolb/dRec/rpc/common"
	"github.com/ValentinKolb/dRec/rpc/serializer"
	"github.com/ValentinKolb/dRec/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("rpc")

// NewRPCServer creates a new RPC server
// It takes a config, transport, serializer and a factory for the repository as parameters
//
// Usage:
//
//	s := server.NewRPCServer(
//		config,
//		tcp.NewTCPServerTransport(),
//		serializer.NewJSONSerializer(),
//		server.NewRepositoryFactory(config),
//	)
//
//	if err := s.Serve(ctx); err != nil {
//		panic(err)
//	}
func NewRPCServer(
	config common.ServerConfig,
	transport transport.IRPCServerTransport,
	serializer serializer.IRPCSerializer,
	repoFactory repo.Factory,
) *RPCServer {
	// https://github.com/golang/go/issues/17393
	if runtime.GOOS == "darwin" {
		signal.Ignore(syscall.Signal(0xd))
	}

	return &RPCServer{
		config:      config,
		transport:   transport,
		serializer:  serializer,
		repoFactory: repoFactory,
		adapter:     NewRecordServerAdapter(),
		metrics:     newServerMetrics(transport.Stats),
	}
}

// RPCServer serves the record protocol on a server transport
type RPCServer struct {
	config      common.ServerConfig
	transport   transport.IRPCServerTransport
	serializer  serializer.IRPCSerializer
	repoFactory repo.Factory
	adapter     IRPCServerAdapter
	metrics     *serverMetrics
}

func (s *RPCServer) registerTransportHandler(repository repo.IRepository) {
	s.transport.RegisterHandler(func(conn net.Conn) {
		newSession(conn, s.config, s.serializer, s.adapter, repository, s.metrics).serve()
	})
}

// Serve opens the repository and serves connections until ctx is cancelled.
// The repository is closed after the transport has shut down.
func (s *RPCServer) Serve(ctx context.Context) error {
	Logger.Infof("Starting dRec server")
	Logger.Infof(s.config.String())

	repository, err := s.repoFactory()
	if err != nil {
		return fmt.Errorf("failed to open repository: %w", err)
	}
	defer func() {
		if err := repository.Close(); err != nil {
			Logger.Errorf("Failed to close repository: %v", err)
		}
	}()

	s.registerTransportHandler(repository)

	if s.config.MetricsEndpoint != "" {
		go s.metrics.serveMetrics(ctx, s.config.MetricsEndpoint)
	}
	if s.config.MetricsLogInterval > 0 {
		go s.metrics.logMetrics(ctx, s.config.MetricsLogInterval, s.transport.Stats)
	}

	return s.transport.Listen(ctx, s.config)
}

// Ready is closed once the server accepts connections
func (s *RPCServer) Ready() <-chan struct{} {
	return s.transport.Ready()
}

// Addr returns the address the server listens on, nil before Ready is closed
func (s *RPCServer) Addr() net.Addr {
	return s.transport.Addr()
}
