package base

import (
	"context"
	"fmt"
	"net"

	"github.com/ValentinKolb/dRec/rpc/common"
	"github.com/ValentinKolb/dRec/rpc/transport"
)

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IClientConnector defines the interface for transport-specific connection operations
type IClientConnector interface {
	// Connect establishes a single connection to the endpoint
	Connect(ctx context.Context, endpoint string) (net.Conn, error)

	// GetName returns the name of the transport type (e.g., "tcp")
	GetName() string

	// UpgradeConnection applies protocol-specific settings to an established connection
	UpgradeConnection(conn net.Conn, config common.ClientConfig) error
}

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// clientTransport implements the connection setup independent of the socket type
type clientTransport struct {
	connector IClientConnector
}

// -----------------------------------------------------------
// Transport Factory Method (used for tcp, etc.)
// -----------------------------------------------------------

// NewBaseClientTransport creates a new base client transport with the specified connector
func NewBaseClientTransport(connector IClientConnector) transport.IRPCClientTransport {
	return &clientTransport{connector: connector}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCClientTransport)
// --------------------------------------------------------------------------

func (t *clientTransport) Connect(ctx context.Context, config common.ClientConfig) (net.Conn, error) {
	if config.Endpoint == "" {
		return nil, fmt.Errorf("no endpoint provided")
	}

	if config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, config.Timeout)
		defer cancel()
	}

	conn, err := t.connector.Connect(ctx, config.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", config.Endpoint, err)
	}

	// Upgrade the connection with protocol-specific settings
	if err := t.connector.UpgradeConnection(conn, config); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to upgrade connection to %s: %w", config.Endpoint, err)
	}

	Logger.Debugf("Connected to %s using %s transport", config.Endpoint, t.connector.GetName())
	return conn, nil
}
