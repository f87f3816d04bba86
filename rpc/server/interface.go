package server

import (
	"context"

	"github.com/ValentinKolb/dRec/lib/repo"
	"github.com/ValentinKolb/dRec/rpc/common"
)

// IRPCServerAdapter is the interface for all RPC server adapters
// It is responsible for turning a decoded request into a response
type IRPCServerAdapter interface {
	// Handle handles a request using the given repository and returns the response.
	// Failures are reported inside the response, never as a Go error.
	// quit is true if the session must end after the response was written.
	Handle(ctx context.Context, req *common.Request, repository repo.IRepository) (resp *common.Response, quit bool)
}
