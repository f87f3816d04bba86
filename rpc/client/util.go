package client

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/ValentinKolb/dRec/rpc/common"
	"github.com/ValentinKolb/dRec/rpc/serializer"
	"github.com/lni/dragonboat/v4/logger"
)

var (
	Logger = logger.GetLogger("rpc")
)

// ResponseError is returned for every ERROR response of the server
type ResponseError struct {
	Code    common.ErrorCode
	Message string
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsCode reports whether err is a *ResponseError with the given code
func IsCode(err error, code common.ErrorCode) bool {
	var re *ResponseError
	return errors.As(err, &re) && re.Code == code
}

// rpcClientAdapter stores everything needed to exchange lines with the server
type rpcClientAdapter struct {
	config     common.ClientConfig
	conn       net.Conn
	reader     *bufio.Reader
	serializer serializer.IRPCSerializer
}

// invokeRPCRequest writes one request line and reads one response line.
// ERROR responses are returned as *ResponseError together with the response.
func (a *rpcClientAdapter) invokeRPCRequest(ctx context.Context, req *common.Request) (*common.Response, error) {
	line, err := a.serializer.EncodeRequest(req)
	if err != nil {
		return nil, err
	}

	if err := a.conn.SetDeadline(a.deadline(ctx)); err != nil {
		return nil, err
	}
	// a cancelled context aborts a pending read or write
	stop := context.AfterFunc(ctx, func() {
		_ = a.conn.SetDeadline(time.Unix(1, 0))
	})
	defer stop()

	if _, err := a.conn.Write(append(line, '\n')); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	respLine, err := a.reader.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	resp, err := a.serializer.DecodeResponse(respLine[:len(respLine)-1])
	if err != nil {
		return nil, err
	}

	if !resp.OK() {
		return resp, &ResponseError{Code: resp.Code, Message: resp.Message}
	}
	return resp, nil
}

// deadline is the earlier of the context deadline and now + timeout
func (a *rpcClientAdapter) deadline(ctx context.Context) time.Time {
	var deadline time.Time
	if a.config.Timeout > 0 {
		deadline = time.Now().Add(a.config.Timeout)
	}
	if d, ok := ctx.Deadline(); ok && (deadline.IsZero() || d.Before(deadline)) {
		deadline = d
	}
	return deadline
}

// decodeData decodes the raw data of a response into v
func decodeData(resp *common.Response, v any) error {
	raw, ok := resp.Data.(json.RawMessage)
	if !ok {
		return fmt.Errorf("response has no data")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("failed to decode response data: %w", err)
	}
	return nil
}
