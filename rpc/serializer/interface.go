package serializer

import (
	"errors"

	"github.com/ValentinKolb/dRec/rpc/common"
)

// ErrMalformed is returned (wrapped) when a line cannot be decoded into a message
var ErrMalformed = errors.New("malformed message")

// IRPCSerializer is the interface of the protocol codec. Every message is one line;
// the encoded form never contains a newline and the caller adds the line terminator.
type IRPCSerializer interface {
	// DecodeRequest decodes one request line (without terminator).
	// Lines that are not a structured object yield an error wrapping ErrMalformed.
	DecodeRequest(line []byte) (*common.Request, error)
	// EncodeResponse encodes a response into a single line (without terminator)
	EncodeResponse(resp *common.Response) ([]byte, error)
	// EncodeRequest encodes a request into a single line (without terminator)
	EncodeRequest(req *common.Request) ([]byte, error)
	// DecodeResponse decodes one response line. The data of the response is
	// returned undecoded as json.RawMessage.
	DecodeResponse(line []byte) (*common.Response, error)
}
