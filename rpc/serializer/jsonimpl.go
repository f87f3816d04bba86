package serializer

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/ValentinKolb/dRec/rpc/common"
)

// NewJSONSerializer creates a new serializer using json encoding
func NewJSONSerializer() IRPCSerializer {
	return &jsonSerializerImpl{}
}

// jsonSerializerImpl implements the IRPCSerializer interface using json encoding
type jsonSerializerImpl struct {
}

// wireResponse is the decoding target for responses, data stays raw
type wireResponse struct {
	Status  common.Status    `json:"status"`
	Code    common.ErrorCode `json:"code"`
	Message string           `json:"message"`
	Data    json.RawMessage  `json:"data"`
}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (j jsonSerializerImpl) DecodeRequest(line []byte) (*common.Request, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(line, &fields); err != nil || fields == nil {
		return nil, fmt.Errorf("%w: request is not a json object", ErrMalformed)
	}

	req := &common.Request{}

	if raw, ok := fields["action"]; ok {
		req.Action = actionText(raw)
	}

	// a payload that is not an object is treated like a missing payload
	if raw, ok := fields["payload"]; ok && isObject(raw) {
		var payload common.Payload
		if err := json.Unmarshal(raw, &payload); err != nil {
			return nil, fmt.Errorf("%w: payload: %v", ErrMalformed, err)
		}
		req.Payload = payload
	}

	return req, nil
}

func (j jsonSerializerImpl) EncodeResponse(resp *common.Response) ([]byte, error) {
	return json.Marshal(resp)
}

func (j jsonSerializerImpl) EncodeRequest(req *common.Request) ([]byte, error) {
	return json.Marshal(req)
}

func (j jsonSerializerImpl) DecodeResponse(line []byte) (*common.Response, error) {
	var wire wireResponse
	if err := json.Unmarshal(line, &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if wire.Status != common.StatusOK && wire.Status != common.StatusError {
		return nil, fmt.Errorf("%w: unknown status %q", ErrMalformed, wire.Status)
	}

	resp := &common.Response{
		Status:  wire.Status,
		Code:    wire.Code,
		Message: wire.Message,
	}
	if len(wire.Data) > 0 && string(wire.Data) != "null" {
		resp.Data = wire.Data
	}
	return resp, nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// actionText returns a string action as is and any other scalar as its literal,
// so that e.g. {"action": 42} ends up as an unknown action instead of a decode error
func actionText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	if string(raw) == "null" {
		return ""
	}
	return string(bytes.TrimSpace(raw))
}

func isObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}
