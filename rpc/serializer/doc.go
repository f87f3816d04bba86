// Package serializer implements the protocol codec of the record service.
//
// Every request and every response is exactly one JSON document on one line of
// UTF-8 text. The codec never produces embedded newlines (json escapes them inside
// strings), so the transport only has to append the line terminator.
//
// Decoding requests is deliberately tolerant of the payload: field values are kept
// as json.RawMessage and interpreted by the dispatcher field by field. A line that
// is not a JSON object at all is rejected with an error wrapping ErrMalformed.
//
// Usage:
//
//	s := serializer.NewJSONSerializer()
//	req, err := s.DecodeRequest(line)
//	// ... dispatch ...
//	out, err := s.EncodeResponse(resp)
//	out = append(out, '\n')
//
// The implementation is stateless and safe for concurrent use.
package serializer
