package common

import (
	"encoding/json"
	"strings"
)

// --------------------------------------------------------------------------
// Actions
// --------------------------------------------------------------------------

// Action names the operation a request asks for
type Action string

const (
	ActionInsert Action = "INSERT"
	ActionFind   Action = "FIND"
	ActionList   Action = "LIST"
	ActionUpdate Action = "UPDATE"
	ActionDelete Action = "DELETE"
	ActionQuit   Action = "QUIT"
)

// Actions lists every action the server understands, in documentation order
var Actions = []Action{ActionInsert, ActionFind, ActionList, ActionUpdate, ActionDelete, ActionQuit}

// ParseAction normalizes a raw action name (trimmed, upper case).
// The result is returned even if it is not a known action; use Known to check.
func ParseAction(s string) Action {
	return Action(strings.ToUpper(strings.TrimSpace(s)))
}

// Known reports whether the action is one of Actions
func (a Action) Known() bool {
	for _, known := range Actions {
		if a == known {
			return true
		}
	}
	return false
}

func (a Action) String() string {
	return string(a)
}

// --------------------------------------------------------------------------
// Status and error codes
// --------------------------------------------------------------------------

// Status is the outcome marker of every response
type Status string

const (
	StatusOK    Status = "OK"
	StatusError Status = "ERROR"
)

// ErrorCode is the machine readable tag of an ERROR response
type ErrorCode string

const (
	CodeMissingPayload ErrorCode = "MISSING_PAYLOAD"
	CodeInvalidName    ErrorCode = "INVALID_NAME"
	CodeInvalidDob     ErrorCode = "INVALID_DOB"
	CodeInvalidGpa     ErrorCode = "INVALID_GPA"
	CodeInvalidSex     ErrorCode = "INVALID_SEX"
	CodeInvalidMajor   ErrorCode = "INVALID_MAJOR"
	CodeInvalidID      ErrorCode = "INVALID_ID"
	CodeIDNotExist     ErrorCode = "ID_NOT_EXIST"
	CodeUpdateFail     ErrorCode = "UPDATE_FAIL"
	CodeDeleteFail     ErrorCode = "DELETE_FAIL"
	CodeUnknownAction  ErrorCode = "UNKNOWN_ACTION"
	CodeDBError        ErrorCode = "DB_ERROR"
	CodeTimeout        ErrorCode = "TIMEOUT"
	CodeServerError    ErrorCode = "SERVER_ERROR"
)

func (c ErrorCode) String() string {
	return string(c)
}

// --------------------------------------------------------------------------
// Message Structures
// --------------------------------------------------------------------------

// Payload holds the raw values of a request payload, keyed by field name.
// Values are kept undecoded so that the dispatcher can apply lenient,
// per-field parsing.
type Payload map[string]json.RawMessage

// Empty reports whether the payload is missing or has no fields
func (p Payload) Empty() bool {
	return len(p) == 0
}

// Get returns the raw value of a field. JSON null counts as absent.
func (p Payload) Get(field string) (json.RawMessage, bool) {
	raw, ok := p[field]
	if !ok || len(raw) == 0 || string(raw) == "null" {
		return nil, false
	}
	return raw, true
}

// Request is one decoded request line
type Request struct {
	// Action as sent by the client, not normalized
	Action string `json:"action"`
	// Payload is nil if the client sent none (or sent something that is not an object)
	Payload Payload `json:"payload,omitempty"`
}

// Response is one response line. Code is only set on errors, Data only on success.
type Response struct {
	Status  Status    `json:"status"`
	Code    ErrorCode `json:"code,omitempty"`
	Message string    `json:"message,omitempty"`
	Data    any       `json:"data,omitempty"`
}

// OK reports whether the response has status OK
func (r *Response) OK() bool {
	return r.Status == StatusOK
}

// --------------------------------------------------------------------------
// Message Factory Functions
// --------------------------------------------------------------------------

// NewRequest creates a request for the given action, payload may be nil
func NewRequest(action Action, payload Payload) *Request {
	return &Request{
		Action:  string(action),
		Payload: payload,
	}
}

// NewOKResponse creates a successful response carrying only a message
func NewOKResponse(message string) *Response {
	return &Response{
		Status:  StatusOK,
		Message: message,
	}
}

// NewDataResponse creates a successful response carrying data (and an optional message)
func NewDataResponse(data any, message string) *Response {
	return &Response{
		Status:  StatusOK,
		Message: message,
		Data:    data,
	}
}

// NewErrorResponse creates an ERROR response
func NewErrorResponse(code ErrorCode, message string) *Response {
	return &Response{
		Status:  StatusError,
		Code:    code,
		Message: message,
	}
}
