package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/ValentinKolb/dRec/lib/record"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// Factory is a function type that opens the repository used by the server.
// This is used to abstract the choice of backend from the server implementation.
type Factory func() (IRepository, error)

// IRepository is the interface for interacting with the record store.
// Every operation either returns its result or a *Error describing why the store
// could not complete it. A missing record is not an error: FindByID reports it
// through the boolean, Update and Delete through changed=false.
//
// Implementations must be safe for concurrent use by multiple sessions.
type IRepository interface {
	// Insert persists a new record and returns the identifier assigned to it.
	// The ID field of rec is ignored. Identifiers are positive and never reused.
	Insert(ctx context.Context, rec record.Record) (id int64, err error)
	// FindByID returns the record with the given id. The boolean reports whether it exists.
	FindByID(ctx context.Context, id int64) (rec record.Record, found bool, err error)
	// FindAll returns every record in the store's natural order.
	FindAll(ctx context.Context) (recs []record.Record, err error)
	// Update overwrites the record with rec.ID. changed is false if no such record exists.
	Update(ctx context.Context, rec record.Record) (changed bool, err error)
	// Delete removes the record with the given id. changed is false if no such record exists.
	Delete(ctx context.Context, id int64) (changed bool, err error)
	// Close releases the resources held by the repository.
	Close() error
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is the store failure type returned by all repository implementations.
// It wraps a return code (of type RetCode) and an error message.
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message
	Err  error   // The underlying cause, may be nil
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new store error with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// WrapError creates a new store error with the given code, message and cause.
func WrapError(code RetCode, msg string, err error) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
		Err:  err,
	}
}

// IsStoreError reports whether err is (or wraps) a *Error
func IsStoreError(err error) bool {
	var e *Error
	return errors.As(err, &e)
}

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCSuccess        RetCode = iota // 0: Operation executed successfully.
	RetCInternalError                 // 1: Operation failed due to an internal error of the backend.
	RetCInvalidRecord                 // 2: The record violates the persisted-record constraints.
	RetCClosed                        // 3: The repository was already closed.
	RetCCorrupted                     // 4: Stored data could not be decoded.
)

func (c RetCode) String() string {
	switch c {
	case RetCSuccess:
		return "Success"
	case RetCInternalError:
		return "InternalError"
	case RetCInvalidRecord:
		return "InvalidRecord"
	case RetCClosed:
		return "Closed"
	case RetCCorrupted:
		return "Corrupted"
	default:
		return "Unknown"
	}
}
