// Package repo provides the repository abstraction the dRec server executes
// client requests against. It defines the create/read/update/delete contract
// over student records and a unified store error type.
//
// Key Components:
//
//   - IRepository Interface: The core abstraction defining Insert, FindByID,
//     FindAll, Update and Delete. All implementations share this interface,
//     allowing the server to switch backends without code changes.
//
//   - Error System: Every store failure is reported as a *Error with a typed
//     RetCode, an explicit result the caller inspects instead of recovering
//     from panics. Absence of a record is not an error.
//
//   - Factory: A function type that opens a repository from configuration,
//     used by the server to inject the backend.
//
// Implementations:
//
//   - memrepo: in-memory, not persisted between restarts
//   - badgerrepo: persistent, backed by BadgerDB
//   - pebblerepo: persistent, backed by Pebble
//
// The key-value backends share the key layout and record encoding in codec.go.
package repo
