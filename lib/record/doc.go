// Package record defines the student record managed by dRec together with the
// helper types used to build records from untrusted client input.
//
// The package focuses on:
//   - The persisted Record type and its wire representation
//   - The fixed Sex enumeration and the calendar Date type (YYYY-MM-DD)
//   - Field, an explicit optional value used to tell "not supplied / unparseable"
//     apart from a legitimate zero value (a gpa of exactly 0.0 is valid)
//   - Struct tag validation of the persisted-record invariant
//
// Key Components:
//
//   - Record: The managed entity. A Record held by a repository always satisfies
//     Validate. Records under construction from client payloads are represented by
//     Draft, whose fields are all optional.
//
//   - Draft: The result of parsing a payload. Each field is a Field[T] that is
//     either present (parsed and within its domain) or absent. Insert requires
//     every field to be present, Update only applies present fields.
//
// Thread Safety:
//
//	All types in this package are plain values and carry no internal state.
package record
