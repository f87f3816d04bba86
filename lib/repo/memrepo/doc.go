// Package memrepo implements a local, in-memory repository based on the
// repo.IRepository interface. Records live in a concurrent map and identifiers
// come from an atomic counter, so ids are strictly increasing and never reused.
// Data is not persisted between process restarts.
//
// FindAll returns records ordered by id, which equals insertion order.
package memrepo
