// Package badgerrepo implements a persistent repository on BadgerDB.
//
// Records are stored JSON encoded under repo.RecordKey(id); ids are leased
// from a badger.Sequence so they stay unique across restarts. Read-modify-write
// operations (Update, Delete) run inside a single badger transaction, so
// "no row changed" is decided atomically with the write.
package badgerrepo
