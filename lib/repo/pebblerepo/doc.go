// Package pebblerepo implements a persistent repository on CockroachDB's Pebble.
//
// The key layout matches badgerrepo. The last allocated id is stored next to the
// records and written in the same batch as each insert, so ids survive restarts
// and are never reused. Writers are serialized with a mutex; readers are lock free.
package pebblerepo
