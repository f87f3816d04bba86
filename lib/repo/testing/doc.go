// Package testing provides a conformance test suite for repo.IRepository
// implementations. Each backend calls RunRepositoryTests from its own tests
// with a factory returning a fresh, empty repository.
package testing
