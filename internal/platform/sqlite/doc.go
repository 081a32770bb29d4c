// Package sqlite provides SQLite implementations of the store interfaces
// using the pure Go modernc.org/sqlite driver. It is intended for single
// node deployments and local development; timestamps are stored as
// fixed-width UTC text so they compare correctly as strings.
package sqlite
