// Package postgres provides PostgreSQL implementations of the pill store and
// the background job store, together with the embedded goose migrations that
// create their tables. Queries go through store.DBTX so every store can run
// inside a caller-managed transaction, and driver errors are mapped onto the
// store package's sentinel errors.
package postgres
