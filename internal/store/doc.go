// Package store defines the persistence contract for pills: the PillStore
// interface, the errors every implementation returns, and a transaction
// helper. Implementations live under internal/platform (postgres, sqlite);
// the job store contract belongs to the task package.
package store
