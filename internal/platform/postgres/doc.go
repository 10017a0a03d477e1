// Package postgres provides the PostgreSQL implementation of store.TaskStore.
//
// Tasks live in the soft-delete table "tasks" whose schema is managed by the
// embedded goose migrations (see Migrate). Query criteria are translated into
// SQL predicates and evaluated by the server together with OFFSET/LIMIT.
// The store works on a store.DBTX so callers may pass either a *sql.DB or a
// *sql.Tx.
package postgres
