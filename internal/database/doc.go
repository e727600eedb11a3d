// Package database opens the PostgreSQL pool backing the shared store.
//
// A single-user dashboard keeps its state in SQLite; deployments that share
// custom markets and selections across instances point the store at Postgres.
package database
