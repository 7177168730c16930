// Package postgres provides PostgreSQL implementations of the store
// interfaces. Stores accept a store.DBTX so the same implementation works
// against a plain connection or inside a transaction.
package postgres
