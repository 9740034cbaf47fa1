// Package postgres provides PostgreSQL-specific implementations for the data
// storage interfaces defined in the internal/store package. It handles query
// execution, error mapping, and data conversion between domain entities and
// database records, and carries the embedded schema migrations.
package postgres
