// Package storage provides hitl.Storage backends: an in-memory map
// for tests and a SQLite database for persistent deployments.
package storage
