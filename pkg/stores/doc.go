// Package stores provides the persistence layer for itemdesk.
// It includes a SQLite-backed item table with embedded schema migrations,
// WAL mode and id-scoped CRUD operations.
package stores
