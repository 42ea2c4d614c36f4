// Package mysql provides a MySQL 8.0+ key/value backend for tillsync outboxes.
//
// Each outbox key is one row; the value column holds the JSON array of items.
// Writes are upserts (INSERT ... ON DUPLICATE KEY UPDATE), so a row is replaced
// atomically. PutTx lets callers persist the outbox inside their own transaction.
//
// See Schema for the table definition.
package mysql
