package mysql

import "errors"

var (
	// ErrDBRequired is returned when a nil *sql.DB is provided.
	ErrDBRequired = errors.New("tillsync mysql: db is required")
	// ErrExecutorRequired is returned when PutTx is called with a nil executor.
	ErrExecutorRequired = errors.New("tillsync mysql: executor is required")
	// ErrTableNameRequired is returned when the table name is empty.
	ErrTableNameRequired = errors.New("tillsync mysql: table name is required")
	// ErrInvalidTableName is returned when the table name has disallowed characters.
	ErrInvalidTableName = errors.New("tillsync mysql: invalid table name")
	// ErrKeyRequired is returned when an empty key is used.
	ErrKeyRequired = errors.New("tillsync mysql: key is required")
	// ErrKeyTooLong is returned when a key does not fit the key column.
	ErrKeyTooLong = errors.New("tillsync mysql: key is too long")
)
