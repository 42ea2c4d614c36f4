package mysql

import (
	"context"
	"database/sql"
	"fmt"
)

// maxKeyLength fits a utf8mb4 VARCHAR primary key within the InnoDB index limit.
const maxKeyLength = 191

const schemaTemplate = `CREATE TABLE IF NOT EXISTS %s (
	k VARCHAR(191) NOT NULL,
	v LONGBLOB NOT NULL,
	updated_at TIMESTAMP(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
	PRIMARY KEY (k)
);`

// Schema returns the key/value table definition.
func Schema(table string) (string, error) {
	name, err := sanitizeTableName(table)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf(schemaTemplate, name), nil
}

// EnsureSchema creates the key/value table if it does not exist.
func EnsureSchema(ctx context.Context, db *sql.DB, table string) error {
	if db == nil {
		return ErrDBRequired
	}
	schema, err := Schema(table)
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("tillsync mysql: create table failed: %w", err)
	}

	return nil
}
