package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// InitSchema creates the info table if it does not exist.
// The DDL is portable across SQLite and Postgres.
func InitSchema(ctx context.Context, db *sql.DB, table string) error {
	if !ValidTableName(table) {
		return fmt.Errorf("invalid table name %q", table)
	}

	query := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS %s (
		name TEXT PRIMARY KEY,
		fees_structure INTEGER,
		eligibility_criteria TEXT,
		scholarships TEXT
	)`, table)

	if _, err := db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create %s table: %w", table, err)
	}

	return nil
}
