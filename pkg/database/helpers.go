package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// SourceTables are the upstream tables the forecaster reads from.
var SourceTables = []string{"stockHistory", "stock", "orders"}

func (db *DB) TableExists(ctx context.Context, tableName string) (bool, error) {
	var exists bool
	query := `
		SELECT EXISTS (
			SELECT FROM information_schema.tables
			WHERE table_schema = 'public'
			AND table_name = $1
		)`
	err := db.QueryRowContext(ctx, query, tableName).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check if table exists: %w", err)
	}
	return exists, nil
}

// CheckTables reports every missing table in one error.
func (db *DB) CheckTables(ctx context.Context, tables ...string) error {
	var missing []string
	for _, t := range tables {
		ok, err := db.TableExists(ctx, t)
		if err != nil {
			return err
		}
		if !ok {
			missing = append(missing, t)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing tables: %s", strings.Join(missing, ", "))
	}
	return nil
}

func (db *DB) GetVersion(ctx context.Context) (string, error) {
	var version string
	err := db.QueryRowContext(ctx, "SELECT version()").Scan(&version)
	if err != nil {
		return "", fmt.Errorf("failed to get database version: %w", err)
	}
	return version, nil
}

func (db *DB) GetConnectionStats() sql.DBStats {
	return db.Stats()
}
