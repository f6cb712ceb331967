package mvp

import (
	"context"
	"database/sql"
	"fmt"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS mvp_counts (
	id INTEGER PRIMARY KEY,
	points INTEGER NOT NULL DEFAULT 0,
	vantage_points INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS mvp_points (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	partition INTEGER NOT NULL DEFAULT 0,
	value BLOB NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_mvp_points_value ON mvp_points(value);
CREATE INDEX IF NOT EXISTS idx_mvp_points_partition ON mvp_points(partition);

CREATE TABLE IF NOT EXISTS mvp_vantage_points (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	value BLOB NOT NULL,
	bound_1 INTEGER NOT NULL DEFAULT 0,
	bound_2 INTEGER NOT NULL DEFAULT 0,
	bound_3 INTEGER NOT NULL DEFAULT 0,
	count_0 INTEGER NOT NULL DEFAULT 0,
	count_1 INTEGER NOT NULL DEFAULT 0,
	count_2 INTEGER NOT NULL DEFAULT 0,
	count_3 INTEGER NOT NULL DEFAULT 0
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_mvp_vantage_points_value ON mvp_vantage_points(value);

CREATE TEMP TABLE IF NOT EXISTS mvp_query (
	id INTEGER PRIMARY KEY,
	dist INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_mvp_query_dist ON mvp_query(dist);
`

// migrate idempotently creates the index's tables and indices, and backfills
// mvp_counts from the base tables the first time it finds no counts row.
// The whole operation runs in one transaction.
func migrate(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning schema transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}

	var haveCounts int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM mvp_counts WHERE id = 1`).Scan(&haveCounts); err != nil {
		return fmt.Errorf("checking counts row: %w", err)
	}

	if haveCounts == 0 {
		var points, vantagePoints int64
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM mvp_points`).Scan(&points); err != nil {
			return fmt.Errorf("backfilling point count: %w", err)
		}
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM mvp_vantage_points`).Scan(&vantagePoints); err != nil {
			return fmt.Errorf("backfilling vantage point count: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO mvp_counts(id, points, vantage_points) VALUES (1, ?, ?)`,
			points, vantagePoints,
		); err != nil {
			return fmt.Errorf("inserting counts row: %w", err)
		}
	}

	return tx.Commit()
}
