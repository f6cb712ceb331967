package mvp

import (
	"context"
	"fmt"
)

// QueryResult is one row of a completed Query, read back from mvp_query.
type QueryResult struct {
	ID       int64
	Distance uint32
}

// Query writes every point within radius of value into the mvp_query temp
// table and returns the number of rows written. It prunes by partition
// membership: for each vantage point it narrows the candidate partitions to
// those whose shell could possibly hold a point within radius, then filters
// the surviving partitions by actual distance.
func (idx *Index) Query(ctx context.Context, value []byte, radius uint32) (int64, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	vps, err := idx.loadVantagePoints(ctx)
	if err != nil {
		return 0, err
	}

	partitions := []int64{0}
	for _, vp := range vps {
		d, err := idx.distance(vp.value, value)
		if err != nil {
			return 0, fmt.Errorf("computing distance to vantage point %d: %w", vp.id, err)
		}

		shells := intersectingShells(int64(d), int64(radius), vp.bound1, vp.bound2, vp.bound3)
		if len(shells) == 0 {
			partitions = nil
			break
		}

		next := make([]int64, 0, len(partitions)*len(shells))
		for _, p := range partitions {
			for _, s := range shells {
				next = append(next, p|shellBits(s, vp.id))
			}
		}
		partitions = next
	}

	tx, err := idx.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning query transaction: %w", err)
	}
	defer tx.Rollback()

	clearStmt, err := idx.stmts.getTx(ctx, tx, `DELETE FROM mvp_query`)
	if err != nil {
		return 0, fmt.Errorf("preparing query-results clear: %w", err)
	}
	if _, err := clearStmt.ExecContext(ctx); err != nil {
		return 0, fmt.Errorf("clearing query results: %w", err)
	}

	const insertSQL = `
		INSERT INTO mvp_query(id, dist)
		SELECT id, dist FROM (
			SELECT id, mvp_distance(?, value) AS dist FROM mvp_points WHERE partition = ?
		) WHERE dist <= ?`

	insertStmt, err := idx.stmts.getTx(ctx, tx, insertSQL)
	if err != nil {
		return 0, fmt.Errorf("preparing partition query: %w", err)
	}

	var total int64
	for _, p := range partitions {
		res, err := insertStmt.ExecContext(ctx, value, p, radius)
		if err != nil {
			return 0, fmt.Errorf("querying partition %d: %w", p, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("counting query results: %w", err)
		}
		total += n
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing query: %w", err)
	}

	return total, nil
}

// QueryResults reads the rows left in mvp_query by the most recent Query
// call on this handle, ordered by ascending distance, as (id, distance)
// pairs rather than raw SQL against the index's temp table.
func (idx *Index) QueryResults(ctx context.Context) ([]QueryResult, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	stmt, err := idx.stmts.get(ctx, `SELECT id, dist FROM mvp_query ORDER BY dist ASC`)
	if err != nil {
		return nil, fmt.Errorf("preparing query-results read: %w", err)
	}
	rows, err := stmt.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading query results: %w", err)
	}
	defer rows.Close()

	var results []QueryResult
	for rows.Next() {
		var r QueryResult
		if err := rows.Scan(&r.ID, &r.Distance); err != nil {
			return nil, fmt.Errorf("scanning query result: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading query results: %w", err)
	}
	return results, nil
}
