package mvp

import (
	"context"
	"database/sql"
	"fmt"
)

// FindVantagePoint returns a candidate value to promote to a vantage point.
// If at least one vantage point already exists, it returns a value from the
// maximum-partition bucket (the outermost shell of every current vantage
// point). Otherwise it returns the value maximizing the sum of distances to
// a sample of up to sampleSize other points (the whole table if smaller).
func (idx *Index) FindVantagePoint(ctx context.Context, sampleSize int) ([]byte, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	n, err := idx.CountPoints(ctx)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ErrEmptyIndex
	}

	vpCount, err := idx.CountVantagePoints(ctx)
	if err != nil {
		return nil, err
	}

	if vpCount > 0 {
		stmt, err := idx.stmts.get(ctx, `
			SELECT value FROM mvp_points
			WHERE partition = (SELECT MAX(partition) FROM mvp_points)
			ORDER BY RANDOM() LIMIT 1`)
		if err != nil {
			return nil, fmt.Errorf("preparing maximum-partition lookup: %w", err)
		}
		var value []byte
		if err := stmt.QueryRowContext(ctx).Scan(&value); err != nil {
			return nil, fmt.Errorf("selecting maximum-partition point: %w", err)
		}
		return value, nil
	}

	var rows *sql.Rows
	if int64(sampleSize) >= n {
		stmt, stmtErr := idx.stmts.get(ctx, `SELECT value FROM mvp_points`)
		if stmtErr != nil {
			return nil, fmt.Errorf("preparing point scan: %w", stmtErr)
		}
		rows, err = stmt.QueryContext(ctx)
	} else {
		stmt, stmtErr := idx.stmts.get(ctx, `SELECT value FROM mvp_points ORDER BY RANDOM() LIMIT ?`)
		if stmtErr != nil {
			return nil, fmt.Errorf("preparing point sample: %w", stmtErr)
		}
		rows, err = stmt.QueryContext(ctx, sampleSize)
	}
	if err != nil {
		return nil, fmt.Errorf("sampling points: %w", err)
	}
	defer rows.Close()

	var candidates [][]byte
	for rows.Next() {
		var v []byte
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scanning candidate: %w", err)
		}
		candidates = append(candidates, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sampling points: %w", err)
	}

	var best []byte
	var bestSum uint64
	for i, a := range candidates {
		var sum uint64
		for j, b := range candidates {
			if i == j {
				continue
			}
			d, err := idx.distance(a, b)
			if err != nil {
				return nil, fmt.Errorf("computing candidate distance: %w", err)
			}
			sum += uint64(d)
		}
		if best == nil || sum > bestSum {
			best = a
			bestSum = sum
		}
	}
	return best, nil
}
