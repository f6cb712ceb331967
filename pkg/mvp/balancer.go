package mvp

import (
	"context"
	"database/sql"
	"fmt"
	"math"

	"github.com/s-bear/image-hash/pkg/eventstream"
)

// minBalanceSample is the minimum point count below which balance() leaves
// boundaries at zero and forces every point into shell 3.
const minBalanceSample = 8

// Balance recomputes vpID's shell boundaries and counts from the current
// distance distribution, then repairs every point's partition bits for that
// vantage point. The whole operation runs in one transaction.
func (idx *Index) Balance(ctx context.Context, vpID int64) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	tx, err := idx.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning balance transaction: %w", err)
	}
	defer tx.Rollback()

	pointCount, err := idx.balanceTx(ctx, tx, vpID)
	if err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing balance: %w", err)
	}

	idx.publish(ctx, eventstream.NewBalancedEvent(0, vpID, int(pointCount)))
	return nil
}

// balanceTx is the transactional core shared by Balance and
// InsertVantagePoint. It returns the point count it balanced against.
func (idx *Index) balanceTx(ctx context.Context, tx *sql.Tx, vpID int64) (int64, error) {
	countStmt, err := idx.stmts.getTx(ctx, tx, `SELECT points FROM mvp_counts WHERE id = 1`)
	if err != nil {
		return 0, fmt.Errorf("preparing point count read: %w", err)
	}
	var n int64
	if err := countStmt.QueryRowContext(ctx).Scan(&n); err != nil {
		return 0, fmt.Errorf("reading point count: %w", err)
	}

	col := fmt.Sprintf("d%d", vpID)

	var bound1, bound2, bound3 int64
	var count0, count1, count2, count3 int64

	if n >= minBalanceSample {
		rank25 := n / 4
		rank50 := n / 2
		rank75 := (3 * n) / 4

		percentileSQL := fmt.Sprintf(`SELECT %s FROM mvp_points ORDER BY %s ASC LIMIT 1 OFFSET ?`, col, col)
		percentileStmt, err := idx.stmts.getTx(ctx, tx, percentileSQL)
		if err != nil {
			return 0, fmt.Errorf("preparing percentile read: %w", err)
		}

		percentile := func(offset int64) (int64, error) {
			var v int64
			if err := percentileStmt.QueryRowContext(ctx, offset).Scan(&v); err != nil {
				return 0, fmt.Errorf("reading percentile at offset %d: %w", offset, err)
			}
			return v, nil
		}

		if bound1, err = percentile(rank25); err != nil {
			return 0, err
		}
		if bound2, err = percentile(rank50); err != nil {
			return 0, err
		}
		if bound3, err = percentile(rank75); err != nil {
			return 0, err
		}

		count0 = rank25
		count1 = rank50 - rank25
		count2 = rank75 - rank50
		count3 = n - rank75
	} else {
		bound1, bound2, bound3 = 0, 0, 0
		count0, count1, count2 = 0, 0, 0
		count3 = n
	}

	boundsStmt, err := idx.stmts.getTx(ctx, tx,
		`UPDATE mvp_vantage_points
		 SET bound_1 = ?, bound_2 = ?, bound_3 = ?, count_0 = ?, count_1 = ?, count_2 = ?, count_3 = ?
		 WHERE id = ?`)
	if err != nil {
		return 0, fmt.Errorf("preparing boundary update: %w", err)
	}
	if _, err := boundsStmt.ExecContext(ctx,
		bound1, bound2, bound3, count0, count1, count2, count3, vpID,
	); err != nil {
		return 0, fmt.Errorf("updating vantage point boundaries: %w", err)
	}

	mask := shellMask(vpID)
	maskClear := ^mask
	bits1 := shellBits(1, vpID)
	bits2 := shellBits(2, vpID)
	bits3 := shellBits(3, vpID)

	repairSQL := fmt.Sprintf(
		`UPDATE mvp_points SET partition = (partition & ?) | (
			CASE
				WHEN %s < ? THEN 0
				WHEN %s < ? THEN ?
				WHEN %s < ? THEN ?
				ELSE ?
			END
		)`, col, col, col)

	repairStmt, err := idx.stmts.getTx(ctx, tx, repairSQL)
	if err != nil {
		return 0, fmt.Errorf("preparing partition repair: %w", err)
	}
	if _, err := repairStmt.ExecContext(ctx,
		maskClear,
		bound1, bound2, bits1,
		bound3, bits2,
		bits3,
	); err != nil {
		return 0, fmt.Errorf("repairing partition bits: %w", err)
	}

	return n, nil
}

// CheckBalance returns the ids of every vantage point whose shell counts
// fall outside [N(1-threshold)/4, N(1+threshold)/4], or an empty slice if
// N < minCount.
func (idx *Index) CheckBalance(ctx context.Context, minCount int64, threshold float64) ([]int64, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	countStmt, err := idx.stmts.get(ctx, `SELECT points FROM mvp_counts WHERE id = 1`)
	if err != nil {
		return nil, fmt.Errorf("preparing point count read: %w", err)
	}
	var n int64
	if err := countStmt.QueryRowContext(ctx).Scan(&n); err != nil {
		return nil, fmt.Errorf("reading point count: %w", err)
	}
	if n < minCount {
		return nil, nil
	}

	vps, err := idx.loadVantagePoints(ctx)
	if err != nil {
		return nil, err
	}

	lower := float64(n) * (1 - threshold) / 4
	upper := float64(n) * (1 + threshold) / 4

	var out []int64
	for _, vp := range vps {
		counts := [4]int64{vp.count0, vp.count1, vp.count2, vp.count3}
		for _, c := range counts {
			if float64(c) < lower || float64(c) > upper {
				out = append(out, vp.id)
				break
			}
		}
	}
	return out, nil
}

// AutoBalance runs Balance on every vantage point CheckBalance flags.
func (idx *Index) AutoBalance(ctx context.Context, minCount int64, threshold float64) error {
	ids, err := idx.CheckBalance(ctx, minCount, threshold)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := idx.Balance(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// AutoVantagePoint promotes candidates until the vantage-point count reaches
// ceil(log(N) / log(4*target)), where N is the current point count.
func (idx *Index) AutoVantagePoint(ctx context.Context, target int64) (int64, error) {
	var lastID int64
	for {
		n, err := idx.CountPoints(ctx)
		if err != nil {
			return lastID, err
		}
		if n == 0 {
			return lastID, nil
		}

		vpCount, err := idx.CountVantagePoints(ctx)
		if err != nil {
			return lastID, err
		}

		desired := desiredVantagePointCount(n, target)
		if vpCount >= desired {
			return lastID, nil
		}

		candidate, err := idx.FindVantagePoint(ctx, 25)
		if err != nil {
			return lastID, err
		}

		id, err := idx.InsertVantagePoint(ctx, candidate)
		if err != nil {
			return lastID, err
		}
		lastID = id
	}
}

// desiredVantagePointCount computes ceil(log(n) / log(4*target)).
func desiredVantagePointCount(n, target int64) int64 {
	if n <= 1 || target <= 0 {
		return 0
	}
	d := math.Log(float64(n)) / math.Log(4*float64(target))
	return int64(math.Ceil(d))
}
