package mvp

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/s-bear/image-hash/pkg/eventstream"
)

// vantagePoint is the in-memory projection of one mvp_vantage_points row.
type vantagePoint struct {
	id                     int64
	value                  []byte
	bound1, bound2, bound3 int64
	count0, count1, count2, count3 int64
}

// loadVantagePointIDs returns every vantage point id in ascending order,
// the order the Partition Codec and Point Table rely on throughout.
func (idx *Index) loadVantagePointIDs(ctx context.Context) ([]int64, error) {
	stmt, err := idx.stmts.get(ctx, `SELECT id FROM mvp_vantage_points ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("preparing vantage point id list: %w", err)
	}
	rows, err := stmt.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading vantage point ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning vantage point id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// loadVantagePoints returns every vantage point, in ascending id order, with
// its value and current boundaries/counts.
func (idx *Index) loadVantagePoints(ctx context.Context) ([]vantagePoint, error) {
	stmt, err := idx.stmts.get(ctx,
		`SELECT id, value, bound_1, bound_2, bound_3, count_0, count_1, count_2, count_3
		 FROM mvp_vantage_points ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("preparing vantage point list: %w", err)
	}
	rows, err := stmt.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading vantage points: %w", err)
	}
	defer rows.Close()

	var vps []vantagePoint
	for rows.Next() {
		var vp vantagePoint
		if err := rows.Scan(&vp.id, &vp.value, &vp.bound1, &vp.bound2, &vp.bound3,
			&vp.count0, &vp.count1, &vp.count2, &vp.count3); err != nil {
			return nil, fmt.Errorf("scanning vantage point: %w", err)
		}
		vps = append(vps, vp)
	}
	return vps, rows.Err()
}

// InsertVantagePoint promotes value to a vantage point: it adds a distance
// column for the new vantage point, populates it for every existing point,
// and balances the new vantage point, all under one transaction (the
// partition key must never reflect a half-added vantage point).
func (idx *Index) InsertVantagePoint(ctx context.Context, value []byte) (int64, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	existingStmt, err := idx.stmts.get(ctx, `SELECT id FROM mvp_vantage_points WHERE value = ?`)
	if err != nil {
		return 0, fmt.Errorf("preparing existing-vantage-point check: %w", err)
	}
	var existingID int64
	err = existingStmt.QueryRowContext(ctx, value).Scan(&existingID)
	if err == nil {
		return existingID, ErrVantagePointExists
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("checking existing vantage point: %w", err)
	}

	countStmt, err := idx.stmts.get(ctx, `SELECT vantage_points FROM mvp_counts WHERE id = 1`)
	if err != nil {
		return 0, fmt.Errorf("preparing vantage point count: %w", err)
	}
	var vpCount int64
	if err := countStmt.QueryRowContext(ctx).Scan(&vpCount); err != nil {
		return 0, fmt.Errorf("counting vantage points: %w", err)
	}
	if vpCount >= maxVantagePoints {
		return 0, ErrCapacity
	}

	tx, err := idx.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning vantage point transaction: %w", err)
	}
	defer tx.Rollback()

	insertStmt, err := idx.stmts.getTx(ctx, tx, `INSERT INTO mvp_vantage_points(value) VALUES (?)`)
	if err != nil {
		return 0, fmt.Errorf("preparing vantage point insert: %w", err)
	}
	res, err := insertStmt.ExecContext(ctx, value)
	if err != nil {
		return 0, fmt.Errorf("inserting vantage point: %w", err)
	}
	vpID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading new vantage point id: %w", err)
	}

	incVPCountStmt, err := idx.stmts.getTx(ctx, tx, `UPDATE mvp_counts SET vantage_points = vantage_points + 1 WHERE id = 1`)
	if err != nil {
		return 0, fmt.Errorf("preparing vantage point count increment: %w", err)
	}
	if _, err := incVPCountStmt.ExecContext(ctx); err != nil {
		return 0, fmt.Errorf("incrementing vantage point count: %w", err)
	}

	col := fmt.Sprintf("d%d", vpID)
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`ALTER TABLE mvp_points ADD COLUMN %s INTEGER`, col)); err != nil {
		return 0, fmt.Errorf("adding distance column %s: %w", col, err)
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_mvp_points_%s ON mvp_points(%s)`, col, col)); err != nil {
		return 0, fmt.Errorf("indexing distance column %s: %w", col, err)
	}

	// Any statement mentioning this column's position in a SELECT * or the
	// fixed column list is now stale; the insert_point statement is rebuilt
	// lazily from the refreshed vpIDs below.
	idx.stmts.evictContaining("mvp_points")

	selectStmt, err := idx.stmts.getTx(ctx, tx, `SELECT id, value FROM mvp_points`)
	if err != nil {
		return 0, fmt.Errorf("preparing existing-points scan: %w", err)
	}
	rows, err := selectStmt.QueryContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("reading existing points: %w", err)
	}
	type existingPoint struct {
		id    int64
		value []byte
	}
	var points []existingPoint
	for rows.Next() {
		var p existingPoint
		if err := rows.Scan(&p.id, &p.value); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scanning existing point: %w", err)
		}
		points = append(points, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("reading existing points: %w", err)
	}

	updateStmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`UPDATE mvp_points SET %s = ? WHERE id = ?`, col))
	if err != nil {
		return 0, fmt.Errorf("preparing distance backfill: %w", err)
	}
	defer updateStmt.Close()

	for _, p := range points {
		d, err := idx.distance(value, p.value)
		if err != nil {
			return 0, fmt.Errorf("computing distance for point %d: %w", p.id, err)
		}
		if _, err := updateStmt.ExecContext(ctx, int64(d), p.id); err != nil {
			return 0, fmt.Errorf("backfilling distance for point %d: %w", p.id, err)
		}
	}

	pointCount, err := idx.balanceTx(ctx, tx, vpID)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing vantage point insertion: %w", err)
	}

	vpIDs, err := idx.loadVantagePointIDs(ctx)
	if err != nil {
		return 0, err
	}
	idx.vpIDs = vpIDs
	if idx.insertPointStmt != nil {
		idx.insertPointStmt.Close()
		idx.insertPointStmt = nil
	}

	idx.publish(ctx, eventstream.NewVantagePointPromotedEvent(vpID, hex.EncodeToString(value), pointCount))

	return vpID, nil
}
