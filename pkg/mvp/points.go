package mvp

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/s-bear/image-hash/pkg/eventstream"
)

// InsertPoint inserts value as a new point, or returns the id of the
// existing point with equal value with no side effects. On insertion it
// computes value's distance to every current vantage point, assigns a
// shell under each one's current boundaries, and stores the resulting
// partition key alongside one distance column per vantage point.
func (idx *Index) InsertPoint(ctx context.Context, value []byte) (int64, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	existingStmt, err := idx.stmts.get(ctx, `SELECT id FROM mvp_points WHERE value = ?`)
	if err != nil {
		return 0, fmt.Errorf("preparing existing-point check: %w", err)
	}
	var existingID int64
	err = existingStmt.QueryRowContext(ctx, value).Scan(&existingID)
	if err == nil {
		return existingID, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("checking existing point: %w", err)
	}

	vps, err := idx.loadVantagePoints(ctx)
	if err != nil {
		return 0, err
	}

	type assignment struct {
		vpID  int64
		dist  int64
		shell int
	}
	assignments := make([]assignment, len(vps))
	var partition int64
	for i, vp := range vps {
		d, err := idx.distance(vp.value, value)
		if err != nil {
			return 0, fmt.Errorf("computing distance to vantage point %d: %w", vp.id, err)
		}
		shell := shellOf(int64(d), vp.bound1, vp.bound2, vp.bound3)
		if shell < 0 || shell > 3 {
			return 0, ErrInvalidShell
		}
		assignments[i] = assignment{vpID: vp.id, dist: int64(d), shell: shell}
		partition |= shellBits(shell, vp.id)
	}

	if err := idx.ensureInsertPointStmt(ctx); err != nil {
		return 0, err
	}

	tx, err := idx.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning point insertion: %w", err)
	}
	defer tx.Rollback()

	txStmt := tx.StmtContext(ctx, idx.insertPointStmt)
	params := make([]any, 0, 2+len(assignments))
	params = append(params, sql.Named("partition", partition), sql.Named("value", value))
	for _, a := range assignments {
		params = append(params, sql.Named(fmt.Sprintf("d%d", a.vpID), a.dist))
	}

	res, err := txStmt.ExecContext(ctx, params...)
	if err != nil {
		return 0, fmt.Errorf("inserting point: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading new point id: %w", err)
	}

	incCountStmt, err := idx.stmts.getTx(ctx, tx, `UPDATE mvp_counts SET points = points + 1 WHERE id = 1`)
	if err != nil {
		return 0, fmt.Errorf("preparing point count increment: %w", err)
	}
	if _, err := incCountStmt.ExecContext(ctx); err != nil {
		return 0, fmt.Errorf("incrementing point count: %w", err)
	}

	for _, a := range assignments {
		col := fmt.Sprintf("count_%d", a.shell)
		q := fmt.Sprintf(`UPDATE mvp_vantage_points SET %s = %s + 1 WHERE id = ?`, col, col)
		incShellStmt, err := idx.stmts.getTx(ctx, tx, q)
		if err != nil {
			return 0, fmt.Errorf("preparing shell count increment: %w", err)
		}
		if _, err := incShellStmt.ExecContext(ctx, a.vpID); err != nil {
			return 0, fmt.Errorf("incrementing shell count for vantage point %d: %w", a.vpID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing point insertion: %w", err)
	}

	idx.publish(ctx, eventstream.NewPointInsertedEvent(id, hex.EncodeToString(value)))

	return id, nil
}

// PointValue returns the stored value for point id, used to promote an
// already-indexed point to a vantage point without re-hashing its source.
func (idx *Index) PointValue(ctx context.Context, id int64) ([]byte, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	stmt, err := idx.stmts.get(ctx, `SELECT value FROM mvp_points WHERE id = ?`)
	if err != nil {
		return nil, fmt.Errorf("preparing point value lookup: %w", err)
	}
	var value []byte
	err = stmt.QueryRowContext(ctx, id).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPointNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading point value: %w", err)
	}
	return value, nil
}

// PointPartition returns the partition key stored for point id, the same
// value InsertPoint computed when the point was first inserted.
func (idx *Index) PointPartition(ctx context.Context, id int64) (int64, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	stmt, err := idx.stmts.get(ctx, `SELECT partition FROM mvp_points WHERE id = ?`)
	if err != nil {
		return 0, fmt.Errorf("preparing point partition lookup: %w", err)
	}
	var partition int64
	err = stmt.QueryRowContext(ctx, id).Scan(&partition)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrPointNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("reading point partition: %w", err)
	}
	return partition, nil
}

// ensureInsertPointStmt lazily (re)builds the cached insert_point statement
// for the current vantage-point id set. InsertVantagePoint clears
// idx.insertPointStmt whenever that set changes.
func (idx *Index) ensureInsertPointStmt(ctx context.Context) error {
	if idx.insertPointStmt != nil {
		return nil
	}

	stmt, err := idx.db.PrepareContext(ctx, buildInsertPointSQL(idx.vpIDs))
	if err != nil {
		return fmt.Errorf("preparing insert_point: %w", err)
	}
	idx.insertPointStmt = stmt
	return nil
}

// buildInsertPointSQL names exactly the current d{vp_id} columns, bound by
// name so the caller doesn't need to track positional ordering.
func buildInsertPointSQL(vpIDs []int64) string {
	cols := []string{"partition", "value"}
	placeholders := []string{"$partition", "$value"}
	for _, id := range vpIDs {
		col := fmt.Sprintf("d%d", id)
		cols = append(cols, col)
		placeholders = append(placeholders, "$"+col)
	}
	return fmt.Sprintf("INSERT INTO mvp_points(%s) VALUES (%s)",
		strings.Join(cols, ", "), strings.Join(placeholders, ", "))
}
