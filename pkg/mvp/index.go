// Package mvp implements a Multi-Vantage-Point similarity index over
// fixed-length byte vectors, backed by SQLite. Callers insert points,
// promote points to vantage points, periodically rebalance shell
// boundaries, and run radius-bounded queries that are pruned by partition
// membership rather than scanned row by row.
package mvp

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/s-bear/image-hash/pkg/eventstream"
	"github.com/s-bear/image-hash/pkg/eventstream/nop"
)

// Config configures an Index.
type Config struct {
	// Path is the SQLite database file path (or ":memory:").
	Path string

	// Distance is the user-supplied metric, registered as the mvp_distance
	// SQL scalar function. Required.
	Distance DistanceFunc

	// Logger receives structured diagnostics. Defaults to a no-op logger.
	Logger *zap.Logger

	// Publisher receives point_inserted/vantage_point_promoted/balanced
	// events after each committed mutation. Defaults to a no-op publisher.
	Publisher eventstream.Publisher
}

// Index is an open handle on one MVP-indexed SQLite database. An Index is
// not safe for concurrent use: at most one writer operates on a handle at a
// time, and query() mutates mvp_query as a side effect, so mu serializes
// the inserting, balancing, querying and vantage-point operations.
// CountPoints, CountVantagePoints, Stats and Close do not take mu.
type Index struct {
	db        *sql.DB
	logger    *zap.Logger
	publisher eventstream.Publisher
	distance  DistanceFunc
	stmts     *statementCache

	mu              sync.Mutex
	vpIDs           []int64
	insertPointStmt *sql.Stmt
}

// Open opens (creating if necessary) the SQLite database at cfg.Path,
// installs the distance oracle, migrates the schema, and returns a ready
// Index.
func Open(ctx context.Context, cfg Config) (*Index, error) {
	if cfg.Distance == nil {
		return nil, fmt.Errorf("mvp: Config.Distance is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	publisher := cfg.Publisher
	if publisher == nil {
		publisher = nop.NewPublisher()
	}

	driverName := registerDistanceOracle(cfg.Distance)

	db, err := sql.Open(driverName, cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// mvp_query is a per-connection temp table, and query() relies on
	// DELETE-then-INSERT against it being visible to every subsequent
	// statement. A pooled connection would break that, so this index runs
	// single-connection, one writer at a time.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	idx := &Index{
		db:        db,
		logger:    logger,
		publisher: publisher,
		distance:  cfg.Distance,
		stmts:     newStatementCache(db),
	}

	vpIDs, err := idx.loadVantagePointIDs(ctx)
	if err != nil {
		db.Close()
		return nil, err
	}
	idx.vpIDs = vpIDs

	logger.Info("mvp index opened",
		zap.String("path", cfg.Path),
		zap.Int("vantage_points", len(vpIDs)),
	)

	return idx, nil
}

// Close closes the underlying database connection and releases cached
// prepared statements.
func (idx *Index) Close() error {
	if err := idx.stmts.closeAll(); err != nil {
		idx.logger.Warn("closing statement cache", zap.Error(err))
	}
	if idx.insertPointStmt != nil {
		idx.insertPointStmt.Close()
	}
	return idx.db.Close()
}

// CountPoints returns the cached total number of points in the index.
func (idx *Index) CountPoints(ctx context.Context) (int64, error) {
	stmt, err := idx.stmts.get(ctx, `SELECT points FROM mvp_counts WHERE id = 1`)
	if err != nil {
		return 0, fmt.Errorf("preparing point count: %w", err)
	}
	var n int64
	if err := stmt.QueryRowContext(ctx).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting points: %w", err)
	}
	return n, nil
}

// CountVantagePoints returns the cached total number of vantage points.
func (idx *Index) CountVantagePoints(ctx context.Context) (int64, error) {
	stmt, err := idx.stmts.get(ctx, `SELECT vantage_points FROM mvp_counts WHERE id = 1`)
	if err != nil {
		return 0, fmt.Errorf("preparing vantage point count: %w", err)
	}
	var n int64
	if err := stmt.QueryRowContext(ctx).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting vantage points: %w", err)
	}
	return n, nil
}

// VantagePointStats summarizes one vantage point's boundaries and shell
// occupancy, used by `imghash stats`.
type VantagePointStats struct {
	ID                             int64
	Bound1, Bound2, Bound3         int64
	Count0, Count1, Count2, Count3 int64
}

// Stats returns per-vantage-point shell occupancy in ascending id order.
func (idx *Index) Stats(ctx context.Context) ([]VantagePointStats, error) {
	vps, err := idx.loadVantagePoints(ctx)
	if err != nil {
		return nil, err
	}

	stats := make([]VantagePointStats, len(vps))
	for i, vp := range vps {
		stats[i] = VantagePointStats{
			ID:     vp.id,
			Bound1: vp.bound1, Bound2: vp.bound2, Bound3: vp.bound3,
			Count0: vp.count0, Count1: vp.count1, Count2: vp.count2, Count3: vp.count3,
		}
	}
	return stats, nil
}

// publish forwards event to the configured Publisher, stamping EmittedAt.
// Publish failures are logged and otherwise ignored: observability must
// never block the write path.
func (idx *Index) publish(ctx context.Context, event eventstream.Event) {
	event.EmittedAt = time.Now().UTC()
	if err := idx.publisher.Publish(ctx, event); err != nil {
		idx.logger.Warn("publishing event", zap.String("type", event.Type), zap.Error(err))
	}
}

// sameIDs reports whether a and b contain the same ids in the same order.
func sameIDs(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
