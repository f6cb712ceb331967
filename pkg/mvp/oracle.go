package mvp

import (
	"database/sql"
	"fmt"
	"sync/atomic"

	"github.com/mattn/go-sqlite3"
)

// DistanceFunc computes the metric distance between two point values.
// It must be non-negative, symmetric, satisfy identity-of-indiscernibles,
// and the triangle inequality; the index's correctness proofs all rest on
// this contract holding.
type DistanceFunc func(a, b []byte) (uint32, error)

var oracleDriverSeq int64

// registerDistanceOracle registers mvp_distance(blob, blob) -> int as a
// SQLite scalar function on a freshly-named driver bound to distance, and
// returns the driver name to pass to sql.Open. Each Index gets its own
// driver registration because the distance function is supplied per-Index
// rather than fixed at compile time; sql.Register has no unregister, so
// the oracle lives for the process once installed and is simply unused
// once its Index's *sql.DB is closed.
func registerDistanceOracle(distance DistanceFunc) string {
	name := fmt.Sprintf("sqlite3_mvp_%d", atomic.AddInt64(&oracleDriverSeq, 1))

	sql.Register(name, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc("mvp_distance", func(a, b []byte) (int64, error) {
				d, err := distance(a, b)
				if err != nil {
					return 0, err
				}
				return int64(d), nil
			}, true)
		},
	})

	return name
}
