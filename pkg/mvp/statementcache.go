package mvp

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
)

// statementCache is a keyed map from SQL text to a prepared statement.
// Repeated calls for the same text return the same *sql.Stmt, which every
// fixed-SQL operation in this package goes through (counts, vantage-point
// loads, the per-partition query insert, balance boundary/repair updates).
// insert_point is managed outside this cache (see points.go) because its
// column list varies with the active vantage-point set, and grows a new
// d{vp_id} column whenever InsertVantagePoint runs.
type statementCache struct {
	db *sql.DB

	mu    sync.Mutex
	stmts map[string]*sql.Stmt
}

func newStatementCache(db *sql.DB) *statementCache {
	return &statementCache{db: db, stmts: make(map[string]*sql.Stmt)}
}

// get returns the cached statement for sqlText, preparing and caching it on
// first use.
func (c *statementCache) get(ctx context.Context, sqlText string) (*sql.Stmt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if stmt, ok := c.stmts[sqlText]; ok {
		return stmt, nil
	}

	stmt, err := c.db.PrepareContext(ctx, sqlText)
	if err != nil {
		return nil, fmt.Errorf("preparing statement: %w", err)
	}

	c.stmts[sqlText] = stmt
	return stmt, nil
}

// evictContaining closes and removes every cached statement whose SQL text
// mentions substr. Used right after a per-vantage-point distance column is
// added, so statements prepared against the old column list aren't reused.
func (c *statementCache) evictContaining(substr string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for text, stmt := range c.stmts {
		if strings.Contains(text, substr) {
			stmt.Close()
			delete(c.stmts, text)
		}
	}
}

// getTx returns the cached statement for sqlText bound to tx, preparing and
// caching the underlying *sql.Stmt on first use the same way get does.
func (c *statementCache) getTx(ctx context.Context, tx *sql.Tx, sqlText string) (*sql.Stmt, error) {
	stmt, err := c.get(ctx, sqlText)
	if err != nil {
		return nil, err
	}
	return tx.StmtContext(ctx, stmt), nil
}

// closeAll closes every cached statement.
func (c *statementCache) closeAll() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var firstErr error
	for text, stmt := range c.stmts {
		if err := stmt.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(c.stmts, text)
	}
	return firstErr
}
