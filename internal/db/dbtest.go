package db

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"
	"testing"
)

var memSeq atomic.Int64

// OpenMemory returns a private in-memory SQLite database with the schema
// applied. It is closed when the test ends.
func OpenMemory(t testing.TB) *sql.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:questgen_test_%d?mode=memory&cache=shared&_pragma=foreign_keys(1)", memSeq.Add(1))
	conn, err := Open(context.Background(), DriverSQLite, dsn, PoolConfig{MaxOpenConns: 1})
	if err != nil {
		t.Fatalf("open memory db: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}
