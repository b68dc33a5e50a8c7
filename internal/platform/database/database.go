// Package database opens the relational store behind the catalog mapper
// and hides the placeholder differences between the supported dialects.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	_ "github.com/lib/pq"              // registers the "postgres" driver
	_ "modernc.org/sqlite"             // registers the "sqlite" driver
)

// Dialect is the SQL flavour spoken by an open database.
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// DialectFor maps a database/sql driver name onto its dialect.
func DialectFor(driver string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "postgres", "pgx":
		return Postgres, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	}
	return "", fmt.Errorf("unsupported database driver %q", driver)
}

// Rebind rewrites "?" placeholders into the dialect's native form. Queries
// must not contain literal question marks.
func (d Dialect) Rebind(query string) string {
	if d != Postgres || !strings.Contains(query, "?") {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// DB couples a pool with the dialect its queries must be rebound for.
type DB struct {
	*sql.DB
	Dialect Dialect
}

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Open connects to dsn with the named driver ("postgres", "pgx" or
// "sqlite") and verifies the connection. SQLite pools are capped at one
// connection because the engine serialises writers anyway.
func Open(ctx context.Context, driver, dsn string) (*DB, error) {
	dialect, err := DialectFor(driver)
	if err != nil {
		return nil, err
	}
	name := strings.ToLower(strings.TrimSpace(driver))
	if name == "sqlite3" {
		name = "sqlite"
	}

	if dialect == SQLite {
		dsn = sqliteDSN(dsn)
	}

	openMu.Lock()
	db, err := sqlOpen(name, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}

	switch dialect {
	case SQLite:
		db.SetMaxOpenConns(1)
	case Postgres:
		db.SetMaxOpenConns(10)
		db.SetConnMaxIdleTime(5 * time.Minute)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", name, err)
	}
	if dialect == SQLite {
		if _, err := db.ExecContext(ctx, `PRAGMA foreign_keys = ON`); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("enable sqlite foreign keys: %w", err)
		}
	}
	return &DB{DB: db, Dialect: dialect}, nil
}

// sqliteDSN makes writers on a shared database file wait for each other:
// transactions take the write lock when they begin and a locked database
// is retried for up to ten seconds. In-memory databases and DSNs that
// already set these parameters are left alone.
func sqliteDSN(dsn string) string {
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		return dsn
	}
	var params []string
	if !strings.Contains(dsn, "busy_timeout") {
		params = append(params, "_pragma=busy_timeout(10000)")
	}
	if !strings.Contains(dsn, "_txlock") {
		params = append(params, "_txlock=immediate")
	}
	if len(params) == 0 {
		return dsn
	}
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(params, "&")
}

// OpenMemory opens a private in-memory SQLite database.
func OpenMemory(ctx context.Context) (*DB, error) {
	return Open(ctx, "sqlite", ":memory:")
}
